package config

const (
	EnvPrefix = "FLINT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "FLINT_APP_ENV"
	EnvPort         = "FLINT_APP_PORT"
	EnvDBDSN        = "FLINT_DB_DSN"
	EnvDBHost       = "FLINT_DB_HOST"
	EnvDBUser       = "FLINT_DB_USER"
	EnvDBName       = "FLINT_DB_NAME"
	EnvRedisURL     = "FLINT_REDIS_URL"
	EnvJWTSecret    = "FLINT_AUTH_JWT_SECRET"
	EnvJWTIssuer    = "FLINT_AUTH_JWT_ISSUER"
	EnvPaymentKeyID = "FLINT_PAYMENT_KEY_ID"
	EnvPaymentKey   = "FLINT_PAYMENT_KEY_SECRET"
	EnvCORSOrigins  = "FLINT_CORS_ALLOWED_ORIGINS"

	EnvClientAPIURL      = "FLINT_CARTCTL_API_URL"
	EnvClientStateDir    = "FLINT_CARTCTL_STATE_DIR"
	EnvClientStore       = "FLINT_CARTCTL_STORE"
	EnvClientRedisURL    = "FLINT_CARTCTL_REDIS_URL"
	EnvClientSyncTimeout = "FLINT_CARTCTL_SYNC_TIMEOUT"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
