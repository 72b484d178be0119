package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Payment      PaymentConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
	Maintenance  MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FLINT_APP_ENV" required:"true"`
	Port         string `envconfig:"FLINT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FLINT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FLINT_LOG_WARN_STACK" default:"false"`
	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `envconfig:"FLINT_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN string `envconfig:"FLINT_DB_DSN"`

	Host     string `envconfig:"FLINT_DB_HOST"`
	Port     int    `envconfig:"FLINT_DB_PORT" default:"5432"`
	User     string `envconfig:"FLINT_DB_USER"`
	Password string `envconfig:"FLINT_DB_PASSWORD"`
	Name     string `envconfig:"FLINT_DB_NAME"`
	SSLMode  string `envconfig:"FLINT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FLINT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FLINT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FLINT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FLINT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FLINT_REDIS_URL"`
	Address      string        `envconfig:"FLINT_REDIS_ADDR"`
	Password     string        `envconfig:"FLINT_REDIS_PASSWORD"`
	DB           int           `envconfig:"FLINT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FLINT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FLINT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FLINT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FLINT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FLINT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AuthConfig holds the verification settings for tokens minted by the
// external identity provider.
type AuthConfig struct {
	JWTSecret string `envconfig:"FLINT_AUTH_JWT_SECRET" required:"true"`
	Issuer    string `envconfig:"FLINT_AUTH_JWT_ISSUER"`
	Audience  string `envconfig:"FLINT_AUTH_JWT_AUDIENCE" default:"authenticated"`
	// Leeway tolerates clock skew between us and the provider.
	Leeway time.Duration `envconfig:"FLINT_AUTH_JWT_LEEWAY" default:"30s"`
}

type PaymentConfig struct {
	KeyID     string        `envconfig:"FLINT_PAYMENT_KEY_ID"`
	KeySecret string        `envconfig:"FLINT_PAYMENT_KEY_SECRET"`
	BaseURL   string        `envconfig:"FLINT_PAYMENT_BASE_URL" default:"https://api.razorpay.com/v1"`
	Currency  string        `envconfig:"FLINT_PAYMENT_CURRENCY" default:"INR"`
	Timeout   time.Duration `envconfig:"FLINT_PAYMENT_TIMEOUT" default:"10s"`
}

// Enabled reports whether gateway credentials are present.
func (p PaymentConfig) Enabled() bool {
	return strings.TrimSpace(p.KeyID) != "" && strings.TrimSpace(p.KeySecret) != ""
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FLINT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FLINT_AUTO_MIGRATE" default:"false"`
	// IdempotencyTTL is how long replayable responses for order writes are kept.
	IdempotencyTTL time.Duration `envconfig:"FLINT_IDEMPOTENCY_TTL" default:"24h"`
}

// MaintenanceConfig drives the cron worker.
type MaintenanceConfig struct {
	Interval       time.Duration `envconfig:"FLINT_MAINTENANCE_INTERVAL" default:"15m"`
	UnpaidOrderTTL time.Duration `envconfig:"FLINT_MAINTENANCE_UNPAID_ORDER_TTL" default:"48h"`
	StaleCartTTL   time.Duration `envconfig:"FLINT_MAINTENANCE_STALE_CART_TTL" default:"1440h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
