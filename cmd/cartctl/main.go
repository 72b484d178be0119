package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/flintflours/storefront-backend/internal/cartsync"
	"github.com/flintflours/storefront-backend/pkg/auth"
	"github.com/flintflours/storefront-backend/pkg/config"
	"github.com/flintflours/storefront-backend/pkg/logger"
	"github.com/flintflours/storefront-backend/pkg/metrics"
	"github.com/flintflours/storefront-backend/pkg/redis"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(config.LoadClient, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cartctl:", err)
		os.Exit(1)
	}
}

// session is the engine plus everything built around it for one invocation.
type session struct {
	cfg      *config.ClientConfig
	logg     *logger.Logger
	registry *prometheus.Registry
	engine   *cartsync.Engine
	closers  []func() error
}

func openSession(ctx context.Context, cfg *config.ClientConfig, logOut io.Writer) (*session, error) {
	s := &session{
		cfg: cfg,
		logg: logger.New(logger.Options{
			ServiceName: "cartctl",
			Level:       logger.ParseLevel(cfg.LogLevel),
			Output:      logOut,
			Format:      "console",
		}),
		registry: prometheus.NewRegistry(),
	}

	var local cartsync.LocalStore
	switch cfg.Store {
	case config.LocalStoreRedis:
		client, err := redis.New(ctx, cfg.RedisConfig(), s.logg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		local = cartsync.NewRedisStore(client, cfg.Profile, cfg.LocalTTL)
	default:
		local = cartsync.NewFileStore(cfg.CartFile())
	}

	engine, err := cartsync.New(cartsync.Options{
		Local:       local,
		Logger:      s.logg,
		Observer:    metrics.NewCartSync(s.registry),
		SyncTimeout: cfg.SyncTimeout,
	})
	if err != nil {
		return nil, multierr.Append(err, s.close())
	}
	s.engine = engine

	token, err := s.readToken()
	if err != nil {
		return nil, multierr.Append(err, s.close())
	}
	if token == "" {
		engine.Load(ctx)
		return s, nil
	}
	if err := s.signIn(ctx, token); err != nil {
		return nil, multierr.Append(err, s.close())
	}
	return s, nil
}

func (s *session) signIn(ctx context.Context, token string) error {
	user, err := auth.PeekSubject(token)
	if err != nil {
		return fmt.Errorf("saved token is unusable, run login again: %w", err)
	}
	s.engine.SignIn(ctx, user.String(), cartsync.NewHTTPRemote(s.cfg.APIURL, token))
	return nil
}

func (s *session) readToken() (string, error) {
	raw, err := os.ReadFile(s.cfg.TokenFile())
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (s *session) writeToken(token string) error {
	if err := os.MkdirAll(s.cfg.StateDir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return os.WriteFile(s.cfg.TokenFile(), []byte(token+"\n"), 0o600)
}

func (s *session) removeToken() error {
	if err := os.Remove(s.cfg.TokenFile()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// settle waits for background syncs so nothing is lost when the process exits.
func (s *session) settle(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.SyncTimeout)
	defer cancel()
	if err := s.engine.Wait(waitCtx); err != nil {
		return fmt.Errorf("pending cart syncs did not finish: %w", err)
	}
	return nil
}

func (s *session) close() error {
	var err error
	for _, c := range s.closers {
		err = multierr.Append(err, c())
	}
	return err
}
