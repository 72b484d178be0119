package controllers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flintflours/storefront-backend/api/responses"
	"github.com/flintflours/storefront-backend/pkg/config"
	pkgerrors "github.com/flintflours/storefront-backend/pkg/errors"
	"github.com/flintflours/storefront-backend/pkg/logger"
)

const readyTimeout = 3 * time.Second

// Pinger is satisfied by the db and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Flint-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency concurrently. Nil pingers are reported
// as skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Flint-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]Pinger{"database": dbP, "redis": redisP}
		results := map[string]string{"database": "skipped", "redis": "skipped"}
		var g errgroup.Group
		for name, p := range checks {
			if p == nil {
				continue
			}
			name, p := name, p
			g.Go(func() error {
				if err := p.Ping(ctx); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable")
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		for name, p := range checks {
			if p != nil {
				results[name] = "ok"
			}
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": results})
	}
}
