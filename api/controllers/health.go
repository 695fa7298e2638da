package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/amezav/storefront-backend/api/responses"
	"github.com/amezav/storefront-backend/pkg/config"
	"github.com/amezav/storefront-backend/pkg/db"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
	"github.com/amezav/storefront-backend/pkg/logger"
	"github.com/amezav/storefront-backend/pkg/redis"
	"github.com/amezav/storefront-backend/pkg/storage/gcs"
)

const readinessTimeout = 5 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency and reports per-dependency status.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger, gcsP gcs.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		check := func(name string, ping func(context.Context) error) {
			if ping == nil {
				checks[name] = "skipped"
				return
			}
			if err := ping(ctx); err != nil {
				checks[name] = "unreachable"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "health."+name, err)
				}
				return
			}
			checks[name] = "ok"
		}

		if dbP != nil {
			check("db", dbP.Ping)
		} else {
			checks["db"] = "skipped"
		}
		if redisP != nil {
			check("redis", redisP.Ping)
		} else {
			checks["redis"] = "skipped"
		}
		if gcsP != nil {
			check("gcs", gcsP.Ping)
		} else {
			checks["gcs"] = "skipped"
		}

		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		if !healthy {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
