package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/destelloperu/destello-backend/api/responses"
	"github.com/destelloperu/destello-backend/pkg/config"
	pkgerrors "github.com/destelloperu/destello-backend/pkg/errors"
	"github.com/destelloperu/destello-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Destello-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the datastore and cache are reachable before
// reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, db pinger, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Destello-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		failed := false

		checks["database"] = "ok"
		if db == nil {
			checks["database"] = "unconfigured"
			failed = true
		} else if err := db.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			failed = true
		}

		checks["redis"] = "ok"
		if cache == nil {
			checks["redis"] = "unconfigured"
			failed = true
		} else if err := cache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			failed = true
		}

		if failed {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
