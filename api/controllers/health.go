package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/tokenomics/api/responses"
	"github.com/angelmondragon/tokenomics/pkg/config"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/logger"
)

const (
	envHeader    = "X-Tokenomics-Env"
	readyTimeout = 2 * time.Second
)

// Pinger is satisfied by the database and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each named dependency. Nil pingers are skipped.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]string{}
		failed := false
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				failed = true
				continue
			}
			checks[name] = "up"
		}

		if failed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
