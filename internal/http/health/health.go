package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Checks names the dependencies readiness depends on. An empty set is always ready.
type Checks map[string]Pinger

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// New builds a health check HTTP handler with liveness and readiness endpoints.
func New(log *slog.Logger, checks Checks, opTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Liveness: process is up
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Readiness: every dependency answers within opTimeout
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		body := readiness{Status: "ready", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				if log != nil {
					log.Warn("readiness failed", "check", name, "err", err)
				}
				body.Checks[name] = err.Error()
				body.Status = "not ready"
				status = http.StatusServiceUnavailable
				continue
			}
			body.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})

	return r
}
