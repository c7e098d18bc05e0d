package transporthttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/manishonc/car-rental/docs"
	"github.com/manishonc/car-rental/internal/http/handlers"
	"github.com/manishonc/car-rental/internal/middleware"
)

// Deps bundles feature handlers that implement handlers.Mountable plus the
// cross-cutting pieces of the middleware stack.
type Deps struct {
	Log            *slog.Logger
	Mounts         []handlers.Mountable
	Health         http.Handler
	APIKey         string
	AllowedOrigins []string
	Limiter        middleware.Limiter
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(d.AllowedOrigins))
	r.Use(middleware.APIKey(d.APIKey))
	if d.Limiter != nil {
		r.Use(middleware.RateLimit(d.Limiter, d.Log))
	}

	if d.Health != nil {
		r.Handle("/health", d.Health)
		r.Handle("/readyz", d.Health)
	}
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/swagger.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(docs.SwaggerInfo.ReadDoc()))
	})

	r.Group(func(r chi.Router) {
		if d.RequestTimeout > 0 {
			r.Use(chimw.Timeout(d.RequestTimeout))
		}
		r.Use(middleware.SetJSONContentType)

		// Mount each feature's routes into this router.
		for _, m := range d.Mounts {
			m.Mount(r)
		}
	})

	return r
}
