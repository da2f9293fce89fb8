package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storyreel/internal/http/handlers"
	"storyreel/internal/infra"
	"storyreel/internal/middleware"
)

// Options tune the router.
type Options struct {
	RateLimitPerMin int
	AllowedOrigins  []string
}

func NewRouter(app *handlers.App, logger *infra.Logger, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(opts.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/stories", func(r chi.Router) {
		r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/", app.CreateStory)
		r.Get("/{job_id}", app.GetStory)
	})

	return r
}
