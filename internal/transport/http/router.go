package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterConfig carries the handlers and settings the router needs.
type RouterConfig struct {
	WS          *WSHandler
	Visits      *VisitHandler
	Admin       *AdminHandler
	CORSOrigins []string
	Log         zerolog.Logger
}

// NewRouter wires every HTTP route.
func NewRouter(cfg RouterConfig) http.Handler {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(recoverer(cfg.Log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	// upgraded connections bypass request logging and CORS
	r.Get("/ws", cfg.WS.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(requestLogger(cfg.Log))
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))

		// share links point here: <base>/quiz/<slug>?data=<token>
		r.Get("/quiz/{slug}", cfg.Visits.Preview)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/quiz/{slug}", cfg.Visits.Preview)
			r.Post("/visits", cfg.Visits.Start)
			r.Get("/visits/{id}", cfg.Visits.Get)
			r.Post("/visits/{id}/actions", cfg.Visits.Act)
			r.Delete("/visits/{id}", cfg.Visits.End)

			r.Route("/admin", cfg.Admin.Routes)
		})
	})
	return r
}
