package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/proposalflow/internal/http/auth"
	"github.com/MrJamesThe3rd/proposalflow/internal/http/proposal"
	"github.com/MrJamesThe3rd/proposalflow/internal/http/transition"
)

type Options struct {
	CORSOrigins []string
	Timeout     time.Duration
	JWTSecret   string
	JWTIssuer   string
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

func New(
	opts Options,
	proposalsV1 *proposal.Handler,
	transitionsV1 *transition.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if opts.Timeout > 0 {
		router.Use(middleware.Timeout(opts.Timeout))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(opts.JWTSecret, opts.JWTIssuer))

		r.Route("/proposals", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			proposalsV1.Routes(r)
			transitionsV1.Routes(r)
		})

		r.Route("/statuses", transitionsV1.StatusRoutes)
	})

	return router
}
