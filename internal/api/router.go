package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	APIBase    string       // route prefix, e.g. "/api"; empty for none
	CORSOrigin string       // allowed browser origin
	Live       http.Handler // websocket feed, optional
	Metrics    http.Handler // prometheus exposition, optional
}

func NewRouter(apiHandler *APIHandler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(zapLogFormatter{logger: apiHandler.logger}))
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	r.Use(CORS(opts.CORSOrigin))

	r.NotFound(apiHandler.NotFoundHandler)
	r.Get("/", apiHandler.RootHandler)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	routes := func(r chi.Router) {
		// Public routes
		r.Get("/health", apiHandler.HealthHandler)
		r.Post("/ask", apiHandler.AskHandler)
		r.Post("/feedback", apiHandler.FeedbackHandler)
		r.Get("/analytics/snapshot", apiHandler.SnapshotHandler)
		r.Get("/search", apiHandler.SearchHandler)
		if opts.Live != nil {
			r.Method(http.MethodGet, "/live", opts.Live)
		}

		// Connector routes
		r.Route("/etl", func(r chi.Router) {
			r.Use(apiHandler.BearerAuthMiddleware)

			r.Get("/health", apiHandler.ETLHealthHandler)
			r.Post("/daily", apiHandler.IngestDailyHandler)
			r.Get("/{resource}", apiHandler.ExportHandler)
		})
	}
	// An empty base serves the API from the root.
	if opts.APIBase == "" {
		r.Group(routes)
	} else {
		r.Route(opts.APIBase, routes)
	}

	return r
}
