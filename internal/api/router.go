// Package api exposes the relay over HTTP: the websocket endpoint, the
// conversation directory, health and metrics.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/directory"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/relay"
)

// Dependencies holds everything the HTTP surface needs.
type Dependencies struct {
	Directory      *directory.Directory
	Registry       *relay.Registry
	Store          chat.Store
	WebSocket      http.Handler
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// NewRouter builds the chi router with all routes mounted.
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger.With().Str("component", "http").Logger()
	h := &handlers{
		directory: deps.Directory,
		registry:  deps.Registry,
		store:     deps.Store,
		log:       log,
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", headerUserID, headerUserAdmin},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if deps.WebSocket != nil {
		r.Get("/ws", deps.WebSocket.ServeHTTP)
	}

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(Identity)

		r.Get("/messages/{userId}", h.history)
		r.Post("/mark-read", h.markRead)

		r.Group(func(r chi.Router) {
			r.Use(RequireOperator)
			r.Get("/conversations", h.conversations)
		})
	})

	return r
}
