package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes mounts the dashboard API.
func Routes(h *Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/status", h.GetStatus)

	r.Route("/pools", func(r chi.Router) {
		r.Get("/", h.ListPools)
		r.Get("/private", h.ListPrivatePools)
		r.Get("/contributed", h.ListContributedPools)
		r.Get("/{address}", h.GetPool)
	})

	r.Put("/session/active-pool", h.SetActivePool)

	r.Post("/transactions/encode", h.EncodeTransactions)
	r.Post("/transactions", h.SendTransactions)

	r.Post("/sync", h.Sync)

	return r
}
