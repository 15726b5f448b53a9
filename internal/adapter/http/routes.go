package http

import "github.com/go-chi/chi/v5"

// MountRoutes mounts the API routes under /api/v1.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/calls", func(r chi.Router) {
			r.Post("/", h.ScheduleCalls)
			r.Get("/", h.ListActiveCalls)
			r.Get("/first", h.FirstActiveCall)
			r.Get("/completed", h.DrainCompleted)
			r.Post("/{callID}/cancel", h.CancelCall)
		})
		r.Route("/confirmations", func(r chi.Router) {
			r.Get("/", h.ListPendingConfirmations)
			r.Post("/{correlationID}", h.ResolveConfirmation)
		})
	})
}
