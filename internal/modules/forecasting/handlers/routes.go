package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all forecasting routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/forecasts", func(r chi.Router) {
		r.Post("/", h.HandleCreateForecast)
		r.Get("/", h.HandleListForecasts)
		// Registered before /{id} so the literal path wins.
		r.Get("/stream", h.HandleStreamForecast)
		r.Get("/{id}", h.HandleGetForecast)
	})
}
