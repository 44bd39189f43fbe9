// Package handlers provides HTTP and websocket handlers for forecasting.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/koforecast/internal/modules/crossval"
	"github.com/aristath/koforecast/internal/modules/forecasting"
	"github.com/aristath/koforecast/internal/modules/ko"
)

// maxRequestBytes bounds the size of a forecast request body.
const maxRequestBytes = 32 << 20

// Handler handles forecasting HTTP requests
type Handler struct {
	svc *forecasting.Service
	log zerolog.Logger
}

// NewHandler creates a new forecasting handler
func NewHandler(svc *forecasting.Service, log zerolog.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log.With().Str("handler", "forecasting").Logger(),
	}
}

// HandleCreateForecast handles POST /api/forecasts
func (h *Handler) HandleCreateForecast(w http.ResponseWriter, r *http.Request) {
	var req forecasting.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	run, err := h.svc.Forecast(req, nil)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Msg("Forecast failed")
		}
		h.writeError(w, status, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, run)
}

// HandleListForecasts handles GET /api/forecasts
func (h *Handler) HandleListForecasts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}

	runs, err := h.svc.List(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list forecast runs")
		h.writeError(w, http.StatusInternalServerError, "Failed to list forecast runs")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// HandleGetForecast handles GET /api/forecasts/{id}
func (h *Handler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.svc.Get(id)
	if errors.Is(err, forecasting.ErrRunNotFound) {
		h.writeError(w, http.StatusNotFound, "Forecast run not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to get forecast run")
		h.writeError(w, http.StatusInternalServerError, "Failed to get forecast run")
		return
	}

	h.writeJSON(w, http.StatusOK, run)
}

// statusFor maps forecasting errors to HTTP status codes. Bad options are the
// caller's fault; a numerical failure on valid options is unprocessable.
func statusFor(err error) int {
	for _, target := range []error{
		forecasting.ErrInvalidData,
		forecasting.ErrUnsupportedCombination,
		forecasting.ErrUnknownStrategy,
		ko.ErrInvalidShape,
		ko.ErrTooFewInstants,
		ko.ErrNonFinite,
		ko.ErrInvalidAlpha,
		ko.ErrInvalidThreshold,
		ko.ErrInvalidComponentCount,
		ko.ErrUnsupportedSelection,
		crossval.ErrInvalidWindow,
		crossval.ErrEmptySchedule,
		crossval.ErrEmptyGrid,
		crossval.ErrInvalidGrid,
		crossval.ErrUnknownSplit,
		crossval.ErrUnknownMetric,
	} {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	if errors.Is(err, ko.ErrEigenNotConverged) || errors.Is(err, ko.ErrNotPositiveDefinite) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
