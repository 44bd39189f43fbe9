package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/koforecast/internal/modules/forecasting"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db := newTestDB(t)
	repo := forecasting.NewRepository(db.Conn(), zerolog.Nop())
	return New(Config{
		Log:         zerolog.Nop(),
		DB:          db,
		Forecasting: forecasting.NewService(repo, forecasting.Defaults{Workers: 1, Threshold: 0.95}, zerolog.Nop()),
		Workers:     1,
		Port:        0,
	})
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get("Content-Type"))
}

func TestServer_ForecastRoundTrip(t *testing.T) {
	s := newTestServer(t)

	body, err := json.Marshal(forecasting.Request{
		Data: [][]float64{
			{1.0, 1.2, 0.9, 1.4, 1.1, 1.3},
			{2.0, 2.3, 1.8, 2.6, 2.1, 2.4},
			{0.5, 0.4, 0.7, 0.3, 0.6, 0.45},
		},
		Options: forecasting.Options{Alpha: 0.5, K: 1},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/forecasts", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var run forecasting.Run
	require.NoError(t, json.NewDecoder(w.Body).Decode(&run))
	assert.Len(t, run.Output.Prediction, 3)

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/forecasts/"+run.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/forecasts", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
