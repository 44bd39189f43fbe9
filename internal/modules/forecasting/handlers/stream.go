package handlers

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/koforecast/internal/modules/forecasting"
)

const (
	streamReadTimeout  = 30 * time.Second
	streamWriteTimeout = 10 * time.Second
)

// Stream message types.
const (
	MessageProgress = "progress"
	MessageResult   = "result"
	MessageError    = "error"
)

// StreamMessage is one server-to-client message on the forecast stream.
type StreamMessage struct {
	Type    string           `json:"type"`
	Current int              `json:"current,omitempty"`
	Total   int              `json:"total,omitempty"`
	Message string           `json:"message,omitempty"`
	Run     *forecasting.Run `json:"run,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// HandleStreamForecast handles GET /api/forecasts/stream.
//
// The client sends one forecasting.Request as JSON. The server answers with a
// progress message per completed cross-validation evaluation and then exactly
// one result or error message before closing the connection.
func (h *Handler) HandleStreamForecast(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to accept websocket")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected exit")

	ctx := r.Context()

	var req forecasting.Request
	readCtx, cancel := context.WithTimeout(ctx, streamReadTimeout)
	err = wsjson.Read(readCtx, conn, &req)
	cancel()
	if err != nil {
		h.log.Debug().Err(err).Msg("Failed to read forecast request")
		h.send(ctx, conn, StreamMessage{Type: MessageError, Error: "invalid request: " + err.Error()})
		conn.Close(websocket.StatusUnsupportedData, "invalid request")
		return
	}

	run, err := h.svc.Forecast(req, func(current, total int, message string) {
		h.send(ctx, conn, StreamMessage{
			Type:    MessageProgress,
			Current: current,
			Total:   total,
			Message: message,
		})
	})
	if err != nil {
		h.send(ctx, conn, StreamMessage{Type: MessageError, Error: err.Error()})
		conn.Close(websocket.StatusNormalClosure, "forecast failed")
		return
	}

	h.send(ctx, conn, StreamMessage{Type: MessageResult, Run: run})
	conn.Close(websocket.StatusNormalClosure, "")
}

// send writes msg. A write failure is only logged: the forecast keeps running
// and is still stored.
func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg StreamMessage) {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, msg); err != nil {
		h.log.Debug().Err(err).Str("type", msg.Type).Msg("Failed to write stream message")
	}
}
