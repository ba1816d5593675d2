package gateway

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/erazemk/cvetlicarna/internal/engine"
)

type inboundEvent struct {
	Type    string `json:"type" validate:"required,oneof=text selection photo payment_succeeded"`
	UserID  int64  `json:"user_id" validate:"required"`
	Payload string `json:"payload"`
}

// ReceiveEvent handles POST /events. The event is queued for the user and
// handled asynchronously, so the connector gets a 202 immediately. Replies
// arrive over the WebSocket.
func (g *Gateway) ReceiveEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req inboundEvent
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := g.validate.Struct(req); err != nil {
		jsonError(w, http.StatusBadRequest, "type and user_id required")
		return
	}

	g.Dispatcher.Enqueue(engine.Event{
		Type:    engine.EventType(req.Type),
		UserID:  req.UserID,
		Payload: req.Payload,
	})

	jsonResponse(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
