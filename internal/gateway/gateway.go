// Package gateway is the HTTP/WebSocket edge of the shop. Chat connectors
// authenticate once, POST inbound events, and receive outbound messages over
// a WebSocket. The gateway never interprets conversation state; it hands
// events to the dispatcher and fans replies back out.
package gateway

import (
	"database/sql"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/erazemk/cvetlicarna/internal/engine"
)

// Gateway holds the shared dependencies of all HTTP handlers.
type Gateway struct {
	DB         *sql.DB
	Dispatcher *engine.Dispatcher
	Hub        *Hub
	JWTSecret  string
	// SecretHash is the bcrypt hash of the shared connector secret.
	SecretHash string

	validate *validator.Validate
}

// New creates a Gateway.
func New(db *sql.DB, dispatcher *engine.Dispatcher, hub *Hub, jwtSecret, secretHash string) *Gateway {
	return &Gateway{
		DB:         db,
		Dispatcher: dispatcher,
		Hub:        hub,
		JWTSecret:  jwtSecret,
		SecretHash: secretHash,
		validate:   validator.New(),
	}
}

// Handler builds the full HTTP handler with all routes registered.
func (g *Gateway) Handler() http.Handler {
	router := httprouter.New()

	router.GET("/healthz", g.Healthz)
	router.POST("/auth/token", g.IssueToken)
	router.POST("/events", g.requireAuth(g.ReceiveEvent))
	router.GET("/ws", g.requireAuth(g.ServeWS))
	router.POST("/photos", g.requireAuth(g.UploadPhoto))
	router.GET("/photos/:token", g.ServePhoto)

	handler := cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(router)

	return LoggingMiddleware(handler)
}

// Healthz handles GET /healthz.
func (g *Gateway) Healthz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := g.DB.PingContext(r.Context()); err != nil {
		jsonError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
