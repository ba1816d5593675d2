package gateway

import (
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/cvetlicarna/internal/auth"
)

type tokenRequest struct {
	ClientID string `json:"client_id" validate:"required"`
	Secret   string `json:"secret" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// IssueToken handles POST /auth/token. Connectors exchange the shared secret
// for a JWT they use on every later request.
func (g *Gateway) IssueToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := g.validate.Struct(req); err != nil {
		jsonError(w, http.StatusBadRequest, "client_id and secret required")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(g.SecretHash), []byte(req.Secret)); err != nil {
		slog.Warn("token request rejected", "client_id", req.ClientID, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(g.JWTSecret, req.ClientID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("connector authenticated", "client_id", req.ClientID)
	jsonResponse(w, http.StatusOK, tokenResponse{Token: token})
}
