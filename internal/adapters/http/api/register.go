// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"

	"github.com/okian/encore/internal/domain/model"
)

// RegisterHandler issues stream tokens for client ids.
type RegisterHandler struct {
	issuer *tokenIssuer
	ttl    time.Duration
}

// NewRegisterHandler creates a new register handler.
func NewRegisterHandler(issuer *tokenIssuer, ttl time.Duration) *RegisterHandler {
	return &RegisterHandler{issuer: issuer, ttl: ttl}
}

type registerResponse struct {
	Token string `json:"token"`
}

// HandleRegister handles GET /register?sub=<clientID> requests. It issues
// a signed token for the client id and mirrors it in a cookie so browser
// EventSource connections pick it up without a header.
func (h *RegisterHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sub := r.URL.Query().Get("sub")
	if _, _, err := model.ParseClientID(sub); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	token, err := h.issuer.Issue(sub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, registerResponse{Token: token})
}
