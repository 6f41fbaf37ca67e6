// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/encore/internal/adapters/http/stream"
	"github.com/okian/encore/internal/domain/model"
	"github.com/okian/encore/pkg/logger"
)

// EventsHandler upgrades authenticated requests to SSE streams.
type EventsHandler struct {
	registry     ClientRegistry
	issuer       *tokenIssuer
	pingInterval time.Duration
	logger       logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(registry ClientRegistry, issuer *tokenIssuer, pingInterval time.Duration, l logger.Logger) *EventsHandler {
	return &EventsHandler{
		registry:     registry,
		issuer:       issuer,
		pingInterval: pingInterval,
		logger:       l,
	}
}

// HandleEvents handles GET /events requests. The token comes from the
// session cookie or a bearer header; its subject is the client id the
// stream will serve. The handler blocks for the lifetime of the stream.
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.events"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	token := streamToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	sub, err := h.issuer.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", WrapKind(op, ErrUnauthorized, err))
		return
	}
	if _, _, err := model.ParseClientID(sub); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	client := h.registry.AttachClient(r.Context(), sub)
	defer h.registry.DetachClient(r.Context(), client)

	writer := stream.NewWriter(client,
		stream.WithPingInterval(h.pingInterval),
		stream.WithWriterLogger(h.logger.Named("stream")),
	)
	if err := writer.Run(r.Context(), w); err != nil {
		h.logger.Debug(r.Context(), "stream closed",
			logger.String("client_id", sub),
			logger.Error(err),
		)
	}
}

// streamToken extracts the token from the session cookie or the
// Authorization header, cookie first.
func streamToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return after
	}
	return ""
}
