// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/encore/internal/domain/rendezvous"
)

// ResponseHandler delivers client responses to pending rendezvous tags.
type ResponseHandler struct {
	resolver TagResolver
}

// NewResponseHandler creates a new response handler.
func NewResponseHandler(resolver TagResolver) *ResponseHandler {
	return &ResponseHandler{resolver: resolver}
}

// responseRequest mirrors the wire shape of POST /response.
type responseRequest struct {
	Tag     string          `json:"tag"`
	Payload json.RawMessage `json:"payload"`
}

func (req responseRequest) validate() error {
	if strings.TrimSpace(req.Tag) == "" {
		return errors.New("missing tag")
	}
	return nil
}

// HandleResponse handles POST /response requests.
func (h *ResponseHandler) HandleResponse(w http.ResponseWriter, r *http.Request) {
	const op = "api.response"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req responseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	resolved, err := h.resolver.Resolve(r.Context(), req.Tag, req.Payload)
	if err != nil {
		if errors.Is(err, rendezvous.ErrBadTag) || errors.Is(err, rendezvous.ErrBadPayload) {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if !resolved {
		writeError(w, http.StatusNotFound, "no_waiter", errors.New("no waiter pending on tag"))
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "resolved"})
}
