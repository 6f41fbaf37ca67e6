// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/encore/internal/adapters/repository"
	service "github.com/okian/encore/internal/app"
)

// SessionsHandler starts session run loops.
type SessionsHandler struct {
	starter SessionStarter
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(starter SessionStarter) *SessionsHandler {
	return &SessionsHandler{starter: starter}
}

// HandleStart handles POST /sessions/{id}/start requests.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	// Extract {id} from /sessions/{id}/start
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	idStr, ok := strings.CutSuffix(path, "/start")
	if !ok || idStr == "" || strings.Contains(idStr, "/") {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	switch err := h.starter.StartSession(r.Context(), id); {
	case err == nil:
		writeJSON(w, http.StatusAccepted, statusResponse{Status: "started"})
	case errors.Is(err, service.ErrSessionRunning):
		writeError(w, http.StatusConflict, "already_running", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
