package api

import (
	"net/http"

	service "github.com/mployhr/recruitdash/internal/app"
)

// StateDependencies exposes session and loading state.
type StateDependencies interface {
	State() service.State
}

// StateHandler handles session and loading-state requests.
type StateHandler struct {
	deps StateDependencies
}

// NewStateHandler creates a new state handler.
func NewStateHandler(deps StateDependencies) *StateHandler {
	return &StateHandler{deps: deps}
}

type sessionResponse struct {
	UserID    string `json:"userId"`
	Anonymous bool   `json:"anonymous"`
}

// HandleSession handles GET /api/session requests.
func (h *StateHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	st := h.deps.State()
	if st.UserID == "" {
		writeError(w, http.StatusServiceUnavailable, "unavailable", ErrNotAcceptable)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{UserID: st.UserID, Anonymous: st.Anonymous})
}

// HandleState handles GET /api/state requests.
func (h *StateHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.State())
}
