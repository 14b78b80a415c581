package api

import (
	"context"
	"net/http"

	"github.com/mployhr/recruitdash/internal/domain/types"
)

// StarterDependencies covers the monthly new-starter dataset.
type StarterDependencies interface {
	StarterCards() []types.StarterCard
	ApplyNewStarterEdit(ctx context.Context, name, field, raw string) error
	CommitNewStarters(ctx context.Context) error
}

// StarterHandler handles new-starter requests.
type StarterHandler struct {
	deps StarterDependencies
}

// NewStarterHandler creates a new new-starter handler.
func NewStarterHandler(deps StarterDependencies) *StarterHandler {
	return &StarterHandler{deps: deps}
}

// HandleGetStarters handles GET /api/new-starters requests.
func (h *StarterHandler) HandleGetStarters(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.StarterCards())
}

// HandleEdit handles POST /api/new-starters/edit requests.
func (h *StarterHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	req, err := decodeEdit(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.deps.ApplyNewStarterEdit(r.Context(), req.Name, req.Field, string(req.Value)); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Commit {
		if err := h.deps.CommitNewStarters(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "committed"})
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "applied"})
}

// HandleCommit handles POST /api/new-starters/commit requests.
func (h *StarterHandler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.deps.CommitNewStarters(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "committed"})
}
