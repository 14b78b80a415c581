package api

import (
	"context"
	"net/http"

	"github.com/mployhr/recruitdash/internal/domain/types"
)

// KPIDependencies covers the weekly KPI dataset.
type KPIDependencies interface {
	KPICards() []types.KPICard
	ApplyKPIEdit(ctx context.Context, name, field, raw string) error
	CommitKPI(ctx context.Context) error
	RollOver(ctx context.Context) error
}

// KPIHandler handles weekly KPI requests.
type KPIHandler struct {
	deps KPIDependencies
}

// NewKPIHandler creates a new KPI handler.
func NewKPIHandler(deps KPIDependencies) *KPIHandler {
	return &KPIHandler{deps: deps}
}

// HandleGetKPI handles GET /api/kpi requests.
func (h *KPIHandler) HandleGetKPI(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.KPICards())
}

// HandleEdit handles POST /api/kpi/edit requests. The edit is applied
// locally; it is persisted only when commit is set or on a later commit.
func (h *KPIHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	req, err := decodeEdit(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.deps.ApplyKPIEdit(r.Context(), req.Name, req.Field, string(req.Value)); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Commit {
		if err := h.deps.CommitKPI(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "committed"})
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "applied"})
}

// HandleCommit handles POST /api/kpi/commit requests.
func (h *KPIHandler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.deps.CommitKPI(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "committed"})
}

// HandleRollOver handles POST /api/kpi/rollover requests.
func (h *KPIHandler) HandleRollOver(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.deps.RollOver(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "rolled_over"})
}
