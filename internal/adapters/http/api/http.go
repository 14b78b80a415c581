// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	service "github.com/mployhr/recruitdash/internal/app"
	"github.com/mployhr/recruitdash/internal/domain/model"
	"github.com/mployhr/recruitdash/internal/domain/types"
)

const maxBodyBytes = 1 << 16

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StateDependencies
	KPIDependencies
	StarterDependencies
	LeaderboardDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	stateHandler       *StateHandler
	kpiHandler         *KPIHandler
	starterHandler     *StarterHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		stateHandler:       NewStateHandler(deps),
		kpiHandler:         NewKPIHandler(deps),
		starterHandler:     NewStarterHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/session", MetricsMiddleware(s.stateHandler.HandleSession, "session"))
	mux.HandleFunc("/api/state", MetricsMiddleware(s.stateHandler.HandleState, "state"))
	mux.HandleFunc("/api/kpi", MetricsMiddleware(s.kpiHandler.HandleGetKPI, "kpi"))
	mux.HandleFunc("/api/kpi/edit", MetricsMiddleware(s.kpiHandler.HandleEdit, "kpi_edit"))
	mux.HandleFunc("/api/kpi/commit", MetricsMiddleware(s.kpiHandler.HandleCommit, "kpi_commit"))
	mux.HandleFunc("/api/kpi/rollover", MetricsMiddleware(s.kpiHandler.HandleRollOver, "kpi_rollover"))
	mux.HandleFunc("/api/new-starters", MetricsMiddleware(s.starterHandler.HandleGetStarters, "new_starters"))
	mux.HandleFunc("/api/new-starters/edit", MetricsMiddleware(s.starterHandler.HandleEdit, "new_starters_edit"))
	mux.HandleFunc("/api/new-starters/commit", MetricsMiddleware(s.starterHandler.HandleCommit, "new_starters_commit"))
	mux.HandleFunc("/api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/api/leaderboard/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

// editRequest mirrors the OpenAPI schema for the edit endpoints.
type editRequest struct {
	Name  string    `json:"name"`
	Field string    `json:"field"`
	Value editValue `json:"value"`
	// Commit also persists the dataset, as a field losing focus does.
	Commit bool `json:"commit"`
}

func (e editRequest) validate() error {
	switch {
	case strings.TrimSpace(e.Name) == "":
		return errors.New("missing name")
	case strings.TrimSpace(e.Field) == "":
		return errors.New("missing field")
	}
	return nil
}

// editValue accepts the input box text either as a JSON string or a number.
type editValue string

func (v *editValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("value: %w", err)
		}
		*v = editValue(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	*v = editValue(n.String())
	return nil
}

func decodeEdit(w http.ResponseWriter, r *http.Request) (editRequest, error) {
	var req editRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err := req.validate(); err != nil {
		return req, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return req, nil
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service failures into HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrUnknownField):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrUnknownMember):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrNotSignedIn), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", fmt.Errorf("%w: %v", ErrNotAcceptable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return false
	}
	return true
}
