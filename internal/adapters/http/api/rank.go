package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RankHandler handles per-member rank requests.
type RankHandler struct {
	deps LeaderboardDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps LeaderboardDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /api/leaderboard/{name} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	raw := strings.TrimPrefix(r.URL.EscapedPath(), "/api/leaderboard/")
	if raw == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	name, err := url.PathUnescape(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	for _, e := range h.deps.Leaderboard() {
		if e.Name == name {
			writeJSON(w, http.StatusOK, e)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: %s", ErrNotFound, name))
}
