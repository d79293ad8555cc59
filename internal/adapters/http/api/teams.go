package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// TeamDependencies defines the interface for team lookups.
type TeamDependencies interface {
	Rank(ctx context.Context, team string) (Entry, error)
}

// TeamsHandler handles team standings requests.
type TeamsHandler struct {
	deps TeamDependencies
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps TeamDependencies) *TeamsHandler {
	return &TeamsHandler{deps: deps}
}

// HandleGetTeam handles GET /teams/{team} requests.
func (h *TeamsHandler) HandleGetTeam(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_team"
	team := strings.TrimSpace(mux.Vars(r)["team"])
	if team == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	entry, err := h.deps.Rank(r.Context(), team)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
