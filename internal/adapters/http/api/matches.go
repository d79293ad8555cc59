package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	"github.com/LuSo58/billboards-evaluation/internal/domain/types"
	"github.com/gorilla/mux"
)

// maxBodyBytes bounds a submission body.
const maxBodyBytes = 8 << 20

// MatchDependencies defines the match submission operations.
type MatchDependencies interface {
	Evaluate(ctx context.Context, sub types.Submission) (model.ScoreTable, error)
	Submit(ctx context.Context, sub types.Submission) (types.Ack, error)
	Result(ctx context.Context, matchID string) (types.MatchView, error)
}

// MatchesHandler handles match requests.
type MatchesHandler struct {
	deps MatchDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

func decodeSubmission(w http.ResponseWriter, r *http.Request) (types.Submission, error) {
	var sub types.Submission
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&sub); err != nil {
		return types.Submission{}, err
	}
	return sub, nil
}

// HandleEvaluate handles POST /evaluate: synchronous scoring, nothing stored.
func (h *MatchesHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate"
	sub, err := decodeSubmission(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	scores, err := h.deps.Evaluate(r.Context(), sub)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	total, err := scores.Total()
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	if scores == nil {
		scores = model.ScoreTable{}
	}
	writeJSON(w, http.StatusOK, types.EvaluateResponse{Scores: scores, Total: total})
}

// HandlePostMatch handles POST /matches: deduplicate and queue for scoring.
func (h *MatchesHandler) HandlePostMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_match"
	sub, err := decodeSubmission(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ack, err := h.deps.Submit(r.Context(), sub)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	if ack.Status == "duplicate" {
		writeJSON(w, http.StatusOK, ack)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}

// HandleGetMatch handles GET /matches/{id}.
func (h *MatchesHandler) HandleGetMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_match"
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	view, err := h.deps.Result(r.Context(), id)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
