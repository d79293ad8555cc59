// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/LuSo58/billboards-evaluation/internal/app"
	"github.com/LuSo58/billboards-evaluation/internal/adapters/repository"
	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	"github.com/LuSo58/billboards-evaluation/internal/domain/scoring"
	"github.com/LuSo58/billboards-evaluation/internal/domain/types"
	"github.com/LuSo58/billboards-evaluation/internal/domain/zonelog"
	"github.com/gorilla/mux"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	MatchDependencies
	LeaderboardDependencies
	TeamDependencies
}

// Entry mirrors the read shape returned by standings queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	matchesHandler     *MatchesHandler
	leaderboardHandler *LeaderboardHandler
	teamsHandler       *TeamsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLeaderboardLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		matchesHandler:     NewMatchesHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLeaderboardLimit),
		teamsHandler:       NewTeamsHandler(deps),
	}
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(_ context.Context, router *mux.Router) {
	router.Use(MetricsMiddleware)

	router.HandleFunc("/healthz", s.healthHandler.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.statsHandler.HandleStats).Methods(http.MethodGet)
	router.HandleFunc("/evaluate", s.matchesHandler.HandleEvaluate).Methods(http.MethodPost)
	router.HandleFunc("/matches", s.matchesHandler.HandlePostMatch).Methods(http.MethodPost)
	router.HandleFunc("/matches/{id}", s.matchesHandler.HandleGetMatch).Methods(http.MethodGet)
	router.HandleFunc("/leaderboard", s.leaderboardHandler.HandleGetLeaderboard).Methods(http.MethodGet)
	router.HandleFunc("/teams/{team}", s.teamsHandler.HandleGetTeam).Methods(http.MethodGet)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
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
	resp := errorResponse{Code: code, Message: msg}
	var perr *zonelog.ParseError
	if errors.As(err, &perr) {
		resp.Line = perr.Line
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps service and domain errors to HTTP responses.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	var perr *zonelog.ParseError
	switch {
	case errors.As(err, &perr):
		writeError(w, http.StatusBadRequest, "parse_error", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrInvalidSubmission), errors.Is(err, zonelog.ErrInvalidSize):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", Wrap(op, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	case errors.Is(err, scoring.ErrOverflow), errors.Is(err, model.ErrScoreOverflow):
		writeError(w, http.StatusUnprocessableEntity, "score_overflow", Wrap(op, err))
	case errors.Is(err, scoring.ErrInvariantViolation):
		writeError(w, http.StatusInternalServerError, "invariant_violation", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
