// Package repository stores cumulative team standings and match results.
package repository

import (
	"context"

	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
)

// Entry represents a standings row.
type Entry struct {
	Rank  int
	Team  string
	Score uint64
}

// Standings accumulates team scores across matches.
type Standings interface {
	// AddScores adds every team score of one match. Either all teams are
	// updated or, on overflow, none are.
	AddScores(ctx context.Context, scores model.ScoreTable) error

	// Rank returns the dense rank and cumulative score of a team.
	// Returns ErrNotFound if the team is unknown.
	Rank(ctx context.Context, team string) (Entry, error)

	// TopN returns the best n teams ordered by score desc, team asc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of teams in the standings.
	Count(ctx context.Context) int
}

// ResultStore keeps the outcome of every submitted match.
type ResultStore interface {
	// Save inserts or replaces the result for result.MatchID.
	Save(ctx context.Context, result model.MatchResult) error

	// Get returns the result of a match or ErrNotFound.
	Get(ctx context.Context, matchID string) (model.MatchResult, error)

	// Delete removes a result. Deleting an unknown match is not an error.
	Delete(ctx context.Context, matchID string) error

	Close() error
}
