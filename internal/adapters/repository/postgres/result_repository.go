// Package postgres persists match results in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LuSo58/billboards-evaluation/internal/adapters/repository"
	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	"github.com/LuSo58/billboards-evaluation/internal/domain/zonelog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const endLayout = "15:04:05.999999999"

// ResultRepository implements repository.ResultStore on a pgx pool. The pool
// is owned by the caller; Close is a no-op.
type ResultRepository struct {
	pool *pgxpool.Pool
}

var _ repository.ResultStore = (*ResultRepository)(nil)

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Save inserts the result or replaces the stored one for the same match.
func (r *ResultRepository) Save(ctx context.Context, res model.MatchResult) error {
	const stmt = `
INSERT INTO match_results (match_id, submission_id, status, end_time, zones, scores, error, received_at, evaluated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (match_id) DO UPDATE SET
	submission_id = EXCLUDED.submission_id,
	status = EXCLUDED.status,
	end_time = EXCLUDED.end_time,
	zones = EXCLUDED.zones,
	scores = EXCLUDED.scores,
	error = EXCLUDED.error,
	received_at = EXCLUDED.received_at,
	evaluated_at = EXCLUDED.evaluated_at`

	var scores []byte
	if res.Scores != nil {
		raw, err := json.Marshal(res.Scores)
		if err != nil {
			return fmt.Errorf("encode scores: %w", err)
		}
		scores = raw
	}
	var evaluatedAt *time.Time
	if !res.EvaluatedAt.IsZero() {
		at := res.EvaluatedAt.UTC()
		evaluatedAt = &at
	}

	_, err := r.pool.Exec(ctx, stmt,
		res.MatchID, res.SubmissionID, string(res.Status), res.End.Format(endLayout), res.Zones,
		scores, res.Error, res.ReceivedAt.UTC(), evaluatedAt)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (r *ResultRepository) Get(ctx context.Context, matchID string) (model.MatchResult, error) {
	const query = `
SELECT match_id, submission_id, status, end_time, zones, scores, error, received_at, evaluated_at
FROM match_results
WHERE match_id = $1`

	var (
		res         model.MatchResult
		status      string
		end         string
		scores      []byte
		evaluatedAt *time.Time
	)
	err := r.pool.QueryRow(ctx, query, matchID).
		Scan(&res.MatchID, &res.SubmissionID, &status, &end, &res.Zones, &scores, &res.Error, &res.ReceivedAt, &evaluatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.MatchResult{}, repository.ErrNotFound
		}
		return model.MatchResult{}, fmt.Errorf("get result: %w", err)
	}

	res.Status = model.MatchStatus(status)
	if res.End, err = zonelog.ParseTimeOfDay(end); err != nil {
		return model.MatchResult{}, fmt.Errorf("decode end time %q: %w", end, err)
	}
	if scores != nil {
		if err := json.Unmarshal(scores, &res.Scores); err != nil {
			return model.MatchResult{}, fmt.Errorf("decode scores: %w", err)
		}
	}
	res.ReceivedAt = res.ReceivedAt.UTC()
	if evaluatedAt != nil {
		res.EvaluatedAt = evaluatedAt.UTC()
	}
	return res, nil
}

func (r *ResultRepository) Delete(ctx context.Context, matchID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM match_results WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return nil
}

// Close is a no-op; the pool belongs to the caller.
func (r *ResultRepository) Close() error { return nil }
