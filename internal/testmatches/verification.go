package testmatches

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	"github.com/LuSo58/billboards-evaluation/internal/domain/scoring"
	"github.com/LuSo58/billboards-evaluation/internal/domain/types"
	"github.com/LuSo58/billboards-evaluation/pkg/logger"
)

// ExpectedStandings scores every match locally and returns the cumulative
// standings the service should report, ranked like the service ranks them.
func ExpectedStandings(matches []Match) ([]types.Entry, error) {
	engine := scoring.NewEngine()
	totals := make(model.ScoreTable)
	for i, m := range matches {
		scores, err := engine.Evaluate(m.Board, m.Window)
		if err != nil {
			return nil, fmt.Errorf("match %d: %w", i, err)
		}
		if err := scoring.Merge(totals, scores); err != nil {
			return nil, fmt.Errorf("match %d: %w", i, err)
		}
	}

	entries := make([]types.Entry, 0, len(totals))
	for team, score := range totals {
		entries = append(entries, types.Entry{Team: team, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Team < entries[j].Team
	})
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Score != entries[i-1].Score {
			rank++
		}
		entries[i].Rank = rank
	}
	return entries, nil
}

// CheckLeaderboardOrder reports the first pair of entries out of order.
func CheckLeaderboardOrder(leaderboard []types.Entry) error {
	for i := 1; i < len(leaderboard); i++ {
		prev, cur := leaderboard[i-1], leaderboard[i]
		if cur.Score > prev.Score || (cur.Score == prev.Score && cur.Team < prev.Team) {
			return fmt.Errorf("leaderboard not properly sorted: entry %d (%s) before entry %d (%s)",
				i-1, prev.Team, i, cur.Team)
		}
	}
	return nil
}

// CompareScores returns the number of teams whose observed score differs from
// the expected one. Missing teams count as mismatches.
func CompareScores(expected []types.Entry, observed map[string]types.Entry) int {
	mismatches := 0
	for _, want := range expected {
		got, ok := observed[want.Team]
		if !ok || got.Score != want.Score {
			mismatches++
		}
	}
	return mismatches
}

// verifyResults checks the service state against locally computed standings.
// Score mismatches are warnings: the service may hold standings from earlier
// runs.
func verifyResults(ctx context.Context, matches []Match, rankings map[string]types.Entry, leaderboard []types.Entry, stats *Stats) error {
	if len(rankings) == 0 {
		return errors.New("no rankings to verify")
	}
	if err := CheckLeaderboardOrder(leaderboard); err != nil {
		return err
	}

	expected, err := ExpectedStandings(matches)
	if err != nil {
		return fmt.Errorf("local scoring failed: %w", err)
	}
	stats.Mismatches = CompareScores(expected, rankings)
	if stats.Mismatches > 0 {
		logger.Get().Warn(ctx, "observed standings differ from local scoring",
			logger.Int("mismatches", stats.Mismatches),
			logger.Int("teams", len(expected)))
	} else {
		logger.Get().Info(ctx, "standings match local scoring", logger.Int("teams", len(expected)))
	}

	for i, e := range leaderboard {
		if i == 10 {
			break
		}
		logger.Get().Info(ctx, "leaderboard",
			logger.Int("rank", e.Rank),
			logger.String("team", e.Team),
			logger.Uint64("score", e.Score))
	}
	return nil
}
