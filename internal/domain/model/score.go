package model

import (
	"errors"
	"math/bits"
	"sort"
)

// ErrScoreOverflow is returned when a sum leaves the uint64 range.
var ErrScoreOverflow = errors.New("score overflow")

// ScoreTable maps team identifiers to accumulated scores.
type ScoreTable map[string]uint64

// Teams returns the team identifiers in ascending order.
func (t ScoreTable) Teams() []string {
	teams := make([]string, 0, len(t))
	for team := range t {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	return teams
}

// Total sums all scores, failing instead of wrapping.
func (t ScoreTable) Total() (uint64, error) {
	var total uint64
	for _, team := range t.Teams() {
		sum, carry := bits.Add64(total, t[team], 0)
		if carry != 0 {
			return 0, ErrScoreOverflow
		}
		total = sum
	}
	return total, nil
}

// Clone returns an independent copy. A nil table stays nil.
func (t ScoreTable) Clone() ScoreTable {
	if t == nil {
		return nil
	}
	out := make(ScoreTable, len(t))
	for team, score := range t {
		out[team] = score
	}
	return out
}
