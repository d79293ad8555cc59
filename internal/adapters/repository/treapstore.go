package repository

import (
	"context"
	"math/bits"
	"sync"

	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	"github.com/LuSo58/billboards-evaluation/pkg/metrics"
	"github.com/cespare/xxhash/v2"
)

// Treap-based, in-memory Standings implementation.
//
// Ordering: score DESC, then team ASC. "less" means ranks earlier, so an
// in-order traversal yields the standings from best to worst. Node
// priorities are a hash of the team name, which keeps the tree balanced in
// expectation regardless of insertion order.

type node struct {
	team  string
	score uint64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aScore uint64, aTeam string, bScore uint64, bTeam string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aTeam < bTeam
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, team string, score uint64) *node {
	if n == nil {
		return &node{team: team, score: score, prio: xxhash.Sum64String(team), size: 1}
	}
	if less(score, team, n.score, n.team) {
		n.left = insert(n.left, team, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, team, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, team string, score uint64) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && team == n.team:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, team, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, team, score)
		}
	case less(score, team, n.score, n.team):
		n.left = deleteNode(n.left, team, score)
	default:
		n.right = deleteNode(n.right, team, score)
	}
	fix(n)
	return n
}

// walk visits nodes in rank order until fn returns false.
func walk(n *node, fn func(*node) bool) bool {
	if n == nil {
		return true
	}
	return walk(n.left, fn) && fn(n) && walk(n.right, fn)
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(root *node, limit int, out *[]Entry) {
	walk(root, func(n *node) bool {
		if len(*out) >= limit {
			return false
		}
		*out = append(*out, Entry{Team: n.team, Score: n.score})
		return true
	})
}

// assignRanksWithTies assigns dense ranks to entries sorted in rank order.
// Equal scores share a rank and the next distinct score gets the next rank.
func assignRanksWithTies(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Score != entries[i-1].Score {
			rank++
		}
		entries[i].Rank = rank
	}
}

// TreapStore implements Standings.
type TreapStore struct {
	mu     sync.RWMutex
	root   *node
	byTeam map[string]uint64
}

// NewTreapStore constructs an empty standings store.
func NewTreapStore() *TreapStore {
	return &TreapStore{byTeam: make(map[string]uint64)}
}

func (s *TreapStore) AddScores(_ context.Context, scores model.ScoreTable) error {
	if len(scores) == 0 {
		return nil
	}

	s.mu.Lock()
	// Validate the whole batch before touching the tree.
	next := make(map[string]uint64, len(scores))
	for team, add := range scores {
		sum, carry := bits.Add64(s.byTeam[team], add, 0)
		if carry != 0 {
			s.mu.Unlock()
			return ErrOverflow
		}
		next[team] = sum
	}
	for team, total := range next {
		if old, ok := s.byTeam[team]; ok {
			s.root = deleteNode(s.root, team, old)
		}
		s.byTeam[team] = total
		s.root = insert(s.root, team, total)
	}
	count := len(s.byTeam)
	s.mu.Unlock()

	metrics.UpdateStandingsTeams(count)
	return nil
}

func (s *TreapStore) Rank(_ context.Context, team string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.byTeam[team]
	if !ok {
		return Entry{}, ErrNotFound
	}

	// Count distinct scores ranked above this one.
	above := 0
	var prev uint64
	walk(s.root, func(n *node) bool {
		if n.score <= score {
			return false
		}
		if above == 0 || n.score != prev {
			above++
			prev = n.score
		}
		return true
	})
	rank := above + 1
	return Entry{Rank: rank, Team: team, Score: score}, nil
}

func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byTeam)))
	collectTopN(s.root, n, &out)
	assignRanksWithTies(out)
	return out, nil
}

func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byTeam)
}
