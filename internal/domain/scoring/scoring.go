// Package scoring computes per-team territory scores from zone control logs.
//
// Each event opens a control interval that lasts until the next event in the
// same zone, or until the match end for the last event. Scoring stops at the
// match end, so intervals are clipped to it. A team earns size * whole seconds
// for every interval it opens. Time before the first event is unclaimed.
package scoring

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

// Evaluator scores a whole board.
type Evaluator interface {
	Evaluate(board model.Board, window model.MatchWindow) (model.ScoreTable, error)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithParallelism sets how many zones are scored concurrently. Values below 2
// keep evaluation on the calling goroutine.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithInvariantChecks makes the engine verify that every zone log is sorted
// before scoring it.
func WithInvariantChecks(enabled bool) Option {
	return func(e *Engine) {
		e.checkInvariants = enabled
	}
}

// Engine implements Evaluator. It holds configuration only and is safe for
// concurrent use.
type Engine struct {
	parallelism     int
	checkInvariants bool
}

// NewEngine creates an engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{parallelism: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores every zone of board against window and sums the results per
// team. Teams that never appear in any log are absent from the table. A window
// without an end is always rejected with ErrInvariantViolation.
func (e *Engine) Evaluate(board model.Board, window model.MatchWindow) (model.ScoreTable, error) {
	if err := checkWindow(window); err != nil {
		return nil, err
	}
	if e.checkInvariants {
		for i := 0; i < board.Len(); i++ {
			if err := CheckZone(board.Zone(i)); err != nil {
				return nil, fmt.Errorf("zone %d: %w", i, err)
			}
		}
	}
	if e.parallelism < 2 || board.Len() < 2 {
		return evaluateSequential(board, window)
	}
	return e.evaluateParallel(board, window)
}

func evaluateSequential(board model.Board, window model.MatchWindow) (model.ScoreTable, error) {
	total := make(model.ScoreTable)
	for i := 0; i < board.Len(); i++ {
		partial, err := ScoreZone(board.Zone(i), window)
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", i, err)
		}
		if err := Merge(total, partial); err != nil {
			return nil, fmt.Errorf("zone %d: %w", i, err)
		}
	}
	return total, nil
}

// evaluateParallel maps zones to partial tables concurrently, then folds them
// in zone order. Merge is a plain per-team sum so the fold order does not
// change the result.
func (e *Engine) evaluateParallel(board model.Board, window model.MatchWindow) (model.ScoreTable, error) {
	partials := make([]model.ScoreTable, board.Len())

	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i := 0; i < board.Len(); i++ {
		g.Go(func() error {
			partial, err := ScoreZone(board.Zone(i), window)
			if err != nil {
				return fmt.Errorf("zone %d: %w", i, err)
			}
			partials[i] = partial
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := make(model.ScoreTable)
	for i, partial := range partials {
		if err := Merge(total, partial); err != nil {
			return nil, fmt.Errorf("zone %d: %w", i, err)
		}
	}
	return total, nil
}

// ScoreZone computes one zone's contribution. Every team named in the log
// gets a key, even when all of its intervals are empty.
func ScoreZone(zone model.Zone, window model.MatchWindow) (model.ScoreTable, error) {
	if err := checkWindow(window); err != nil {
		return nil, err
	}
	out := make(model.ScoreTable)
	n := zone.Len()
	for i := 0; i < n; i++ {
		ev := zone.At(i)
		end := window.End
		if i+1 < n && zone.At(i+1).Time.Before(end) {
			end = zone.At(i + 1).Time
		}
		points, err := intervalPoints(zone.Size(), ev.Time, end)
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, ev.Team, err)
		}
		sum, carry := bits.Add64(out[ev.Team], points, 0)
		if carry != 0 {
			return nil, fmt.Errorf("team %q: %w", ev.Team, ErrOverflow)
		}
		out[ev.Team] = sum
	}
	return out, nil
}

// Merge adds src into dst per team.
func Merge(dst, src model.ScoreTable) error {
	for team, score := range src {
		sum, carry := bits.Add64(dst[team], score, 0)
		if carry != 0 {
			return fmt.Errorf("team %q: %w", team, ErrOverflow)
		}
		dst[team] = sum
	}
	return nil
}

// CheckZone reports ErrInvariantViolation for a zero size or a log that is
// not sorted by time.
func CheckZone(zone model.Zone) error {
	if zone.Size() == 0 {
		return fmt.Errorf("zone size is zero: %w", ErrInvariantViolation)
	}
	return CheckOrdered(zone)
}

// checkWindow rejects the zero MatchWindow. Its End lies on year 1 while log
// times lie on year 0, so every interval would span a whole year.
func checkWindow(window model.MatchWindow) error {
	if window.End.IsZero() {
		return fmt.Errorf("match window has no end: %w", ErrInvariantViolation)
	}
	return nil
}

// CheckOrdered reports ErrInvariantViolation if the zone log is not sorted by
// time.
func CheckOrdered(zone model.Zone) error {
	for i := 1; i < zone.Len(); i++ {
		if zone.At(i).Time.Before(zone.At(i - 1).Time) {
			return fmt.Errorf("event %d at %s precedes event %d at %s: %w",
				i, zone.At(i).Time.Format("15:04:05.999999999"),
				i-1, zone.At(i-1).Time.Format("15:04:05.999999999"),
				ErrInvariantViolation)
		}
	}
	return nil
}

// intervalPoints returns size * whole seconds of [from, to). Sub-second
// remainders are truncated and empty or negative spans score zero.
func intervalPoints(size uint64, from, to time.Time) (uint64, error) {
	if !to.After(from) {
		return 0, nil
	}
	seconds := uint64(to.Sub(from) / time.Second)
	hi, lo := bits.Mul64(size, seconds)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}
