package worker_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/LuSo58/billboards-evaluation/internal/adapters/mq/queue"
	"github.com/LuSo58/billboards-evaluation/internal/adapters/mq/worker"
	"github.com/LuSo58/billboards-evaluation/internal/clock"
	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	"github.com/LuSo58/billboards-evaluation/internal/domain/scoring"
	"github.com/LuSo58/billboards-evaluation/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockStandings struct {
	mu     sync.Mutex
	totals map[string]uint64
	err    error
}

func newMockStandings() *mockStandings {
	return &mockStandings{totals: make(map[string]uint64)}
}

func (s *mockStandings) AddScores(_ context.Context, scores model.ScoreTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for team, score := range scores {
		s.totals[team] += score
	}
	return nil
}

func (s *mockStandings) total(team string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals[team]
}

type mockResults struct {
	mu      sync.Mutex
	results map[string]model.MatchResult
	err     error
}

func newMockResults() *mockResults {
	return &mockResults{results: make(map[string]model.MatchResult)}
}

func (r *mockResults) Save(_ context.Context, res model.MatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.results[res.MatchID] = res
	return nil
}

func (r *mockResults) get(id string) (model.MatchResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[id]
	return res, ok
}

func (r *mockResults) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func redBlueMatch(id string) model.Match {
	zone := model.NewZone(3, []model.Event{
		model.NewEvent(model.TimeOfDay(14, 0, 0), "red"),
		model.NewEvent(model.TimeOfDay(14, 0, 10), "blue"),
	})
	return model.Match{
		ID:           id,
		SubmissionID: "sub-" + id,
		Board:        model.NewBoard(zone),
		Window:       model.MatchWindow{End: model.TimeOfDay(14, 0, 30)},
		ReceivedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func overflowMatch(id string) model.Match {
	zone := model.NewZone(math.MaxUint64, []model.Event{model.NewEvent(model.TimeOfDay(8, 0, 0), "A")})
	return model.Match{
		ID:     id,
		Board:  model.NewBoard(zone),
		Window: model.MatchWindow{End: model.TimeOfDay(8, 0, 5)},
	}
}

func TestWorker_Process(t *testing.T) {
	_ = logger.Init()
	ctx := context.Background()
	evaluatedAt := time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC)

	convey.Convey("Given a worker with a real engine", t, func() {
		standings := newMockStandings()
		results := newMockResults()
		w := worker.NewInMemoryWorker(nil, scoring.NewEngine(), standings, results,
			worker.WithName("test"), worker.WithClock(clock.NewManual(evaluatedAt)))

		convey.Convey("When a valid match is processed", func() {
			err := w.Process(ctx, redBlueMatch("m1"))

			convey.Convey("Then the scores should be saved and added to the standings", func() {
				convey.So(err, convey.ShouldBeNil)
				res, ok := results.get("m1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(res.Status, convey.ShouldEqual, model.StatusScored)
				convey.So(res.Scores, convey.ShouldResemble, model.ScoreTable{"red": 30, "blue": 60})
				convey.So(res.Zones, convey.ShouldEqual, 1)
				convey.So(res.EvaluatedAt.Equal(evaluatedAt), convey.ShouldBeTrue)
				convey.So(standings.total("blue"), convey.ShouldEqual, 60)
			})
		})

		convey.Convey("When the board overflows", func() {
			err := w.Process(ctx, overflowMatch("m2"))

			convey.Convey("Then a failed result should be stored and standings left alone", func() {
				convey.So(err, convey.ShouldBeNil)
				res, _ := results.get("m2")
				convey.So(res.Status, convey.ShouldEqual, model.StatusFailed)
				convey.So(res.Error, convey.ShouldContainSubstring, "overflow")
				convey.So(res.Scores, convey.ShouldBeNil)
				convey.So(standings.total("A"), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the standings reject the scores", func() {
			standings.err = scoring.ErrOverflow
			_ = w.Process(ctx, redBlueMatch("m3"))

			convey.Convey("Then the match should be marked failed", func() {
				res, _ := results.get("m3")
				convey.So(res.Status, convey.ShouldEqual, model.StatusFailed)
				convey.So(res.Error, convey.ShouldStartWith, "standings:")
			})
		})

		convey.Convey("When saving fails", func() {
			results.err = errors.New("disk full")
			err := w.Process(ctx, redBlueMatch("m4"))

			convey.Convey("Then the error should be returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "disk full")
			})
		})
	})
}

func TestFaultKind(t *testing.T) {
	convey.Convey("Given scoring errors", t, func() {
		convey.So(worker.FaultKind(fmt.Errorf("zone 0: %w", scoring.ErrOverflow)), convey.ShouldEqual, "overflow")
		convey.So(worker.FaultKind(fmt.Errorf("zone 1: %w", scoring.ErrInvariantViolation)), convey.ShouldEqual, "invariant_violation")
		convey.So(worker.FaultKind(errors.New("other")), convey.ShouldEqual, "")
	})
}

func TestPool(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a pool draining a real queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		standings := newMockStandings()
		results := newMockResults()
		pool := worker.NewPool(4, q, scoring.NewEngine(scoring.WithParallelism(2)), standings, results)
		convey.So(pool.Size(), convey.ShouldEqual, 4)

		const n = 20
		for i := 0; i < n; i++ {
			convey.So(q.Enqueue(ctx, redBlueMatch(fmt.Sprintf("m%d", i))), convey.ShouldBeNil)
		}
		pool.Start(ctx)

		convey.Convey("When the pool shuts down", func() {
			err := pool.Shutdown(ctx)

			convey.Convey("Then every queued match should have been processed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(results.count(), convey.ShouldEqual, n)
				convey.So(pool.Processed(), convey.ShouldEqual, n)
				convey.So(standings.total("red"), convey.ShouldEqual, 30*n)
			})
		})
	})

	convey.Convey("Given a worker whose context is cancelled", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		w := worker.NewInMemoryWorker(q, scoring.NewEngine(), newMockStandings(), newMockResults())
		go w.Run(ctx)
		cancel()

		convey.Convey("Then shutdown should complete", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
		})
	})
}
