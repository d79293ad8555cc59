// Package worker evaluates queued matches and records their outcome.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/LuSo58/billboards-evaluation/internal/clock"
	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	"github.com/LuSo58/billboards-evaluation/internal/domain/scoring"
	"github.com/LuSo58/billboards-evaluation/pkg/logger"
	"github.com/LuSo58/billboards-evaluation/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Standings accumulates match scores per team.
type Standings interface {
	AddScores(ctx context.Context, scores model.ScoreTable) error
}

// ResultSaver persists match results.
type ResultSaver interface {
	Save(ctx context.Context, result model.MatchResult) error
}

// Queue defines how workers receive matches.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Match
}

// Worker evaluates matches until its queue is drained.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown waits for the worker to finish.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	evaluator scoring.Evaluator
	standings Standings
	results   ResultSaver
	name      string
	clock     clock.Clock
	processed *atomic.Int64

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, evaluator scoring.Evaluator, standings Standings, results ResultSaver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		evaluator: evaluator,
		standings: standings,
		results:   results,
		name:      "worker",
		clock:     clock.NewSystem(),
		processed: new(atomic.Int64),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes matches until the queue channel closes or ctx is done.
// Matches already queued when the queue closes are still processed.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	matches := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-matches:
			if !ok {
				return
			}
			if err := w.Process(ctx, m); err != nil {
				w.logger.Error(ctx, "error processing match",
					logger.String("worker", w.name),
					logger.String("match_id", m.ID),
					logger.Error(err))
			}
		}
	}
}

// Shutdown waits for Run to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.String("worker", w.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Process evaluates one match, adds its scores to the standings and saves
// the result. Evaluation failures are stored on the result and are not
// returned; only a failure to save is.
func (w *InMemoryWorker) Process(ctx context.Context, m model.Match) error { //nolint:gocritic // value received from channel
	start := time.Now()
	scores, err := w.evaluator.Evaluate(m.Board, m.Window)
	metrics.RecordEvaluationLatency(float64(time.Since(start).Microseconds()) / 1000)

	if err == nil {
		err = w.standings.AddScores(ctx, scores)
		if err != nil {
			err = fmt.Errorf("standings: %w", err)
		}
	}

	result := model.MatchResult{
		MatchID:      m.ID,
		SubmissionID: m.SubmissionID,
		Status:       model.StatusScored,
		End:          m.Window.End,
		Zones:        m.Board.Len(),
		Scores:       scores,
		ReceivedAt:   m.ReceivedAt,
		EvaluatedAt:  w.clock.Now(),
	}
	if err != nil {
		result.Status = model.StatusFailed
		result.Scores = nil
		result.Error = err.Error()
		metrics.RecordMatchFailed()
		if kind := FaultKind(err); kind != "" {
			metrics.RecordScoringFault(kind)
		}
		w.logger.Warn(ctx, "match evaluation failed",
			logger.String("match_id", m.ID),
			logger.Error(err))
	} else {
		metrics.RecordMatchScored(m.Board.Len())
	}
	w.processed.Add(1)

	if saveErr := w.results.Save(ctx, result); saveErr != nil {
		return fmt.Errorf("save result %s: %w", m.ID, saveErr)
	}
	return nil
}

// FaultKind classifies scoring errors for metrics. It returns "" for errors
// that are not scoring faults.
func FaultKind(err error) string {
	switch {
	case errors.Is(err, scoring.ErrOverflow):
		return "overflow"
	case errors.Is(err, scoring.ErrInvariantViolation):
		return "invariant_violation"
	default:
		return ""
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed *atomic.Int64

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. Options apply to every worker.
func NewPool(workerCount int, q Queue, evaluator scoring.Evaluator, standings Standings, results ResultSaver, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	p := &Pool{
		workers:   make([]*InMemoryWorker, workerCount),
		queue:     q,
		processed: new(atomic.Int64),
		logger:    logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(q, evaluator, standings, results,
			append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)...)
		w.processed = p.processed
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Processed returns how many matches the pool has evaluated.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

// Shutdown closes the queue if it can be closed and waits for the workers
// to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for _, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	metrics.UpdateWorkerCount(0)
	return errors.Join(errs...)
}
