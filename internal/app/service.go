// Package service wires the match pipeline together and implements the
// dependencies required by the HTTP API and the Kafka consumer.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	matchqueue "github.com/LuSo58/billboards-evaluation/internal/adapters/mq/queue"
	workerpool "github.com/LuSo58/billboards-evaluation/internal/adapters/mq/worker"
	"github.com/LuSo58/billboards-evaluation/internal/adapters/repository"
	"github.com/LuSo58/billboards-evaluation/internal/clock"
	"github.com/LuSo58/billboards-evaluation/internal/domain/dedupe"
	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	"github.com/LuSo58/billboards-evaluation/internal/domain/scoring"
	"github.com/LuSo58/billboards-evaluation/internal/domain/types"
	"github.com/LuSo58/billboards-evaluation/internal/domain/zonelog"
	"github.com/LuSo58/billboards-evaluation/pkg/logger"
	"github.com/LuSo58/billboards-evaluation/pkg/metrics"
	"github.com/google/uuid"
)

const timeLayout = time.RFC3339Nano

// Service implements the API dependencies for the evaluation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	standings *repository.TreapStore
	results   repository.ResultStore
	deduper   dedupe.Deduper
	queue     *matchqueue.InMemoryQueue
	engine    *scoring.Engine
	pool      *workerpool.Pool
	clock     clock.Clock

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	maxResults      int
	parallelism     int
	checkInvariants bool

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the match queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxResults bounds the default in-memory result store. The oldest
// results are dropped first. Ignored when WithResultStore is used.
func WithMaxResults(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithScoringParallelism sets how many zones of one match are scored
// concurrently.
func WithScoringParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithInvariantChecks enables log ordering checks inside the engine.
func WithInvariantChecks(enabled bool) Option {
	return func(s *Service) {
		s.checkInvariants = enabled
	}
}

// WithResultStore replaces the in-memory result store.
func WithResultStore(store repository.ResultStore) Option {
	return func(s *Service) {
		if store != nil {
			s.results = store
		}
	}
}

// WithClock sets the clock used for received and evaluated timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  100_000,
		maxResults:  100_000,
		parallelism: 1,
		clock:       clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the components and starts the worker pool. Workers outlive
// ctx; they stop on Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting evaluation service...")

	s.standings = repository.NewTreapStore()
	if s.results == nil {
		s.results = repository.NewMemoryResultStore(repository.WithMaxResults(s.maxResults))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = matchqueue.NewInMemoryQueue(matchqueue.WithCapacity(s.queueSize))
	s.engine = scoring.NewEngine(
		scoring.WithParallelism(s.parallelism),
		scoring.WithInvariantChecks(s.checkInvariants),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.engine, s.standings, s.results,
		workerpool.WithClock(s.clock))
	s.pool.Start(runCtx)

	metrics.UpdateQueueCapacity(s.queue.Capacity())
	s.started = true
	s.logger.Info(ctx, "evaluation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("maxResults", s.maxResults),
		logger.Int("parallelism", s.parallelism),
	)
	return nil
}

// Stop drains the queue, stops the workers and closes the result store.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping evaluation service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("worker pool: %w", err))
	}
	s.cancel()
	if err := s.results.Close(); err != nil {
		errs = append(errs, fmt.Errorf("result store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "evaluation service stopped")
	return errors.Join(errs...)
}

// Evaluate scores a submission synchronously. Nothing is stored.
func (s *Service) Evaluate(_ context.Context, sub types.Submission) (model.ScoreTable, error) {
	s.mu.RLock()
	engine, started := s.engine, s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	board, window, err := ParseSubmission(sub)
	if err != nil {
		recordParseError(err)
		return nil, err
	}

	start := time.Now()
	scores, err := engine.Evaluate(board, window)
	metrics.RecordEvaluationLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		if kind := workerpool.FaultKind(err); kind != "" {
			metrics.RecordScoringFault(kind)
		}
		return nil, err
	}
	return scores, nil
}

// Submit parses a submission and queues it for scoring. A submission ID seen
// before is acknowledged as a duplicate without being queued again. When the
// queue is full, the ID is forgotten so the caller can retry.
func (s *Service) Submit(ctx context.Context, sub types.Submission) (types.Ack, error) {
	if !s.isStarted() {
		return types.Ack{}, ErrNotStarted
	}
	if strings.TrimSpace(sub.ID) == "" {
		return types.Ack{}, fmt.Errorf("missing submission_id: %w", ErrInvalidSubmission)
	}

	board, window, err := ParseSubmission(sub)
	if err != nil {
		recordParseError(err)
		return types.Ack{}, err
	}

	if s.deduper.SeenAndRecord(ctx, sub.ID) {
		metrics.RecordMatchDuplicate()
		s.logger.Debug(ctx, "duplicate submission", logger.String("submission_id", sub.ID))
		return types.Ack{Status: "duplicate"}, nil
	}

	match := model.Match{
		ID:           uuid.NewString(),
		SubmissionID: sub.ID,
		Board:        board,
		Window:       window,
		ReceivedAt:   s.clock.Now(),
	}
	pending := model.MatchResult{
		MatchID:      match.ID,
		SubmissionID: match.SubmissionID,
		Status:       model.StatusPending,
		End:          window.End,
		Zones:        board.Len(),
		ReceivedAt:   match.ReceivedAt,
	}
	if err := s.saveResult(ctx, pending); err != nil {
		s.deduper.Unrecord(ctx, sub.ID)
		return types.Ack{}, err
	}

	if err := s.queue.Enqueue(ctx, match); err != nil {
		s.deduper.Unrecord(ctx, sub.ID)
		if delErr := s.results.Delete(ctx, match.ID); delErr != nil {
			s.logger.Error(ctx, "failed to remove pending result", logger.Error(delErr))
		}
		if errors.Is(err, matchqueue.ErrFull) || errors.Is(err, matchqueue.ErrClosed) {
			return types.Ack{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return types.Ack{}, fmt.Errorf("enqueue: %w", err)
	}

	metrics.RecordMatchSubmitted()
	metrics.UpdateQueueSize(s.queue.Len(ctx))
	return types.Ack{Status: "accepted", MatchID: match.ID}, nil
}

func (s *Service) saveResult(ctx context.Context, res model.MatchResult) error {
	start := time.Now()
	err := s.results.Save(ctx, res)
	metrics.RecordResultStoreLatency("save", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return fmt.Errorf("save pending result: %w", err)
	}
	return nil
}

// Result returns the stored state of a match.
func (s *Service) Result(ctx context.Context, matchID string) (types.MatchView, error) {
	if !s.isStarted() {
		return types.MatchView{}, ErrNotStarted
	}
	start := time.Now()
	res, err := s.results.Get(ctx, matchID)
	metrics.RecordResultStoreLatency("get", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return types.MatchView{}, err
	}
	return toView(res), nil
}

func toView(res model.MatchResult) types.MatchView {
	view := types.MatchView{
		MatchID:      res.MatchID,
		SubmissionID: res.SubmissionID,
		Status:       string(res.Status),
		End:          res.End.Format("15:04:05.999999999"),
		Zones:        res.Zones,
		Scores:       res.Scores,
		Error:        res.Error,
		ReceivedAt:   res.ReceivedAt.Format(timeLayout),
	}
	if !res.EvaluatedAt.IsZero() {
		view.EvaluatedAt = res.EvaluatedAt.Format(timeLayout)
	}
	return view
}

// TopN returns the top N standings entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	entries, err := s.standings.TopN(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = types.Entry{Rank: e.Rank, Team: e.Team, Score: e.Score}
	}
	return out, nil
}

// Rank returns the rank and cumulative score of a team.
func (s *Service) Rank(ctx context.Context, team string) (types.Entry, error) {
	if !s.isStarted() {
		return types.Entry{}, ErrNotStarted
	}
	e, err := s.standings.Rank(ctx, team)
	if err != nil {
		return types.Entry{}, err
	}
	return types.Entry{Rank: e.Rank, Team: e.Team, Score: e.Score}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"maxResults":  s.maxResults,
		"parallelism": s.parallelism,
	}
	if s.started {
		ctx := context.Background()
		queueLen := s.queue.Len(ctx)
		teams := s.standings.Count(ctx)

		stats["queueLength"] = queueLen
		stats["teams"] = teams
		stats["processed"] = s.pool.Processed()
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStandingsTeams(teams)
	}
	return stats
}

// Processed returns how many matches the workers have evaluated.
func (s *Service) Processed() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return 0
	}
	return s.pool.Processed()
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func recordParseError(err error) {
	var perr *zonelog.ParseError
	switch {
	case errors.As(err, &perr):
		metrics.RecordParseError(perr.Code())
	case errors.Is(err, zonelog.ErrInvalidSize):
		metrics.RecordParseError("invalid_size")
	default:
		metrics.RecordParseError("invalid_submission")
	}
}
