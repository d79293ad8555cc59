// Package kafka consumes match submissions from a Kafka topic.
package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/LuSo58/billboards-evaluation/internal/domain/types"
	"github.com/LuSo58/billboards-evaluation/pkg/logger"
	"github.com/LuSo58/billboards-evaluation/pkg/metrics"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	defaultPollTimeout = 5 * time.Second
	retryDelay         = 100 * time.Millisecond
)

// Sentinel kinds for consumer errors.
var (
	ErrNoBrokers = errors.New("at least one broker is required")
	ErrNoTopic   = errors.New("topic must not be empty")
	ErrNoGroup   = errors.New("consumer group must not be empty")
)

// Config captures the reader settings.
type Config struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration
}

// Submitter accepts a decoded submission. Returning an error matched by
// Retryable keeps the message uncommitted and retries it.
type Submitter interface {
	Submit(ctx context.Context, sub types.Submission) (types.Ack, error)
}

// fetcher is the subset of *kafka.Reader the consumer uses.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer feeds submissions from a topic into the service.
type Consumer struct {
	cfg       Config
	reader    fetcher
	submitter Submitter
	retryable func(error) bool
	logger    logger.Logger
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithRetryable sets which submit errors are retried instead of dropped.
func WithRetryable(fn func(error) bool) Option {
	return func(c *Consumer) {
		if fn != nil {
			c.retryable = fn
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Consumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewConsumer builds a group reader for cfg.Topic.
func NewConsumer(cfg Config, submitter Submitter, opts ...Option) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, ErrNoTopic
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, ErrNoGroup
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newConsumer(cfg, reader, submitter, opts...), nil
}

func newConsumer(cfg Config, reader fetcher, submitter Submitter, opts ...Option) *Consumer {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	c := &Consumer{
		cfg:       cfg,
		reader:    reader,
		submitter: submitter,
		retryable: func(error) bool { return false },
		logger:    logger.Get().Named("kafka-consumer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close shuts down the underlying reader.
func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Run blocks until ctx is cancelled or the reader is closed. Every message is
// committed once handled, including undecodable ones.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info(ctx, "kafka consumer started",
		logger.String("topic", c.cfg.Topic),
		logger.String("group", c.cfg.GroupID),
		logger.String("brokers", strings.Join(c.cfg.Brokers, ",")),
		logger.Duration("pollTimeout", c.cfg.PollTimeout))
	defer c.logger.Info(context.Background(), "kafka consumer stopped")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				continue
			case errors.Is(err, context.Canceled):
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, kafkago.ErrGroupClosed):
				return nil
			}
			c.logger.Error(ctx, "kafka fetch failed", logger.Error(err))
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			return err
		}

		commitCtx, commitCancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
		if err := c.reader.CommitMessages(commitCtx, msg); err != nil {
			if !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
				c.logger.Error(ctx, "kafka commit failed", logger.Error(err), logger.Any("offset", msg.Offset))
			}
		}
		commitCancel()
	}
}

// handle decodes and submits one message. It only returns an error when ctx
// ends while a retryable submission is still pending.
func (c *Consumer) handle(ctx context.Context, msg kafkago.Message) error {
	metrics.RecordKafkaMessage()

	sub, err := DecodeSubmission(msg.Value)
	if err != nil {
		metrics.RecordKafkaDecodeError()
		c.logger.Warn(ctx, "kafka message dropped", logger.Error(err), logger.Any("offset", msg.Offset))
		return nil
	}
	if sub.ID == "" && len(msg.Key) > 0 {
		sub.ID = string(msg.Key)
	}

	for {
		ack, err := c.submitter.Submit(ctx, sub)
		if err == nil {
			c.logger.Debug(ctx, "kafka submission handled",
				logger.String("submission_id", sub.ID),
				logger.String("status", ack.Status),
				logger.String("match_id", ack.MatchID))
			return nil
		}
		if !c.retryable(err) {
			c.logger.Warn(ctx, "kafka submission rejected",
				logger.String("submission_id", sub.ID),
				logger.Error(err))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

// DecodeSubmission parses a message value. Unknown fields are ignored.
func DecodeSubmission(raw []byte) (types.Submission, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return types.Submission{}, errors.New("empty payload")
	}
	var sub types.Submission
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&sub); err != nil {
		return types.Submission{}, fmt.Errorf("decode submission: %w", err)
	}
	sub.ID = strings.TrimSpace(sub.ID)
	return sub, nil
}
