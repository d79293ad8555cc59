package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/LuSo58/billboards-evaluation/internal/domain/types"
	"github.com/LuSo58/billboards-evaluation/pkg/logger"
	kafkago "github.com/segmentio/kafka-go"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeReader serves queued messages, then reports io.EOF.
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafkago.Message
	committed []int64
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return kafkago.Message{}, io.EOF
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

type fakeSubmitter struct {
	mu       sync.Mutex
	subs     []types.Submission
	failures int
	err      error
}

func (f *fakeSubmitter) Submit(_ context.Context, sub types.Submission) (types.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return types.Ack{}, f.err
	}
	f.subs = append(f.subs, sub)
	return types.Ack{Status: "accepted", MatchID: "m"}, nil
}

var errBusy = errors.New("busy")

func TestDecodeSubmission(t *testing.T) {
	Convey("Given message payloads", t, func() {
		Convey("Then a valid payload should decode", func() {
			sub, err := DecodeSubmission([]byte(`{"submission_id":" s1 ","end":"14:00:30","zones":[{"size":3,"log":"14:00:00,red\n"}],"extra":true}`))
			So(err, ShouldBeNil)
			So(sub.ID, ShouldEqual, "s1")
			So(sub.End, ShouldEqual, "14:00:30")
			So(sub.Zones, ShouldResemble, []types.ZoneSubmission{{Size: 3, Log: "14:00:00,red\n"}})
		})

		Convey("Then malformed payloads should fail", func() {
			_, err := DecodeSubmission([]byte(`{"submission_id":`))
			So(err, ShouldNotBeNil)
			_, err = DecodeSubmission([]byte("  "))
			So(err, ShouldNotBeNil)
			_, err = DecodeSubmission([]byte(`{"zones":[{"size":-1}]}`))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestNewConsumer(t *testing.T) {
	Convey("Given incomplete configuration", t, func() {
		_, err := NewConsumer(Config{Topic: "t", GroupID: "g"}, &fakeSubmitter{})
		So(errors.Is(err, ErrNoBrokers), ShouldBeTrue)
		_, err = NewConsumer(Config{Brokers: []string{"b:9092"}, GroupID: "g"}, &fakeSubmitter{})
		So(errors.Is(err, ErrNoTopic), ShouldBeTrue)
		_, err = NewConsumer(Config{Brokers: []string{"b:9092"}, Topic: "t"}, &fakeSubmitter{})
		So(errors.Is(err, ErrNoGroup), ShouldBeTrue)
	})

	Convey("Given complete configuration", t, func() {
		c, err := NewConsumer(Config{Brokers: []string{"localhost:9092"}, Topic: "t", GroupID: "g"}, &fakeSubmitter{})

		Convey("Then a reader should be built without connecting", func() {
			So(err, ShouldBeNil)
			So(c.cfg.PollTimeout, ShouldEqual, defaultPollTimeout)
			So(c.Close(), ShouldBeNil)
		})
	})
}

func TestConsumer_Run(t *testing.T) {
	Convey("Given a reader with good, bad and keyed messages", t, func() {
		reader := &fakeReader{messages: []kafkago.Message{
			{Offset: 1, Value: []byte(`{"submission_id":"a","end":"10:00:00","zones":[]}`)},
			{Offset: 2, Value: []byte(`not json`)},
			{Offset: 3, Key: []byte("from-key"), Value: []byte(`{"end":"10:00:00"}`)},
		}}
		submitter := &fakeSubmitter{}
		c := newConsumer(Config{Topic: "t", GroupID: "g", PollTimeout: time.Second}, reader, submitter)

		Convey("When the consumer runs to the end of the stream", func() {
			err := c.Run(context.Background())

			Convey("Then decodable messages should be submitted and all committed", func() {
				So(err, ShouldBeNil)
				So(len(submitter.subs), ShouldEqual, 2)
				So(submitter.subs[0].ID, ShouldEqual, "a")
				So(submitter.subs[1].ID, ShouldEqual, "from-key")
				So(reader.committed, ShouldResemble, []int64{1, 2, 3})
			})
		})
	})

	Convey("Given a submitter that is busy twice", t, func() {
		reader := &fakeReader{messages: []kafkago.Message{
			{Offset: 7, Value: []byte(`{"submission_id":"a","end":"10:00:00"}`)},
		}}
		submitter := &fakeSubmitter{failures: 2, err: errBusy}

		Convey("When busy is retryable", func() {
			c := newConsumer(Config{}, reader, submitter,
				WithRetryable(func(err error) bool { return errors.Is(err, errBusy) }))
			So(c.Run(context.Background()), ShouldBeNil)

			Convey("Then the message should eventually be submitted", func() {
				So(len(submitter.subs), ShouldEqual, 1)
				So(reader.committed, ShouldResemble, []int64{7})
			})
		})

		Convey("When busy is not retryable", func() {
			c := newConsumer(Config{}, reader, submitter)
			So(c.Run(context.Background()), ShouldBeNil)

			Convey("Then the message should be dropped and committed", func() {
				So(submitter.subs, ShouldBeEmpty)
				So(reader.committed, ShouldResemble, []int64{7})
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			c := newConsumer(Config{}, reader, submitter)

			Convey("Then Run should return the context error", func() {
				So(errors.Is(c.Run(ctx), context.Canceled), ShouldBeTrue)
				So(c.Close(), ShouldBeNil)
				So(reader.closed, ShouldBeTrue)
			})
		})
	})
}
