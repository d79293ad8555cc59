package queue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/LuSo58/billboards-evaluation/internal/adapters/mq/queue"
	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func match(id string) model.Match {
	return model.Match{ID: id, SubmissionID: "sub-" + id}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue of capacity 2", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When a match is enqueued", func() {
			So(q.Enqueue(ctx, match("m1")), ShouldBeNil)

			Convey("Then it should be delivered in order", func() {
				So(q.Len(ctx), ShouldEqual, 1)
				got := <-q.Dequeue(ctx)
				So(got.ID, ShouldEqual, "m1")
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(ctx, match("m1")), ShouldBeNil)
			So(q.Enqueue(ctx, match("m2")), ShouldBeNil)
			err := q.Enqueue(ctx, match("m3"))

			Convey("Then enqueue should fail fast with ErrFull", func() {
				So(errors.Is(err, queue.ErrFull), ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 2)
				So(q.Capacity(), ShouldEqual, 2)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then enqueue should return the context error", func() {
				So(errors.Is(q.Enqueue(cctx, match("m1")), context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When the queue is closed with a match pending", func() {
			So(q.Enqueue(ctx, match("m1")), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then new matches should be rejected", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(errors.Is(q.Enqueue(ctx, match("m2")), queue.ErrClosed), ShouldBeTrue)
				So(q.Close(), ShouldBeNil)
			})

			Convey("Then pending matches should drain before the channel closes", func() {
				var ids []string
				for m := range q.Dequeue(ctx) {
					ids = append(ids, m.ID)
				}
				So(ids, ShouldResemble, []string{"m1"})
			})
		})
	})
}

func TestInMemoryQueue_Concurrent(t *testing.T) {
	Convey("Given producers and a consumer sharing a queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(1000))
		const producers, perProducer = 4, 100

		var wg sync.WaitGroup
		for p := 0; p < producers; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perProducer; i++ {
					_ = q.Enqueue(ctx, match(fmt.Sprintf("%d-%d", p, i)))
				}
			}()
		}
		wg.Wait()
		So(q.Close(), ShouldBeNil)

		count := 0
		for range q.Dequeue(ctx) {
			count++
		}

		Convey("Then every match should be received exactly once", func() {
			So(count, ShouldEqual, producers*perProducer)
		})
	})
}
