package queue

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mirelk/cribsense/internal/domain/model"
)

func testEvent(id string) model.Event {
	return model.Event{
		EventID: id,
		BabyID:  "baby-1",
		Type:    model.EventFeeding,
		Start:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 3, 10, 9, 20, 0, 0, time.UTC),
	}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given an in-memory event queue", t, func() {
		ctx := context.Background()

		Convey("When enqueuing events", func() {
			q := NewInMemoryQueue(WithCapacity(10))
			defer q.Close()

			ok := q.Enqueue(ctx, testEvent("e-1"))

			Convey("Then the event should be accepted", func() {
				So(ok, ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 1)
			})
		})

		Convey("When the queue is full", func() {
			q := NewInMemoryQueue(WithCapacity(2))
			defer q.Close()

			So(q.Enqueue(ctx, testEvent("e-1")), ShouldBeTrue)
			So(q.Enqueue(ctx, testEvent("e-2")), ShouldBeTrue)
			ok := q.Enqueue(ctx, testEvent("e-3"))

			Convey("Then further enqueues should be rejected", func() {
				So(ok, ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When dequeuing events", func() {
			q := NewInMemoryQueue(WithCapacity(10))

			So(q.Enqueue(ctx, testEvent("e-1")), ShouldBeTrue)
			So(q.Enqueue(ctx, testEvent("e-2")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			var got []string
			for e := range q.Dequeue(ctx) {
				got = append(got, e.EventID)
			}

			Convey("Then events should arrive in order and the channel should close", func() {
				So(got, ShouldResemble, []string{"e-1", "e-2"})
			})
		})

		Convey("When the queue is closed", func() {
			q := NewInMemoryQueue(WithCapacity(10))
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueues should be rejected", func() {
				So(q.Enqueue(ctx, testEvent("e-1")), ShouldBeFalse)
				So(q.IsClosed(), ShouldBeTrue)
			})

			Convey("And closing again should be a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("When the dequeue context is cancelled", func() {
			q := NewInMemoryQueue(WithCapacity(10))
			defer q.Close()

			cancelled, cancel := context.WithCancel(ctx)
			ch := q.Dequeue(cancelled)
			cancel()

			So(q.Enqueue(ctx, testEvent("e-1")), ShouldBeTrue)

			Convey("Then the dequeue channel should close without delivering", func() {
				select {
				case _, open := <-ch:
					So(open, ShouldBeFalse)
				case <-time.After(time.Second):
					So("timeout waiting for channel close", ShouldBeEmpty)
				}
			})
		})
	})
}

func TestQueueConcurrency(t *testing.T) {
	Convey("Given concurrent producers and a consumer", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(1000))

		const producers = 8
		const perProducer = 50

		done := make(chan struct{}, producers)
		for i := 0; i < producers; i++ {
			go func() {
				for j := 0; j < perProducer; j++ {
					q.Enqueue(ctx, testEvent("e"))
				}
				done <- struct{}{}
			}()
		}
		for i := 0; i < producers; i++ {
			<-done
		}
		So(q.Close(), ShouldBeNil)

		Convey("When draining the queue", func() {
			count := 0
			for range q.Dequeue(ctx) {
				count++
			}

			Convey("Then every enqueued event should be delivered exactly once", func() {
				So(count, ShouldEqual, producers*perProducer)
			})
		})
	})
}
