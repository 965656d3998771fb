package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	service "github.com/mirelk/cribsense/internal/app"
	"github.com/mirelk/cribsense/internal/domain/adaptive"
	"github.com/mirelk/cribsense/internal/domain/model"
	"github.com/mirelk/cribsense/pkg/logger"
)

func init() {
	logger.Init()
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func startService(t *testing.T, ctx context.Context) *service.Service {
	t.Helper()
	svc := service.New(
		service.WithWorkerCount(2),
		service.WithQueueSize(64),
		service.WithDedupeSize(256),
	)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func ingest(t *testing.T, svc *service.Service, ctx context.Context, events ...model.Event) {
	t.Helper()
	for _, ev := range events {
		if !svc.Enqueue(ctx, ev) {
			t.Fatalf("enqueue %s rejected", ev.EventID)
		}
	}
	ok := waitFor(t, 2*time.Second, func() bool {
		n, _ := svc.GetStats()["events"].(int)
		return n >= len(events)
	})
	if !ok {
		t.Fatalf("events not ingested in time")
	}
}

func TestService_Pipeline(t *testing.T) {
	convey.Convey("Given a running service", t, func() {
		ctx := context.Background()
		svc := startService(t, ctx)
		at := time.Now().UTC()

		convey.Convey("When events flow through the queue into the store", func() {
			ingest(t, svc, ctx,
				model.Event{EventID: "ev-feed", BabyID: "baby-1", Type: model.EventFeeding,
					Start: at.Add(-200 * time.Minute), End: at.Add(-3 * time.Hour)},
				model.Event{EventID: "ev-diaper", BabyID: "baby-1", Type: model.EventDiaper,
					Start: at.Add(-time.Hour)},
			)

			convey.Convey("Then a prediction should rank hunger first", func() {
				pred, err := svc.Predict(ctx, "baby-1", at)

				convey.So(err, convey.ShouldBeNil)
				convey.So(pred.Cause, convey.ShouldEqual, model.CauseHungry)
				convey.So(pred.Resolved(), convey.ShouldBeTrue)
				convey.So(pred.Vector.SinceFeeding.Hours, convey.ShouldAlmostEqual, 3.0, 1e-6)
			})

			convey.Convey("And the daily summary should see both events", func() {
				stats, _, err := svc.Summary(ctx, "baby-1", at)

				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.FeedingCount+stats.DiaperCount, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When querying a baby with no events", func() {
			pred, err := svc.Predict(ctx, "baby-empty", at)

			convey.Convey("Then the outcome should be unresolved", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pred.Cause, convey.ShouldEqual, model.CauseUnknown)
				convey.So(pred.Confidence, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestService_Feedback(t *testing.T) {
	convey.Convey("Given a service with an overdue feeding on record", t, func() {
		ctx := context.Background()
		svc := startService(t, ctx)
		at := time.Now().UTC()

		ingest(t, svc, ctx,
			model.Event{EventID: "ev-feed", BabyID: "baby-1", Type: model.EventFeeding,
				Start: at.Add(-200 * time.Minute), End: at.Add(-3 * time.Hour)},
		)

		fb := adaptive.FeedbackRecord{
			FeedbackID: "fb-1",
			BabyID:     "baby-1",
			Predicted:  model.CauseHungry,
			Actual:     model.CauseHungry,
			At:         at,
		}

		convey.Convey("When recording confirmed hunger feedback", func() {
			adj, duplicate, err := svc.RecordFeedback(ctx, fb)

			convey.Convey("Then the feeding threshold should move toward three hours", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(duplicate, convey.ShouldBeFalse)
				convey.So(adj.Correct, convey.ShouldBeTrue)
				convey.So(adj.OldThreshold, convey.ShouldEqual, 2.5)
				convey.So(adj.NewThreshold, convey.ShouldAlmostEqual, 2.575, 1e-6)
			})

			convey.Convey("And replaying the same feedback id should be ignored", func() {
				_, duplicate, err := svc.RecordFeedback(ctx, fb)
				convey.So(err, convey.ShouldBeNil)
				convey.So(duplicate, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the feedback names an unknown cause", func() {
			bad := fb
			bad.FeedbackID = "fb-2"
			bad.Actual = model.Cause("teething")
			_, _, err := svc.RecordFeedback(ctx, bad)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, adaptive.ErrUnknownCause), convey.ShouldBeTrue)
			})

			convey.Convey("And a corrected resubmission with the same id should work", func() {
				fixed := bad
				fixed.Actual = model.CauseHungry
				_, duplicate, err := svc.RecordFeedback(ctx, fixed)
				convey.So(err, convey.ShouldBeNil)
				convey.So(duplicate, convey.ShouldBeFalse)
			})
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	convey.Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1), service.WithQueueSize(8))

		convey.Convey("When it has not been started", func() {
			stats := svc.GetStats()

			convey.Convey("Then stats should report it stopped", func() {
				convey.So(stats["started"], convey.ShouldBeFalse)
				convey.So(stats, convey.ShouldNotContainKey, "events")
			})
		})

		convey.Convey("When started twice", func() {
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then the second start should be a no-op", func() {
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				convey.So(svc.GetStats()["started"], convey.ShouldBeTrue)
			})
		})

		convey.Convey("When stopping drains in-flight events", func() {
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			at := time.Now().UTC()
			for i := 0; i < 5; i++ {
				ev := model.Event{
					EventID: "ev-" + string(rune('a'+i)),
					BabyID:  "baby-1",
					Type:    model.EventDiaper,
					Start:   at.Add(-time.Duration(i) * time.Minute),
				}
				convey.So(svc.Enqueue(ctx, ev), convey.ShouldBeTrue)
			}
			svc.Stop()

			convey.Convey("Then every event should have reached the store", func() {
				convey.So(svc.GetStats()["started"], convey.ShouldBeFalse)
			})
		})

		convey.Convey("When configured with invalid thresholds", func() {
			bad := service.New(service.WithThresholds(model.Thresholds{}))

			convey.Convey("Then start should fail fast", func() {
				convey.So(bad.Start(ctx), convey.ShouldNotBeNil)
			})
		})
	})
}
