package predictor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/mirelk/cribsense/internal/domain/feature"
	"github.com/mirelk/cribsense/internal/domain/model"
	"github.com/mirelk/cribsense/internal/domain/predictor"
)

var refTime = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func event(typ model.EventType, start, end time.Time) model.Event {
	return model.Event{
		EventID: string(typ) + "-" + start.Format(time.RFC3339Nano),
		BabyID:  "baby-1",
		Type:    typ,
		Start:   start,
		End:     end,
	}
}

func rawFor(factors []predictor.Factor, cause model.Cause) (float64, bool) {
	for _, f := range factors {
		if f.Cause == cause {
			return f.Raw, true
		}
	}
	return 0, false
}

func TestPredictor_Predict(t *testing.T) {
	convey.Convey("Given a predictor with default thresholds", t, func() {
		ctx := context.Background()
		p := predictor.New()

		convey.Convey("When the event window is empty", func() {
			pred, err := p.Predict(ctx, "baby-1", refTime, nil)

			convey.Convey("Then the outcome should be unresolved, not an error", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pred.Cause, convey.ShouldEqual, model.CauseUnknown)
				convey.So(pred.Confidence, convey.ShouldEqual, 0)
				convey.So(pred.Resolved(), convey.ShouldBeFalse)
				convey.So(pred.Factors, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When feeding is overdue and the diaper is fresh", func() {
			events := []model.Event{
				event(model.EventFeeding, refTime.Add(-4*time.Hour), refTime.Add(-3*time.Hour)),
				event(model.EventDiaper, refTime.Add(-time.Hour), time.Time{}),
			}
			pred, err := p.Predict(ctx, "baby-1", refTime, events)

			convey.Convey("Then hunger should dominate", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pred.Cause, convey.ShouldEqual, model.CauseHungry)
				// 3h against a 2.5h threshold scores 84; 1h against a 2h
				// diaper threshold scores 15.
				convey.So(pred.Confidence, convey.ShouldAlmostEqual, 84.0/99.0, 1e-9)
				convey.So(pred.Resolved(), convey.ShouldBeTrue)
				convey.So(pred.Factors[0].Cause, convey.ShouldEqual, model.CauseHungry)
				convey.So(pred.ID, convey.ShouldNotBeEmpty)
			})

			convey.Convey("And the factor weights should sum to one", func() {
				convey.So(err, convey.ShouldBeNil)
				var sum float64
				for _, f := range pred.Factors {
					sum += f.Weight
				}
				convey.So(sum, convey.ShouldAlmostEqual, 1.0, 1e-9)
			})

			convey.Convey("And repeating the query should give the same ranking", func() {
				again, err2 := p.Predict(ctx, "baby-1", refTime, events)
				convey.So(err2, convey.ShouldBeNil)
				convey.So(again.Cause, convey.ShouldEqual, pred.Cause)
				convey.So(again.Confidence, convey.ShouldAlmostEqual, pred.Confidence, 1e-12)
			})
		})

		convey.Convey("When the baby is in an open sleep session", func() {
			events := []model.Event{
				event(model.EventFeeding, refTime.Add(-6*time.Hour), refTime.Add(-5*time.Hour)),
				event(model.EventDiaper, refTime.Add(-30*time.Minute), time.Time{}),
				event(model.EventSleep, refTime.Add(-time.Hour), time.Time{}),
			}
			pred, err := p.Predict(ctx, "baby-1", refTime, events)

			convey.Convey("Then only the diaper rule should score", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pred.Vector.Asleep, convey.ShouldBeTrue)
				convey.So(pred.Cause, convey.ShouldEqual, model.CauseDiaper)
				convey.So(pred.Confidence, convey.ShouldAlmostEqual, 1.0, 1e-9)
				convey.So(len(pred.Factors), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When two causes land within the tie margin", func() {
			// Both ramps score 84: feeding 3h against 2.5h, diaper 2.4h
			// against 2h. The feeding sample is staler.
			events := []model.Event{
				event(model.EventFeeding, refTime.Add(-4*time.Hour), refTime.Add(-3*time.Hour)),
				event(model.EventDiaper, refTime.Add(-144*time.Minute), time.Time{}),
			}
			pred, err := p.Predict(ctx, "baby-1", refTime, events)

			convey.Convey("Then the stalest need should win the tie", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pred.Cause, convey.ShouldEqual, model.CauseHungry)
			})
		})

		convey.Convey("When the reference time precedes the whole window", func() {
			events := []model.Event{
				event(model.EventFeeding, refTime.Add(time.Hour), refTime.Add(2*time.Hour)),
			}
			_, err := p.Predict(ctx, "baby-1", refTime, events)

			convey.Convey("Then the invalid-input kind should surface", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, predictor.ErrInvalidInput), convey.ShouldBeTrue)
			})
		})
	})
}

func TestPredictor_Score(t *testing.T) {
	convey.Convey("Given the rule table with default thresholds", t, func() {
		p := predictor.New()
		th := model.DefaultThresholds()

		convey.Convey("When hunger grows past its threshold", func() {
			var prev float64
			for _, hours := range []float64{0.5, 1.5, 2.5, 3.0, 4.0, 8.0} {
				v := feature.Vector{SinceFeeding: feature.Sample{Hours: hours, Known: true}}
				raw, ok := rawFor(p.Score(v, th), model.CauseHungry)

				convey.So(ok, convey.ShouldBeTrue)
				convey.So(raw, convey.ShouldBeGreaterThanOrEqualTo, prev)
				prev = raw
			}

			convey.Convey("And the score should cap at its ceiling", func() {
				convey.So(prev, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When a recent cry cluster begs for attention", func() {
			v := feature.Vector{
				SinceCryEnd: feature.Sample{Hours: 0.25, Known: true},
				CryCount:    3,
			}

			convey.Convey("Then recency and episode count should both contribute", func() {
				raw, ok := rawFor(p.Score(v, th), model.CauseAttention)
				convey.So(ok, convey.ShouldBeTrue)
				// Half the 30-minute window left scores 27.5; three
				// episodes add 24.
				convey.So(raw, convey.ShouldAlmostEqual, 51.5, 1e-9)
			})

			convey.Convey("And an elevated competing cause should dampen it", func() {
				v.SinceFeeding = feature.Sample{Hours: 3, Known: true}
				factors := p.Score(v, th)

				hungry, _ := rawFor(factors, model.CauseHungry)
				attention, _ := rawFor(factors, model.CauseAttention)
				convey.So(hungry, convey.ShouldAlmostEqual, 84, 1e-9)
				convey.So(attention, convey.ShouldAlmostEqual, 25.75, 1e-9)
			})
		})

		convey.Convey("When the baby has been awake only briefly", func() {
			v := feature.Vector{SinceWake: feature.Sample{Hours: 0.1, Known: true}}
			raw, ok := rawFor(p.Score(v, th), model.CauseTired)

			convey.Convey("Then tiredness should keep its floor score", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(raw, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When every sample is unknown", func() {
			factors := p.Score(feature.Vector{CryCount: 4}, th)

			convey.Convey("Then no rule should fire", func() {
				convey.So(factors, convey.ShouldBeEmpty)
			})
		})
	})
}

func TestPredictor_WithWeightSource(t *testing.T) {
	convey.Convey("Given a weight source with a tightened feeding threshold", t, func() {
		ctx := context.Background()
		th := model.DefaultThresholds()
		th.FeedingIntervalHours = 1.0
		p := predictor.New(predictor.WithWeightSource(fixedSource{th: th}))

		events := []model.Event{
			event(model.EventFeeding, refTime.Add(-3*time.Hour), refTime.Add(-2*time.Hour)),
			event(model.EventDiaper, refTime.Add(-30*time.Minute), time.Time{}),
		}
		pred, err := p.Predict(ctx, "baby-1", refTime, events)

		convey.Convey("Then the custom threshold should drive the scoring", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(pred.Cause, convey.ShouldEqual, model.CauseHungry)
			// 2h against a 1h threshold saturates the hunger ceiling.
			hungry, _ := rawFor(pred.Factors, model.CauseHungry)
			convey.So(hungry, convey.ShouldEqual, 100)
		})
	})
}

type fixedSource struct {
	th model.Thresholds
}

func (f fixedSource) ThresholdsFor(context.Context, string) model.Thresholds {
	return f.th
}
