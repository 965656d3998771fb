package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/mirelk/cribsense/internal/adapters/http/api"
	"github.com/mirelk/cribsense/internal/adapters/repository"
	"github.com/mirelk/cribsense/internal/domain/adaptive"
	"github.com/mirelk/cribsense/internal/domain/dedupe"
	"github.com/mirelk/cribsense/internal/domain/model"
	"github.com/mirelk/cribsense/internal/domain/predictor"
)

// fakeDeps satisfies api.Dependencies with canned responses.
type fakeDeps struct {
	dedupe.Deduper

	enqueueOK bool
	enqueued  []model.Event

	pred       predictor.Prediction
	predictErr error

	adj          adaptive.Adjustment
	dupFeedback  bool
	feedbackErr  error
	lastFeedback adaptive.FeedbackRecord

	stats    repository.DailyStats
	schedule repository.Schedule
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{
		Deduper:   dedupe.NewRingDeduper(),
		enqueueOK: true,
	}
}

func (f *fakeDeps) Enqueue(_ context.Context, e model.Event) bool {
	if !f.enqueueOK {
		return false
	}
	f.enqueued = append(f.enqueued, e)
	return true
}

func (f *fakeDeps) Predict(context.Context, string, time.Time) (predictor.Prediction, error) {
	return f.pred, f.predictErr
}

func (f *fakeDeps) RecordFeedback(_ context.Context, fb adaptive.FeedbackRecord) (adaptive.Adjustment, bool, error) {
	if f.feedbackErr != nil {
		return adaptive.Adjustment{}, false, f.feedbackErr
	}
	if f.dupFeedback {
		return adaptive.Adjustment{}, true, nil
	}
	f.lastFeedback = fb
	return f.adj, false, nil
}

func (f *fakeDeps) Summary(context.Context, string, time.Time) (repository.DailyStats, repository.Schedule, error) {
	return f.stats, f.schedule, nil
}

func (f *fakeDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(deps *fakeDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps).Register(context.Background(), mux)
	return mux
}

func doJSON(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

const validEventBody = `{
	"event_id": "ev-1",
	"baby_id": "baby-1",
	"type": "feeding",
	"start": "2026-03-14T09:00:00Z",
	"feeding_type": "bottle",
	"amount_ml": 120
}`

func TestEventsHandler(t *testing.T) {
	convey.Convey("Given the events endpoint", t, func() {
		deps := newFakeDeps()
		mux := newTestMux(deps)

		convey.Convey("When posting a valid event", func() {
			rec := doJSON(mux, http.MethodPost, "/events", validEventBody)

			convey.Convey("Then it should be accepted and enqueued", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusAccepted)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"accepted"`)
				convey.So(len(deps.enqueued), convey.ShouldEqual, 1)
				convey.So(deps.enqueued[0].EventID, convey.ShouldEqual, "ev-1")
				convey.So(deps.enqueued[0].Type, convey.ShouldEqual, model.EventFeeding)
				convey.So(deps.enqueued[0].Amount, convey.ShouldEqual, 120)
			})

			convey.Convey("And replaying it should report a duplicate without enqueueing", func() {
				rec2 := doJSON(mux, http.MethodPost, "/events", validEventBody)
				convey.So(rec2.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec2.Body.String(), convey.ShouldContainSubstring, `"duplicate":true`)
				convey.So(len(deps.enqueued), convey.ShouldEqual, 1)
			})

			convey.Convey("And resubmitting it with an end time should pass as an update", func() {
				closed := strings.Replace(validEventBody, `"start"`,
					`"end": "2026-03-14T09:20:00Z", "start"`, 1)
				rec2 := doJSON(mux, http.MethodPost, "/events", closed)
				convey.So(rec2.Code, convey.ShouldEqual, http.StatusAccepted)
				convey.So(len(deps.enqueued), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When posting malformed events", func() {
			bodies := []string{
				`not json`,
				`{"baby_id": "b", "type": "feeding", "start": "2026-03-14T09:00:00Z"}`,
				`{"event_id": "e", "type": "feeding", "start": "2026-03-14T09:00:00Z"}`,
				`{"event_id": "e", "baby_id": "b", "type": "bath", "start": "2026-03-14T09:00:00Z"}`,
				`{"event_id": "e", "baby_id": "b", "type": "feeding", "start": "yesterday"}`,
				`{"event_id": "e", "baby_id": "b", "type": "feeding", "start": "2026-03-14T09:00:00Z", "amount_ml": -5}`,
				`{"event_id": "e", "baby_id": "b", "type": "sleep", "start": "2026-03-14T09:00:00Z", "end": "2026-03-14T08:00:00Z"}`,
			}

			convey.Convey("Then each should be rejected", func() {
				for _, body := range bodies {
					rec := doJSON(mux, http.MethodPost, "/events", body)
					convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
				}
				convey.So(deps.enqueued, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the queue pushes back", func() {
			deps.enqueueOK = false
			rec := doJSON(mux, http.MethodPost, "/events", validEventBody)

			convey.Convey("Then the client should see backpressure", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusTooManyRequests)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, "backpressure")
			})

			convey.Convey("And a later retry should not be treated as a duplicate", func() {
				deps.enqueueOK = true
				rec2 := doJSON(mux, http.MethodPost, "/events", validEventBody)
				convey.So(rec2.Code, convey.ShouldEqual, http.StatusAccepted)
			})
		})

		convey.Convey("When using the wrong method", func() {
			rec := doJSON(mux, http.MethodGet, "/events", "")

			convey.Convey("Then it should not be found", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestPredictHandler(t *testing.T) {
	convey.Convey("Given the prediction endpoint", t, func() {
		deps := newFakeDeps()
		deps.pred = predictor.Prediction{
			ID:         "pred-1",
			BabyID:     "baby-1",
			Cause:      model.CauseHungry,
			Confidence: 0.84,
			Factors: []predictor.Factor{
				{Cause: model.CauseHungry, Feature: "since_feeding", Weight: 0.84},
				{Cause: model.CauseDiaper, Feature: "since_diaper", Weight: 0.16},
			},
		}
		mux := newTestMux(deps)

		convey.Convey("When querying a baby", func() {
			rec := doJSON(mux, http.MethodGet, "/predict/baby-1?at=2026-03-14T15:00:00Z", "")

			convey.Convey("Then the ranked prediction should return", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)

				var resp map[string]any
				convey.So(json.Unmarshal(rec.Body.Bytes(), &resp), convey.ShouldBeNil)
				convey.So(resp["cause"], convey.ShouldEqual, "hungry")
				convey.So(resp["confidence"], convey.ShouldAlmostEqual, 0.84, 1e-9)
				convey.So(resp["resolved"], convey.ShouldEqual, true)
				convey.So(len(resp["factors"].([]any)), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the path or query is malformed", func() {
			convey.So(doJSON(mux, http.MethodGet, "/predict/", "").Code,
				convey.ShouldEqual, http.StatusBadRequest)
			convey.So(doJSON(mux, http.MethodGet, "/predict/baby-1/extra", "").Code,
				convey.ShouldEqual, http.StatusBadRequest)
			convey.So(doJSON(mux, http.MethodGet, "/predict/baby-1?at=noon", "").Code,
				convey.ShouldEqual, http.StatusBadRequest)
		})

		convey.Convey("When the query predates the event window", func() {
			deps.predictErr = predictor.WrapKind("predictor.predict", predictor.ErrInvalidInput,
				context.DeadlineExceeded)
			rec := doJSON(mux, http.MethodGet, "/predict/baby-1", "")

			convey.Convey("Then the client should see invalid input", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, "invalid_input")
			})
		})
	})
}

func TestFeedbackHandler(t *testing.T) {
	convey.Convey("Given the feedback endpoint", t, func() {
		deps := newFakeDeps()
		deps.adj = adaptive.Adjustment{
			Correct:      true,
			OldThreshold: 2.5,
			NewThreshold: 2.725,
			BabyFeedback: 1,
		}
		mux := newTestMux(deps)

		body := `{
			"feedback_id": "fb-1",
			"baby_id": "baby-1",
			"predicted_cause": "hungry",
			"actual_cause": "hungry",
			"at": "2026-03-14T15:00:00Z"
		}`

		convey.Convey("When posting valid feedback", func() {
			rec := doJSON(mux, http.MethodPost, "/feedback", body)

			convey.Convey("Then the adjustment should be reported", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"recorded"`)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"correct":true`)
				convey.So(deps.lastFeedback.FeedbackID, convey.ShouldEqual, "fb-1")
				convey.So(deps.lastFeedback.Actual, convey.ShouldEqual, model.CauseHungry)
			})
		})

		convey.Convey("When the feedback id was already processed", func() {
			deps.dupFeedback = true
			rec := doJSON(mux, http.MethodPost, "/feedback", body)

			convey.Convey("Then the replay should be acknowledged as a duplicate", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"duplicate"`)
			})
		})

		convey.Convey("When the actual cause is outside the known set", func() {
			deps.feedbackErr = adaptive.WrapKind("adaptive.record", adaptive.ErrUnknownCause,
				context.DeadlineExceeded)
			rec := doJSON(mux, http.MethodPost, "/feedback", body)

			convey.Convey("Then the client should see the cause rejection", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, "unknown_cause")
			})
		})

		convey.Convey("When required fields are missing", func() {
			rec := doJSON(mux, http.MethodPost, "/feedback", `{"baby_id": "baby-1"}`)

			convey.Convey("Then it should be rejected", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestSummaryHandler(t *testing.T) {
	convey.Convey("Given the summary endpoint", t, func() {
		deps := newFakeDeps()
		deps.stats = repository.DailyStats{FeedingCount: 4, DiaperCount: 5}
		deps.schedule = repository.Schedule{AvgFeedingIntervalHrs: 3.1}
		mux := newTestMux(deps)

		convey.Convey("When querying a baby's summary", func() {
			rec := doJSON(mux, http.MethodGet, "/babies/baby-1/summary", "")

			convey.Convey("Then stats and schedule should return together", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)

				var resp map[string]any
				convey.So(json.Unmarshal(rec.Body.Bytes(), &resp), convey.ShouldBeNil)
				convey.So(resp["baby_id"], convey.ShouldEqual, "baby-1")
				convey.So(resp["today"].(map[string]any)["feeding_count"], convey.ShouldAlmostEqual, 4, 1e-9)
				convey.So(resp["schedule"].(map[string]any)["avg_feeding_interval_hours"],
					convey.ShouldAlmostEqual, 3.1, 1e-9)
			})
		})

		convey.Convey("When the path does not name the summary resource", func() {
			convey.So(doJSON(mux, http.MethodGet, "/babies/baby-1", "").Code,
				convey.ShouldEqual, http.StatusNotFound)
			convey.So(doJSON(mux, http.MethodGet, "/babies/baby-1/history", "").Code,
				convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	convey.Convey("Given the operational endpoints", t, func() {
		mux := newTestMux(newFakeDeps())

		convey.Convey("When checking health", func() {
			rec := doJSON(mux, http.MethodGet, "/healthz", "")

			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"ok"`)
		})

		convey.Convey("When scraping metrics", func() {
			rec := doJSON(mux, http.MethodGet, "/metrics", "")

			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("When fetching stats", func() {
			rec := doJSON(mux, http.MethodGet, "/stats", "")

			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"started":true`)
		})
	})
}
