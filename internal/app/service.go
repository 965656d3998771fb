// Package service wires the domain components into the application
// service that implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/mirelk/cribsense/internal/adapters/mq/queue"
	workerpool "github.com/mirelk/cribsense/internal/adapters/mq/worker"
	"github.com/mirelk/cribsense/internal/adapters/repository"
	"github.com/mirelk/cribsense/internal/domain/adaptive"
	"github.com/mirelk/cribsense/internal/domain/dedupe"
	"github.com/mirelk/cribsense/internal/domain/feature"
	"github.com/mirelk/cribsense/internal/domain/model"
	"github.com/mirelk/cribsense/internal/domain/predictor"
	"github.com/mirelk/cribsense/pkg/logger"
	"github.com/mirelk/cribsense/pkg/metrics"
)

// Service owns the event pipeline and the prediction components.
type Service struct {
	mu sync.RWMutex

	// Core components
	store         repository.Store
	eventDeduper  dedupe.Deduper
	feedbackSeen  dedupe.Deduper
	eventQueue    eventqueue.Queue
	pool          *workerpool.Pool
	extractor     *feature.Extractor
	predictor     *predictor.Predictor
	weights       *adaptive.Store

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	shardCount      int
	windowHours     float64
	cryCountWindow  time.Duration
	retention       time.Duration
	thresholds      model.Thresholds
	decayRate       float64
	minClampFactor  float64
	maxClampFactor  float64
	minBabyFeedback int
	tieEpsilon      float64

	// State
	started bool

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * 2,
		queueSize:       10000,
		dedupeSize:      50000,
		shardCount:      8,
		windowHours:     24,
		cryCountWindow:  3 * time.Hour,
		retention:       48 * time.Hour,
		thresholds:      model.DefaultThresholds(),
		decayRate:       0.15,
		minClampFactor:  0.5,
		maxClampFactor:  2.0,
		minBabyFeedback: 10,
		tieEpsilon:      0.05,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.thresholds.Validate(); err != nil {
		return err
	}

	s.logger.Info(ctx, "starting prediction service")

	s.store = repository.NewMemStore(ctx,
		repository.WithShardCount(s.shardCount),
		repository.WithRetention(s.retention),
	)
	s.eventDeduper = dedupe.NewRingDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.feedbackSeen = dedupe.NewRingDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.weights = adaptive.NewStore(
		adaptive.WithDefaults(s.thresholds),
		adaptive.WithDecayRate(s.decayRate),
		adaptive.WithClampFactors(s.minClampFactor, s.maxClampFactor),
		adaptive.WithMinBabyFeedback(s.minBabyFeedback),
	)
	s.extractor = feature.NewExtractor(feature.WithCryCountWindow(s.cryCountWindow))
	s.predictor = predictor.New(
		predictor.WithExtractor(s.extractor),
		predictor.WithWeightSource(s.weights),
		predictor.WithTieEpsilon(s.tieEpsilon),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.eventQueue, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Float64("window_hours", s.windowHours),
	)
	return nil
}

// Stop gracefully shuts down the service, draining queued events.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping prediction service")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "prediction service stopped")
}

// SeenAndRecord atomically checks whether an event key was seen and
// records it if not. Returns true for an already-seen key.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.eventDeduper.SeenAndRecord(ctx, id)
}

// Unrecord removes an event key from the seen set so a retry can succeed.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.eventDeduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the event deduper.
func (s *Service) Size() int64 {
	if s.eventDeduper == nil {
		return 0
	}
	return s.eventDeduper.Size()
}

// Enqueue submits an event for asynchronous ingestion.
func (s *Service) Enqueue(ctx context.Context, e model.Event) bool {
	s.logger.Debug(ctx, "enqueueing event",
		logger.String("event_id", e.EventID),
		logger.String("baby_id", e.BabyID),
		logger.String("type", string(e.Type)),
	)
	return s.eventQueue.Enqueue(ctx, e)
}

// Predict ranks likely crying causes for babyID as of at, reading the
// recent event window from the store.
func (s *Service) Predict(ctx context.Context, babyID string, at time.Time) (predictor.Prediction, error) {
	start := time.Now()
	defer func() {
		metrics.RecordPredictionLatency(float64(time.Since(start).Milliseconds()))
	}()

	events, err := s.window(ctx, babyID, at)
	if err != nil {
		return predictor.Prediction{}, err
	}

	pred, err := s.predictor.Predict(ctx, babyID, at, events)
	if err != nil {
		metrics.RecordErrorByComponent("predictor", "invalid_input")
		return predictor.Prediction{}, err
	}

	metrics.RecordPrediction(string(pred.Cause))
	metrics.RecordPredictionConfidence(pred.Confidence)
	s.logger.Debug(ctx, "prediction computed",
		logger.String("baby_id", babyID),
		logger.String("cause", string(pred.Cause)),
		logger.Float64("confidence", pred.Confidence),
	)
	return pred, nil
}

// RecordFeedback folds one caregiver feedback record into the adaptive
// weights. The second return is true when the feedback id was already
// processed and the record was ignored.
func (s *Service) RecordFeedback(ctx context.Context, fb adaptive.FeedbackRecord) (adaptive.Adjustment, bool, error) {
	if s.feedbackSeen.SeenAndRecord(ctx, fb.FeedbackID) {
		return adaptive.Adjustment{}, true, nil
	}

	// The snapshot anchors threshold nudges to the state the prediction
	// saw. Recompute it from the stored window; a failed extraction
	// leaves all samples unknown, so only confusion counts move.
	if events, err := s.window(ctx, fb.BabyID, fb.At); err == nil {
		if v, err := s.extractor.Extract(fb.BabyID, fb.At, events); err == nil {
			fb.Snapshot = v
		}
	}

	adj, err := s.weights.Record(ctx, fb)
	if err != nil {
		// Roll back so a corrected resubmission with the same id works.
		s.feedbackSeen.Unrecord(ctx, fb.FeedbackID)
		return adaptive.Adjustment{}, false, err
	}

	metrics.UpdateThreshold(fb.BabyID, string(fb.Actual), adj.NewThreshold)
	s.logger.Info(ctx, "feedback recorded",
		logger.String("baby_id", fb.BabyID),
		logger.String("predicted", string(fb.Predicted)),
		logger.String("actual", string(fb.Actual)),
		logger.Bool("correct", adj.Correct),
		logger.Float64("new_threshold", adj.NewThreshold),
		logger.Bool("baby_pool", adj.UsingBabyPool),
	)
	return adj, false, nil
}

// Summary reports a baby's stats for the day containing at plus the
// typical schedule derived from the whole retained window.
func (s *Service) Summary(ctx context.Context, babyID string, at time.Time) (repository.DailyStats, repository.Schedule, error) {
	events, err := s.store.Window(ctx, babyID, at.Add(-s.retention), at)
	if err != nil {
		return repository.DailyStats{}, repository.Schedule{}, err
	}

	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	var today []model.Event
	for _, ev := range events {
		if !ev.Start.Before(dayStart) {
			today = append(today, ev)
		}
	}

	return repository.Summarize(today, at), repository.BuildSchedule(events), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
		"dedupe_size":  s.dedupeSize,
	}

	if s.started {
		ctx := context.Background()
		queueLen := s.eventQueue.Len(ctx)
		babies := s.store.Babies(ctx)
		events := s.store.Events(ctx)

		stats["queue_length"] = queueLen
		stats["babies"] = babies
		stats["events"] = events
		stats["dedupe_entries"] = s.eventDeduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStoreBabies(babies)
		metrics.UpdateStoreEvents(events)
	}

	return stats
}

// window reads babyID's scoring window ending at at.
func (s *Service) window(ctx context.Context, babyID string, at time.Time) ([]model.Event, error) {
	since := at.Add(-time.Duration(s.windowHours * float64(time.Hour)))
	return s.store.Window(ctx, babyID, since, at)
}
