package service

import (
	"time"

	"github.com/mirelk/cribsense/internal/domain/model"
	"github.com/mirelk/cribsense/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the event queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication caches.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of event store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithWindowHours sets how far back predictions look for events.
func WithWindowHours(hours float64) Option {
	return func(s *Service) {
		if hours > 0 {
			s.windowHours = hours
		}
	}
}

// WithCryCountWindow sets the window for counting recent crying episodes.
func WithCryCountWindow(w time.Duration) Option {
	return func(s *Service) {
		if w > 0 {
			s.cryCountWindow = w
		}
	}
}

// WithRetention sets how long events stay queryable in the store.
func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithThresholds sets the default cause thresholds seeding the weights.
func WithThresholds(t model.Thresholds) Option {
	return func(s *Service) {
		s.thresholds = t
	}
}

// WithDecayRate sets the per-feedback threshold decay rate.
func WithDecayRate(rate float64) Option {
	return func(s *Service) {
		if rate > 0 && rate < 1 {
			s.decayRate = rate
		}
	}
}

// WithClampFactors bounds learned thresholds relative to their defaults.
func WithClampFactors(minFactor, maxFactor float64) Option {
	return func(s *Service) {
		if minFactor > 0 && maxFactor > minFactor {
			s.minClampFactor = minFactor
			s.maxClampFactor = maxFactor
		}
	}
}

// WithMinBabyFeedback sets the feedback count gating per-baby pools.
func WithMinBabyFeedback(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minBabyFeedback = n
		}
	}
}

// WithTieEpsilon sets the confidence margin treated as a tie.
func WithTieEpsilon(eps float64) Option {
	return func(s *Service) {
		if eps > 0 {
			s.tieEpsilon = eps
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
