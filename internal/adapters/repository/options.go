package repository

import "time"

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithShardCount sets the number of shards babies are hashed across.
func WithShardCount(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithRetention sets how long events are kept before aging out.
func WithRetention(d time.Duration) Option {
	return func(s *MemStore) {
		if d > 0 {
			s.retention = d
		}
	}
}
