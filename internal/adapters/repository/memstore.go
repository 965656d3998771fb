package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/mirelk/cribsense/internal/domain/model"
	"github.com/mirelk/cribsense/pkg/metrics"
)

// Default store sizing constants.
const (
	defaultShardCount = 8
	defaultRetention  = 48 * time.Hour
)

// MemStore is an in-memory, sharded Store. Babies hash to shards so
// concurrent writes for different babies rarely contend; within a shard a
// RWMutex allows concurrent window reads.
type MemStore struct {
	shards     []*shard
	shardCount int
	retention  time.Duration
}

type shard struct {
	mu     sync.RWMutex
	babies map[string]*babyLog
}

// babyLog keeps one baby's events ordered by start time, with an index by
// event id for upserts.
type babyLog struct {
	events []model.Event
	byID   map[string]int
}

// NewMemStore creates an in-memory event store with configuration options.
func NewMemStore(_ context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		shardCount: defaultShardCount,
		retention:  defaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{babies: make(map[string]*babyLog)}
	}
	metrics.UpdateStoreShardCount(s.shardCount)
	return s
}

// Append records ev, replacing any stored event with the same EventID.
func (s *MemStore) Append(_ context.Context, ev model.Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreAppendLatency(float64(time.Since(start).Milliseconds()))
	}()

	switch {
	case ev.BabyID == "":
		return fmt.Errorf("%w: missing baby id", ErrInvalidEvent)
	case ev.EventID == "":
		return fmt.Errorf("%w: missing event id", ErrInvalidEvent)
	case ev.Start.IsZero():
		return fmt.Errorf("%w: missing start time", ErrInvalidEvent)
	case !model.ValidType(ev.Type):
		return fmt.Errorf("%w: unrecognized type %q", ErrInvalidEvent, ev.Type)
	case !ev.End.IsZero() && ev.End.Before(ev.Start):
		return fmt.Errorf("%w: end precedes start", ErrInvalidEvent)
	}

	sh := s.shardFor(ev.BabyID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	log, ok := sh.babies[ev.BabyID]
	if !ok {
		log = &babyLog{byID: make(map[string]int)}
		sh.babies[ev.BabyID] = log
	}

	if i, exists := log.byID[ev.EventID]; exists {
		log.events[i] = ev
		log.resort()
	} else {
		log.insert(ev)
	}
	log.trim(ev.Start.Add(-s.retention))
	return nil
}

// Window returns babyID's events with Start in [since, until], ascending.
func (s *MemStore) Window(_ context.Context, babyID string, since, until time.Time) ([]model.Event, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if until.Before(since) {
		return nil, fmt.Errorf("%w: until %s precedes since %s", ErrInvalidWindow,
			until.Format(time.RFC3339), since.Format(time.RFC3339))
	}

	sh := s.shardFor(babyID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	log, ok := sh.babies[babyID]
	if !ok {
		return nil, nil
	}

	lo := sort.Search(len(log.events), func(i int) bool {
		return !log.events[i].Start.Before(since)
	})
	hi := sort.Search(len(log.events), func(i int) bool {
		return log.events[i].Start.After(until)
	})
	if lo >= hi {
		return nil, nil
	}
	out := make([]model.Event, hi-lo)
	copy(out, log.events[lo:hi])
	return out, nil
}

// Babies returns the number of babies with stored events.
func (s *MemStore) Babies(_ context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.babies)
		sh.mu.RUnlock()
	}
	return total
}

// Events returns the total number of stored events.
func (s *MemStore) Events(_ context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, log := range sh.babies {
			total += len(log.events)
		}
		sh.mu.RUnlock()
	}
	return total
}

func (s *MemStore) shardFor(babyID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(babyID))
	return s.shards[int(h.Sum32())%s.shardCount]
}

// insert places ev in start-time order. Events usually arrive roughly in
// order, so scan from the tail.
func (l *babyLog) insert(ev model.Event) {
	i := len(l.events)
	for i > 0 && l.events[i-1].Start.After(ev.Start) {
		i--
	}
	l.events = append(l.events, model.Event{})
	copy(l.events[i+1:], l.events[i:])
	l.events[i] = ev
	l.reindex(i)
}

// resort restores start-time order after an in-place replacement.
func (l *babyLog) resort() {
	sort.SliceStable(l.events, func(i, j int) bool {
		return l.events[i].Start.Before(l.events[j].Start)
	})
	l.reindex(0)
}

// trim drops events that started before cutoff. An ongoing sleep is the
// one open session the scorer still needs past the horizon; everything
// else, including never-closed feedings and cries, ages out on start
// alone so abandoned sessions cannot accumulate.
func (l *babyLog) trim(cutoff time.Time) {
	kept := l.events[:0]
	dropped := false
	for _, ev := range l.events {
		openSleep := ev.Ongoing() && ev.Type == model.EventSleep
		if ev.Start.Before(cutoff) && !openSleep {
			delete(l.byID, ev.EventID)
			dropped = true
			continue
		}
		kept = append(kept, ev)
	}
	l.events = kept
	if dropped {
		l.reindex(0)
	}
}

func (l *babyLog) reindex(from int) {
	for i := from; i < len(l.events); i++ {
		l.byID[l.events[i].EventID] = i
	}
}
