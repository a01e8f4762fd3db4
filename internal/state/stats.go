package state

import (
	"sync"
	"time"
)

const statsBuckets = 24

// Stats counts newly detected listings in hour-of-day buckets, newest
// first. A new bucket starts whenever the hour of day changes between
// records, so an idle gap that lands on the same hour keeps adding to the
// old bucket.
type Stats struct {
	mu       sync.RWMutex
	buckets  []int
	total    int
	lastTime time.Time
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) Record(count int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastTime.IsZero() || s.lastTime.Hour() != now.Hour() {
		s.buckets = append([]int{count}, s.buckets...)
		s.total += count

		if len(s.buckets) > statsBuckets {
			for _, v := range s.buckets[statsBuckets-1:] {
				s.total -= v
			}
			s.buckets = s.buckets[:statsBuckets-1]
		}
		s.lastTime = now
		return
	}

	s.buckets[0] += count
	s.total += count
}

// Snapshot is a point-in-time copy of the rolling counts.
type Snapshot struct {
	Total    int
	Buckets  []int // newest first
	LastTime time.Time
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := make([]int, len(s.buckets))
	copy(b, s.buckets)
	return Snapshot{Total: s.total, Buckets: b, LastTime: s.lastTime}
}
