package state

import (
	"sync"

	"realtime-listings/internal/listing"
)

// DefaultHistoryCap bounds how many listings are remembered for dedup.
const DefaultHistoryCap = 200

// History remembers recently seen listings, newest first. ids and full always
// have the same length and order. Listings with an absent or null id are
// stored but never match, so they are always classified as new.
type History struct {
	mu   sync.RWMutex
	cap  int
	ids  []listing.ID
	full []listing.Listing
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &History{cap: capacity}
}

// ClassifyAndRecord returns the listings in batch that have not been seen
// before, in the order they were evaluated, and records them. Each new
// listing is prepended as it is found, so for an ascending batch the last
// one ends up at the front.
func (h *History) ClassifyAndRecord(batch []listing.Listing) []listing.Listing {
	h.mu.Lock()
	defer h.mu.Unlock()

	var fresh []listing.Listing
	for _, l := range batch {
		if h.containsLocked(l.ID) {
			continue
		}
		h.ids = append([]listing.ID{l.ID}, h.ids...)
		h.full = append([]listing.Listing{l}, h.full...)
		fresh = append(fresh, l)
	}

	if len(h.ids) > h.cap {
		clear(h.full[h.cap:])
		h.ids = h.ids[:h.cap]
		h.full = h.full[:h.cap]
	}
	return fresh
}

func (h *History) containsLocked(id listing.ID) bool {
	for _, e := range h.ids {
		if e.Equal(id) {
			return true
		}
	}
	return false
}

// Recent returns up to n of the most recently recorded listings, newest first.
func (h *History) Recent(n int) []listing.Listing {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > len(h.full) || n < 0 {
		n = len(h.full)
	}
	out := make([]listing.Listing, n)
	copy(out, h.full[:n])
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ids)
}

// IDs returns the recorded identifiers, newest first.
func (h *History) IDs() []listing.ID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]listing.ID(nil), h.ids...)
}
