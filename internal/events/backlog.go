package events

import (
	"sync"

	"carwatch-engine/internal/domain"
)

// Backlog keeps the most recent new listings, newest first, so a connecting
// subscriber can be brought up to date before live events start.
type Backlog struct {
	mu  sync.Mutex
	buf []domain.Listing
	cap int
}

func NewBacklog(capacity int) *Backlog {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Backlog{cap: capacity}
}

func (b *Backlog) Add(l domain.Listing) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append([]domain.Listing{l}, b.buf...)
	if len(b.buf) > b.cap {
		b.buf = b.buf[:b.cap]
	}
}

// Snapshot returns a copy, newest first.
func (b *Backlog) Snapshot() []domain.Listing {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Listing, len(b.buf))
	copy(out, b.buf)
	return out
}

func (b *Backlog) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}
