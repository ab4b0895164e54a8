package deck

import (
	"sync"
	"time"
)

// IDAllocator issues card ids from the epoch-millisecond clock. Ids are
// strictly increasing, skip reserved ids and are never issued twice.
type IDAllocator struct {
	mu    sync.Mutex
	last  int64
	taken map[int64]bool
	now   func() time.Time
}

// NewIDAllocator returns an allocator that skips the reserved ids.
func NewIDAllocator(reserved ...int64) *IDAllocator {
	a := &IDAllocator{taken: make(map[int64]bool), now: time.Now}
	a.Reserve(reserved...)
	return a
}

// Reserve marks ids as in use.
func (a *IDAllocator) Reserve(ids ...int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range ids {
		a.taken[id] = true
	}
}

// Next returns a fresh id.
func (a *IDAllocator) Next() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.now().UnixMilli()
	if id <= a.last {
		id = a.last + 1
	}
	for a.taken[id] {
		id++
	}
	a.taken[id] = true
	a.last = id
	return id
}
