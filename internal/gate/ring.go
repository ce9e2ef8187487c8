package gate

import "sync"

// Ring is a fixed-capacity ordered set of recently seen message IDs. It
// backs deduplication when the persistent store is unreachable. On
// overflow the oldest entries are evicted, keeping the most recent half.
type Ring struct {
	mu       sync.Mutex
	capacity int
	keep     int
	order    []string
	seen     map[string]struct{}
}

// NewRing creates a ring holding up to capacity IDs. Eviction trims down
// to capacity/2 so overflow does not thrash on every insert.
func NewRing(capacity int) *Ring {
	if capacity < 2 {
		capacity = 2
	}
	return &Ring{
		capacity: capacity,
		keep:     capacity / 2,
		order:    make([]string, 0, capacity),
		seen:     make(map[string]struct{}, capacity),
	}
}

func (r *Ring) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[id]
	return ok
}

func (r *Ring) Insert(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[id]; ok {
		return
	}
	r.order = append(r.order, id)
	r.seen[id] = struct{}{}

	if len(r.order) > r.capacity {
		drop := len(r.order) - r.keep
		for _, old := range r.order[:drop] {
			delete(r.seen, old)
		}
		r.order = append(r.order[:0], r.order[drop:]...)
	}
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
