package pool

import "sync"

// Handle identifies one checkout of a pooled instance. It encodes the slot
// index in the lower 32 bits and the slot generation in the upper 32 bits,
// the same layout as ecs.EntityID. Recycling bumps the generation, so a
// handle kept past Recycle no longer resolves.
type Handle uint64

func newHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) Index() uint32      { return uint32(h) }
func (h Handle) Generation() uint32 { return uint32(h >> 32) }

type slot[T any] struct {
	item       *T
	generation uint32
	live       bool
}

// Pool is an arena of reusable instances addressed through generational
// handles. Safe for concurrent use; every region loop shares one pool.
// Growth is unbounded.
type Pool[T any] struct {
	mu      sync.Mutex
	slots   []slot[T]
	free    []uint32
	factory func() *T
	reset   func(*T)
}

// New creates a pool. factory builds a fresh instance on growth; reset (may
// be nil) restores a recycled instance to its default state.
func New[T any](factory func() *T, reset func(*T)) *Pool[T] {
	return &Pool[T]{
		slots:   make([]slot[T], 0, 64),
		free:    make([]uint32, 0, 64),
		factory: factory,
		reset:   reset,
	}
}

// Obtain checks out an instance, recycled when one is idle.
func (p *Pool[T]) Obtain() (Handle, *T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		s := &p.slots[idx]
		s.live = true
		return newHandle(idx, s.generation), s.item
	}

	idx := uint32(len(p.slots))
	p.slots = append(p.slots, slot[T]{item: p.factory(), live: true})
	return newHandle(idx, 0), p.slots[idx].item
}

// Get resolves a handle. It fails for handles whose checkout already ended.
func (p *Pool[T]) Get(h Handle) (*T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.lookup(h)
	if !ok {
		return nil, false
	}
	return s.item, true
}

// Recycle ends the checkout identified by h. It returns false (and does
// nothing) for a stale handle, including a second Recycle of the same handle.
func (p *Pool[T]) Recycle(h Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.lookup(h)
	if !ok {
		return false
	}
	if p.reset != nil {
		p.reset(s.item)
	}
	s.live = false
	s.generation++
	p.free = append(p.free, h.Index())
	return true
}

func (p *Pool[T]) lookup(h Handle) (*slot[T], bool) {
	idx := h.Index()
	if int(idx) >= len(p.slots) {
		return nil, false
	}
	s := &p.slots[idx]
	if !s.live || s.generation != h.Generation() {
		return nil, false
	}
	return s, true
}

// Live returns the number of checked-out instances.
func (p *Pool[T]) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots) - len(p.free)
}

// Idle returns the number of instances waiting for reuse.
func (p *Pool[T]) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
