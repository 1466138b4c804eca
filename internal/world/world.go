package world

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// World is the set of regions hosted by this process.
type World struct {
	mu      sync.RWMutex
	regions map[uint32]*Region
	log     *zap.Logger
}

func New(log *zap.Logger) *World {
	return &World{regions: make(map[uint32]*Region), log: log}
}

// AddRegion creates (or returns the existing) region id.
func (w *World) AddRegion(id uint32, name string) *Region {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.regions[id]; ok {
		return r
	}
	r := NewRegion(id, name, w.log)
	w.regions[id] = r
	return r
}

func (w *World) Region(id uint32) *Region {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.regions[id]
}

// Regions returns every region ordered by id.
func (w *World) Regions() []*Region {
	w.mu.RLock()
	out := make([]*Region, 0, len(w.regions))
	for _, r := range w.regions {
		out = append(out, r)
	}
	w.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
