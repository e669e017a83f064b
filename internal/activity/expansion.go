package activity

import (
	"slices"
	"sync"
)

// Expansion remembers which feed items are expanded. It lives beside the feed, keyed
// by item ID, and is never sent to the backend.
type Expansion struct {
	mu   sync.Mutex
	open map[string]bool
}

func NewExpansion() *Expansion {
	return &Expansion{open: make(map[string]bool)}
}

// Toggle flips id and returns whether it is now expanded.
func (e *Expansion) Toggle(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open[id] {
		delete(e.open, id)
		return false
	}
	e.open[id] = true
	return true
}

func (e *Expansion) IsExpanded(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open[id]
}

// Expanded returns the expanded IDs, sorted.
func (e *Expansion) Expanded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.open))
	for id := range e.open {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Retain forgets items that are no longer in the feed.
func (e *Expansion) Retain(items []Item) {
	keep := make(map[string]bool, len(items))
	for _, it := range items {
		keep[it.ID] = true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.open {
		if !keep[id] {
			delete(e.open, id)
		}
	}
}
