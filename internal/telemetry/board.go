package telemetry

import "sync"

// Board holds the published snapshot set. Each publish replaces the whole
// set, so readers never see a mix of two ticks.
type Board struct {
	mu    sync.RWMutex
	set   []Snapshot
	index map[string]int
}

func NewBoard() *Board {
	return &Board{index: make(map[string]int)}
}

// Replace swaps in a new snapshot set.
func (b *Board) Replace(set []Snapshot) {
	index := make(map[string]int, len(set))
	owned := make([]Snapshot, len(set))
	copy(owned, set)
	for i, s := range owned {
		index[s.Node] = i
	}

	b.mu.Lock()
	b.set = owned
	b.index = index
	b.mu.Unlock()
}

// Latest returns a copy of the current set.
func (b *Board) Latest() []Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Snapshot, len(b.set))
	copy(out, b.set)
	return out
}

// Get returns the current snapshot for node.
func (b *Board) Get(node string) (Snapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i, ok := b.index[node]
	if !ok {
		return Snapshot{}, false
	}
	return b.set[i], true
}
