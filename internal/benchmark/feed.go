package benchmark

import "sync"

// Feed is the shared, append-only result log. Runners append
// concurrently; readers page through it with a cursor.
type Feed struct {
	mu      sync.RWMutex
	entries []Sample
	updated chan struct{}
}

func NewFeed() *Feed {
	return &Feed{updated: make(chan struct{})}
}

// Append adds s and wakes everyone waiting on Updated.
func (f *Feed) Append(s Sample) {
	f.mu.Lock()
	f.entries = append(f.entries, s)
	close(f.updated)
	f.updated = make(chan struct{})
	f.mu.Unlock()
}

// Since returns the entries after cursor and the cursor to pass next time.
func (f *Feed) Since(cursor int) ([]Sample, int) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(f.entries) {
		return nil, len(f.entries)
	}

	out := make([]Sample, len(f.entries)-cursor)
	copy(out, f.entries[cursor:])
	return out, len(f.entries)
}

// Snapshot returns a copy of every entry.
func (f *Feed) Snapshot() []Sample {
	out, _ := f.Since(0)
	return out
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// Updated returns a channel closed by the next Append.
func (f *Feed) Updated() <-chan struct{} {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updated
}
