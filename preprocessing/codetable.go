package preprocessing

import "sync"

// CodeTable maps the values of a binary-coded column to 0.0 or 1.0.
//
// Transform may add entries for values never seen during Fit, so the table
// is guarded by its own lock and shared safely between concurrent Transform
// calls.
type CodeTable struct {
	mu    sync.RWMutex
	codes map[any]float64
}

func newCodeTable() *CodeTable {
	return &CodeTable{codes: make(map[any]float64, 2)}
}

// Lookup returns the code recorded for v.
func (t *CodeTable) Lookup(v any) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	code, ok := t.codes[v]
	return code, ok
}

// InsertIfAbsent records v→code unless v already has a code, and returns the
// code now associated with v. inserted is true only for the caller that
// actually added the entry.
func (t *CodeTable) InsertIfAbsent(v any, code float64) (current float64, inserted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.codes[v]; ok {
		return existing, false
	}
	t.codes[v] = code
	return code, true
}

// Len returns the number of recorded values.
func (t *CodeTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.codes)
}

// Snapshot returns a copy of the mapping.
func (t *CodeTable) Snapshot() map[any]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[any]float64, len(t.codes))
	for k, v := range t.codes {
		out[k] = v
	}
	return out
}
