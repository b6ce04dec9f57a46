package session

import (
	"sort"
	"sync"
)

// lockTable hands out one mutex per session id. Entries are reference counted
// and dropped once no caller holds or waits on them.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*lockEntry)}
}

// lock acquires the mutexes for ids in sorted order and returns a release func
func (t *lockTable) lock(ids ...string) func() {
	ids = uniqueSorted(ids)

	entries := make([]*lockEntry, len(ids))
	t.mu.Lock()
	for i, id := range ids {
		e, ok := t.locks[id]
		if !ok {
			e = &lockEntry{}
			t.locks[id] = e
		}
		e.refs++
		entries[i] = e
	}
	t.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
	}

	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}

		t.mu.Lock()
		for i, id := range ids {
			entries[i].refs--
			if entries[i].refs == 0 {
				delete(t.locks, id)
			}
		}
		t.mu.Unlock()
	}
}

// size returns the number of live entries
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

func uniqueSorted(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
