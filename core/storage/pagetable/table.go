// Package pagetable implements the (File, PageID) -> FrameID hash index
// the buffer pool manager consults on every access: a single
// mutex-guarded Go map keyed by a comparable tag struct.
package pagetable

import (
	"sync"

	"github.com/arvindsinha/gojobuf/core/storage/page"
	"github.com/arvindsinha/gojobuf/core/storage/pagefile"
)

// tag is the lookup key: a page's identity within a specific file.
type tag struct {
	file *pagefile.File
	id   page.ID
}

// Table maps (file, pageID) to the frame currently holding it. A Go map
// needs no presizing to stay amortized O(1), so NewTable accepts numBufs
// only as a capacity hint.
type Table struct {
	mu sync.RWMutex
	m  map[tag]page.FrameID
}

// NewTable creates an empty table sized for roughly numBufs entries.
func NewTable(numBufs int) *Table {
	hint := (numBufs*12)/10 + 1
	return &Table{m: make(map[tag]page.FrameID, hint)}
}

// Lookup returns the frame holding (file, id), or (0, false) if absent.
// Callers branch on ok directly rather than treating a miss as an error.
func (t *Table) Lookup(file *pagefile.File, id page.ID) (page.FrameID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	frame, ok := t.m[tag{file, id}]
	return frame, ok
}

// Insert adds a mapping. The caller guarantees (file, id) is not already
// present.
func (t *Table) Insert(file *pagefile.File, id page.ID, frame page.FrameID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[tag{file, id}] = frame
}

// Remove deletes a mapping. The caller guarantees (file, id) is present.
func (t *Table) Remove(file *pagefile.File, id page.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, tag{file, id})
}

// Len reports the number of resident (file, pageID) mappings. Used by
// tests to cross-check table state.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.m)
}
