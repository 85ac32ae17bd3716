package bufferpool

import (
	"github.com/arvindsinha/gojobuf/core/storage/page"
	"github.com/arvindsinha/gojobuf/core/storage/pagefile"
)

// descriptor is the bookkeeping record for one slot in the pool. It is a
// flat aggregate with no subclassing, created once at manager
// construction and mutated in place for the life of the manager; only
// its contents change, never its identity.
type descriptor struct {
	frameNo page.FrameID
	file    *pagefile.File
	pageNo  page.ID
	pinCnt  int32
	dirty   bool
	refbit  bool
	valid   bool
}

// clear resets a descriptor to the invalid state. The caller must only
// call this on a frame with pinCnt == 0; its callers (evictForReuse,
// DisposePage and FlushFile) each check the pin count first.
func (d *descriptor) clear() {
	d.file = nil
	d.pageNo = page.InvalidID
	d.pinCnt = 0
	d.dirty = false
	d.refbit = false
	d.valid = false
}

// set transitions a descriptor to valid, pinned once, clean, and
// freshly referenced.
func (d *descriptor) set(file *pagefile.File, pageNo page.ID) {
	d.file = file
	d.pageNo = pageNo
	d.pinCnt = 1
	d.dirty = false
	d.refbit = true
	d.valid = true
}
