// Package page defines the value types shared by the page file, the page
// table, and the buffer pool: a page's identity and its in-memory bytes.
package page

import "fmt"

// ID identifies a page within one file. (fileID, ID) is globally unique;
// the file side of that pair is supplied by callers as a *pagefile.File
// pointer, not carried here.
type ID uint64

// InvalidID is never allocated by a File and marks the absence of a page.
const InvalidID ID = 0

// FrameID is the index of a slot in the buffer pool, in [0, numBufs).
type FrameID int32

// InvalidFrameID marks the absence of a frame.
const InvalidFrameID FrameID = -1

// Size is the fixed size, in bytes, of every page this module reads,
// writes, or caches. The buffer pool is opaque to what the bytes mean.
const Size = 4096

// Page is a fixed-size in-memory copy of one page's bytes, identified by
// ID. The buffer pool owns the backing array; callers receive a borrowed
// reference bounded by their pin interval (see core/bufferpool).
type Page struct {
	ID   ID
	Data [Size]byte
}

func (p ID) String() string {
	return fmt.Sprintf("page#%d", uint64(p))
}
