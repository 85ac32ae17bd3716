package bufferpool

import "errors"

// Error taxonomy for the buffer pool manager. There is no sentinel for a
// page-table miss: pagetable.Table.Lookup signals absence with a plain
// bool, so there is nothing here that ever needs to be caught as control
// flow.
var (
	// ErrBufferExceeded is returned by allocBuf (and so by readPage and
	// allocPage) when every frame in the pool is pinned.
	ErrBufferExceeded = errors.New("bufferpool: all frames are pinned, buffer pool exceeded")

	// ErrPageNotPinned is returned by UnpinPage when the target frame's
	// pin count is already zero.
	ErrPageNotPinned = errors.New("bufferpool: page is not pinned")

	// ErrPagePinned is returned by FlushFile when it encounters a pinned
	// frame belonging to the target file, and by DisposePage when asked
	// to dispose of a pinned resident page (see DESIGN.md for why this
	// implementation raises rather than silently disposing).
	ErrPagePinned = errors.New("bufferpool: page is pinned")

	// ErrBadBuffer is returned by FlushFile if it finds an invalid frame
	// descriptor still tagged with a file. This indicates a corrupted
	// descriptor; in this implementation clear() always removes the file
	// reference together with validity, so the condition is a defensive
	// assertion rather than one reachable through the public API.
	ErrBadBuffer = errors.New("bufferpool: invalid frame tagged with a file")
)
