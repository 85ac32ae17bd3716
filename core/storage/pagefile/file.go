// Package pagefile implements the on-disk File the buffer pool manager
// reads from and writes to: a small header page followed by fixed-size
// pages, with deleted pages returned to a free list for reuse.
package pagefile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/arvindsinha/gojobuf/core/storage/page"
)

const magic uint32 = 0x676f6a62 // "gojb"

// header is the fixed-size record stored at offset 0 of the file.
type header struct {
	Magic      uint32
	Version    uint32
	PageSize   uint32
	NumPages   uint64
	FreeHead   page.ID
	_          [32]byte // room for future fields without changing headerSize
}

const headerSize = 64

// File is a single paged file on disk: page.Size-byte pages, indexed by
// page.ID, with a tiny header at page 0's offset tracking the page count
// and a singly-linked free list of deleted page slots for reuse.
type File struct {
	mu       sync.Mutex
	path     string
	f        *os.File
	numPages uint64
	freeHead page.ID
	log      *zap.Logger
}

// freeListEntry is written into a deleted page's slot so DeletePage can
// be undone by a later AllocatePage without growing the file.
type freeListEntry struct {
	Next page.ID
}

const freeListEntrySize = 8

// Open opens an existing page file, or creates one if create is true and
// the path does not already exist. log may be nil (a no-op logger is
// substituted).
func Open(path string, create bool, log *zap.Logger) (*File, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pf := &File{path: path, log: log}

	_, statErr := os.Stat(path)
	switch {
	case os.IsNotExist(statErr):
		if !create {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
		if err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", ErrIO, path, err)
		}
		pf.f = f
		pf.numPages = 1 // page 0 is the header page
		pf.freeHead = page.InvalidID
		if err := pf.writeHeader(); err != nil {
			f.Close()
			os.Remove(path)
			return nil, err
		}
	case statErr == nil:
		if create {
			return nil, fmt.Errorf("%w: %s", ErrFileAlreadyExist, path)
		}
		f, err := os.OpenFile(path, os.O_RDWR, 0o666)
		if err != nil {
			return nil, fmt.Errorf("%w: opening %s: %v", ErrIO, path, err)
		}
		pf.f = f
		if err := pf.readHeader(); err != nil {
			f.Close()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, path, statErr)
	}

	log.Debug("page file opened", zap.String("path", path), zap.Uint64("numPages", pf.numPages))
	return pf, nil
}

func (pf *File) writeHeader() error {
	h := header{
		Magic:    magic,
		Version:  1,
		PageSize: uint32(page.Size),
		NumPages: pf.numPages,
		FreeHead: pf.freeHead,
	}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if buf.Len() > headerSize {
		return fmt.Errorf("%w: header grew past %d bytes", ErrSerialization, headerSize)
	}
	buf.Write(make([]byte, headerSize-buf.Len()))
	if _, err := pf.f.WriteAt(buf.Bytes(), 0); err != nil {
		return fmt.Errorf("%w: writing header: %v", ErrIO, err)
	}
	return pf.f.Sync()
}

func (pf *File) readHeader() error {
	buf := make([]byte, headerSize)
	n, err := pf.f.ReadAt(buf, 0)
	if err != nil && !(err == io.EOF && n == headerSize) {
		return fmt.Errorf("%w: reading header: %v", ErrIO, err)
	}
	var h header
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	if h.Magic != magic {
		return ErrBadMagic
	}
	if h.PageSize != uint32(page.Size) {
		return fmt.Errorf("%w: file has %d, configured %d", ErrPageSizeMismatch, h.PageSize, page.Size)
	}
	pf.numPages = h.NumPages
	pf.freeHead = h.FreeHead
	return nil
}

func (pf *File) offsetOf(id page.ID) int64 {
	return int64(id) * int64(page.Size)
}

// AllocatePage grows the file by one page, or reuses the head of the
// free list if any deleted pages are available, and returns its bytes
// (zeroed) and its new PageID.
func (pf *File) AllocatePage() (page.Page, page.ID, error) {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	if pf.f == nil {
		return page.Page{}, page.InvalidID, ErrFileNotOpen
	}

	var id page.ID
	if pf.freeHead != page.InvalidID {
		id = pf.freeHead
		var entry freeListEntry
		raw := make([]byte, freeListEntrySize)
		if _, err := pf.f.ReadAt(raw, pf.offsetOf(id)); err != nil {
			return page.Page{}, page.InvalidID, fmt.Errorf("%w: reading free list entry: %v", ErrIO, err)
		}
		if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &entry); err != nil {
			return page.Page{}, page.InvalidID, fmt.Errorf("%w: %v", ErrDeserialization, err)
		}
		pf.freeHead = entry.Next
	} else {
		id = page.ID(pf.numPages)
		pf.numPages++
	}

	var p page.Page
	p.ID = id
	if _, err := pf.f.WriteAt(p.Data[:], pf.offsetOf(id)); err != nil {
		return page.Page{}, page.InvalidID, fmt.Errorf("%w: extending file for page %s: %v", ErrIO, id, err)
	}
	if err := pf.writeHeader(); err != nil {
		return page.Page{}, page.InvalidID, err
	}
	pf.log.Debug("page allocated", zap.Stringer("page", id))
	return p, id, nil
}

// ReadPage reads the bytes of the page identified by id.
func (pf *File) ReadPage(id page.ID) (page.Page, error) {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	if pf.f == nil {
		return page.Page{}, ErrFileNotOpen
	}
	if uint64(id) >= pf.numPages {
		return page.Page{}, fmt.Errorf("%w: %s", ErrPageNotAllocated, id)
	}
	var p page.Page
	p.ID = id
	n, err := pf.f.ReadAt(p.Data[:], pf.offsetOf(id))
	if err != nil {
		return page.Page{}, fmt.Errorf("%w: reading page %s: %v", ErrIO, id, err)
	}
	if n != page.Size {
		return page.Page{}, fmt.Errorf("%w: short read for page %s, got %d bytes", ErrIO, id, n)
	}
	return p, nil
}

// WritePage writes p back to its own PageID's slot.
func (pf *File) WritePage(p page.Page) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	if pf.f == nil {
		return ErrFileNotOpen
	}
	if _, err := pf.f.WriteAt(p.Data[:], pf.offsetOf(p.ID)); err != nil {
		return fmt.Errorf("%w: writing page %s: %v", ErrIO, p.ID, err)
	}
	pf.log.Debug("page written", zap.Stringer("page", p.ID))
	return nil
}

// DeletePage returns id's slot to the free list for reuse by a later
// AllocatePage. It does not shrink the file.
func (pf *File) DeletePage(id page.ID) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	if pf.f == nil {
		return ErrFileNotOpen
	}
	entry := freeListEntry{Next: pf.freeHead}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, &entry); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if _, err := pf.f.WriteAt(buf.Bytes(), pf.offsetOf(id)); err != nil {
		return fmt.Errorf("%w: writing free list entry for page %s: %v", ErrIO, id, err)
	}
	pf.freeHead = id
	if err := pf.writeHeader(); err != nil {
		return err
	}
	pf.log.Debug("page deleted", zap.Stringer("page", id))
	return nil
}

// Sync flushes buffered writes to stable storage.
func (pf *File) Sync() error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.f == nil {
		return ErrFileNotOpen
	}
	return pf.f.Sync()
}

// Close syncs and closes the underlying OS file handle.
func (pf *File) Close() error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.f == nil {
		return nil
	}
	syncErr := pf.f.Sync()
	closeErr := pf.f.Close()
	pf.f = nil
	if closeErr != nil {
		return closeErr
	}
	return syncErr
}

// Path returns the filesystem path this File was opened with. Buffer
// manager components do not use it: they identify a file by its *File
// pointer (two *File values are the same file iff they are the same
// pointer).
func (pf *File) Path() string {
	return pf.path
}
