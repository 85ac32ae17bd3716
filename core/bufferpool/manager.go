// Package bufferpool implements the buffer pool manager: the frame
// table, the page-identity index wiring, the clock-sweep replacement
// policy, and the pin/unpin/flush state machine that ties them
// together.
package bufferpool

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arvindsinha/gojobuf/core/storage/page"
	"github.com/arvindsinha/gojobuf/core/storage/pagefile"
	"github.com/arvindsinha/gojobuf/core/storage/pagetable"
	"github.com/arvindsinha/gojobuf/pkg/metrics"
)

// Manager is the top-level buffer pool: a fixed-size frame pool, one
// descriptor per frame, a page table shared across every resident page
// regardless of which File it belongs to, and a clock-sweep cursor for
// replacement. It composes the File and PageTable collaborators rather
// than owning their implementations, so a Manager never opens or closes
// a file itself.
//
// Every public method holds mu for its whole duration, including any
// File I/O it performs, trading away fine-grained concurrency for a
// single, easy-to-reason-about exclusion domain.
type Manager struct {
	mu sync.Mutex

	descs []descriptor
	pages []page.Page
	sweep clockSweep
	table *pagetable.Table

	instanceID string
	log        *zap.Logger
	metrics    *metrics.Collector
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithLogger attaches a structured logger. The default is a no-op
// logger, so omitting this option is always safe.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithMetrics attaches a Prometheus collector. The default is a nil
// *metrics.Collector, whose methods are all no-ops, so omitting this
// option is always safe.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) { m.metrics = c }
}

// WithInstanceID overrides the random instance id generated by default,
// useful for deterministic log/metric labels in tests.
func WithInstanceID(id string) Option {
	return func(m *Manager) { m.instanceID = id }
}

// NewManager builds a buffer pool of numBufs frames. The descriptor
// array and frame pool are allocated once here as single contiguous
// slices and never resized for the life of the Manager.
func NewManager(numBufs int, opts ...Option) (*Manager, error) {
	if numBufs <= 0 {
		return nil, fmt.Errorf("bufferpool: numBufs must be positive, got %d", numBufs)
	}

	m := &Manager{
		descs:      make([]descriptor, numBufs),
		pages:      make([]page.Page, numBufs),
		sweep:      newClockSweep(numBufs),
		table:      pagetable.NewTable(numBufs),
		instanceID: uuid.NewString(),
		log:        zap.NewNop(),
	}
	for i := range m.descs {
		m.descs[i].frameNo = page.FrameID(i)
	}
	for _, opt := range opts {
		opt(m)
	}

	m.log.Info("buffer pool initialized",
		zap.String("instance", m.instanceID), zap.Int("numBufs", numBufs))
	return m, nil
}

// ReadPage returns a pinned reference to pageNo of file. A resident page
// is pinned in place and its reference bit is set; a non-resident page
// is loaded from file into a free or recycled frame first.
func (m *Manager) ReadPage(file *pagefile.File, pageNo page.ID) (*page.Page, error) {
	if file == nil {
		return nil, fmt.Errorf("bufferpool: ReadPage: file must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame, ok := m.table.Lookup(file, pageNo); ok {
		d := &m.descs[frame]
		d.refbit = true
		d.pinCnt++
		m.metrics.Hit(m.instanceID)
		m.log.Debug("page hit", logFrame(frame), logPage(pageNo))
		return &m.pages[frame], nil
	}

	m.metrics.Miss(m.instanceID)
	frame, err := m.allocBuf()
	if err != nil {
		m.log.Warn("read miss failed to allocate a frame", logPage(pageNo), zap.Error(err))
		return nil, err
	}

	p, err := file.ReadPage(pageNo)
	if err != nil {
		return nil, fmt.Errorf("bufferpool: reading page %s: %w", pageNo, err)
	}
	m.pages[frame] = p
	m.table.Insert(file, pageNo, frame)
	m.descs[frame].set(file, pageNo)

	m.setPinnedGauge()
	m.log.Debug("page miss, loaded from disk", logFrame(frame), logPage(pageNo))
	return &m.pages[frame], nil
}

// UnpinPage decrements pageNo's pin count and, if dirty is true, marks
// the frame dirty. Dirty is sticky: once set it is never cleared by this
// method, only by the descriptor's next clear. Unpinning a page that
// isn't resident is a silent no-op rather than an error, since the
// caller has nothing further to undo in that case.
func (m *Manager) UnpinPage(file *pagefile.File, pageNo page.ID, dirty bool) error {
	if file == nil {
		return fmt.Errorf("bufferpool: UnpinPage: file must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	frame, ok := m.table.Lookup(file, pageNo)
	if !ok {
		return nil
	}
	d := &m.descs[frame]
	if d.pinCnt == 0 {
		return fmt.Errorf("bufferpool: unpin page %s: %w", pageNo, ErrPageNotPinned)
	}
	d.pinCnt--
	if dirty {
		d.dirty = true
	}
	m.setPinnedGauge()
	m.log.Debug("page unpinned", logFrame(frame), logPage(pageNo),
		zap.Int32("pinCnt", d.pinCnt), zap.Bool("dirty", d.dirty))
	return nil
}

// AllocPage asks file for a brand-new page, loads it pinned into the
// pool, and returns its id and a reference to it. The caller owns the
// matching UnpinPage.
func (m *Manager) AllocPage(file *pagefile.File) (page.ID, *page.Page, error) {
	if file == nil {
		return page.InvalidID, nil, fmt.Errorf("bufferpool: AllocPage: file must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, pageNo, err := file.AllocatePage()
	if err != nil {
		return page.InvalidID, nil, fmt.Errorf("bufferpool: allocating page on file: %w", err)
	}

	frame, err := m.allocBuf()
	if err != nil {
		return page.InvalidID, nil, err
	}

	m.pages[frame] = p
	m.table.Insert(file, pageNo, frame)
	m.descs[frame].set(file, pageNo)

	m.setPinnedGauge()
	m.log.Debug("page allocated", logFrame(frame), logPage(pageNo))
	return pageNo, &m.pages[frame], nil
}

// DisposePage removes pageNo of file from the pool (if resident) and
// asks file to delete it permanently.
//
// A pinned resident page cannot be disposed: returning ErrPagePinned and
// leaving the frame untouched is safer than clearing a frame some other
// caller still holds a reference into. See DESIGN.md.
func (m *Manager) DisposePage(file *pagefile.File, pageNo page.ID) error {
	if file == nil {
		return fmt.Errorf("bufferpool: DisposePage: file must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame, ok := m.table.Lookup(file, pageNo); ok {
		d := &m.descs[frame]
		if d.pinCnt > 0 {
			return fmt.Errorf("bufferpool: dispose page %s: %w", pageNo, ErrPagePinned)
		}
		m.table.Remove(file, pageNo)
		d.clear()
	}

	if err := file.DeletePage(pageNo); err != nil {
		return fmt.Errorf("bufferpool: deleting page %s: %w", pageNo, err)
	}
	m.log.Debug("page disposed", logPage(pageNo))
	return nil
}

// FlushFile writes back every dirty resident page belonging to file and
// evicts all of that file's frames. It stops at the first pinned or
// corrupted frame it finds; writebacks already issued before that point
// stay persisted.
func (m *Manager) FlushFile(file *pagefile.File) error {
	if file == nil {
		return fmt.Errorf("bufferpool: FlushFile: file must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.descs {
		d := &m.descs[i]
		if d.file != file {
			continue
		}
		if d.pinCnt > 0 {
			return fmt.Errorf("bufferpool: flush file: frame %d page %s: %w", d.frameNo, d.pageNo, ErrPagePinned)
		}
		if !d.valid {
			return fmt.Errorf("bufferpool: flush file: frame %d: %w", d.frameNo, ErrBadBuffer)
		}
		if d.dirty {
			if err := file.WritePage(m.pages[i]); err != nil {
				return fmt.Errorf("bufferpool: flush file: writing page %s: %w", d.pageNo, err)
			}
			m.metrics.Writeback(m.instanceID)
		}
		m.table.Remove(file, d.pageNo)
		d.clear()
	}
	m.log.Debug("file flushed")
	return nil
}

// Close writes back every dirty resident page across every file and
// releases the manager's internal storage. It is the caller's contract
// that no frame remain pinned at this point; Close does not check pin
// counts, but a page with pinCnt > 0 that is also dirty is still flushed
// here like any other dirty page, so no committed write is lost.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for i := range m.descs {
		d := &m.descs[i]
		if d.valid && d.dirty {
			if err := d.file.WritePage(m.pages[i]); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("bufferpool: shutdown flush of page %s: %w", d.pageNo, err)
			}
		}
	}
	m.descs = nil
	m.pages = nil
	m.table = nil
	m.log.Info("buffer pool shut down", zap.String("instance", m.instanceID))
	return firstErr
}

// PrintSelf renders one diagnostic line per frame, for operators
// eyeballing pool state from a debug endpoint or a REPL.
func (m *Manager) PrintSelf() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := ""
	valid := 0
	for i := range m.descs {
		d := &m.descs[i]
		out += fmt.Sprintf("frame:%d valid:%t page:%s pinCnt:%d dirty:%t refbit:%t\n",
			d.frameNo, d.valid, d.pageNo, d.pinCnt, d.dirty, d.refbit)
		if d.valid {
			valid++
		}
	}
	out += fmt.Sprintf("total valid frames: %d\n", valid)
	return out
}

func (m *Manager) setPinnedGauge() {
	n := 0
	for i := range m.descs {
		if m.descs[i].pinCnt > 0 {
			n++
		}
	}
	m.metrics.SetPinned(m.instanceID, n)
}

func logFrame(f page.FrameID) zap.Field { return zap.Int32("frame", int32(f)) }
func logPage(p page.ID) zap.Field       { return zap.Stringer("page", p) }
