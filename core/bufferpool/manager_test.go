package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arvindsinha/gojobuf/core/storage/page"
	"github.com/arvindsinha/gojobuf/core/storage/pagefile"
)

// setupManager builds a Manager of numBufs frames over a fresh page file
// in a temporary directory, for isolated testing.
func setupManager(t *testing.T, numBufs int) (*Manager, *pagefile.File) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.gojb")
	f, err := pagefile.Open(path, true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	m, err := NewManager(numBufs)
	require.NoError(t, err)
	return m, f
}

func TestReadPageColdFetchesFromDiskAndPins(t *testing.T) {
	m, f := setupManager(t, 4)

	pageNo, p, err := m.AllocPage(f)
	require.NoError(t, err)
	p.Data[0] = 0x42
	require.NoError(t, m.UnpinPage(f, pageNo, true))
	require.NoError(t, m.FlushFile(f))

	got, err := m.ReadPage(f, pageNo)
	require.NoError(t, err)
	require.Equal(t, byte(0x42), got.Data[0])
	require.NoError(t, m.UnpinPage(f, pageNo, false))
}

func TestReadPageHitReusesResidentFrame(t *testing.T) {
	m, f := setupManager(t, 4)

	pageNo, _, err := m.AllocPage(f)
	require.NoError(t, err)

	p2, err := m.ReadPage(f, pageNo)
	require.NoError(t, err)
	require.NotNil(t, p2)

	require.NoError(t, m.UnpinPage(f, pageNo, false))
	require.NoError(t, m.UnpinPage(f, pageNo, false))
}

func TestUnpinUnpinnedPageReturnsError(t *testing.T) {
	m, f := setupManager(t, 4)

	pageNo, _, err := m.AllocPage(f)
	require.NoError(t, err)
	require.NoError(t, m.UnpinPage(f, pageNo, false))

	err = m.UnpinPage(f, pageNo, false)
	require.ErrorIs(t, err, ErrPageNotPinned)
}

func TestEvictionPrefersUnpinnedFrame(t *testing.T) {
	m, f := setupManager(t, 2)

	pinnedPage, _, err := m.AllocPage(f)
	require.NoError(t, err)

	unpinnedPage, _, err := m.AllocPage(f)
	require.NoError(t, err)
	require.NoError(t, m.UnpinPage(f, unpinnedPage, false))

	// Both frames currently carry a fresh refbit; the sweep must clear
	// both reference bits once before it can select the unpinned frame.
	thirdPage, _, err := m.AllocPage(f)
	require.NoError(t, err)
	require.NoError(t, m.UnpinPage(f, thirdPage, false))

	_, ok := m.table.Lookup(f, unpinnedPage)
	require.False(t, ok, "the unpinned frame should have been recycled, not the pinned one")

	_, ok = m.table.Lookup(f, pinnedPage)
	require.True(t, ok, "the still-pinned frame must survive the sweep")

	require.NoError(t, m.UnpinPage(f, pinnedPage, false))
}

func TestAllocBufFailsWhenEveryFrameIsPinned(t *testing.T) {
	m, f := setupManager(t, 2)

	_, _, err := m.AllocPage(f)
	require.NoError(t, err)
	_, _, err = m.AllocPage(f)
	require.NoError(t, err)

	_, _, err = m.AllocPage(f)
	require.ErrorIs(t, err, ErrBufferExceeded)
}

func TestEvictionWritesBackDirtyPage(t *testing.T) {
	m, f := setupManager(t, 1)

	firstPage, p, err := m.AllocPage(f)
	require.NoError(t, err)
	p.Data[0] = 0x99
	require.NoError(t, m.UnpinPage(f, firstPage, true))

	// Allocating a second page with only one frame forces the sweep to
	// evict firstPage, which must flush its dirty contents first.
	secondPage, _, err := m.AllocPage(f)
	require.NoError(t, err)
	require.NoError(t, m.UnpinPage(f, secondPage, false))

	reread, err := f.ReadPage(firstPage)
	require.NoError(t, err)
	require.Equal(t, byte(0x99), reread.Data[0])
}

func TestFlushFileRejectsPinnedPage(t *testing.T) {
	m, f := setupManager(t, 4)

	pageNo, _, err := m.AllocPage(f)
	require.NoError(t, err)

	err = m.FlushFile(f)
	require.ErrorIs(t, err, ErrPagePinned)

	require.NoError(t, m.UnpinPage(f, pageNo, false))
}

func TestDisposePageRejectsPinnedResidentPage(t *testing.T) {
	m, f := setupManager(t, 4)

	pageNo, _, err := m.AllocPage(f)
	require.NoError(t, err)

	err = m.DisposePage(f, pageNo)
	require.ErrorIs(t, err, ErrPagePinned)

	_, ok := m.table.Lookup(f, pageNo)
	require.True(t, ok, "a rejected dispose must not mutate the frame")

	require.NoError(t, m.UnpinPage(f, pageNo, false))
}

func TestDisposePageClearsResidentUnpinnedPage(t *testing.T) {
	m, f := setupManager(t, 4)

	pageNo, _, err := m.AllocPage(f)
	require.NoError(t, err)
	require.NoError(t, m.UnpinPage(f, pageNo, false))

	require.NoError(t, m.DisposePage(f, pageNo))

	_, ok := m.table.Lookup(f, pageNo)
	require.False(t, ok)

	// file.DeletePage returns the slot to the page file's free list; the
	// next allocation on the same file reuses it rather than growing.
	_, reused, err := f.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, pageNo, reused, "a disposed page's slot must be reused by the file's free list")
}

func TestReadPageAndUnpinPageRejectNilFile(t *testing.T) {
	m, _ := setupManager(t, 4)

	_, err := m.ReadPage(nil, page.ID(1))
	require.Error(t, err)

	err = m.UnpinPage(nil, page.ID(1), false)
	require.Error(t, err)

	_, _, err = m.AllocPage(nil)
	require.Error(t, err)

	err = m.DisposePage(nil, page.ID(1))
	require.Error(t, err)

	err = m.FlushFile(nil)
	require.Error(t, err)
}

func TestCloseFlushesDirtyPages(t *testing.T) {
	m, f := setupManager(t, 4)

	pageNo, p, err := m.AllocPage(f)
	require.NoError(t, err)
	p.Data[0] = 0x7
	require.NoError(t, m.UnpinPage(f, pageNo, true))

	require.NoError(t, m.Close())

	reread, err := f.ReadPage(pageNo)
	require.NoError(t, err)
	require.Equal(t, byte(0x7), reread.Data[0])
}

func TestNewManagerRejectsNonPositiveSize(t *testing.T) {
	_, err := NewManager(0)
	require.Error(t, err)
	_, err = NewManager(-1)
	require.Error(t, err)
}
