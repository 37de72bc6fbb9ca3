package table

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/xrowstore/server/storage/pager"
	"github.com/zhukovaskychina/xrowstore/server/storage/row"
)

func openTemp(t *testing.T, opts *Options) (*Table, string) {
	path := filepath.Join(t.TempDir(), "table.db")
	tbl, err := Open(path, opts)
	require.NoError(t, err)
	return tbl, path
}

func mustRow(t *testing.T, id uint32) row.Row {
	r, err := row.New(id, fmt.Sprintf("user%d", id), fmt.Sprintf("user%d@example.com", id))
	require.NoError(t, err)
	return r
}

func ids(rows []row.Row) []uint32 {
	out := make([]uint32, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestStride(t *testing.T) {
	assert.Equal(t, 14, RowsPerPage)
	assert.Equal(t, uint32(1400), MaxRows(pager.DefaultMaxPages))

	for _, rowNum := range []uint32{0, 1, 13, 14, 15, 27, 28, 1399} {
		pageNo, offset := Locate(rowNum)
		assert.Equal(t, rowNum/14, pageNo, "row %d", rowNum)
		assert.Equal(t, int(rowNum%14)*291, offset, "row %d", rowNum)
	}
}

func TestInsertThenScan(t *testing.T) {
	tbl, _ := openTemp(t, nil)
	defer tbl.Close()

	r, err := row.New(1, "user1", "user1@example.com")
	require.NoError(t, err)
	require.NoError(t, tbl.Insert(&r))

	rows, err := tbl.SelectAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var username [row.UsernameSize]byte
	copy(username[:], "user1")
	var email [row.EmailSize]byte
	copy(email[:], "user1@example.com")
	assert.Equal(t, row.Row{ID: 1, Username: username, Email: email}, rows[0])
}

func TestInsertionOrder(t *testing.T) {
	tbl, _ := openTemp(t, nil)
	defer tbl.Close()

	for _, id := range []uint32{1, 2, 3} {
		r := mustRow(t, id)
		require.NoError(t, tbl.Insert(&r))
	}

	rows, err := tbl.SelectAll()
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, ids(rows))
}

func TestScanIsRestartableAndSnapshotted(t *testing.T) {
	tbl, _ := openTemp(t, nil)
	defer tbl.Close()

	for id := uint32(1); id <= 2; id++ {
		r := mustRow(t, id)
		require.NoError(t, tbl.Insert(&r))
	}

	it := tbl.Scan()
	require.True(t, it.Next())
	assert.Equal(t, uint32(1), it.Row().ID)

	// rows inserted after the scan started are outside its range
	r := mustRow(t, 3)
	require.NoError(t, tbl.Insert(&r))

	require.True(t, it.Next())
	assert.Equal(t, uint32(2), it.Row().ID)
	assert.False(t, it.Next())
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())

	rows, err := tbl.SelectAll()
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, ids(rows))
}

func TestScanEmptyTable(t *testing.T) {
	tbl, _ := openTemp(t, nil)
	defer tbl.Close()

	it := tbl.Scan()
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestCapacityBoundary(t *testing.T) {
	tbl, _ := openTemp(t, &Options{MaxPages: 2})
	defer tbl.Close()

	require.Equal(t, uint32(28), tbl.MaxRows())
	for id := uint32(0); id < tbl.MaxRows(); id++ {
		r := mustRow(t, id)
		require.NoError(t, tbl.Insert(&r))
	}

	r := mustRow(t, 99)
	err := tbl.Insert(&r)
	assert.Equal(t, ErrTableFull, err)
	assert.Equal(t, uint32(28), tbl.NumRows())

	rows, err := tbl.SelectAll()
	require.NoError(t, err)
	assert.Len(t, rows, 28)
}

func TestDefaultCapacity(t *testing.T) {
	tbl, _ := openTemp(t, nil)
	defer tbl.Close()

	r := mustRow(t, 7)
	for i := uint32(0); i < MaxRows(pager.DefaultMaxPages); i++ {
		require.NoError(t, tbl.Insert(&r))
	}
	assert.Equal(t, ErrTableFull, tbl.Insert(&r))
	assert.Equal(t, uint32(1400), tbl.NumRows())
}

func TestPageBoundaryCrossing(t *testing.T) {
	tbl, _ := openTemp(t, nil)
	defer tbl.Close()

	n := uint32(RowsPerPage + 2)
	for id := uint32(0); id < n; id++ {
		end := tbl.End()
		pageNo, _ := Locate(end.RowNum)
		if id < RowsPerPage {
			assert.Equal(t, uint32(0), pageNo)
		} else {
			assert.Equal(t, uint32(1), pageNo)
		}
		r := mustRow(t, id)
		require.NoError(t, tbl.Insert(&r))
	}

	rows, err := tbl.SelectAll()
	require.NoError(t, err)
	require.Len(t, rows, int(n))
	for i, r := range rows {
		assert.Equal(t, mustRow(t, uint32(i)), r)
	}
	assert.Equal(t, uint32(2), tbl.Stats().Pager.NumPages)
}

func TestDurability(t *testing.T) {
	for _, n := range []uint32{0, 1, RowsPerPage, RowsPerPage + 5, 200, 1400} {
		t.Run(fmt.Sprintf("%d rows", n), func(t *testing.T) {
			tbl, path := openTemp(t, nil)
			want := make([]row.Row, 0, n)
			for id := uint32(0); id < n; id++ {
				r := mustRow(t, id)
				// non-zero bytes in the padding area of the text fields
				r.Email[row.EmailSize-1] = byte(id)
				require.NoError(t, tbl.Insert(&r))
				want = append(want, r)
			}
			require.NoError(t, tbl.Close())

			info, err := os.Stat(path)
			require.NoError(t, err)
			fullPages := int64(n / RowsPerPage)
			assert.Equal(t, fullPages*pager.PageSize+int64(n%RowsPerPage)*row.Size, info.Size())

			reopened, err := Open(path, nil)
			require.NoError(t, err)
			defer reopened.Close()

			assert.Equal(t, n, reopened.NumRows())
			got, err := reopened.SelectAll()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestAppendAfterReopen(t *testing.T) {
	tbl, path := openTemp(t, nil)
	for id := uint32(1); id <= 3; id++ {
		r := mustRow(t, id)
		require.NoError(t, tbl.Insert(&r))
	}
	require.NoError(t, tbl.Close())

	tbl, err := Open(path, nil)
	require.NoError(t, err)
	for id := uint32(4); id <= 20; id++ {
		r := mustRow(t, id)
		require.NoError(t, tbl.Insert(&r))
	}
	require.NoError(t, tbl.Close())

	tbl, err = Open(path, nil)
	require.NoError(t, err)
	defer tbl.Close()

	rows, err := tbl.SelectAll()
	require.NoError(t, err)
	require.Len(t, rows, 20)
	for i, r := range rows {
		assert.Equal(t, uint32(i+1), r.ID)
	}
}

func TestTrailingPartialRowIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.db")
	r := mustRow(t, 5)
	buf := make([]byte, row.Size+10)
	row.Serialize(&r, buf, 0)
	require.NoError(t, os.WriteFile(path, buf, 0644))

	tbl, err := Open(path, nil)
	require.NoError(t, err)
	defer tbl.Close()

	assert.Equal(t, uint32(1), tbl.NumRows())
	rows, err := tbl.SelectAll()
	require.NoError(t, err)
	assert.Equal(t, []row.Row{r}, rows)
}

func TestCloseIsIdempotentAndFinal(t *testing.T) {
	tbl, _ := openTemp(t, nil)
	r := mustRow(t, 1)
	require.NoError(t, tbl.Insert(&r))

	require.NoError(t, tbl.Close())
	require.NoError(t, tbl.Close())
	assert.Equal(t, ErrTableClosed, tbl.Insert(&r))

	_, err := tbl.Read(0)
	assert.True(t, errors.Is(err, pager.ErrPagerClosed))
}

func TestWriteToMatchesClosedFile(t *testing.T) {
	tbl, path := openTemp(t, nil)
	for id := uint32(0); id < RowsPerPage+3; id++ {
		r := mustRow(t, id)
		require.NoError(t, tbl.Insert(&r))
	}

	var image bytes.Buffer
	n, err := tbl.WriteTo(&image)
	require.NoError(t, err)
	assert.Equal(t, int64(image.Len()), n)
	require.NoError(t, tbl.Close())

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, onDisk, image.Bytes())
}

func TestReadOutOfRange(t *testing.T) {
	tbl, _ := openTemp(t, nil)
	defer tbl.Close()

	_, err := tbl.Read(0)
	assert.Error(t, err)
}

func TestCursorPositions(t *testing.T) {
	tbl, _ := openTemp(t, nil)
	defer tbl.Close()

	assert.True(t, tbl.Start().EndOfTable)
	r := mustRow(t, 1)
	require.NoError(t, tbl.Insert(&r))

	start := tbl.Start()
	assert.Equal(t, uint32(0), start.RowNum)
	assert.False(t, start.EndOfTable)

	end := tbl.End()
	assert.Equal(t, uint32(1), end.RowNum)
	assert.True(t, end.EndOfTable)
}

// openFullDevice opens a table on /dev/full, where every write fails with
// ENOSPC and fsync fails with EINVAL.
func openFullDevice(t *testing.T) *Table {
	if runtime.GOOS != "linux" {
		t.Skip("/dev/full is linux only")
	}
	f, err := os.OpenFile("/dev/full", os.O_RDWR, 0)
	if err != nil {
		t.Skipf("/dev/full not available: %v", err)
	}
	f.Close()

	tbl, err := Open("/dev/full", nil)
	require.NoError(t, err)
	return tbl
}

func TestCloseReturnsFlushError(t *testing.T) {
	tbl := openFullDevice(t)
	for i := 0; i <= RowsPerPage; i++ {
		r := mustRow(t, uint32(i))
		require.NoError(t, tbl.Insert(&r))
	}

	err := tbl.Close()
	require.Error(t, err)
	assert.True(t, pager.IsIOError(err))
	assert.True(t, errors.Is(err, syscall.ENOSPC))

	var pe *pager.PagerError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "flush", pe.Op)
	assert.Equal(t, uint32(0), pe.PageNo)

	// the table is released despite the failure
	r := mustRow(t, 99)
	assert.Equal(t, ErrTableClosed, tbl.Insert(&r))
	assert.NoError(t, tbl.Close())
}

func TestCloseOnlyLogsSyncError(t *testing.T) {
	tbl := openFullDevice(t)

	// fsync of a character device fails; Close still succeeds
	assert.NoError(t, tbl.Close())

	r := mustRow(t, 1)
	assert.Equal(t, ErrTableClosed, tbl.Insert(&r))
}
