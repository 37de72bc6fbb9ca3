// Package table lays fixed-size rows out over the pages of a pager.
//
// Row k lives on page k/RowsPerPage at byte offset (k%RowsPerPage)*row.Size.
// Pages hold a whole number of rows; the bytes after the last slot of a page
// are never written. The data file has no header, so its length alone gives
// the row count at open.
package table

import (
	"io"

	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xrowstore/logger"
	"github.com/zhukovaskychina/xrowstore/server/storage/cursor"
	"github.com/zhukovaskychina/xrowstore/server/storage/pager"
	"github.com/zhukovaskychina/xrowstore/server/storage/row"
)

// RowsPerPage is the stride of the layout: 4096/291 = 14.
const RowsPerPage = pager.PageSize / row.Size

var (
	// ErrTableFull is returned by Insert once MaxRows rows are stored.
	ErrTableFull   = errors.New("table full")
	ErrTableClosed = errors.New("table is closed")
)

// DefaultOptions to be used by Open when opts is nil.
var DefaultOptions = Options{
	MaxPages: pager.DefaultMaxPages,
}

// Options configures a Table.
type Options struct {
	// MaxPages caps the table at MaxPages*RowsPerPage rows. It does not
	// change the file format.
	MaxPages uint32
}

// Table is an append-only heap of rows. It is not safe for concurrent use.
type Table struct {
	pager   *pager.Pager
	numRows uint32
	inserts uint64
	closed  bool
}

// MaxRows is the row capacity for the given page capacity.
func MaxRows(maxPages uint32) uint32 {
	return maxPages * RowsPerPage
}

// Open opens the table stored at path.
func Open(path string, opts *Options) (*Table, error) {
	if opts == nil {
		opts = &DefaultOptions
	}

	p, err := pager.Open(path, opts.MaxPages)
	if err != nil {
		return nil, err
	}

	t := &Table{
		pager:   p,
		numRows: rowsInFile(p.FileLength()),
	}
	logger.Infof("opened table %s with %d rows", path, t.numRows)
	return t, nil
}

// rowsInFile derives the row count from the file length. Each full page
// holds RowsPerPage rows followed by padding; a trailing partial row is
// ignored.
func rowsInFile(length int64) uint32 {
	fullPages := uint32(length / pager.PageSize)
	tail := uint32(length%pager.PageSize) / row.Size
	if tail > RowsPerPage {
		tail = RowsPerPage
	}
	return fullPages*RowsPerPage + tail
}

// Locate maps a row number to its page and byte offset within that page.
func Locate(rowNum uint32) (pageNo uint32, offset int) {
	pageNo = rowNum / RowsPerPage
	offset = int(rowNum%RowsPerPage) * row.Size
	return pageNo, offset
}

// Insert appends r after the last row.
func (t *Table) Insert(r *row.Row) error {
	if t.closed {
		return ErrTableClosed
	}
	if t.numRows >= t.MaxRows() {
		return ErrTableFull
	}

	end := t.End()
	pageNo, offset := Locate(end.RowNum)
	page, err := t.pager.Fetch(pageNo)
	if err != nil {
		return errors.Wrapf(err, "insert row %d", end.RowNum)
	}
	row.Serialize(r, page, offset)
	t.numRows++
	t.inserts++
	return nil
}

// Read returns the row at rowNum, which must be below NumRows.
func (t *Table) Read(rowNum uint32) (row.Row, error) {
	if rowNum >= t.numRows {
		return row.Row{}, errors.Errorf("row %d out of range, table has %d rows", rowNum, t.numRows)
	}
	pageNo, offset := Locate(rowNum)
	page, err := t.pager.Fetch(pageNo)
	if err != nil {
		return row.Row{}, errors.Wrapf(err, "read row %d", rowNum)
	}
	return row.Deserialize(page, offset), nil
}

// Start returns a cursor on the first row.
func (t *Table) Start() cursor.Cursor {
	return cursor.AtStart(t.numRows)
}

// End returns a cursor at the append position.
func (t *Table) End() cursor.Cursor {
	return cursor.AtEnd(t.numRows, t.numRows)
}

// Scan iterates over the rows present when it is called, in insertion order.
func (t *Table) Scan() *Rows {
	return &Rows{t: t, c: t.Start()}
}

// SelectAll reads every row.
func (t *Table) SelectAll() ([]row.Row, error) {
	rows := make([]row.Row, 0, t.numRows)
	it := t.Scan()
	for it.Next() {
		rows = append(rows, it.Row())
	}
	return rows, it.Err()
}

// Close flushes every page, syncs the file and releases it. Full pages are
// written whole; the trailing page is cut after its last row. A failed sync
// is logged but not returned. The first flush error is returned, and the file
// is released regardless.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	fullPages := t.numRows / RowsPerPage
	for pageNo := uint32(0); pageNo < fullPages; pageNo++ {
		if !t.pager.Resident(pageNo) {
			continue
		}
		keep(t.pager.Flush(pageNo))
		t.pager.Evict(pageNo)
	}

	if remaining := t.numRows % RowsPerPage; remaining > 0 && t.pager.Resident(fullPages) {
		keep(t.pager.FlushPrefix(fullPages, int(remaining)*row.Size))
		t.pager.Evict(fullPages)
	}

	if err := t.pager.Sync(); err != nil {
		logger.Errorf("error syncing table file %s: %v", t.pager.Path(), err)
	}
	keep(t.pager.Close())

	if firstErr != nil {
		logger.Errorf("error closing table %s: %v", t.pager.Path(), firstErr)
	} else {
		logger.Infof("closed table %s with %d rows", t.pager.Path(), t.numRows)
	}
	return firstErr
}

// WriteTo streams the bytes Close would leave on disk: full pages whole, then
// the occupied prefix of the trailing page.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	var written int64
	fullPages := t.numRows / RowsPerPage
	remaining := int(t.numRows%RowsPerPage) * row.Size

	write := func(pageNo uint32, n int) error {
		page, err := t.pager.Fetch(pageNo)
		if err != nil {
			return err
		}
		m, err := w.Write(page[:n])
		written += int64(m)
		return err
	}

	for pageNo := uint32(0); pageNo < fullPages; pageNo++ {
		if err := write(pageNo, pager.PageSize); err != nil {
			return written, err
		}
	}
	if remaining > 0 {
		if err := write(fullPages, remaining); err != nil {
			return written, err
		}
	}
	return written, nil
}

func (t *Table) NumRows() uint32 {
	return t.numRows
}

func (t *Table) MaxRows() uint32 {
	return MaxRows(t.pager.MaxPages())
}

func (t *Table) Path() string {
	return t.pager.Path()
}

// Stats describes a table and its pager.
type Stats struct {
	NumRows uint32
	MaxRows uint32
	Inserts uint64
	Pager   pager.Stats
}

func (t *Table) Stats() Stats {
	return Stats{
		NumRows: t.numRows,
		MaxRows: t.MaxRows(),
		Inserts: t.inserts,
		Pager:   t.pager.Stats(),
	}
}

// Rows iterates over a table. Call Next before each Row.
type Rows struct {
	t       *Table
	c       cursor.Cursor
	cur     row.Row
	err     error
	started bool
}

// Next advances to the next row and reports whether there is one.
func (r *Rows) Next() bool {
	if r.err != nil {
		return false
	}
	if r.started {
		r.c.Advance()
	}
	r.started = true
	if r.c.EndOfTable {
		return false
	}
	r.cur, r.err = r.t.Read(r.c.RowNum)
	return r.err == nil
}

// Row returns the row Next moved to.
func (r *Rows) Row() row.Row {
	return r.cur
}

// Err returns the error that stopped the iteration, if any.
func (r *Rows) Err() error {
	return r.err
}
