// Package pager caches fixed-size pages of a single data file.
//
// Page n lives at file offset n*PageSize. The cache is a slice indexed by page
// number whose length is fixed at Open; pages past that capacity are rejected,
// the cache never grows. Each slot carries an explicit residency flag, so a
// page that happens to hold only zero bytes is still a cache hit.
//
// A Pager is not safe for concurrent use.
package pager

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xrowstore/logger"
)

const (
	PageSize        = 4096
	DefaultMaxPages = 100

	// MaxPagesLimit bounds the capacity accepted by Open.
	MaxPagesLimit = 1 << 20
)

type frame struct {
	data     []byte
	resident bool
}

// Pager owns the data file handle and the page cache.
type Pager struct {
	file       *os.File
	path       string
	fileLength int64
	numPages   uint32
	maxPages   uint32
	frames     []frame
	stats      Stats
	closed     bool
}

// Open opens or creates the file at path and preloads every page it holds.
// maxPages is the cache capacity; zero selects DefaultMaxPages.
func Open(path string, maxPages uint32) (*Pager, error) {
	if maxPages == 0 {
		maxPages = DefaultMaxPages
	}
	if maxPages > MaxPagesLimit {
		return nil, errors.Wrapf(ErrInvalidCapacity, "%d pages, limit is %d", maxPages, MaxPagesLimit)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, &OpenError{Op: "open", Path: path, Err: err}
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, &OpenError{Op: "stat", Path: path, Err: err}
	}

	fileLength := stat.Size()
	numPages := uint32((fileLength + PageSize - 1) / PageSize)
	if numPages > maxPages {
		file.Close()
		return nil, newError("open", numPages-1, ErrPageOutOfRange)
	}

	p := &Pager{
		file:       file,
		path:       path,
		fileLength: fileLength,
		numPages:   numPages,
		maxPages:   maxPages,
		frames:     make([]frame, maxPages),
	}

	for pageNo := uint32(0); pageNo < numPages; pageNo++ {
		if err := p.load(pageNo); err != nil {
			file.Close()
			return nil, err
		}
	}

	logger.Debugf("pager opened %s: length=%d pages=%d capacity=%d", path, fileLength, numPages, maxPages)
	return p, nil
}

// load reads a page from disk into its frame. Reading past the end of the
// file is not an error; the missing tail stays zero.
func (p *Pager) load(pageNo uint32) error {
	buf := make([]byte, PageSize)
	n, err := p.file.ReadAt(buf, int64(pageNo)*PageSize)
	if err != nil && err != io.EOF {
		return newError("read", pageNo, err)
	}
	p.stats.PageReads++
	logger.Debugf("pager read page %d (%d bytes)", pageNo, n)

	p.frames[pageNo] = frame{data: buf, resident: true}
	return nil
}

// Fetch returns the cached buffer of pageNo, reading it from disk when it is
// not resident. pageNo may equal NumPages, which materializes the next page
// of the file. The returned slice is the cache's own buffer.
func (p *Pager) Fetch(pageNo uint32) ([]byte, error) {
	if p.closed {
		return nil, newError("fetch", pageNo, ErrPagerClosed)
	}
	if pageNo >= uint32(len(p.frames)) {
		return nil, newError("fetch", pageNo, ErrPageOutOfRange)
	}
	if pageNo > p.numPages {
		return nil, newError("fetch", pageNo, ErrPageOutOfBounds)
	}

	f := &p.frames[pageNo]
	if f.resident {
		p.stats.Hits++
		return f.data, nil
	}

	p.stats.Misses++
	logger.Debugf("pager cache miss for page %d", pageNo)
	if err := p.load(pageNo); err != nil {
		return nil, err
	}
	if pageNo == p.numPages {
		p.numPages++
	}
	return f.data, nil
}

// Flush writes the whole of a resident page back to the file.
func (p *Pager) Flush(pageNo uint32) error {
	return p.FlushPrefix(pageNo, PageSize)
}

// FlushPrefix writes the first n bytes of a resident page back to the file.
// It is used for the trailing page, whose unused tail is not persisted.
func (p *Pager) FlushPrefix(pageNo uint32, n int) error {
	if p.closed {
		return newError("flush", pageNo, ErrPagerClosed)
	}
	if pageNo >= uint32(len(p.frames)) {
		return newError("flush", pageNo, ErrPageOutOfRange)
	}
	if n <= 0 || n > PageSize {
		return newError("flush", pageNo, ErrInvalidLength)
	}
	f := &p.frames[pageNo]
	if !f.resident {
		return newError("flush", pageNo, ErrPageNotResident)
	}

	offset := int64(pageNo) * PageSize
	if _, err := p.file.WriteAt(f.data[:n], offset); err != nil {
		return newError("flush", pageNo, err)
	}
	p.stats.PageWrites++
	p.stats.BytesWritten += uint64(n)
	if end := offset + int64(n); end > p.fileLength {
		p.fileLength = end
	}
	logger.Debugf("pager flushed %d bytes of page %d", n, pageNo)
	return nil
}

// Evict drops a page from the cache. The next Fetch reads it from disk.
func (p *Pager) Evict(pageNo uint32) {
	if pageNo < uint32(len(p.frames)) {
		p.frames[pageNo] = frame{}
	}
}

// Resident reports whether pageNo is held in memory.
func (p *Pager) Resident(pageNo uint32) bool {
	return pageNo < uint32(len(p.frames)) && p.frames[pageNo].resident
}

// Sync commits the file contents to stable storage.
func (p *Pager) Sync() error {
	if p.closed {
		return ErrPagerClosed
	}
	if err := p.file.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", p.path)
	}
	p.stats.Syncs++
	return nil
}

// Close releases the file handle. Resident pages are not flushed; that is
// the owner's job. Calling Close twice is a no-op.
func (p *Pager) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.frames = nil
	if err := p.file.Close(); err != nil {
		return errors.Wrapf(err, "close %s", p.path)
	}
	return nil
}

// FileLength is the size of the file at open, grown by later flushes.
func (p *Pager) FileLength() int64 {
	return p.fileLength
}

// NumPages is the number of pages on disk at open plus pages appended since.
func (p *Pager) NumPages() uint32 {
	return p.numPages
}

// MaxPages is the cache capacity.
func (p *Pager) MaxPages() uint32 {
	return p.maxPages
}

func (p *Pager) Path() string {
	return p.path
}

func (p *Pager) Stats() Stats {
	s := p.stats
	s.NumPages = p.numPages
	s.MaxPages = p.maxPages
	for i := range p.frames {
		if p.frames[i].resident {
			s.ResidentPages++
		}
	}
	return s
}
