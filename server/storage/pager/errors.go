package pager

import (
	"strconv"

	"github.com/pkg/errors"
)

var (
	// ErrOpenFile means the data file could not be opened or created.
	ErrOpenFile = errors.New("cannot open data file")

	ErrPageOutOfRange  = errors.New("page number exceeds pager capacity")
	ErrPageOutOfBounds = errors.New("page number beyond end of file")
	ErrPageNotResident = errors.New("page is not resident")
	ErrInvalidLength   = errors.New("invalid flush length")
	ErrPagerClosed     = errors.New("pager is closed")
	ErrInvalidCapacity = errors.New("invalid pager capacity")
)

// OpenError is returned when the data file cannot be opened. It matches
// ErrOpenFile and unwraps to the operating system error.
type OpenError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return ErrOpenFile.Error() + ": " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

func (e *OpenError) Is(target error) bool {
	return target == ErrOpenFile
}

// PagerError records the operation and page that failed.
type PagerError struct {
	Op     string
	PageNo uint32
	Err    error
}

func (e *PagerError) Error() string {
	if e.Err == nil {
		return "<nil>"
	}
	return e.Op + " page " + strconv.FormatUint(uint64(e.PageNo), 10) + ": " + e.Err.Error()
}

func (e *PagerError) Unwrap() error {
	return e.Err
}

func (e *PagerError) Cause() error {
	return e.Err
}

func newError(op string, pageNo uint32, err error) error {
	return &PagerError{Op: op, PageNo: pageNo, Err: err}
}

// IsOutOfRange reports whether err was caused by exceeding the page capacity.
func IsOutOfRange(err error) bool {
	return errors.Is(err, ErrPageOutOfRange)
}

// IsIOError reports whether err carries an operating system I/O failure.
func IsIOError(err error) bool {
	var pe *PagerError
	if !errors.As(err, &pe) {
		return false
	}
	switch errors.Cause(pe.Err) {
	case ErrPageOutOfRange, ErrPageOutOfBounds, ErrPageNotResident, ErrInvalidLength, ErrPagerClosed:
		return false
	}
	return true
}
