package pager

import "fmt"

// Stats counts cache and disk activity of a Pager.
type Stats struct {
	// cache
	Hits   uint64
	Misses uint64

	// IO
	PageReads    uint64
	PageWrites   uint64
	BytesWritten uint64
	Syncs        uint64

	ResidentPages int
	NumPages      uint32
	MaxPages      uint32
}

// HitRate is the share of fetches served without a disk read.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"Pager{Pages: %d/%d, Resident: %d, Hits: %d, Misses: %d, HitRate: %.2f%%, Reads: %d, Writes: %d, BytesWritten: %d, Syncs: %d}",
		s.NumPages, s.MaxPages, s.ResidentPages, s.Hits, s.Misses, s.HitRate()*100,
		s.PageReads, s.PageWrites, s.BytesWritten, s.Syncs,
	)
}
