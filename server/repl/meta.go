package repl

import (
	"fmt"
	"strings"

	"github.com/zhukovaskychina/xrowstore/logger"
	"github.com/zhukovaskychina/xrowstore/server/storage/snapshot"
	"github.com/zhukovaskychina/xrowstore/util"
)

// handleMetaCommand runs a command starting with '.' and reports whether the
// session should end.
func (s *Session) handleMetaCommand(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ".exit":
		return true

	case ".help":
		s.showHelp()

	case ".stats":
		s.showStats()

	case ".checksum":
		s.showChecksum()

	case ".snapshot":
		if len(fields) != 2 {
			fmt.Fprintln(s.out, "Usage: .snapshot <path>")
			return false
		}
		s.saveSnapshot(fields[1])

	default:
		fmt.Fprintf(s.out, "Unrecognized command '%s'.\n", line)
	}
	return false
}

func (s *Session) showHelp() {
	fmt.Fprintln(s.out, "Statements:")
	fmt.Fprintln(s.out, "  insert <id> <username> <email>   append one row")
	fmt.Fprintln(s.out, "  select                           print every row")
	fmt.Fprintln(s.out, "Meta commands:")
	fmt.Fprintln(s.out, "  .stats             table and page cache statistics")
	fmt.Fprintln(s.out, "  .checksum          xxhash64 of the table image")
	fmt.Fprintln(s.out, "  .snapshot <path>   save a compressed copy of the table")
	fmt.Fprintln(s.out, "  .help              show this help")
	fmt.Fprintln(s.out, "  .exit              flush and quit")
}

func (s *Session) showStats() {
	stats := s.table.Stats()
	fmt.Fprintf(s.out, "Table: %s\n", s.table.Path())
	fmt.Fprintf(s.out, "  Rows: %d / %d\n", stats.NumRows, stats.MaxRows)
	fmt.Fprintf(s.out, "  Inserts this session: %d\n", stats.Inserts)
	fmt.Fprintf(s.out, "Page cache:\n")
	fmt.Fprintf(s.out, "  Pages: %d / %d (resident %d)\n", stats.Pager.NumPages, stats.Pager.MaxPages, stats.Pager.ResidentPages)
	fmt.Fprintf(s.out, "  Hits: %d  Misses: %d  Hit rate: %.2f%%\n", stats.Pager.Hits, stats.Pager.Misses, stats.Pager.HitRate()*100)
	fmt.Fprintf(s.out, "  Page reads: %d  Page writes: %d  Bytes written: %d\n", stats.Pager.PageReads, stats.Pager.PageWrites, stats.Pager.BytesWritten)
}

func (s *Session) showChecksum() {
	sum := util.NewHash64()
	n, err := s.table.WriteTo(sum)
	if err != nil {
		logger.Errorf("checksum of %s: %v", s.table.Path(), err)
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "%s  %d bytes\n", util.FormatChecksum(sum.Sum64()), n)
}

func (s *Session) saveSnapshot(path string) {
	m, err := snapshot.Save(path, s.table, s.codec)
	if err != nil {
		logger.Errorf("snapshot of %s to %s: %v", s.table.Path(), path, err)
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Snapshot %s written (%s, %d bytes, checksum %s).\n",
		m.Path, m.Codec, m.Length, util.FormatChecksum(m.Checksum))
}
