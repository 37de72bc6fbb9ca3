// Package repl is the interactive shell over a single table.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xrowstore/logger"
	"github.com/zhukovaskychina/xrowstore/server/storage/row"
	"github.com/zhukovaskychina/xrowstore/server/storage/snapshot"
	"github.com/zhukovaskychina/xrowstore/server/storage/table"
)

const prompt = "db > "

// Session reads statements from in and writes results to out. It does not
// own the table; the caller closes it after Run returns.
type Session struct {
	table *table.Table
	in    *bufio.Scanner
	out   io.Writer
	codec snapshot.Codec
}

func NewSession(t *table.Table, in io.Reader, out io.Writer, codec snapshot.Codec) *Session {
	return &Session{
		table: t,
		in:    bufio.NewScanner(in),
		out:   out,
		codec: codec,
	}
}

// Run loops until ".exit" or end of input. It returns the input error, if any.
func (s *Session) Run() error {
	for {
		fmt.Fprint(s.out, prompt)
		if !s.in.Scan() {
			fmt.Fprintln(s.out)
			break
		}
		if exit := s.HandleLine(s.in.Text()); exit {
			return nil
		}
	}
	if err := s.in.Err(); err != nil {
		return errors.Wrap(err, "read input")
	}
	return nil
}

// HandleLine processes one line of input and reports whether the session
// should end.
func (s *Session) HandleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if strings.HasPrefix(line, ".") {
		return s.handleMetaCommand(line)
	}

	stmt, err := PrepareStatement(line)
	switch {
	case err == nil:
	case IsSyntaxError(err):
		fmt.Fprintln(s.out, "Syntax error. Could not parse statement.")
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return false
	default:
		fmt.Fprintf(s.out, "Unrecognized keyword at start of '%s'.\n", line)
		return false
	}

	err = ExecuteStatement(stmt, s.table, func(r row.Row) {
		fmt.Fprintln(s.out, r)
	})
	switch {
	case err == nil:
		fmt.Fprintln(s.out, "Executed.")
	case errors.Cause(err) == table.ErrTableFull:
		fmt.Fprintln(s.out, "Error: Table full.")
	default:
		logger.Errorf("execute %q: %v", line, err)
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}
