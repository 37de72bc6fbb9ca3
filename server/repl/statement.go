package repl

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xrowstore/server/storage/row"
	"github.com/zhukovaskychina/xrowstore/server/storage/table"
)

type StatementType int

const (
	StatementInsert StatementType = iota
	StatementSelect
)

// Statement is a prepared insert or select.
type Statement struct {
	Type        StatementType
	RowToInsert row.Row
}

var (
	ErrUnrecognizedStatement = errors.New("unrecognized statement")

	// syntax errors of an insert
	ErrInvalidArgumentCount = errors.New("invalid number of arguments")
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidUsername      = errors.New("invalid username")
	ErrInvalidEmail         = errors.New("invalid email")
)

// PrepareStatement parses "insert <id> <username> <email>" or "select".
func PrepareStatement(input string) (*Statement, error) {
	switch {
	case strings.HasPrefix(input, "insert"):
		return prepareInsert(input)
	case input == "select":
		return &Statement{Type: StatementSelect}, nil
	default:
		return nil, ErrUnrecognizedStatement
	}
}

func prepareInsert(input string) (*Statement, error) {
	parts := strings.Fields(input)
	if parts[0] != "insert" {
		return nil, ErrUnrecognizedStatement
	}
	if len(parts) != 4 {
		return nil, ErrInvalidArgumentCount
	}

	id, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return nil, ErrInvalidID
	}

	r, err := row.New(uint32(id), parts[2], parts[3])
	switch errors.Cause(err) {
	case nil:
	case row.ErrUsernameTooLong:
		return nil, ErrInvalidUsername
	case row.ErrEmailTooLong:
		return nil, ErrInvalidEmail
	default:
		return nil, err
	}
	return &Statement{Type: StatementInsert, RowToInsert: r}, nil
}

// IsSyntaxError reports whether err came from a malformed insert.
func IsSyntaxError(err error) bool {
	switch errors.Cause(err) {
	case ErrInvalidArgumentCount, ErrInvalidID, ErrInvalidUsername, ErrInvalidEmail:
		return true
	}
	return false
}

// ExecuteStatement runs stmt against t. Selected rows are passed to emit in
// insertion order.
func ExecuteStatement(stmt *Statement, t *table.Table, emit func(row.Row)) error {
	switch stmt.Type {
	case StatementInsert:
		return t.Insert(&stmt.RowToInsert)
	case StatementSelect:
		it := t.Scan()
		for it.Next() {
			emit(it.Row())
		}
		return it.Err()
	default:
		return errors.Errorf("unsupported statement type %d", stmt.Type)
	}
}
