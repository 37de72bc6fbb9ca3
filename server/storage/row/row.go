// Package row packs and unpacks the fixed-layout user record.
//
// On-disk layout of one row (Size bytes, no padding between fields):
//
//	offset  width  field
//	0       4      id, uint32 little-endian
//	4       32     username, raw bytes, zero padded
//	36      255    email, raw bytes, zero padded
package row

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	IDSize       = 4
	UsernameSize = 32
	EmailSize    = 255

	IDOffset       = 0
	UsernameOffset = IDOffset + IDSize
	EmailOffset    = UsernameOffset + UsernameSize

	// Size is the serialized width of a Row.
	Size = IDSize + UsernameSize + EmailSize
)

var (
	ErrUsernameTooLong = errors.New("username is too long")
	ErrEmailTooLong    = errors.New("email is too long")
)

// Row is one record. Text fields are never assumed to be null terminated.
type Row struct {
	ID       uint32
	Username [UsernameSize]byte
	Email    [EmailSize]byte
}

// New builds a Row from user supplied text, zero padding both text fields.
func New(id uint32, username, email string) (Row, error) {
	var r Row
	if len(username) > UsernameSize {
		return r, errors.Wrapf(ErrUsernameTooLong, "%d bytes, limit is %d", len(username), UsernameSize)
	}
	if len(email) > EmailSize {
		return r, errors.Wrapf(ErrEmailTooLong, "%d bytes, limit is %d", len(email), EmailSize)
	}
	r.ID = id
	copy(r.Username[:], username)
	copy(r.Email[:], email)
	return r, nil
}

// Serialize writes r into page[offset : offset+Size].
func Serialize(r *Row, page []byte, offset int) {
	dst := page[offset : offset+Size]
	binary.LittleEndian.PutUint32(dst[IDOffset:UsernameOffset], r.ID)
	copy(dst[UsernameOffset:EmailOffset], r.Username[:])
	copy(dst[EmailOffset:Size], r.Email[:])
}

// Deserialize reads the row stored at page[offset : offset+Size].
func Deserialize(page []byte, offset int) Row {
	src := page[offset : offset+Size]
	var r Row
	r.ID = binary.LittleEndian.Uint32(src[IDOffset:UsernameOffset])
	copy(r.Username[:], src[UsernameOffset:EmailOffset])
	copy(r.Email[:], src[EmailOffset:Size])
	return r
}

// UsernameString returns the username without its zero padding.
func (r Row) UsernameString() string {
	return displayText(r.Username[:])
}

// EmailString returns the email without its zero padding.
func (r Row) EmailString() string {
	return displayText(r.Email[:])
}

func (r Row) String() string {
	return fmt.Sprintf("(%d, %s, %s)", r.ID, r.UsernameString(), r.EmailString())
}

func displayText(b []byte) string {
	return strings.ToValidUTF8(strings.TrimRight(string(b), "\x00"), "�")
}
