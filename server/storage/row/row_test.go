package row

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutConstants(t *testing.T) {
	assert.Equal(t, 291, Size)
	assert.Equal(t, 4, UsernameOffset)
	assert.Equal(t, 36, EmailOffset)
}

func TestNew(t *testing.T) {
	r, err := New(1, "user1", "user1@example.com")
	require.NoError(t, err)

	var username [UsernameSize]byte
	copy(username[:], "user1")
	var email [EmailSize]byte
	copy(email[:], "user1@example.com")

	assert.Equal(t, uint32(1), r.ID)
	assert.Equal(t, username, r.Username)
	assert.Equal(t, email, r.Email)
}

func TestNewRejectsLongText(t *testing.T) {
	_, err := New(1, string(bytes.Repeat([]byte("a"), UsernameSize+1)), "e")
	assert.Equal(t, ErrUsernameTooLong, errors.Cause(err))
	assert.Contains(t, err.Error(), "33 bytes, limit is 32")

	_, err = New(1, "u", string(bytes.Repeat([]byte("a"), EmailSize+1)))
	assert.True(t, errors.Is(err, ErrEmailTooLong))

	// exact widths are accepted
	_, err = New(1, string(bytes.Repeat([]byte("a"), UsernameSize)), string(bytes.Repeat([]byte("b"), EmailSize)))
	assert.NoError(t, err)
}

func TestSerializeLayout(t *testing.T) {
	r, err := New(0x01020304, "bob", "bob@test.com")
	require.NoError(t, err)

	page := make([]byte, 4096)
	Serialize(&r, page, Size)

	assert.Equal(t, make([]byte, Size), page[:Size], "previous slot must be untouched")
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, page[Size:Size+4])
	assert.Equal(t, []byte("bob"), page[Size+UsernameOffset:Size+UsernameOffset+3])
	assert.Equal(t, []byte("bob@test.com"), page[Size+EmailOffset:Size+EmailOffset+12])
	assert.Equal(t, make([]byte, 4096-2*Size), page[2*Size:])
}

func TestRoundTrip(t *testing.T) {
	page := make([]byte, 4096)

	var r Row
	r.ID = 42
	// fill every byte so padding is covered too
	for i := range r.Username {
		r.Username[i] = byte(i + 1)
	}
	for i := range r.Email {
		r.Email[i] = byte(255 - i)
	}

	for _, offset := range []int{0, Size, 13 * Size} {
		Serialize(&r, page, offset)
		assert.Equal(t, r, Deserialize(page, offset))
	}
}

func TestSerializeOutOfRangePanics(t *testing.T) {
	page := make([]byte, 4096)
	r := Row{ID: 1}
	assert.Panics(t, func() { Serialize(&r, page, 4096-Size+1) })
	assert.Panics(t, func() { Deserialize(page, 4096) })
}

func TestString(t *testing.T) {
	r, err := New(1, "alice", "alice@test.com")
	require.NoError(t, err)
	assert.Equal(t, "(1, alice, alice@test.com)", r.String())

	r.Username[0] = 0xff
	assert.Equal(t, "�lice", r.UsernameString())
}
