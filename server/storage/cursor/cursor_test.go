package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtStart(t *testing.T) {
	c := AtStart(3)
	assert.Equal(t, Cursor{RowNum: 0, EndOfTable: false, TableSize: 3}, c)

	empty := AtStart(0)
	assert.True(t, empty.EndOfTable)
}

func TestAtEnd(t *testing.T) {
	c := AtEnd(7, 7)
	assert.Equal(t, uint32(7), c.RowNum)
	assert.True(t, c.EndOfTable)
}

func TestAdvance(t *testing.T) {
	c := AtStart(3)
	var visited []uint32
	for !c.EndOfTable {
		visited = append(visited, c.RowNum)
		c.Advance()
	}
	assert.Equal(t, []uint32{0, 1, 2}, visited)
	assert.Equal(t, uint32(3), c.RowNum)

	// advancing past the terminal state is allowed and stays terminal
	c.Advance()
	assert.True(t, c.EndOfTable)
	assert.Equal(t, uint32(4), c.RowNum)
}

func TestCursorIsAValue(t *testing.T) {
	a := AtStart(2)
	b := a
	b.Advance()
	assert.Equal(t, uint32(0), a.RowNum)
	assert.Equal(t, uint32(1), b.RowNum)
}
