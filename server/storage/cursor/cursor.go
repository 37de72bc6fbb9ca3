// Package cursor tracks a position in a table's row range.
//
// A Cursor is a plain value holding the row count it was built with. It has
// no reference to the table, so rows inserted after construction are outside
// its range; a cursor is invalidated by any later insert and must be rebuilt.
package cursor

type Cursor struct {
	RowNum     uint32
	EndOfTable bool
	TableSize  uint32
}

// AtStart positions a cursor on the first row of a table holding tableSize rows.
func AtStart(tableSize uint32) Cursor {
	return Cursor{
		RowNum:     0,
		EndOfTable: tableSize == 0,
		TableSize:  tableSize,
	}
}

// AtEnd positions a cursor one past the last row, where the next insert goes.
func AtEnd(numRows, tableSize uint32) Cursor {
	return Cursor{
		RowNum:     numRows,
		EndOfTable: true,
		TableSize:  tableSize,
	}
}

// Advance moves to the next row. Once EndOfTable is set the cursor must not
// be dereferenced, although Advance may still be called.
func (c *Cursor) Advance() {
	c.RowNum++
	if c.RowNum >= c.TableSize {
		c.EndOfTable = true
	}
}
