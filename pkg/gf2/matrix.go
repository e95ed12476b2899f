// Package gf2 provides linear algebra over GF(2) on word-packed bit vectors.
// This file defines the incidence matrix: one uint64 row per counter with
// bit j set iff button j touches that counter.
package gf2

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// MaxRows is the largest number of counters (equations) a Matrix can hold.
// Each column of the system is addressed by a bit of a single uint64, and the
// row-transform table packs one bit per original row, so both dimensions are
// capped at the machine word width.
const MaxRows = 64

// MaxCols is the largest number of buttons (unknowns) a Matrix can hold.
const MaxCols = 64

var (
	// ErrTooManyRows is returned when a system has more than MaxRows counters.
	ErrTooManyRows = errors.New("gf2: too many rows for a 64-bit row transform")

	// ErrTooManyColumns is returned when a system has more than MaxCols buttons.
	ErrTooManyColumns = errors.New("gf2: too many columns for a 64-bit mask")

	// ErrIndexOutOfRange is returned when a button references a counter that
	// does not exist, or when the row count is negative.
	ErrIndexOutOfRange = errors.New("gf2: counter index out of range")
)

// Matrix is an immutable GF(2) incidence matrix over at most 64 rows and
// 64 columns. Row i is a bitmask over columns.
type Matrix struct {
	rows []uint64
	cols int
}

// NewIncidenceMatrix builds one bitmask row per counter from the button list.
// Button j contributes bit j to every row listed in buttons[j]. Repeated
// indices within a button are idempotent.
func NewIncidenceMatrix(buttons [][]int, numRows int) (*Matrix, error) {
	if numRows < 0 {
		return nil, fmt.Errorf("%w: negative row count %d", ErrIndexOutOfRange, numRows)
	}
	if numRows > MaxRows {
		return nil, fmt.Errorf("%w: %d rows (max %d)", ErrTooManyRows, numRows, MaxRows)
	}
	if len(buttons) > MaxCols {
		return nil, fmt.Errorf("%w: %d columns (max %d)", ErrTooManyColumns, len(buttons), MaxCols)
	}

	rows := make([]uint64, numRows)
	for j, counters := range buttons {
		for _, i := range counters {
			if i < 0 || i >= numRows {
				return nil, fmt.Errorf("%w: button %d references counter %d (have %d)",
					ErrIndexOutOfRange, j, i, numRows)
			}
			rows[i] |= 1 << uint(j)
		}
	}
	return &Matrix{rows: rows, cols: len(buttons)}, nil
}

// NumRows returns the number of rows (counters).
func (m *Matrix) NumRows() int { return len(m.rows) }

// NumCols returns the number of columns (buttons).
func (m *Matrix) NumCols() int { return m.cols }

// Row returns row i as a column bitmask.
func (m *Matrix) Row(i int) uint64 { return m.rows[i] }

// Rows returns a copy of all rows.
func (m *Matrix) Rows() []uint64 {
	out := make([]uint64, len(m.rows))
	copy(out, m.rows)
	return out
}

// Apply returns A·x over GF(2) as a row mask: bit i is the parity of
// popcount(row_i AND x).
func (m *Matrix) Apply(x uint64) uint64 {
	var out uint64
	for i, r := range m.rows {
		out |= uint64(bits.OnesCount64(r&x)&1) << uint(i)
	}
	return out
}

// Presses returns the integer product A·x: entry i counts how many of the
// columns selected by x touch row i.
func (m *Matrix) Presses(x uint64) []int {
	out := make([]int, len(m.rows))
	for i, r := range m.rows {
		out[i] = bits.OnesCount64(r & x)
	}
	return out
}

// String renders the matrix one row per line, column 0 leftmost.
func (m *Matrix) String() string {
	var sb strings.Builder
	for i, r := range m.rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for j := 0; j < m.cols; j++ {
			if r&(1<<uint(j)) != 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String()
}
