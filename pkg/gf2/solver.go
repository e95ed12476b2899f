// Package gf2 provides linear algebra over GF(2) on word-packed bit vectors.
// This file implements Gauss-Jordan elimination, the kernel basis, and
// enumeration of the affine solution space of A·x = b.
package gf2

import (
	"fmt"
	"iter"
	"math"
	"math/bits"
)

// noPivot marks an echelon row that was left without a pivot column.
const noPivot = -1

// Solver holds the fully reduced echelon form of an incidence matrix.
//
// The solver is immutable after construction and safe for concurrent use by
// multiple goroutines.
type Solver struct {
	matrix *Matrix

	// echelon[i] is reduced row i. Pivoted rows occupy [0, rank).
	echelon []uint64

	// transform[i] is the set of original rows XORed together to produce
	// echelon[i]; applying it to a right-hand side yields the reduced b'.
	transform []uint64

	// pivots[i] is the pivot column of echelon row i, or noPivot.
	pivots []int

	// kernel is a basis of {x : A·x = 0}, one vector per free column.
	kernel []uint64

	rank int
}

// NewSolver builds the incidence matrix for buttons over numRows counters and
// reduces it. It returns ErrTooManyRows, ErrTooManyColumns or
// ErrIndexOutOfRange (wrapped) when the system does not fit.
func NewSolver(buttons [][]int, numRows int) (*Solver, error) {
	m, err := NewIncidenceMatrix(buttons, numRows)
	if err != nil {
		return nil, err
	}
	return NewSolverFromMatrix(m), nil
}

// MustNewSolver is like NewSolver but panics if the system does not fit in
// 64-bit words. Use it where an oversized system is a programming error.
func MustNewSolver(buttons [][]int, numRows int) *Solver {
	s, err := NewSolver(buttons, numRows)
	if err != nil {
		panic(fmt.Sprintf("gf2: MustNewSolver: %v", err))
	}
	return s
}

// NewSolverFromMatrix reduces an existing incidence matrix.
func NewSolverFromMatrix(m *Matrix) *Solver {
	n := m.NumRows()
	s := &Solver{
		matrix:    m,
		echelon:   m.Rows(),
		transform: make([]uint64, n),
		pivots:    make([]int, n),
	}
	for i := range s.transform {
		s.transform[i] = 1 << uint(i)
		s.pivots[i] = noPivot
	}

	var pivotCols uint64
	next := 0
	for col := 0; col < m.NumCols() && next < n; col++ {
		bit := uint64(1) << uint(col)

		sel := -1
		for r := next; r < n; r++ {
			if s.echelon[r]&bit != 0 {
				sel = r
				break
			}
		}
		if sel < 0 {
			continue
		}

		s.echelon[next], s.echelon[sel] = s.echelon[sel], s.echelon[next]
		s.transform[next], s.transform[sel] = s.transform[sel], s.transform[next]

		for r := 0; r < n; r++ {
			if r != next && s.echelon[r]&bit != 0 {
				s.echelon[r] ^= s.echelon[next]
				s.transform[r] ^= s.transform[next]
			}
		}

		s.pivots[next] = col
		pivotCols |= bit
		next++
	}
	s.rank = next

	for col := 0; col < m.NumCols(); col++ {
		bit := uint64(1) << uint(col)
		if pivotCols&bit != 0 {
			continue
		}
		v := bit
		for r := 0; r < s.rank; r++ {
			if s.echelon[r]&bit != 0 {
				v |= 1 << uint(s.pivots[r])
			}
		}
		s.kernel = append(s.kernel, v)
	}

	return s
}

// Matrix returns the original incidence matrix.
func (s *Solver) Matrix() *Matrix { return s.matrix }

// NumRows returns the number of equations.
func (s *Solver) NumRows() int { return s.matrix.NumRows() }

// NumCols returns the number of unknowns.
func (s *Solver) NumCols() int { return s.matrix.NumCols() }

// Rank returns the rank of the incidence matrix over GF(2).
func (s *Solver) Rank() int { return s.rank }

// Kernel returns a copy of the null-space basis. Its length is
// NumCols() - Rank().
func (s *Solver) Kernel() []uint64 {
	out := make([]uint64, len(s.kernel))
	copy(out, s.kernel)
	return out
}

// Pivot returns the pivot column of echelon row i. ok is false for rows that
// reduced to zero (dependent equations).
func (s *Solver) Pivot(i int) (col int, ok bool) {
	p := s.pivots[i]
	return p, p != noPivot
}

// ParticularSolution returns one x with A·x = target over GF(2), with every
// free variable set to zero. ok is false when the system is inconsistent.
func (s *Solver) ParticularSolution(target uint64) (x uint64, ok bool) {
	for i, t := range s.transform {
		b := bits.OnesCount64(t&target)&1 == 1
		if s.pivots[i] == noPivot {
			if b {
				return 0, false
			}
			continue
		}
		if b {
			x |= 1 << uint(s.pivots[i])
		}
	}
	return x, true
}

// ForEachSolution calls fn once for every x with A·x = target over GF(2) and
// reports whether the system is consistent. When it is not, fn is never
// called. Solutions are visited in Gray-code order over the kernel basis.
func (s *Solver) ForEachSolution(target uint64, fn func(mask uint64)) bool {
	seq, ok := s.Solutions(target)
	if !ok {
		return false
	}
	for x := range seq {
		fn(x)
	}
	return true
}

// Solutions is like ForEachSolution but returns a range-over-func iterator
// which may be abandoned early with break.
func (s *Solver) Solutions(target uint64) (iter.Seq[uint64], bool) {
	x0, ok := s.ParticularSolution(target)
	if !ok {
		return func(func(uint64) bool) {}, false
	}
	kernel := s.kernel
	return func(yield func(uint64) bool) {
		x := x0
		if !yield(x) {
			return
		}
		// total wraps to 0 when the kernel has 64 vectors, in which case the
		// loop stops after 2^64-1 steps.
		total := uint64(1) << uint(len(kernel))
		for i := uint64(1); i != total; i++ {
			x ^= kernel[bits.TrailingZeros64(i)]
			if !yield(x) {
				return
			}
		}
	}, true
}

// SolutionCount returns 2^(NumCols-Rank) for a consistent target, saturating
// at math.MaxUint64 for a 64-dimensional kernel.
func (s *Solver) SolutionCount(target uint64) (uint64, bool) {
	if _, ok := s.ParticularSolution(target); !ok {
		return 0, false
	}
	if len(s.kernel) >= 64 {
		return math.MaxUint64, true
	}
	return 1 << uint(len(s.kernel)), true
}

// MinWeightSolution returns the solution of A·x = target with the fewest set
// bits. Ties resolve to the first solution in enumeration order.
func (s *Solver) MinWeightSolution(target uint64) (uint64, bool) {
	seq, ok := s.Solutions(target)
	if !ok {
		return 0, false
	}
	best, bestWeight := uint64(0), math.MaxInt
	for x := range seq {
		if w := bits.OnesCount64(x); w < bestWeight {
			best, bestWeight = x, w
			if w == 0 {
				break
			}
		}
	}
	return best, true
}
