package gf2

import (
	"fmt"
	"math/bits"
)

// ExampleSolver_ForEachSolution enumerates every button subset that toggles
// counters 1 and 2 of a four-counter machine.
func ExampleSolver_ForEachSolution() {
	s := MustNewSolver([][]int{{3}, {1, 3}, {2}, {2, 3}, {0, 2}, {0, 1}}, 4)
	fmt.Printf("rank=%d kernel=%d\n", s.Rank(), len(s.Kernel()))

	count, minWeight := 0, 64
	s.ForEachSolution(0b0110, func(mask uint64) {
		count++
		minWeight = min(minWeight, bits.OnesCount64(mask))
	})
	fmt.Printf("solutions=%d fewest presses=%d\n", count, minWeight)
	// Output:
	// rank=4 kernel=2
	// solutions=4 fewest presses=2
}
