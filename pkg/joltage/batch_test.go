package joltage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceBatch() []Machine {
	machines := make([]Machine, 0, len(referenceMachines))
	for _, m := range referenceMachines {
		machines = append(machines, Machine{Lights: m.lights, Buttons: m.buttons, Joltages: m.joltages})
	}
	return machines
}

func TestSolveAll_ReferenceManual(t *testing.T) {
	results, err := SolveAll(context.Background(), referenceBatch(), WithWorkers(2), WithCrossCheck(true))
	require.NoError(t, err)
	require.Len(t, results, len(referenceMachines))

	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.Index)
		assert.Equal(t, referenceMachines[i].presses, r.Presses)
		assert.Equal(t, referenceMachines[i].toggles, r.Toggles)
		assert.Equal(t, "linear", r.Solver)
	}

	totals := Sum(results)
	assert.Equal(t, Cost(33), totals.Presses)
	assert.Equal(t, Cost(7), totals.Toggles)
	assert.Zero(t, totals.Failed)
	assert.Zero(t, totals.Impossible)
}

func TestSolveAll_MatchesSequential(t *testing.T) {
	machines := referenceBatch()
	machines = append(machines,
		Machine{Buttons: [][]int{{0, 1}}, Joltages: []int{1, 2}},
		Machine{Buttons: [][]int{{0}}, Joltages: []int{5}},
	)

	results, err := SolveAll(context.Background(), machines, WithWorkers(4))
	require.NoError(t, err)

	for i, m := range machines {
		s, err := New(m.Buttons, len(m.Joltages))
		require.NoError(t, err)
		want, err := s.Solve(context.Background(), m.Joltages)
		require.NoError(t, err)
		assert.Equal(t, want, results[i].Presses, "machine %d", i)
	}

	totals := Sum(results)
	assert.Equal(t, 1, totals.Impossible)
	assert.Equal(t, Cost(38), totals.Presses)
}

func TestSum_CountsUnreachableLights(t *testing.T) {
	machines := []Machine{
		referenceBatch()[0],
		// Every press toggles both lights, so [#.] is out of reach.
		{Lights: []bool{true, false}, Buttons: [][]int{{0, 1}}, Joltages: []int{1, 1}},
		// No diagram: not a light failure.
		{Buttons: [][]int{{0}}, Joltages: []int{2}},
	}
	results, err := SolveAll(context.Background(), machines)
	require.NoError(t, err)

	assert.True(t, results[1].HasLights)
	assert.True(t, results[1].Toggles.IsImpossible())
	assert.False(t, results[2].HasLights)

	totals := Sum(results)
	assert.Equal(t, Cost(2), totals.Toggles)
	assert.Equal(t, 1, totals.UnreachableLights)
	assert.Equal(t, Cost(10+1+2), totals.Presses)
	assert.Zero(t, totals.Impossible)
}

func TestSolveAll_ReportsPerMachineErrors(t *testing.T) {
	machines := []Machine{
		{Buttons: [][]int{{0, 3}}, Joltages: []int{1}},
		{Buttons: [][]int{{0}}, Joltages: []int{2}},
	}
	results, err := SolveAll(context.Background(), machines)
	require.NoError(t, err)

	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, Cost(2), results[1].Presses)
	assert.Equal(t, 1, Sum(results).Failed)
}

func TestSolveAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := SolveAll(ctx, referenceBatch(), WithWorkers(1))
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, len(referenceMachines))
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}
