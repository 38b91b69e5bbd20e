package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignExact_PicksOptimal(t *testing.T) {
	// Greedy would grab 0.9 and be left with 0.1; the optimum pairs the
	// two 0.8 cells.
	w := [][]float64{
		{0.9, 0.8},
		{0.8, 0.1},
	}
	assert.InDelta(t, 1.6, assignExact(w), 1e-9)
	assert.InDelta(t, 1.0, assignGreedy(w), 1e-9)
}

func TestAssignExact_Identity(t *testing.T) {
	w := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	assert.InDelta(t, 3.0, assignExact(w), 1e-9)
}

func TestAssignExact_Rectangular(t *testing.T) {
	wide := [][]float64{{0.2, 0.9, 0.4}}
	assert.InDelta(t, 0.9, assignExact(wide), 1e-9)

	tall := [][]float64{{0.2}, {0.9}, {0.4}}
	assert.InDelta(t, 0.9, assignExact(tall), 1e-9)
}

func TestAssignExact_Empty(t *testing.T) {
	assert.Equal(t, 0.0, assignExact(nil))
	assert.Equal(t, 0.0, assignGreedy(nil))
}

func TestAssignGreedy_Deterministic(t *testing.T) {
	w := [][]float64{
		{0.5, 0.5},
		{0.5, 0.5},
	}
	first := assignGreedy(w)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, assignGreedy(w))
	}
	assert.InDelta(t, 1.0, first, 1e-9)
}
