package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleRandIsDeterministic(t *testing.T) {
	first := NewSampleRand(77)
	second := NewSampleRand(77)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first.Int63(), second.Int63())
	}
}

func TestPickWeightedHonorsWeights(t *testing.T) {
	r := NewSampleRand(1)
	choices := []string{"common", "rare"}
	counts := map[string]int{}
	for i := 0; i < 1000; i++ {
		counts[PickWeighted(r, choices, []int{9, 1})]++
	}
	assert.Greater(t, counts["common"], counts["rare"])
	assert.Greater(t, counts["rare"], 0)
}

func TestHexIDShapeAndStability(t *testing.T) {
	id := HexID("order", "42")
	assert.Len(t, id, 32)
	assert.Equal(t, id, HexID("order", "42"))
	assert.NotEqual(t, id, HexID("order", "43"))
	assert.Regexp(t, "^[0-9a-f]{32}$", id)
}
