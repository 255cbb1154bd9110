package internal

import (
	"math/rand"
)

// NewSampleRand returns a seeded random source for synthetic sample
// generation. Every dataset uses a fixed seed so repeated runs load
// identical samples.
func NewSampleRand(seed int64) *rand.Rand {
	// math/rand is intentional here, samples must be reproducible
	/* #nosec G404 */
	return rand.New(rand.NewSource(seed))
}

// Pick returns a uniformly random element of choices.
func Pick[T any](r *rand.Rand, choices []T) T {
	return choices[r.Intn(len(choices))]
}

// PickWeighted returns a random element of choices, where choices[i] is
// drawn with probability weights[i] / sum(weights).
func PickWeighted[T any](r *rand.Rand, choices []T, weights []int) T {
	total := 0
	for _, w := range weights {
		total += w
	}
	n := r.Intn(total)
	for i, w := range weights {
		if n < w {
			return choices[i]
		}
		n -= w
	}
	return choices[len(choices)-1]
}
