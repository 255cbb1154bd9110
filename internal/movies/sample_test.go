package movies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleMoviesDeterministic(t *testing.T) {
	first := sampleMovies()
	second := sampleMovies()
	require.Len(t, first, sampleMovieCount)
	assert.Equal(t, first, second)

	for _, movie := range first[:25] {
		assert.NotEmpty(t, movie.Genres)
		assert.Len(t, movie.Cast, 5)
		assert.NotEmpty(t, movie.Director)
	}
}

func TestSampleRatingsDeterministic(t *testing.T) {
	first := sampleRatings()
	second := sampleRatings()
	require.Len(t, first, sampleRatingCount)
	assert.Equal(t, first, second)

	for _, rating := range first[:50] {
		assert.GreaterOrEqual(t, rating.Rating, 0.5)
		assert.LessOrEqual(t, rating.Rating, 5.0)
	}
}
