package movies

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNamesGenreColumn(t *testing.T) {
	raw := `[{'id': 16, 'name': 'Animation'}, {'id': 35, 'name': 'Comedy'}, {'id': 10751, 'name': 'Family'}]`
	assert.Equal(t, []string{"Animation", "Comedy", "Family"}, parseNames(raw))
}

func TestParseNamesHandlesApostrophes(t *testing.T) {
	// Python switches to double quotes when the value contains an apostrophe
	raw := `[{'id': 1, 'name': "Schindler's List"}, {'id': 2, 'name': 'Heat'}]`
	assert.Equal(t, []string{"Schindler's List", "Heat"}, parseNames(raw))
}

func TestParseNamesHandlesEscapedQuote(t *testing.T) {
	raw := `[{'name': 'It\'s Alive'}]`
	assert.Equal(t, []string{"It's Alive"}, parseNames(raw))
}

func TestParseNameListKeepsJob(t *testing.T) {
	raw := `[{'credit_id': 'abc', 'job': 'Director', 'name': 'John Lasseter', 'profile_path': None}, {'job': 'Writer', 'name': 'Joss Whedon'}]`
	entries := parseNameList(raw)
	assert.Len(t, entries, 2)
	assert.Equal(t, "Director", entries[0].Job)
	assert.Equal(t, "John Lasseter", entries[0].Name)
}

func TestParseNamesGarbageColumn(t *testing.T) {
	assert.Empty(t, parseNames("not a list"))
	assert.Empty(t, parseNames(""))
	assert.Empty(t, parseNames("[]"))
}
