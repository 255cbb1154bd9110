package social

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestExtractHashtags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "no tags here", []string{}},
		{"single", "hello #World", []string{"world"}},
		{"multiple", "#Go and #Redis and #go again", []string{"go", "redis", "go"}},
		{"punctuation", "ship it! #v2_release, done.", []string{"v2_release"}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractHashtags(tt.text))
		})
	}
}

func TestResolveHashtagsPrefersColumn(t *testing.T) {
	tests := []struct {
		name   string
		column string
		text   string
		want   []string
	}{
		{"comma separated", "#Travel, #Food", "ignored #text", []string{"travel", "food"}},
		{"space separated", "travel food", "", []string{"travel", "food"}},
		{"blank column falls back", "   ", "from the #text", []string{"text"}},
		{"empty both", "", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveHashtags(tt.column, tt.text))
		})
	}
}
