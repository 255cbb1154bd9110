package datamodel

import (
	"strconv"
	"strings"
)

// Truncate caps s at max bytes. Long free text fields (overviews, post
// bodies, review comments) are stored truncated.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// SnakeCase lowercases a display name and replaces spaces, matching the
// shape of the actor and director index keys.
func SnakeCase(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if ferr != nil {
			return 0
		}
		return int64(f)
	}
	return v
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
