package movies

import (
	"strings"

	"github.com/goccy/go-json"
)

// The metadata, credits and keywords files carry their nested columns as
// Python repr lists, not JSON: strings are single quoted unless the
// value itself contains an apostrophe, and missing values appear as
// None. pythonLiteralToJSON rewrites such a literal into JSON so it can
// be unmarshalled. Anything it cannot make sense of simply fails to
// unmarshal later and the column is treated as empty, matching how
// tolerant the dataset has to be consumed.
func pythonLiteralToJSON(raw string) string {
	const (
		stateCode = iota
		stateSingle
		stateDouble
	)
	var b strings.Builder
	b.Grow(len(raw))
	state := stateCode

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch state {
		case stateCode:
			switch c {
			case '\'':
				state = stateSingle
				b.WriteByte('"')
			case '"':
				state = stateDouble
				b.WriteByte('"')
			case 'N':
				if strings.HasPrefix(raw[i:], "None") {
					b.WriteString("null")
					i += 3
				} else {
					b.WriteByte(c)
				}
			case 'T':
				if strings.HasPrefix(raw[i:], "True") {
					b.WriteString("true")
					i += 3
				} else {
					b.WriteByte(c)
				}
			case 'F':
				if strings.HasPrefix(raw[i:], "False") {
					b.WriteString("false")
					i += 4
				} else {
					b.WriteByte(c)
				}
			default:
				b.WriteByte(c)
			}
		case stateSingle:
			switch c {
			case '\\':
				if i+1 < len(raw) {
					i++
					next := raw[i]
					if next == '\'' {
						// \' is only an escape inside single quotes
						b.WriteByte('\'')
					} else {
						b.WriteByte('\\')
						b.WriteByte(next)
					}
				}
			case '\'':
				state = stateCode
				b.WriteByte('"')
			case '"':
				b.WriteString(`\"`)
			default:
				b.WriteByte(c)
			}
		case stateDouble:
			switch c {
			case '\\':
				if i+1 < len(raw) {
					b.WriteByte(c)
					i++
					b.WriteByte(raw[i])
				}
			case '"':
				state = stateCode
				b.WriteByte('"')
			default:
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

// creditEntry is one element of a cast, crew, genre or keyword column.
// Only the fields the data model needs are decoded.
type creditEntry struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// parseNameList decodes a Python literal list column into its entries.
// Undecodable columns come back empty.
func parseNameList(raw string) []creditEntry {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return nil
	}
	var entries []creditEntry
	if err := json.Unmarshal([]byte(pythonLiteralToJSON(raw)), &entries); err != nil {
		return nil
	}
	return entries
}

// parseNames returns the names of a literal list column, dropping
// entries without one.
func parseNames(raw string) []string {
	entries := parseNameList(raw)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Name != "" {
			names = append(names, entry.Name)
		}
	}
	return names
}
