// Package project holds the portfolio record model and the logic that
// reconciles static seed records with remote overrides.
package project

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one project entry. Fields are kept as a loose map so a remote
// document can carry any subset of keys and still merge field by field.
type Record map[string]any

// ID renders the merge key as a string. Numeric ids are written without a
// fractional part when they are whole.
func (r Record) ID() string {
	return idString(r["id"])
}

// String returns the field as text. Missing and non-scalar values render as "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64, float32, int, int64, int32:
		return idString(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Slideshow returns the slideshow URLs. A newline-delimited string is split
// the same way the admin editor splits it.
func (r Record) Slideshow() []string {
	switch v := r["slideshow"].(type) {
	case []string:
		return SplitLines(strings.Join(v, "\n"))
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		return SplitLines(v)
	default:
		return nil
	}
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// SplitLines turns newline-delimited text into trimmed, non-empty lines.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// LooseEqual reports whether a record's raw id answers a query id. A numeric
// id is compared as a number against the parsed query, where surrounding
// space is ignored and an empty query reads as zero. Any other id must match
// the query text exactly.
func LooseEqual(id any, query string) bool {
	var n float64
	switch v := id.(type) {
	case string:
		return v == query
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case int32:
		n = float64(v)
	default:
		return false
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return n == 0
	}
	q, err := strconv.ParseFloat(query, 64)
	if err != nil {
		return false
	}
	return n == q
}

func idString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return idString(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	default:
		return fmt.Sprint(v)
	}
}
