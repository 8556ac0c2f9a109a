package mimic

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/chosenoffset/mimic/pkg/mimic/mutation"
)

// NullSentinel is the literal that means "no value". As a computed aspect
// value it removes the attribute, text node or animation.
const NullSentinel = mutation.NullSentinel

// Coerce turns an unquoted literal token from a condition into a typed value.
// Tokens are tried in order: the null sentinel, an ISO-8601 instant in UTC, a
// boolean, a finite number. Anything else stays a string. Quoted literals
// are strings already and are not passed through here.
func Coerce(literal string) Object {
	switch literal {
	case NullSentinel:
		return absent
	case "true":
		return &Boolean{Value: true}
	case "false":
		return &Boolean{Value: false}
	}

	if looksLikeInstant(literal) {
		if t, ok := parseInstant(literal); ok {
			return &Timestamp{Value: t}
		}
		return &String{Value: literal}
	}

	if f, ok := parseNumber(literal); ok {
		return &Number{Value: f}
	}
	return &String{Value: literal}
}

func looksLikeInstant(s string) bool {
	return strings.HasSuffix(s, "Z") &&
		strings.Contains(s, "T") &&
		strings.Contains(s, ":") &&
		strings.Contains(s, "-")
}

func parseInstant(s string) (time.Time, bool) {
	if !looksLikeInstant(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
