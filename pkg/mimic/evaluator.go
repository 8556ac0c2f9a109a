package mimic

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Object interface {
	Type() ObjectType
	Inspect() string
}

type ObjectType string

const (
	STRING_OBJ    = "STRING"
	NUMBER_OBJ    = "NUMBER"
	BOOLEAN_OBJ   = "BOOLEAN"
	TIMESTAMP_OBJ = "TIMESTAMP"
	ABSENT_OBJ    = "ABSENT"
)

type String struct {
	Value string
}

func (s *String) Inspect() string  { return s.Value }
func (s *String) Type() ObjectType { return STRING_OBJ }

type Number struct {
	Value float64
}

func (n *Number) Inspect() string  { return strconv.FormatFloat(n.Value, 'f', -1, 64) }
func (n *Number) Type() ObjectType { return NUMBER_OBJ }

type Boolean struct {
	Value bool
}

func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }
func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }

type Timestamp struct {
	Value time.Time
}

func (t *Timestamp) Inspect() string  { return t.Value.UTC().Format(time.RFC3339Nano) }
func (t *Timestamp) Type() ObjectType { return TIMESTAMP_OBJ }

// Absent stands for a missing member or the null sentinel. It substitutes
// into expressions as the empty string.
type Absent struct{}

func (a *Absent) Inspect() string  { return "" }
func (a *Absent) Type() ObjectType { return ABSENT_OBJ }

var absent = &Absent{}

// Values is one decoded telemetry object: member name to value.
type Values map[string]any

// Get returns the named member as an Object; missing or nil members are
// Absent.
func (v Values) Get(name string) Object {
	raw, ok := v[name]
	if !ok {
		return absent
	}
	return FromNative(raw)
}

// Batch maps a binding (parameter path) to the latest telemetry object.
type Batch map[string]Values

// FromNative converts a decoded JSON value, or any Go scalar, into an Object.
func FromNative(v any) Object {
	switch val := v.(type) {
	case nil:
		return absent
	case Object:
		return val
	case string:
		return &String{Value: val}
	case bool:
		return &Boolean{Value: val}
	case float64:
		return &Number{Value: val}
	case float32:
		return &Number{Value: float64(val)}
	case int:
		return &Number{Value: float64(val)}
	case int8:
		return &Number{Value: float64(val)}
	case int16:
		return &Number{Value: float64(val)}
	case int32:
		return &Number{Value: float64(val)}
	case int64:
		return &Number{Value: float64(val)}
	case uint:
		return &Number{Value: float64(val)}
	case uint8:
		return &Number{Value: float64(val)}
	case uint16:
		return &Number{Value: float64(val)}
	case uint32:
		return &Number{Value: float64(val)}
	case uint64:
		return &Number{Value: float64(val)}
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return &Number{Value: f}
		}
		return &String{Value: val.String()}
	case time.Time:
		return &Timestamp{Value: val}
	case fmt.Stringer:
		return &String{Value: val.String()}
	default:
		if data, err := json.Marshal(val); err == nil {
			return &String{Value: string(data)}
		}
		return &String{Value: fmt.Sprint(val)}
	}
}

// Equal reports whether two objects are equal. Absent equals only Absent.
func Equal(left, right Object) bool {
	if isAbsent(left) || isAbsent(right) {
		return isAbsent(left) && isAbsent(right)
	}
	c, ok := Compare(left, right)
	return ok && c == 0
}

// Compare orders two objects. Same-typed values use their native ordering;
// mixed types compare numerically when both sides convert to numbers, as
// instants when both convert to timestamps, and as strings otherwise. ok is
// false when either side is Absent or a number is NaN.
func Compare(left, right Object) (c int, ok bool) {
	if isAbsent(left) || isAbsent(right) {
		return 0, false
	}

	switch {
	case left.Type() == NUMBER_OBJ && right.Type() == NUMBER_OBJ:
		return compareFloats(left.(*Number).Value, right.(*Number).Value)
	case left.Type() == STRING_OBJ && right.Type() == STRING_OBJ:
		return strings.Compare(left.Inspect(), right.Inspect()), true
	case left.Type() == BOOLEAN_OBJ && right.Type() == BOOLEAN_OBJ:
		return compareBools(left.(*Boolean).Value, right.(*Boolean).Value), true
	case left.Type() == TIMESTAMP_OBJ && right.Type() == TIMESTAMP_OBJ:
		return left.(*Timestamp).Value.Compare(right.(*Timestamp).Value), true
	}

	if l, lok := toNumber(left); lok {
		if r, rok := toNumber(right); rok {
			return compareFloats(l, r)
		}
	}
	if l, lok := toTime(left); lok {
		if r, rok := toTime(right); rok {
			return l.Compare(r), true
		}
	}
	return strings.Compare(left.Inspect(), right.Inspect()), true
}

func compareFloats(l, r float64) (int, bool) {
	if math.IsNaN(l) || math.IsNaN(r) {
		return 0, false
	}
	switch {
	case l < r:
		return -1, true
	case l > r:
		return 1, true
	default:
		return 0, true
	}
}

func compareBools(l, r bool) int {
	switch {
	case l == r:
		return 0
	case !l:
		return -1
	default:
		return 1
	}
}

func toNumber(obj Object) (float64, bool) {
	switch o := obj.(type) {
	case *Number:
		return o.Value, true
	case *String:
		return parseNumber(o.Value)
	default:
		return 0, false
	}
}

func toTime(obj Object) (time.Time, bool) {
	switch o := obj.(type) {
	case *Timestamp:
		return o.Value, true
	case *String:
		return parseInstant(o.Value)
	default:
		return time.Time{}, false
	}
}

func isAbsent(obj Object) bool {
	return obj == nil || obj.Type() == ABSENT_OBJ
}
