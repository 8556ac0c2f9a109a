package mutation

import (
	"fmt"
	"strings"

	"github.com/chosenoffset/mimic/pkg/mimic/colour"
	"github.com/chosenoffset/mimic/pkg/mimic/svgdom"
)

const (
	// NullSentinel as a computed value removes whatever the aspect drives.
	NullSentinel = "##NULL##"
	// None disables a blink or rotate animation.
	None = "none"
)

// Aspect is one visual property of an element that rules can drive.
type Aspect int

const (
	Fill Aspect = iota
	Stroke
	StrokeWidth
	Visibility
	Text
	Transform
	Blink
	Rotate
	Width
	Height
)

// Order is the order in which the aspects of one element are evaluated.
var Order = []Aspect{Fill, Stroke, StrokeWidth, Visibility, Text, Transform, Blink, Rotate, Width, Height}

// names are the SVG attribute names driven by the attribute aspects.
var names = [...]string{
	Fill:        "fill",
	Stroke:      "stroke",
	StrokeWidth: "stroke-width",
	Visibility:  "visibility",
	Text:        "text",
	Transform:   "transform",
	Blink:       "blink",
	Rotate:      "rotate",
	Width:       "width",
	Height:      "height",
}

type aspectSpec struct {
	prefix  string
	compute func(value string) (payload, error)
	apply   func(m Mutation)
}

// payload is the checked form of a computed value.
type payload struct {
	value    string
	absent   bool
	rotation svgdom.Rotation
}

var aspects = [...]aspectSpec{
	Fill:        {prefix: "data-rtmt-fill-color", compute: computeAttribute, apply: applyAttribute},
	Stroke:      {prefix: "data-rtmt-stroke-color", compute: computeAttribute, apply: applyAttribute},
	StrokeWidth: {prefix: "data-rtmt-stroke-width", compute: computeAttribute, apply: applyAttribute},
	Visibility:  {prefix: "data-rtmt-visibility", compute: computeAttribute, apply: applyAttribute},
	Text:        {prefix: "data-rtmt-text", compute: computeAttribute, apply: applyText},
	Transform:   {prefix: "data-rtmt-transform", compute: computeAttribute, apply: applyAttribute},
	Blink:       {prefix: "data-rtmt-blink", compute: computeBlink, apply: applyBlink},
	Rotate:      {prefix: "data-rtmt-rotate", compute: computeRotate, apply: applyRotate},
	Width:       {prefix: "data-rtmt-width", compute: computeAttribute, apply: applyAttribute},
	Height:      {prefix: "data-rtmt-height", compute: computeAttribute, apply: applyAttribute},
}

func (a Aspect) valid() bool { return a >= Fill && a <= Height }

func (a Aspect) String() string {
	if !a.valid() {
		return fmt.Sprintf("aspect(%d)", int(a))
	}
	return names[a]
}

// Prefix is the reserved attribute prefix that declares rules for a.
func (a Aspect) Prefix() string {
	if !a.valid() {
		return ""
	}
	return aspects[a].prefix
}

// ForAttribute returns the aspect whose prefix starts name. Prefixes are
// tried in evaluation order and the first match wins.
func ForAttribute(name string) (Aspect, bool) {
	for _, a := range Order {
		if strings.HasPrefix(name, aspects[a].prefix) {
			return a, true
		}
	}
	return 0, false
}

func computeAttribute(value string) (payload, error) {
	if value == NullSentinel {
		return payload{absent: true}, nil
	}
	return payload{value: value}, nil
}

func computeBlink(value string) (payload, error) {
	if value == NullSentinel || value == None {
		return payload{absent: true}, nil
	}
	values, err := colour.Blink(value)
	if err != nil {
		return payload{}, err
	}
	return payload{value: values}, nil
}

func computeRotate(value string) (payload, error) {
	if value == NullSentinel || value == None {
		return payload{absent: true}, nil
	}
	r, err := svgdom.ParseRotation(value)
	if err != nil {
		return payload{}, err
	}
	return payload{value: r.String(), rotation: r}, nil
}

func applyAttribute(m Mutation) {
	name := names[m.Aspect]
	if m.Absent {
		svgdom.RemoveAttribute(m.Target, name)
		return
	}
	svgdom.SetAttribute(m.Target, name, m.Value)
}

func applyText(m Mutation) {
	if m.Absent {
		svgdom.RemoveText(m.Target)
		return
	}
	svgdom.SetText(m.Target, m.Value)
}

func applyBlink(m Mutation) {
	if m.Absent {
		svgdom.RemoveBlink(m.Target)
		return
	}
	svgdom.SetBlink(m.Target, m.Value)
}

func applyRotate(m Mutation) {
	if m.Absent {
		svgdom.RemoveRotation(m.Target)
		return
	}
	svgdom.SetRotation(m.Target, m.rotation)
}
