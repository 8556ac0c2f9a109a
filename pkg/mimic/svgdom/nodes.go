package svgdom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

var ErrInvalidRotation = errors.New("invalid rotation")

func SetAttribute(el *etree.Element, name, value string) {
	el.CreateAttr(name, value)
}

func RemoveAttribute(el *etree.Element, name string) {
	el.RemoveAttr(name)
}

// FirstText returns the first direct text child of el, or nil.
func FirstText(el *etree.Element) *etree.CharData {
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok && !cd.IsCData() {
			return cd
		}
	}
	return nil
}

// SetText replaces the content of the first direct text child, or inserts
// one as the first child when there is none.
func SetText(el *etree.Element, text string) {
	if cd := FirstText(el); cd != nil {
		cd.SetData(text)
		return
	}
	el.InsertChildAt(0, etree.NewText(text))
}

// RemoveText removes the first direct text child, if any.
func RemoveText(el *etree.Element) {
	if cd := FirstText(el); cd != nil {
		el.RemoveChild(cd)
	}
}

func firstChild(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

// SetBlink drives the fill animation of el with the given keyframe values.
// An existing animate child is updated in place.
func SetBlink(el *etree.Element, values string) {
	anim := firstChild(el, "animate")
	if anim == nil {
		anim = etree.NewElement("animate")
		anim.CreateAttr("attributeType", "XML")
		anim.CreateAttr("attributeName", "fill")
		anim.CreateAttr("dur", "1.0s")
		anim.CreateAttr("repeatCount", "indefinite")
		el.InsertChildAt(0, anim)
	}
	anim.CreateAttr("values", values)
}

func RemoveBlink(el *etree.Element) {
	if anim := firstChild(el, "animate"); anim != nil {
		el.RemoveChild(anim)
	}
}

// Rotation is a continuous rotation around a centre point.
type Rotation struct {
	Duration string // milliseconds
	CX       string
	CY       string
}

// ParseRotation parses "duration centerX centerY".
func ParseRotation(s string) (Rotation, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Rotation{}, fmt.Errorf("%w: %q: want \"duration centerX centerY\"", ErrInvalidRotation, s)
	}
	if d, err := strconv.ParseFloat(fields[0], 64); err != nil || d < 0 {
		return Rotation{}, fmt.Errorf("%w: %q: bad duration", ErrInvalidRotation, s)
	}
	for _, f := range fields[1:] {
		if _, err := strconv.ParseFloat(f, 64); err != nil {
			return Rotation{}, fmt.Errorf("%w: %q: bad centre %q", ErrInvalidRotation, s, f)
		}
	}
	return Rotation{Duration: fields[0], CX: fields[1], CY: fields[2]}, nil
}

func (r Rotation) String() string {
	return r.Duration + " " + r.CX + " " + r.CY
}

// SetRotation drives the rotate animation of el. An existing
// animateTransform child is updated in place.
func SetRotation(el *etree.Element, r Rotation) {
	anim := firstChild(el, "animateTransform")
	if anim == nil {
		anim = etree.NewElement("animateTransform")
		anim.CreateAttr("attributeType", "XML")
		anim.CreateAttr("attributeName", "transform")
		anim.CreateAttr("type", "rotate")
		anim.CreateAttr("repeatCount", "indefinite")
		el.InsertChildAt(0, anim)
	}
	anim.CreateAttr("from", "0 "+r.CX+" "+r.CY)
	anim.CreateAttr("to", "360 "+r.CX+" "+r.CY)
	anim.CreateAttr("dur", r.Duration+"ms")
}

func RemoveRotation(el *etree.Element) {
	if anim := firstChild(el, "animateTransform"); anim != nil {
		el.RemoveChild(anim)
	}
}
