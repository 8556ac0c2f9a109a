// Package colour parses the colour notations accepted by blink rules and
// derives the keyframe values of the blink animation.
package colour

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

var ErrInvalidColour = errors.New("invalid colour")

// Parse accepts "#rgb", "#rgba", "#rrggbb", "#rrggbbaa", "rgb(r, g, b)",
// "rgba(r, g, b, a)" and CSS colour keywords. Alpha is parsed but kept only
// in the returned value; blink keyframes are always opaque.
func Parse(s string) (color.RGBA, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if in == "" {
		return color.RGBA{}, fmt.Errorf("%w: empty", ErrInvalidColour)
	}

	switch {
	case strings.HasPrefix(in, "#"):
		return parseHex(s, in[1:])
	case strings.HasPrefix(in, "rgba(") && strings.HasSuffix(in, ")"):
		return parseFunctional(s, in[len("rgba("):len(in)-1], 4)
	case strings.HasPrefix(in, "rgb(") && strings.HasSuffix(in, ")"):
		return parseFunctional(s, in[len("rgb("):len(in)-1], 3)
	}

	if c, ok := colornames.Map[in]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColour, s)
}

func parseHex(orig, digits string) (color.RGBA, error) {
	switch len(digits) {
	case 3, 4:
		expanded := make([]byte, 0, len(digits)*2)
		for i := 0; i < len(digits); i++ {
			expanded = append(expanded, digits[i], digits[i])
		}
		digits = string(expanded)
	case 6, 8:
	default:
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColour, orig)
	}

	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColour, orig)
	}
	if len(digits) == 6 {
		v = v<<8 | 0xff
	}
	return color.RGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

func parseFunctional(orig, args string, want int) (color.RGBA, error) {
	parts := strings.Split(args, ",")
	if len(parts) != want {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColour, orig)
	}

	var channels [3]uint8
	for i := 0; i < 3; i++ {
		c, ok := parseChannel(strings.TrimSpace(parts[i]))
		if !ok {
			return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColour, orig)
		}
		channels[i] = c
	}

	alpha := uint8(0xff)
	if want == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColour, orig)
		}
		alpha = uint8(math.Round(a * 255))
	}

	return color.RGBA{R: channels[0], G: channels[1], B: channels[2], A: alpha}, nil
}

func parseChannel(s string) (uint8, bool) {
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		f, err := strconv.ParseFloat(pct, 64)
		if err != nil || f < 0 || f > 100 {
			return 0, false
		}
		return uint8(math.Round(f * 255 / 100)), true
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 || n > 255 {
		return 0, false
	}
	return uint8(math.Round(n)), true
}

// Dim halves each colour channel, rounding half up.
func Dim(c color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8((uint16(c.R) + 1) / 2),
		G: uint8((uint16(c.G) + 1) / 2),
		B: uint8((uint16(c.B) + 1) / 2),
		A: 0xff,
	}
}

// Keyframe formats an opaque keyframe colour: lowercase rgb digits followed
// by a fixed "FF" alpha.
func Keyframe(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02xFF", c.R, c.G, c.B)
}

// BlinkValues returns the "values" list of the blink animation for base:
// base;base;dim;base.
func BlinkValues(base color.RGBA) string {
	b := Keyframe(base)
	return strings.Join([]string{b, b, Keyframe(Dim(base)), b}, ";")
}

// Blink parses s and returns its blink animation values.
func Blink(s string) (string, error) {
	c, err := Parse(s)
	if err != nil {
		return "", err
	}
	return BlinkValues(c), nil
}
