package colour

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected color.RGBA
	}{
		{"#f00", color.RGBA{R: 0xff, A: 0xff}},
		{"#00ff00", color.RGBA{G: 0xff, A: 0xff}},
		{"#0000ff80", color.RGBA{B: 0xff, A: 0x80}},
		{"#1234", color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x44}},
		{"rgb(10, 20, 30)", color.RGBA{R: 10, G: 20, B: 30, A: 0xff}},
		{"RGB(100%, 0%, 50%)", color.RGBA{R: 255, G: 0, B: 128, A: 0xff}},
		{"rgba(1,2,3,0)", color.RGBA{R: 1, G: 2, B: 3, A: 0}},
		{"red", color.RGBA{R: 0xff, A: 0xff}},
		{"  DarkOrange ", color.RGBA{R: 0xff, G: 0x8c, A: 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{"", "#12", "#ggg", "rgb(1,2)", "rgb(300,0,0)", "rgba(1,2,3,2)", "notacolour", "##NULL##"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidColour)
		})
	}
}

func TestDimRoundsHalfUp(t *testing.T) {
	d := Dim(color.RGBA{R: 255, G: 1, B: 0, A: 10})
	assert.Equal(t, color.RGBA{R: 128, G: 1, B: 0, A: 0xff}, d)
}

func TestBlinkValues(t *testing.T) {
	values, err := Blink("#FF0000")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000FF;#ff0000FF;#800000FF;#ff0000FF", values)

	values, err = Blink("white")
	require.NoError(t, err)
	assert.Equal(t, "#ffffffFF;#ffffffFF;#808080FF;#ffffffFF", values)
}
