package mimic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestResourceLimits(t *testing.T) {
	t.Run("MaxElementsLimit", testMaxElementsLimit)
	t.Run("MaxRuleLengthLimit", testMaxRuleLengthLimit)
	t.Run("MaxDocumentSizeLimit", testMaxDocumentSizeLimit)
	t.Run("DefaultLimits", testDefaultLimits)
	t.Run("InvalidLimits", testInvalidLimits)
}

func drawingWith(n int, rule string) string {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg">`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<rect data-rtmt-binding-id="P%d" data-rtmt-fill-color=%q/>`, i, rule)
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func testMaxElementsLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxElements = 3

	ok := NewController(&BytesSource{Data: []byte(drawingWith(3, ":= red"))},
		WithLimits(limits), WithLogger(quietLogger()))
	if err := ok.Initialise(context.Background()); err != nil {
		t.Fatalf("Expected drawing at the limit to load, got: %v", err)
	}

	tooMany := NewController(&BytesSource{Data: []byte(drawingWith(4, ":= red"))},
		WithLimits(limits), WithLogger(quietLogger()))
	err := tooMany.Initialise(context.Background())
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("Expected ErrLimitExceeded, got: %v", err)
	}
	if tooMany.Initialised() {
		t.Error("Controller should stay uninitialised when the element limit is exceeded")
	}
}

func testMaxRuleLengthLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxRuleLength = 16

	long := ":= " + strings.Repeat("a", 32)
	c := NewController(&BytesSource{Data: []byte(drawingWith(1, long))},
		WithLimits(limits), WithLogger(quietLogger()))
	if err := c.Initialise(context.Background()); err != nil {
		t.Fatalf("Oversized rules should be rejected, not fail the drawing: %v", err)
	}

	procs := c.ElementProcessors("P0")
	if len(procs) != 1 {
		t.Fatalf("Expected 1 element processor, got %d", len(procs))
	}
	if procs[0].Rules() != 0 {
		t.Errorf("Expected the oversized rule to be rejected, got %d rules", procs[0].Rules())
	}
}

func testMaxDocumentSizeLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxDocumentSize = 64

	c := NewController(&BytesSource{Data: []byte(drawingWith(5, ":= red"))},
		WithLimits(limits), WithLogger(quietLogger()))
	err := c.Initialise(context.Background())
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("Expected ErrLimitExceeded, got: %v", err)
	}
}

func testDefaultLimits(t *testing.T) {
	limits := DefaultLimits()

	if limits.MaxElements != 10000 {
		t.Errorf("Expected MaxElements to be 10000, got %d", limits.MaxElements)
	}
	if limits.MaxRuleLength != 4096 {
		t.Errorf("Expected MaxRuleLength to be 4096, got %d", limits.MaxRuleLength)
	}
	if limits.MaxDocumentSize != 16*1024*1024 {
		t.Errorf("Expected MaxDocumentSize to be 16MB, got %d", limits.MaxDocumentSize)
	}
	if err := limits.Validate(); err != nil {
		t.Errorf("Default limits should be valid: %v", err)
	}
}

func testInvalidLimits(t *testing.T) {
	for _, l := range []*Limits{
		{MaxElements: 0, MaxRuleLength: 1, MaxDocumentSize: 1},
		{MaxElements: 1, MaxRuleLength: -1, MaxDocumentSize: 1},
		{MaxElements: 1, MaxRuleLength: 1, MaxDocumentSize: 0},
	} {
		if err := l.Validate(); err == nil {
			t.Errorf("Expected %+v to be invalid", *l)
		}
	}
}
