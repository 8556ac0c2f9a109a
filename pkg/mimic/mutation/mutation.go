// Package mutation holds the deferred DOM changes produced by evaluating
// mimic rules and the registry that applies them.
package mutation

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"

	"github.com/chosenoffset/mimic/pkg/mimic/svgdom"
)

var ErrInvalidAspect = errors.New("invalid aspect")

// Mutation is one pending change to one aspect of one element. A zero
// Value with Absent set removes the attribute, text node or animation.
type Mutation struct {
	Target  *etree.Element
	Binding string
	Source  string // attribute holding the rule that produced it
	Aspect  Aspect
	Value   string
	Absent  bool

	rotation svgdom.Rotation
}

// Build checks a computed value for aspect and returns the mutation that
// would apply it to target.
func Build(target *etree.Element, aspect Aspect, computed string) (Mutation, error) {
	if !aspect.valid() {
		return Mutation{}, fmt.Errorf("%w: %d", ErrInvalidAspect, int(aspect))
	}
	p, err := aspects[aspect].compute(computed)
	if err != nil {
		return Mutation{}, err
	}
	return Mutation{
		Target:   target,
		Aspect:   aspect,
		Value:    p.value,
		Absent:   p.absent,
		rotation: p.rotation,
	}, nil
}

// Apply performs the change on the target element.
func (m Mutation) Apply() error {
	if m.Target == nil {
		return errors.New("mutation has no target element")
	}
	if !m.Aspect.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAspect, int(m.Aspect))
	}
	aspects[m.Aspect].apply(m)
	return nil
}

func (m Mutation) String() string {
	if m.Absent {
		return fmt.Sprintf("%s: remove", m.Aspect)
	}
	return fmt.Sprintf("%s: %q", m.Aspect, m.Value)
}

// Batch is the ordered set of mutations computed for one update cycle.
type Batch []Mutation

// Count returns the number of mutations per aspect.
func (b Batch) Count() map[Aspect]int {
	out := make(map[Aspect]int)
	for _, m := range b {
		out[m.Aspect]++
	}
	return out
}
