package mimic

import (
	"errors"
	"fmt"
	"sort"

	"github.com/beevik/etree"

	"github.com/chosenoffset/mimic/pkg/mimic/mutation"
)

// ElementProcessor holds the rules of one bound element, grouped by aspect
// and sorted by attribute name. It refers to the element but does not own it.
type ElementProcessor struct {
	Binding string

	target     *etree.Element
	compiler   *Compiler
	processors map[mutation.Aspect][]*AttributeProcessor
}

func NewElementProcessor(binding string, target *etree.Element, compiler *Compiler) *ElementProcessor {
	return &ElementProcessor{
		Binding:    binding,
		target:     target,
		compiler:   compiler,
		processors: make(map[mutation.Aspect][]*AttributeProcessor),
	}
}

func (e *ElementProcessor) Element() *etree.Element { return e.target }

// Processors returns the rules driving aspect, in evaluation order.
func (e *ElementProcessor) Processors(aspect mutation.Aspect) []*AttributeProcessor {
	return e.processors[aspect]
}

// Rules returns the number of compiled rules on the element.
func (e *ElementProcessor) Rules() int {
	n := 0
	for _, list := range e.processors {
		n += len(list)
	}
	return n
}

// Initialise compiles every rule attribute of the element. Rules that fail
// to compile are left out and reported together; the rest are usable.
func (e *ElementProcessor) Initialise() error {
	var errs []error
	for _, attr := range e.target.Attr {
		name := attr.FullKey()
		aspect, ok := mutation.ForAttribute(name)
		if !ok {
			continue
		}
		p, err := NewAttributeProcessor(e.target, aspect, name, attr.Value, e.compiler)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		e.processors[aspect] = append(e.processors[aspect], p)
	}

	for _, list := range e.processors {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Name < list[j].Name
		})
	}
	return errors.Join(errs...)
}

// BuildUpdate evaluates the element against one telemetry object. For each
// aspect the first rule whose condition holds produces the mutation; an
// aspect with no matching rule is left alone. A failure is reported for its
// aspect only.
func (e *ElementProcessor) BuildUpdate(v Values) (mutation.Batch, error) {
	var batch mutation.Batch
	var errs []error

	for _, aspect := range mutation.Order {
		list := e.processors[aspect]
		if len(list) == 0 {
			continue
		}
		m, matched, err := e.buildAspect(list, v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if matched {
			batch = append(batch, m)
		}
	}
	return batch, errors.Join(errs...)
}

func (e *ElementProcessor) buildAspect(list []*AttributeProcessor, v Values) (m mutation.Mutation, matched bool, err error) {
	current := list[0]
	defer func() {
		if rec := recover(); rec != nil {
			err = e.evaluationError(current, fmt.Errorf("panic: %v", rec))
			matched = false
		}
	}()

	for _, p := range list {
		current = p
		ok, err := p.Test(v)
		if err != nil {
			return mutation.Mutation{}, false, e.evaluationError(p, err)
		}
		if !ok {
			continue
		}
		m, err := p.BuildUpdate(v)
		if err != nil {
			return mutation.Mutation{}, false, e.evaluationError(p, err)
		}
		m.Binding = e.Binding
		return m, true, nil
	}
	return mutation.Mutation{}, false, nil
}

func (e *ElementProcessor) evaluationError(p *AttributeProcessor, err error) *EvaluationError {
	return &EvaluationError{
		Binding:   e.Binding,
		Attribute: p.Name,
		Aspect:    p.Aspect,
		Err:       err,
	}
}
