package mimic

import (
	"github.com/beevik/etree"

	"github.com/chosenoffset/mimic/pkg/mimic/mutation"
)

// AttributeProcessor is one rule attribute of a bound element.
type AttributeProcessor struct {
	Name   string
	Aspect mutation.Aspect
	Rule   *CompiledRule

	target *etree.Element
}

func NewAttributeProcessor(target *etree.Element, aspect mutation.Aspect, name, value string, compiler *Compiler) (*AttributeProcessor, error) {
	rule, err := compiler.Compile(value)
	if err != nil {
		return nil, err
	}
	return &AttributeProcessor{
		Name:   name,
		Aspect: aspect,
		Rule:   rule,
		target: target,
	}, nil
}

// Test reports whether the rule applies to v.
func (p *AttributeProcessor) Test(v Values) (bool, error) {
	return p.Rule.Condition.Test(v)
}

// BuildUpdate computes the expression for v and returns the mutation it
// would make. Nothing is changed until the mutation is applied.
func (p *AttributeProcessor) BuildUpdate(v Values) (mutation.Mutation, error) {
	m, err := mutation.Build(p.target, p.Aspect, p.Rule.Expression.Compute(v))
	if err != nil {
		return mutation.Mutation{}, err
	}
	m.Source = p.Name
	return m, nil
}
