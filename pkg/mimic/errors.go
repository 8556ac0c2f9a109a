package mimic

import (
	"errors"
	"fmt"

	"github.com/chosenoffset/mimic/pkg/mimic/colour"
	"github.com/chosenoffset/mimic/pkg/mimic/mutation"
	"github.com/chosenoffset/mimic/pkg/mimic/svgdom"
)

var (
	ErrUnknownOperator = errors.New("unknown operator")
	ErrInvalidColour   = colour.ErrInvalidColour
	ErrInvalidRotation = svgdom.ErrInvalidRotation
	ErrFetchStatus     = errors.New("unexpected response status")
	ErrNotInitialised  = errors.New("mimic not initialised")
	ErrLimitExceeded   = errors.New("limit exceeded")
	ErrDisposed        = errors.New("mimic disposed while loading")
)

// EvaluationError reports a rule that failed while an update was evaluated
// or applied. Other aspects, elements and bindings are unaffected.
type EvaluationError struct {
	Binding   string
	Attribute string
	Aspect    mutation.Aspect
	Err       error
}

func (e *EvaluationError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("evaluation error for binding '%s' aspect '%s': %v",
			e.Binding, e.Aspect, e.Err)
	}
	return fmt.Sprintf("evaluation error for binding '%s' aspect '%s' rule '%s': %v",
		e.Binding, e.Aspect, e.Attribute, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
