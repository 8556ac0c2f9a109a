// Package mimic drives SVG "mimic" diagrams from telemetry.
//
// # Overview
//
// A mimic is an SVG drawing whose elements carry declarative rules. An element
// is bound to a parameter with the data-rtmt-binding-id attribute; each rule
// attribute drives one visual aspect of it (fill, stroke, stroke width,
// visibility, text, transform, blink, rotate, width, height). When a batch of
// telemetry objects arrives, the controller evaluates the rules of every
// element bound to a key of the batch and applies the resulting changes to
// the drawing.
//
// # Quick Start
//
//	ctrl := mimic.NewController(mimic.SourceFor("plant.svg", 0))
//	if err := ctrl.Initialise(ctx); err != nil {
//		return err
//	}
//	defer ctrl.Dispose()
//
//	err := ctrl.Update(mimic.Batch{
//		"PLANT.TANK1.LEVEL": {"eng": 42.5, "validity": "VALID", "alarm": "NOMINAL"},
//	})
//	svg, _ := ctrl.Render()
//
// # Rules
//
// A rule attribute holds
//
//	[$member OPERATOR operand ]:= expression
//
// The condition compares a member of the telemetry object with a literal or
// another member. Operators are EQ, NQ, LT, LTE, GT and GTE; LT and GT are
// always false unless the compiler is built WithStrictOrdering. Unquoted
// literals are typed: "##NULL##" is no value, ISO-8601 UTC instants are
// timestamps, true and false are booleans, numbers are numbers. A
// double-quoted literal is always a string.
//
// The expression is a template; $name is replaced with the member value for
// every declared property name (DefaultProperties unless WithProperties is
// used). An expression that evaluates to "##NULL##" removes the attribute,
// text or animation. For blink and rotate, "none" does the same.
//
//	<rect data-rtmt-binding-id="PLANT.PUMP1.STATUS"
//	      data-rtmt-fill-color-1="$eng EQ ON := #00ff00"
//	      data-rtmt-fill-color-2=":= #808080"
//	      data-rtmt-blink="$alarm EQ ALARM := red"
//	      data-rtmt-blink-z=":= none"/>
//
// Rules of one aspect are tried in attribute-name order and the first whose
// condition holds wins. When none holds the aspect is left as it is.
//
// # Concurrency
//
// Controller methods are serialised. Evaluation of a whole batch happens
// before any element is changed.
package mimic
