package mimic

import (
	"fmt"
	"strings"

	"github.com/chosenoffset/mimic/pkg/mimic/parser"
)

// DefaultProperties are the members of a telemetry object that expressions
// may reference as $name.
var DefaultProperties = []string{
	"internalId", "gentime", "externalId", "path", "eng", "raw",
	"rcptime", "route", "validity", "alarm", "value",
}

type comparator func(left, right Object) bool

// defaultOperators keeps LT and GT permanently false, the behaviour existing
// mimic drawings were authored against.
var defaultOperators = map[string]comparator{
	"EQ":  Equal,
	"NQ":  notEqual,
	"LTE": lessOrEqual,
	"GTE": greaterOrEqual,
	"LT":  never,
	"GT":  never,
}

var strictOperators = map[string]comparator{
	"EQ":  Equal,
	"NQ":  notEqual,
	"LTE": lessOrEqual,
	"GTE": greaterOrEqual,
	"LT":  less,
	"GT":  greater,
}

func notEqual(left, right Object) bool { return !Equal(left, right) }

func less(left, right Object) bool {
	c, ok := Compare(left, right)
	return ok && c < 0
}

func greater(left, right Object) bool {
	c, ok := Compare(left, right)
	return ok && c > 0
}

func lessOrEqual(left, right Object) bool    { return Equal(left, right) || less(left, right) }
func greaterOrEqual(left, right Object) bool { return Equal(left, right) || greater(left, right) }
func never(Object, Object) bool              { return false }

// Extractor yields one side of a condition.
type Extractor interface {
	Extract(v Values) Object
	String() string
}

// MemberExtractor reads a member of the telemetry object.
type MemberExtractor struct {
	Name string
}

func (m *MemberExtractor) Extract(v Values) Object { return v.Get(m.Name) }
func (m *MemberExtractor) String() string          { return "$" + m.Name }

// FixedExtractor returns a literal coerced at compile time.
type FixedExtractor struct {
	Value Object
	Text  string
}

func (f *FixedExtractor) Extract(Values) Object { return f.Value }
func (f *FixedExtractor) String() string        { return f.Text }

type Condition interface {
	Test(v Values) (bool, error)
	String() string
}

type AlwaysTrue struct{}

func (AlwaysTrue) Test(Values) (bool, error) { return true, nil }
func (AlwaysTrue) String() string            { return "true" }

// Comparison applies an operator to two extracted values.
type Comparison struct {
	Left     Extractor
	Operator string
	Right    Extractor
	compare  comparator
}

func (c *Comparison) Test(v Values) (bool, error) {
	if c.compare == nil {
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, c.Operator)
	}
	return c.compare(c.Left.Extract(v), c.Right.Extract(v)), nil
}

func (c *Comparison) String() string {
	return c.Left.String() + " " + c.Operator + " " + c.Right.String()
}

// Expression fills $member placeholders of a template with member values.
type Expression struct {
	template *parser.Template
}

func (e *Expression) Compute(v Values) string {
	var out strings.Builder
	for _, part := range e.template.Parts {
		if part.IsMember() {
			out.WriteString(v.Get(part.Member).Inspect())
			continue
		}
		out.WriteString(part.Text)
	}
	return out.String()
}

func (e *Expression) String() string { return e.template.Source }

// CompiledRule is a rule ready for evaluation. It is immutable.
type CompiledRule struct {
	Source     string
	Condition  Condition
	Expression *Expression
}

type Compiler struct {
	properties    []string
	operators     map[string]comparator
	maxRuleLength int
}

type CompilerOption func(*Compiler)

// WithProperties replaces the member names expressions may substitute.
func WithProperties(names ...string) CompilerOption {
	return func(c *Compiler) {
		c.properties = append([]string(nil), names...)
	}
}

// WithStrictOrdering makes LT and GT real comparisons.
func WithStrictOrdering() CompilerOption {
	return func(c *Compiler) {
		c.operators = strictOperators
	}
}

// WithMaxRuleLength rejects rules longer than n bytes. Zero disables the
// check.
func WithMaxRuleLength(n int) CompilerOption {
	return func(c *Compiler) {
		c.maxRuleLength = n
	}
}

func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		properties: append([]string(nil), DefaultProperties...),
		operators:  defaultOperators,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Compiler) Properties() []string {
	return append([]string(nil), c.properties...)
}

// Compile parses and compiles one rule. A condition with an operator the
// compiler does not know still compiles; it fails each time it is tested.
func (c *Compiler) Compile(text string) (*CompiledRule, error) {
	if c.maxRuleLength > 0 && len(text) > c.maxRuleLength {
		return nil, fmt.Errorf("%w: rule is %d bytes, maximum %d", ErrLimitExceeded, len(text), c.maxRuleLength)
	}

	rule, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}

	compiled := &CompiledRule{
		Source:     rule.Source,
		Condition:  AlwaysTrue{},
		Expression: &Expression{template: parser.ParseTemplate(rule.Expression, c.properties)},
	}
	if rule.Condition != nil {
		compiled.Condition = c.compileCondition(rule.Condition)
	}
	return compiled, nil
}

func (c *Compiler) compileCondition(cond *parser.Condition) *Comparison {
	return &Comparison{
		Left:     &MemberExtractor{Name: cond.Left.Name},
		Operator: cond.Operator,
		Right:    compileOperand(cond.Right),
		compare:  c.operators[cond.Operator],
	}
}

func compileOperand(op parser.Operand) Extractor {
	switch o := op.(type) {
	case *parser.MemberRef:
		return &MemberExtractor{Name: o.Name}
	case *parser.Literal:
		if o.Quoted {
			return &FixedExtractor{Value: &String{Value: o.Value}, Text: o.String()}
		}
		return &FixedExtractor{Value: Coerce(o.Value), Text: o.Value}
	default:
		return &FixedExtractor{Value: absent, Text: ""}
	}
}
