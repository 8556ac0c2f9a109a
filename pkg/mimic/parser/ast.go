package parser

import (
	"bytes"
	"strconv"
)

type Node interface {
	TokenLiteral() string
	String() string
}

// Operand is either side of a condition.
type Operand interface {
	Node
	operandNode()
}

// Rule is one parsed binding attribute: an optional condition and the
// expression template applied when the condition holds.
type Rule struct {
	Source     string
	Condition  *Condition // nil for unconditional rules
	Expression string
}

func (r *Rule) TokenLiteral() string {
	if r.Condition != nil {
		return r.Condition.TokenLiteral()
	}
	return ":="
}

func (r *Rule) String() string {
	var out bytes.Buffer
	if r.Condition != nil {
		out.WriteString(r.Condition.String())
		out.WriteString(" ")
	}
	out.WriteString(":= ")
	out.WriteString(r.Expression)
	return out.String()
}

// Unconditional reports whether the rule always applies.
func (r *Rule) Unconditional() bool { return r.Condition == nil }

type Condition struct {
	Token    Token // the operator token
	Left     *MemberRef
	Operator string
	Right    Operand
}

func (c *Condition) TokenLiteral() string { return c.Token.Literal }
func (c *Condition) String() string {
	var out bytes.Buffer
	if c.Left != nil {
		out.WriteString(c.Left.String())
	}
	out.WriteString(" " + c.Operator + " ")
	if c.Right != nil {
		out.WriteString(c.Right.String())
	}
	return out.String()
}

type MemberRef struct {
	Token Token // the MEMBER token
	Name  string
}

func (m *MemberRef) operandNode()         {}
func (m *MemberRef) TokenLiteral() string { return m.Token.Literal }
func (m *MemberRef) String() string       { return "$" + m.Name }

type Literal struct {
	Token  Token // the WORD or STRING token
	Value  string
	Quoted bool
}

func (l *Literal) operandNode()         {}
func (l *Literal) TokenLiteral() string { return l.Token.Literal }
func (l *Literal) String() string {
	if l.Quoted {
		return strconv.Quote(l.Value)
	}
	return l.Value
}
