package parser

import (
	"fmt"
	"strings"
)

// ParseError collects every problem found while parsing one rule.
type ParseError struct {
	Source   string
	Messages []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse rule %q: %s", e.Source, strings.Join(e.Messages, "; "))
}

type Parser struct {
	l *Lexer

	source string

	curToken  Token
	peekToken Token

	errors []string
}

func New(l *Lexer) *Parser {
	p := &Parser{
		l:      l,
		source: l.input,
		errors: []string{},
	}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Parse parses the trimmed rule text in one call.
func Parse(text string) (*Rule, error) {
	p := New(NewLexer(strings.TrimSpace(text)))
	rule := p.ParseRule()
	if len(p.Errors()) > 0 {
		return nil, &ParseError{Source: p.source, Messages: p.Errors()}
	}
	return rule, nil
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	if p.curToken.Type == ASSIGN {
		// The expression after := is free text; stop tokenising.
		p.peekToken = Token{Type: EOF, Position: len(p.source)}
		return
	}
	p.peekToken = p.l.NextToken()
}

// ParseRule parses "[condition ]:= expression". The condition must be
// "$member OPERATOR operand"; the expression is everything after the first
// unquoted ":=".
func (p *Parser) ParseRule() *Rule {
	rule := &Rule{Source: p.source}

	if !p.curTokenIs(ASSIGN) {
		rule.Condition = p.parseCondition()
		if rule.Condition == nil {
			return nil
		}
		if !p.expectPeek(ASSIGN) {
			return nil
		}
	}

	rule.Expression = strings.TrimSpace(p.source[p.curToken.Position+len(p.curToken.Literal):])
	return rule
}

func (p *Parser) parseCondition() *Condition {
	if !p.curTokenIs(MEMBER) {
		p.errors = append(p.errors, fmt.Sprintf(
			"left-hand side must be a $member reference, got %s %q at %d",
			p.curToken.Type, p.curToken.Literal, p.curToken.Position))
		return nil
	}
	left := &MemberRef{Token: p.curToken, Name: p.curToken.Literal}

	if !p.expectPeek(WORD) {
		return nil
	}
	cond := &Condition{Token: p.curToken, Left: left, Operator: p.curToken.Literal}

	p.nextToken()
	cond.Right = p.parseOperand()
	if cond.Right == nil {
		return nil
	}
	return cond
}

func (p *Parser) parseOperand() Operand {
	switch p.curToken.Type {
	case MEMBER:
		return &MemberRef{Token: p.curToken, Name: p.curToken.Literal}
	case WORD:
		return &Literal{Token: p.curToken, Value: p.curToken.Literal}
	case STRING:
		return &Literal{Token: p.curToken, Value: p.curToken.Literal, Quoted: true}
	default:
		p.errors = append(p.errors, fmt.Sprintf(
			"expected operand, got %s %q at %d",
			p.curToken.Type, p.curToken.Literal, p.curToken.Position))
		return nil
	}
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) peekError(t TokenType) {
	msg := fmt.Sprintf("expected next token to be %s, got %s %q at %d instead",
		t, p.peekToken.Type, p.peekToken.Literal, p.peekToken.Position)
	p.errors = append(p.errors, msg)
}
