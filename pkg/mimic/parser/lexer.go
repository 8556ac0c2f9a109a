package parser

type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Operands
	MEMBER // $name
	WORD   // bare literal or operator keyword
	STRING // "quoted literal"

	// Delimiters
	ASSIGN // :=
)

type Token struct {
	Type     TokenType
	Literal  string
	Position int
}

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken returns the next token of the condition part of a rule. The text
// following an ASSIGN token is free text and is not meant to be tokenised.
func (l *Lexer) NextToken() Token {
	var tok Token

	l.skipWhitespace()

	tok.Position = l.position

	switch {
	case l.ch == 0 && l.position >= len(l.input):
		tok.Type = EOF
		tok.Literal = ""
		return tok
	case l.ch == ':' && l.peekChar() == '=':
		l.readChar()
		l.readChar()
		tok.Type = ASSIGN
		tok.Literal = ":="
		return tok
	case l.ch == '$':
		l.readChar()
		name := l.readName()
		if name == "" {
			tok.Type = ILLEGAL
			tok.Literal = "$"
			return tok
		}
		tok.Type = MEMBER
		tok.Literal = name
		return tok
	case l.ch == '"':
		literal, ok := l.readString()
		if !ok {
			tok.Type = ILLEGAL
			tok.Literal = `"` + literal
			return tok
		}
		tok.Type = STRING
		tok.Literal = literal
		return tok
	default:
		word := l.readWord()
		if word == "" {
			tok.Type = ILLEGAL
			tok.Literal = string(l.ch)
			l.readChar()
			return tok
		}
		tok.Type = WORD
		tok.Literal = word
		return tok
	}
}

// readName reads a member name: everything up to whitespace or an ASSIGN,
// so names such as alarm-state or eng.unit need no quoting.
func (l *Lexer) readName() string {
	position := l.position
	for l.ch != 0 && !isWhitespace(l.ch) && !(l.ch == ':' && l.peekChar() == '=') {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readWord() string {
	position := l.position
	for l.ch != 0 && !isWhitespace(l.ch) && l.ch != '"' && !(l.ch == ':' && l.peekChar() == '=') {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readString() (string, bool) {
	position := l.position + 1
	for {
		l.readChar()
		if l.ch == '"' || l.ch == 0 {
			break
		}
	}
	if l.ch != '"' {
		return l.input[position:l.position], false
	}
	literal := l.input[position:l.position]
	l.readChar()
	return literal, true
}

func (l *Lexer) skipWhitespace() {
	for isWhitespace(l.ch) {
		l.readChar()
	}
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func (t TokenType) String() string {
	switch t {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case MEMBER:
		return "MEMBER"
	case WORD:
		return "WORD"
	case STRING:
		return "STRING"
	case ASSIGN:
		return ":="
	default:
		return "UNKNOWN"
	}
}
