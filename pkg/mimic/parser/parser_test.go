package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerTokens(t *testing.T) {
	input := `$eng GTE "two words" 12.5 := $value`
	expected := []struct {
		typ     TokenType
		literal string
	}{
		{MEMBER, "eng"},
		{WORD, "GTE"},
		{STRING, "two words"},
		{WORD, "12.5"},
		{ASSIGN, ":="},
		{MEMBER, "value"},
		{EOF, ""},
	}

	l := NewLexer(input)
	for i, tt := range expected {
		tok := l.NextToken()
		assert.Equal(t, tt.typ, tok.Type, "token %d", i)
		assert.Equal(t, tt.literal, tok.Literal, "token %d", i)
	}
}

func TestLexerWordStopsAtAssign(t *testing.T) {
	l := NewLexer("RED:=x")
	tok := l.NextToken()
	assert.Equal(t, WORD, tok.Type)
	assert.Equal(t, "RED", tok.Literal)
	assert.Equal(t, ASSIGN, l.NextToken().Type)
}

func TestLexerIllegal(t *testing.T) {
	tok := NewLexer("$ EQ").NextToken()
	assert.Equal(t, ILLEGAL, tok.Type)

	tok = NewLexer(`"open`).NextToken()
	assert.Equal(t, ILLEGAL, tok.Type)
	assert.Equal(t, `"open`, tok.Literal)

	l := NewLexer("\x00x")
	tok = l.NextToken()
	assert.Equal(t, ILLEGAL, tok.Type)
	tok = l.NextToken()
	assert.Equal(t, WORD, tok.Type)
	assert.Equal(t, "x", tok.Literal)
}

func TestParseRules(t *testing.T) {
	tests := []struct {
		input      string
		condition  string
		expression string
	}{
		{":= RED", "", "RED"},
		{":=", "", ""},
		{"   :=   $value  ", "", "$value"},
		{"$v EQ 5 := RED", "$v EQ 5", "RED"},
		{"$v NQ $w:=#ff0000", "$v NQ $w", "#ff0000"},
		{`$alarm EQ "OUT OF LIMIT" := blink me := twice`, `$alarm EQ "OUT OF LIMIT"`, "blink me := twice"},
		{"$gentime GTE 2024-01-01T00:00:00Z := late", "$gentime GTE 2024-01-01T00:00:00Z", "late"},
		{"$v BETWEEN 5 := x", "$v BETWEEN 5", "x"},
		{"$alarm-state EQ ALARM := red", "$alarm-state EQ ALARM", "red"},
		{"$eng.unit NQ $raw-1:=x", "$eng.unit NQ $raw-1", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			rule, err := Parse(tt.input)
			require.NoError(t, err)

			if tt.condition == "" {
				assert.True(t, rule.Unconditional())
			} else {
				require.NotNil(t, rule.Condition)
				assert.Equal(t, tt.condition, rule.Condition.String())
			}
			assert.Equal(t, tt.expression, rule.Expression)
		})
	}
}

func TestParseConditionParts(t *testing.T) {
	rule, err := Parse(`$status EQ "ON"  := green`)
	require.NoError(t, err)

	cond := rule.Condition
	assert.Equal(t, "status", cond.Left.Name)
	assert.Equal(t, "EQ", cond.Operator)

	lit, ok := cond.Right.(*Literal)
	require.True(t, ok)
	assert.Equal(t, "ON", lit.Value)
	assert.True(t, lit.Quoted)
	assert.Equal(t, `$status EQ "ON" := green`, rule.String())

	rule, err = Parse("$a LTE $b := x")
	require.NoError(t, err)
	ref, ok := rule.Condition.Right.(*MemberRef)
	require.True(t, ok)
	assert.Equal(t, "b", ref.Name)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no assignment", "RED"},
		{"literal lhs", "5 EQ $v := RED"},
		{"missing operator", "$v := RED"},
		{"missing rhs", "$v EQ := RED"},
		{"missing assign after condition", "$v EQ 5 RED"},
		{"condition only", "$v EQ 5"},
		{"unterminated string", `$v EQ "5 := RED`},
		{"bare dollar", "$ EQ 5 := RED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := Parse(tt.input)
			require.Error(t, err)
			assert.Nil(t, rule)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.NotEmpty(t, perr.Messages)
		})
	}
}

func TestParseTemplate(t *testing.T) {
	names := []string{"eng", "engUnit", "raw", "value"}

	tmpl := ParseTemplate("$engUnit/$eng ($raw) $other $", names)
	assert.Equal(t, []string{"engUnit", "eng", "raw"}, tmpl.Members())
	assert.Equal(t, []TemplatePart{
		{Member: "engUnit"},
		{Text: "/"},
		{Member: "eng"},
		{Text: " ("},
		{Member: "raw"},
		{Text: ") $other $"},
	}, tmpl.Parts)

	tmpl = ParseTemplate("#ff0000", names)
	assert.Empty(t, tmpl.Members())
	assert.Equal(t, "#ff0000", tmpl.String())

	assert.Empty(t, ParseTemplate("", names).Parts)
}
