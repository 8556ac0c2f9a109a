package parser

import (
	"sort"
	"strings"
)

// TemplatePart is either literal text or a member placeholder.
type TemplatePart struct {
	Text   string
	Member string
}

// IsMember reports whether the part is a placeholder.
func (tp TemplatePart) IsMember() bool { return tp.Member != "" }

// Template is an expression split into literal text and $member placeholders.
type Template struct {
	Source string
	Parts  []TemplatePart
}

func (t *Template) String() string { return t.Source }

// Members returns the placeholder names in order of appearance.
func (t *Template) Members() []string {
	var out []string
	for _, part := range t.Parts {
		if part.IsMember() {
			out = append(out, part.Member)
		}
	}
	return out
}

// ParseTemplate splits text at every "$name" where name is one of the
// declared names. When several declared names match at the same position the
// longest one is taken. Anything else, including "$" followed by an
// undeclared name, stays literal text.
func ParseTemplate(text string, names []string) *Template {
	candidates := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			candidates = append(candidates, n)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) > len(candidates[j])
	})

	t := &Template{Source: text}
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			t.Parts = append(t.Parts, TemplatePart{Text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(text); {
		if text[i] == '$' {
			if name := matchName(text[i+1:], candidates); name != "" {
				flush()
				t.Parts = append(t.Parts, TemplatePart{Member: name})
				i += 1 + len(name)
				continue
			}
		}
		literal.WriteByte(text[i])
		i++
	}
	flush()

	return t
}

func matchName(rest string, candidates []string) string {
	for _, name := range candidates {
		if strings.HasPrefix(rest, name) {
			return name
		}
	}
	return ""
}
