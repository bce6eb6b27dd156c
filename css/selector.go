package css

import (
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// legacy pseudo-elements may be written with a single colon.
var legacyPseudoElements = map[string]bool{
	"before":       true,
	"after":        true,
	"first-line":   true,
	"first-letter": true,
}

// parseSelectorList splits a prelude on top level commas and parses every
// selector.
func parseSelectorList(tokens []css.Token) ([]Selector, error) {
	var (
		out   []Selector
		depth int
		start int
	)
	for i, t := range tokens {
		switch t.TokenType {
		case css.LeftBracketToken, css.LeftParenthesisToken, css.FunctionToken:
			depth++
		case css.RightBracketToken, css.RightParenthesisToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				sel, err := parseSelector(tokens[start:i])
				if err != nil {
					return nil, err
				}
				out = append(out, sel)
				start = i + 1
			}
		}
	}
	if start < len(tokens) || len(out) > 0 {
		sel, err := parseSelector(tokens[start:])
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}

type selectorScanner struct {
	tokens []css.Token
	pos    int
}

func (s *selectorScanner) done() bool {
	return s.pos >= len(s.tokens)
}

func (s *selectorScanner) peek() css.Token {
	return s.tokens[s.pos]
}

func (s *selectorScanner) next() (css.Token, bool) {
	if s.done() {
		return css.Token{}, false
	}
	t := s.tokens[s.pos]
	s.pos++
	return t, true
}

func (s *selectorScanner) skipSpace() {
	for !s.done() && isSpace(s.peek()) {
		s.pos++
	}
}

// parseSelector builds a complex selector from its tokens.
func parseSelector(tokens []css.Token) (Selector, error) {
	sel := Selector{Raw: joinTokens(tokens)}
	if sel.Raw == "" {
		return sel, parseErrorf("empty selector")
	}

	s := &selectorScanner{tokens: tokens}
	pending := ""
	for !s.done() {
		t := s.peek()
		if isSpace(t) {
			s.pos++
			if len(sel.Compounds) > 0 && pending == "" {
				pending = " "
			}
			continue
		}
		if d := string(t.Data); t.TokenType == css.DelimToken && (d == ">" || d == "+" || d == "~") {
			if len(sel.Compounds) == 0 || (pending != "" && pending != " ") {
				return sel, parseErrorf("misplaced combinator in %q", sel.Raw)
			}
			pending = d
			s.pos++
			continue
		}

		simple, err := s.simple(sel.Raw)
		if err != nil {
			return sel, err
		}
		if len(sel.Compounds) == 0 || pending != "" {
			sel.Compounds = append(sel.Compounds, Compound{Combinator: pending})
			pending = ""
		}
		c := &sel.Compounds[len(sel.Compounds)-1]
		if (simple.Kind == TypeSelector || simple.Kind == UniversalSelector) && len(c.Simples) > 0 {
			return sel, parseErrorf("type selector must come first in %q", sel.Raw)
		}
		c.Simples = append(c.Simples, simple)
	}
	if pending != "" && pending != " " {
		return sel, parseErrorf("dangling combinator in %q", sel.Raw)
	}
	return sel, nil
}

func (s *selectorScanner) simple(raw string) (Simple, error) {
	t, _ := s.next()
	switch t.TokenType {
	case css.IdentToken:
		return Simple{Kind: TypeSelector, Name: string(t.Data)}, nil

	case css.HashToken:
		return Simple{Kind: IDSelector, Name: string(t.Data[1:])}, nil

	case css.DelimToken:
		switch string(t.Data) {
		case "*":
			return Simple{Kind: UniversalSelector, Name: "*"}, nil
		case ".":
			if n, ok := s.next(); ok && n.TokenType == css.IdentToken {
				return Simple{Kind: ClassSelector, Name: string(n.Data)}, nil
			}
		}

	case css.LeftBracketToken:
		return s.attribute(raw)

	case css.ColonToken:
		n, ok := s.next()
		if !ok {
			break
		}
		switch n.TokenType {
		case css.ColonToken:
			if e, ok := s.next(); ok && e.TokenType == css.IdentToken {
				return Simple{Kind: PseudoElement, Name: strings.ToLower(string(e.Data))}, nil
			}
		case css.IdentToken:
			name := strings.ToLower(string(n.Data))
			if legacyPseudoElements[name] {
				return Simple{Kind: PseudoElement, Name: name}, nil
			}
			return Simple{Kind: PseudoClass, Name: name}, nil
		case css.FunctionToken:
			name := strings.ToLower(strings.TrimSuffix(string(n.Data), "("))
			args, err := s.arguments(raw)
			if err != nil {
				return Simple{}, err
			}
			return Simple{Kind: PseudoClass, Name: name, Value: args, HasArgs: true}, nil
		}
	}
	return Simple{}, parseErrorf("unexpected %s %q in selector %q", t.TokenType, t.Data, raw)
}

// arguments collects the tokens of a functional pseudo-class up to the
// matching parenthesis.
func (s *selectorScanner) arguments(raw string) (string, error) {
	start, depth := s.pos, 1
	for {
		t, ok := s.next()
		if !ok {
			return "", parseErrorf("unterminated pseudo-class in %q", raw)
		}
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			depth--
			if depth == 0 {
				return joinTokens(s.tokens[start : s.pos-1]), nil
			}
		}
	}
}

var attributeMatchers = map[css.TokenType]string{
	css.IncludeMatchToken:   "~=",
	css.DashMatchToken:      "|=",
	css.PrefixMatchToken:    "^=",
	css.SuffixMatchToken:    "$=",
	css.SubstringMatchToken: "*=",
}

// attribute parses [name], [name op value] and [name op value flag].
func (s *selectorScanner) attribute(raw string) (Simple, error) {
	bad := parseErrorf("malformed attribute selector in %q", raw)
	sim := Simple{Kind: AttributeSelector}

	s.skipSpace()
	name, ok := s.next()
	if !ok || name.TokenType != css.IdentToken {
		return sim, bad
	}
	sim.Name = string(name.Data)

	s.skipSpace()
	t, ok := s.next()
	if !ok {
		return sim, bad
	}
	if t.TokenType == css.RightBracketToken {
		return sim, nil
	}
	switch {
	case t.TokenType == css.DelimToken && string(t.Data) == "=":
		sim.Matcher = "="
	case attributeMatchers[t.TokenType] != "":
		sim.Matcher = attributeMatchers[t.TokenType]
	default:
		return sim, bad
	}

	s.skipSpace()
	v, ok := s.next()
	if !ok {
		return sim, bad
	}
	switch v.TokenType {
	case css.StringToken:
		sim.Value = unquote(string(v.Data))
	case css.IdentToken, css.NumberToken, css.DimensionToken:
		sim.Value = string(v.Data)
	default:
		return sim, bad
	}

	s.skipSpace()
	if !s.done() && s.peek().TokenType == css.IdentToken {
		sim.Flag = strings.ToLower(string(s.peek().Data))
		s.pos++
		s.skipSpace()
	}
	if t, ok := s.next(); !ok || t.TokenType != css.RightBracketToken {
		return sim, bad
	}
	return sim, nil
}
