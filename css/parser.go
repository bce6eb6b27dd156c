package css

import (
	"errors"
	"io"
	"slices"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses <style> contents and style attributes.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// mediaContext turns a media attribute into an at-rule context. Empty and
// "all" mean no context.
func mediaContext(media string) string {
	media = strings.TrimSpace(media)
	if media == "" || strings.EqualFold(media, "all") {
		return ""
	}
	return "media " + media
}

// grammarErr converts a parser error into ParseError, end of input is not an
// error.
func grammarErr(parser *css.Parser) error {
	if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
		return &ParseError{Msg: "malformed stylesheet", Err: err}
	}
	return nil
}

// ParseStylesheet parses the text of a <style> element into rule sets in
// document order. The media attribute of the element, if any, becomes the
// at-rule context of every top level rule. Any construct which cannot be
// handled is reported as *ParseError and nothing is returned.
func (p *Parser) ParseStylesheet(text, media string) ([]RuleSet, error) {
	outer := mediaContext(media)
	parser := css.NewParser(parse.NewInputString(text), false)

	var (
		sets      []RuleSet
		current   []Rule
		selectors []Selector
	)
	flush := func() {
		if len(current) > 0 {
			sets = append(sets, RuleSet{AtRule: outer, Rules: current})
			current = nil
		}
	}

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := grammarErr(parser); err != nil {
				return nil, err
			}
			flush()
			p.log.Debug("Parsed stylesheet", zap.Int("bytes", len(text)), zap.Int("rule sets", len(sets)), zap.String("media", outer))
			return sets, nil

		case css.QualifiedRuleGrammar:
			sels, err := parseSelectorList(parser.Values())
			if err != nil {
				return nil, err
			}
			selectors = append(selectors, sels...)

		case css.BeginRulesetGrammar:
			sels, err := parseSelectorList(parser.Values())
			if err != nil {
				return nil, err
			}
			rules, err := p.parseRuleset(parser, append(selectors, sels...), outer)
			if err != nil {
				return nil, err
			}
			current = append(current, rules...)
			selectors = nil

		case css.BeginAtRuleGrammar:
			name := atRuleName(data)
			switch {
			case isKeyframes(name):
				p.skipAtRuleBlock(parser)
				p.log.Debug("Skipping @-rule", zap.String("rule", name))
			case name == "media":
				if outer != "" {
					return nil, parseErrorf("@media inside <style media=%q>", strings.TrimSpace(media))
				}
				flush()
				atRule := "media " + joinTokens(parser.Values())
				rules, err := p.parseMediaBlockRules(parser, atRule)
				if err != nil {
					return nil, err
				}
				if len(rules) > 0 {
					sets = append(sets, RuleSet{AtRule: atRule, Rules: rules})
				}
			default:
				return nil, parseErrorf("unsupported at-rule @%s", name)
			}

		case css.AtRuleGrammar:
			return nil, parseErrorf("unsupported at-rule @%s", atRuleName(data))
		}
	}
}

// ParseStyleDeclarations parses the content of a style attribute.
func (p *Parser) ParseStyleDeclarations(text string) ([]Declaration, error) {
	parser := css.NewParser(parse.NewInputString(text), true)
	return p.parseDeclarations(parser)
}

// parseRuleset reads the declaration block of a ruleset and creates one rule
// per selector.
func (p *Parser) parseRuleset(parser *css.Parser, selectors []Selector, atRule string) ([]Rule, error) {
	decls, err := p.parseDeclarations(parser)
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, 0, len(selectors))
	for _, sel := range selectors {
		rules = append(rules, Rule{
			Selector:     sel,
			Declarations: slices.Clone(decls),
			AtRule:       atRule,
			Dynamic:      atRule != "" || sel.HasPseudo(),
		})
	}
	return rules, nil
}

// parseDeclarations parses property declarations until the end of the block.
func (p *Parser) parseDeclarations(parser *css.Parser) ([]Declaration, error) {
	var decls []Declaration

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := grammarErr(parser); err != nil {
				return nil, err
			}
			return decls, nil

		case css.EndRulesetGrammar:
			return decls, nil

		case css.DeclarationGrammar:
			if values := parser.Values(); len(values) > 0 {
				decls = append(decls, makeDeclaration(data, values))
			}

		case css.CustomPropertyGrammar:
			decls = append(decls, Declaration{Name: string(data), Value: strings.TrimSpace(joinTokens(parser.Values()))})

		case css.BeginRulesetGrammar, css.BeginAtRuleGrammar:
			return nil, parseErrorf("nested rule %q", joinTokens(parser.Values()))
		}
	}
}

// parseMediaBlockRules parses rules inside an @media block.
func (p *Parser) parseMediaBlockRules(parser *css.Parser, atRule string) ([]Rule, error) {
	var (
		rules     []Rule
		selectors []Selector
	)

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := grammarErr(parser); err != nil {
				return nil, err
			}
			return rules, nil

		case css.EndAtRuleGrammar:
			p.log.Debug("Parsed @media block", zap.String("query", atRule), zap.Int("rules", len(rules)))
			return rules, nil

		case css.QualifiedRuleGrammar:
			sels, err := parseSelectorList(parser.Values())
			if err != nil {
				return nil, err
			}
			selectors = append(selectors, sels...)

		case css.BeginRulesetGrammar:
			sels, err := parseSelectorList(parser.Values())
			if err != nil {
				return nil, err
			}
			r, err := p.parseRuleset(parser, append(selectors, sels...), atRule)
			if err != nil {
				return nil, err
			}
			rules = append(rules, r...)
			selectors = nil

		case css.BeginAtRuleGrammar, css.AtRuleGrammar:
			return nil, parseErrorf("at-rule @%s nested in @%s", atRuleName(data), atRule)
		}
	}
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

func atRuleName(data []byte) string {
	return strings.ToLower(strings.TrimPrefix(string(data), "@"))
}

// isKeyframes matches keyframes and its vendor prefixed variants.
func isKeyframes(name string) bool {
	return name == "keyframes" || (strings.HasPrefix(name, "-") && strings.HasSuffix(name, "-keyframes"))
}

// makeDeclaration builds a declaration, "!important" is the trailing "!"
// delimiter followed by the important identifier.
func makeDeclaration(name []byte, tokens []css.Token) Declaration {
	d := Declaration{Name: strings.ToLower(string(name))}
	end := len(tokens)
	if i := lastSignificant(tokens, end); i > 0 && tokens[i].TokenType == css.IdentToken && strings.EqualFold(string(tokens[i].Data), "important") {
		if j := lastSignificant(tokens, i); j >= 0 && tokens[j].TokenType == css.DelimToken && string(tokens[j].Data) == "!" {
			d.Important = true
			end = j
		}
	}
	d.Value = joinTokens(tokens[:end])
	return d
}

func isSpace(t css.Token) bool {
	return t.TokenType == css.WhitespaceToken || t.TokenType == css.CommentToken
}

func lastSignificant(tokens []css.Token, before int) int {
	for i := before - 1; i >= 0; i-- {
		if !isSpace(tokens[i]) {
			return i
		}
	}
	return -1
}

// joinTokens writes tokens back as text collapsing whitespace and dropping
// comments.
func joinTokens(tokens []css.Token) string {
	var sb strings.Builder
	space := false
	for _, t := range tokens {
		if isSpace(t) {
			space = sb.Len() > 0
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.Write(t.Data)
	}
	return sb.String()
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
