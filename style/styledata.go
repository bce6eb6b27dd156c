// Package style resolves the CSS cascade of SVG documents: presentation
// attributes, <style> rules ordered by specificity, inline style attributes
// and inheritance.
package style

import (
	"fmt"
	"slices"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/beevik/etree"
	"go.uber.org/zap"

	"svgmin/css"
)

// Value is the computed value of a single property. A dynamic value depends
// on state which cannot be evaluated statically (media queries, pseudo
// classes, custom properties) and must not be optimized.
type Value struct {
	Text      string
	Important bool
	Dynamic   bool
}

func (v Value) String() string {
	switch {
	case v.Dynamic:
		return "<dynamic>"
	case v.Important:
		return v.Text + " !important"
	}
	return v.Text
}

// Style maps property names to computed values. Absent properties are not
// set anywhere.
type Style map[string]Value

// Static returns the value of a property when it is set and known.
func (s Style) Static(name string) (string, bool) {
	v, ok := s[name]
	if !ok || v.Dynamic {
		return "", false
	}
	return v.Text, true
}

// apply sets a declared value. Dynamic values stick, important values are
// only replaced by important ones.
func (s Style) apply(d css.Declaration, dynamic bool) {
	prev, ok := s[d.Name]
	switch {
	case ok && prev.Dynamic:
	case dynamic || hasVar(d.Value):
		s[d.Name] = Value{Dynamic: true}
	case ok && prev.Important && !d.Important:
	default:
		s[d.Name] = Value{Text: d.Value, Important: d.Important}
	}
}

func hasVar(value string) bool {
	return strings.Contains(strings.ToLower(value), "var(")
}

type rule struct {
	css.Rule
	match cascadia.Selector
}

// StyleData holds the rules of a document and computes element styles. It is
// meant for a single document processing pass; ResetCache ends a pass.
type StyleData struct {
	sets   []css.RuleSet
	rules  []rule
	parser *css.Parser
	log    *zap.Logger

	memo   map[*etree.Element]Style
	mirror *mirror
}

// New compiles rule sets for matching. Rules are kept in ascending
// specificity, source order breaks ties.
func New(sets []css.RuleSet, log *zap.Logger) (*StyleData, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sd := &StyleData{
		sets:   sets,
		parser: css.NewParser(log),
		log:    log.Named("style"),
		memo:   make(map[*etree.Element]Style),
	}
	for _, rs := range sets {
		for _, r := range rs.Rules {
			match, err := cascadia.Compile(r.Selector.Matchable())
			if err != nil {
				return nil, &css.ParseError{Msg: fmt.Sprintf("unsupported selector %q", r.Selector.Raw), Err: err}
			}
			sd.rules = append(sd.rules, rule{Rule: r, match: match})
		}
	}
	slices.SortStableFunc(sd.rules, func(a, b rule) int {
		return a.Specificity().Compare(b.Specificity())
	})
	return sd, nil
}

// RuleSets returns the rule sets in document order.
func (sd *StyleData) RuleSets() []css.RuleSet {
	return sd.sets
}

// Features aggregates the features of all rule sets.
func (sd *StyleData) Features() css.Feature {
	var f css.Feature
	for _, rs := range sd.sets {
		f |= rs.Features()
	}
	return f
}

// HasAtRules reports whether any rule set was produced under an at-rule.
func (sd *StyleData) HasAtRules() bool {
	return slices.ContainsFunc(sd.sets, css.RuleSet.HasAtRule)
}

// HasAttributeSelector reports whether any rule tests an attribute, the named
// one when name is not empty.
func (sd *StyleData) HasAttributeSelector(name string) bool {
	for _, rs := range sd.sets {
		if rs.HasAttributeSelector(name) {
			return true
		}
	}
	return false
}

// ResetCache drops memoized styles and the matching mirror. Call it whenever
// the document has been modified.
func (sd *StyleData) ResetCache() {
	clear(sd.memo)
	sd.mirror = nil
}

func (sd *StyleData) matches(r rule, el *etree.Element) bool {
	if sd.mirror == nil {
		sd.mirror = newMirror(top(el))
	}
	n, ok := sd.mirror.nodes[el]
	if !ok {
		// element added after the mirror was built
		sd.mirror = newMirror(top(el))
		n = sd.mirror.nodes[el]
	}
	return r.match.Match(n)
}

// ComputeOwnStyle computes the style of an element without inheritance:
// presentation attributes, then matching rules in ascending specificity,
// then the style attribute.
func (sd *StyleData) ComputeOwnStyle(el *etree.Element) Style {
	s := make(Style)

	for _, a := range el.Attr {
		if a.Space == "" && presentation[a.Key] {
			s[a.Key] = Value{Text: a.Value}
		}
	}

	for _, r := range sd.rules {
		if !sd.matches(r, el) {
			continue
		}
		// a var() reference makes the whole rule unknowable
		dynamic := r.Dynamic || slices.ContainsFunc(r.Declarations, func(d css.Declaration) bool {
			return hasVar(d.Value)
		})
		for _, d := range r.Declarations {
			s.apply(d, dynamic)
		}
	}

	if inline := el.SelectAttrValue("style", ""); inline != "" {
		decls, err := sd.parser.ParseStyleDeclarations(inline)
		if err != nil {
			sd.log.Debug("Unable to parse style attribute", zap.String("element", el.GetPath()), zap.Error(err))
		}
		for _, d := range css.DeclarationMap(decls) {
			s.apply(d, false)
		}
	}
	return s
}

// ComputeStyle computes the style of an element including values inherited
// from parents, which are listed from the outermost element down to the
// immediate parent of el.
func (sd *StyleData) ComputeStyle(el *etree.Element, parents []*etree.Element) Style {
	s := sd.ComputeOwnStyle(el)
	if len(parents) > 0 {
		inherit(s, sd.computed(parents))
	}
	return s
}

// computed returns the full style of the last element of chain, memoized
// per element.
func (sd *StyleData) computed(chain []*etree.Element) Style {
	el := chain[len(chain)-1]
	if s, ok := sd.memo[el]; ok {
		return s
	}
	s := sd.ComputeOwnStyle(el)
	if len(chain) > 1 {
		inherit(s, sd.computed(chain[:len(chain)-1]))
	}
	sd.memo[el] = s
	return s
}

// inherit fills properties missing from dst with inheritable values of the
// parent style.
func inherit(dst, parent Style) {
	for name, v := range parent {
		if _, ok := dst[name]; ok || !IsInherited(name) {
			continue
		}
		dst[name] = v
	}
}

// Parents returns the element ancestors of el from the outermost one down to
// its immediate parent. The document node is not included.
func Parents(el *etree.Element) []*etree.Element {
	var chain []*etree.Element
	for p := el.Parent(); p != nil; p = p.Parent() {
		if p.Parent() == nil && p.Tag == "" {
			break
		}
		chain = append(chain, p)
	}
	slices.Reverse(chain)
	return chain
}
