package css

import (
	"fmt"
	"io"
	"strings"
)

// cssEscapeDoubleQuoted escapes a string for use inside CSS double quotes.
// Backslashes and double quotes are escaped per CSS syntax: \" and \\.
func cssEscapeDoubleQuoted(s string) string {
	// Fast path: nothing to escape.
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseError reports a stylesheet construct which cannot be handled. Callers
// are expected to treat the whole stylesheet as unusable.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "css: " + e.Msg + ": " + e.Err.Error()
	}
	return "css: " + e.Msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErrorf(format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...)}
}

// SimpleKind identifies the kind of a simple selector.
type SimpleKind int

const (
	TypeSelector      SimpleKind = iota // e.g. path
	UniversalSelector                   // *
	ClassSelector                       // .name
	IDSelector                          // #name
	AttributeSelector                   // [name op value]
	PseudoClass                         // :hover, :not(...)
	PseudoElement                       // ::before
)

// Simple is a single simple selector.
type Simple struct {
	Kind    SimpleKind
	Name    string
	Matcher string // attribute matcher ("=", "~=", ...), empty for presence test
	Value   string // attribute value or raw pseudo-class arguments
	Flag    string // attribute case flag
	HasArgs bool   // functional pseudo-class
}

// Attribute returns the attribute a selector tests. Classes and IDs are
// attribute tests on class and id.
func (s Simple) Attribute() (string, bool) {
	switch s.Kind {
	case ClassSelector:
		return "class", true
	case IDSelector:
		return "id", true
	case AttributeSelector:
		return s.Name, true
	}
	return "", false
}

// IsPseudo reports whether the selector depends on element state or
// generated content.
func (s Simple) IsPseudo() bool {
	return s.Kind == PseudoClass || s.Kind == PseudoElement
}

func (s Simple) String() string {
	switch s.Kind {
	case UniversalSelector:
		return "*"
	case ClassSelector:
		return "." + s.Name
	case IDSelector:
		return "#" + s.Name
	case AttributeSelector:
		if s.Matcher == "" {
			return "[" + s.Name + "]"
		}
		str := "[" + s.Name + s.Matcher + `"` + cssEscapeDoubleQuoted(s.Value) + `"`
		if s.Flag != "" {
			str += " " + s.Flag
		}
		return str + "]"
	case PseudoClass:
		if s.HasArgs {
			return ":" + s.Name + "(" + s.Value + ")"
		}
		return ":" + s.Name
	case PseudoElement:
		return "::" + s.Name
	}
	return s.Name
}

// Compound is a sequence of simple selectors together with the combinator
// which links it to the previous compound ("" for the first one).
type Compound struct {
	Combinator string
	Simples    []Simple
}

func (c Compound) write(sb *strings.Builder, pseudos bool) {
	n := sb.Len()
	for _, s := range c.Simples {
		if !pseudos && s.IsPseudo() {
			continue
		}
		sb.WriteString(s.String())
	}
	if sb.Len() == n {
		sb.WriteByte('*')
	}
}

// Specificity is (at-rule, ids, classes/attributes/pseudo-classes,
// types/pseudo-elements), compared lexicographically. The first slot is
// reserved and always zero for stylesheet rules.
type Specificity [4]int

// Compare returns -1, 0 or 1.
func (s Specificity) Compare(o Specificity) int {
	for i := range s {
		switch {
		case s[i] < o[i]:
			return -1
		case s[i] > o[i]:
			return 1
		}
	}
	return 0
}

// Less reports whether s is strictly lower than o.
func (s Specificity) Less(o Specificity) bool {
	return s.Compare(o) < 0
}

// Selector is one complex selector of a selector list.
type Selector struct {
	Raw       string
	Compounds []Compound
}

// Specificity computes the selector specificity.
func (s Selector) Specificity() Specificity {
	var out Specificity
	for _, c := range s.Compounds {
		for _, sim := range c.Simples {
			switch sim.Kind {
			case IDSelector:
				out[1]++
			case ClassSelector, AttributeSelector, PseudoClass:
				out[2]++
			case TypeSelector, PseudoElement:
				out[3]++
			}
		}
	}
	return out
}

// String writes the selector in normalized form.
func (s Selector) String() string {
	return s.format(true)
}

// Matchable returns the selector with every pseudo-class and pseudo-element
// removed. Pseudo state cannot be evaluated structurally, so this is the form
// used for document matching.
func (s Selector) Matchable() string {
	return s.format(false)
}

func (s Selector) format(pseudos bool) string {
	var sb strings.Builder
	for i, c := range s.Compounds {
		if i > 0 {
			if c.Combinator == " " {
				sb.WriteByte(' ')
			} else {
				sb.WriteString(" " + c.Combinator + " ")
			}
		}
		c.write(&sb, pseudos)
	}
	return sb.String()
}

// HasAttribute reports whether the selector contains an attribute test, on
// the named attribute when name is not empty.
func (s Selector) HasAttribute(name string) bool {
	for _, c := range s.Compounds {
		for _, sim := range c.Simples {
			if att, ok := sim.Attribute(); ok && (name == "" || att == name) {
				return true
			}
		}
	}
	return false
}

// HasPseudo reports whether any pseudo-class or pseudo-element is present.
func (s Selector) HasPseudo() bool {
	for _, c := range s.Compounds {
		for _, sim := range c.Simples {
			if sim.IsPseudo() {
				return true
			}
		}
	}
	return false
}

// Features returns the features used by the selector. :hover does not count
// as a pseudo: it never changes the document at rest.
func (s Selector) Features() Feature {
	var f Feature
	if len(s.Compounds) == 1 {
		f |= SimpleSelectors
	} else {
		f |= Combinators
	}
	for _, c := range s.Compounds {
		for _, sim := range c.Simples {
			switch {
			case sim.Kind == PseudoElement:
				f |= Pseudos
			case sim.Kind == PseudoClass && sim.Name != "hover":
				f |= Pseudos
			}
			if _, ok := sim.Attribute(); ok {
				f |= AttributeSelectors
			}
		}
	}
	return f
}

// Declaration is a single property declaration.
type Declaration struct {
	Name      string
	Value     string
	Important bool
}

// DeclarationMap applies declarations in order: a later declaration
// overrides an earlier one unless the earlier is important and the later is
// not.
func DeclarationMap(decls []Declaration) map[string]Declaration {
	out := make(map[string]Declaration, len(decls))
	for _, d := range decls {
		if prev, ok := out[d.Name]; ok && prev.Important && !d.Important {
			continue
		}
		out[d.Name] = d
	}
	return out
}

// Rule is a selector together with the declarations of its block. A rule
// is dynamic when its outcome depends on media evaluation or on pseudo
// state.
type Rule struct {
	Selector     Selector
	Declarations []Declaration
	AtRule       string
	Dynamic      bool
}

// Specificity returns the specificity of the rule selector.
func (r Rule) Specificity() Specificity {
	return r.Selector.Specificity()
}

// Feature is a set of stylesheet features.
type Feature uint8

const (
	AtRules Feature = 1 << iota
	AttributeSelectors
	Combinators
	Pseudos
	SimpleSelectors
)

var featureNames = []struct {
	f    Feature
	name string
}{
	{AtRules, "atrules"},
	{AttributeSelectors, "attribute-selectors"},
	{Combinators, "combinators"},
	{Pseudos, "pseudos"},
	{SimpleSelectors, "simple-selectors"},
}

// Has reports whether all features of o are present.
func (f Feature) Has(o Feature) bool {
	return f&o == o
}

// Names lists feature names in stable order.
func (f Feature) Names() []string {
	var out []string
	for _, fn := range featureNames {
		if f.Has(fn.f) {
			out = append(out, fn.name)
		}
	}
	return out
}

func (f Feature) String() string {
	return strings.Join(f.Names(), ",")
}

// RuleSet groups rules sharing one at-rule context.
type RuleSet struct {
	AtRule string
	Rules  []Rule
}

// HasAtRule reports whether the set was produced under an at-rule context.
func (rs RuleSet) HasAtRule() bool {
	return rs.AtRule != ""
}

// Features aggregates features over all rules of the set.
func (rs RuleSet) Features() Feature {
	var f Feature
	if rs.HasAtRule() {
		f |= AtRules
	}
	for _, r := range rs.Rules {
		f |= r.Selector.Features()
	}
	return f
}

// HasAttributeSelector reports whether any rule tests an attribute, the
// named one when name is not empty.
func (rs RuleSet) HasAttributeSelector(name string) bool {
	for _, r := range rs.Rules {
		if r.Selector.HasAttribute(name) {
			return true
		}
	}
	return false
}

// WriteTo writes the rule set back as CSS, implementing io.WriterTo.
func (rs RuleSet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	indent := ""
	if rs.HasAtRule() {
		n, err := fmt.Fprintf(w, "@%s {\n", rs.AtRule)
		total += int64(n)
		if err != nil {
			return total, err
		}
		indent = "  "
	}
	for _, rule := range rs.Rules {
		n, err := writeRule(w, rule, indent)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	if rs.HasAtRule() {
		n, err := fmt.Fprint(w, "}\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// writeRule writes a single CSS rule to w.
func writeRule(w io.Writer, rule Rule, indent string) (int, error) {
	var total int
	n, err := fmt.Fprintf(w, "%s%s {\n", indent, rule.Selector)
	total += n
	if err != nil {
		return total, err
	}
	for _, d := range rule.Declarations {
		important := ""
		if d.Important {
			important = " !important"
		}
		n, err = fmt.Fprintf(w, "%s  %s: %s%s;\n", indent, d.Name, d.Value, important)
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err = fmt.Fprintf(w, "%s}\n", indent)
	total += n
	return total, err
}
