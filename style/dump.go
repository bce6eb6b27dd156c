package style

import (
	"strings"

	"github.com/beevik/etree"

	"svgmin/utils/debug"
)

// Dump returns a readable tree of the document rule sets followed by every
// element with its computed style. It exists for debug reports and manual
// inspection.
func Dump(doc *etree.Document, sd *StyleData) string {
	tw := debug.NewTreeWriter()
	if sd == nil {
		tw.Line(0, "Styles are not usable")
		return tw.String()
	}

	tw.Line(0, "Rule sets: %d features: [%s]", len(sd.sets), sd.Features())
	for i, rs := range sd.sets {
		tw.Line(1, "Set[%d] at-rule=%q rules=%d", i, rs.AtRule, len(rs.Rules))
		for _, r := range rs.Rules {
			tw.Line(2, "%s specificity=%v dynamic=%t", r.Selector, r.Specificity(), r.Dynamic)
		}
	}

	tw.Line(0, "Elements")
	var (
		parents []*etree.Element
		walk    func(el *etree.Element)
	)
	walk = func(el *etree.Element) {
		depth := len(parents) + 1
		if id := el.SelectAttrValue("id", ""); id != "" {
			tw.Line(depth, "<%s id=%q>", el.FullTag(), id)
		} else {
			tw.Line(depth, "<%s>", el.FullTag())
		}

		computed := sd.ComputeStyle(el, parents)
		props := make(map[string]string, len(computed))
		for name, v := range computed {
			props[name] = v.String()
		}
		tw.Props(depth+1, props)

		if len(el.ChildElements()) == 0 {
			return
		}
		parents = append(parents, el)
		for _, child := range el.ChildElements() {
			if !strings.EqualFold(child.Tag, "style") {
				walk(child)
			}
		}
		parents = parents[:len(parents)-1]
	}
	for _, el := range doc.ChildElements() {
		walk(el)
	}
	return tw.String()
}
