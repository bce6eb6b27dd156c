// Package optimize runs plugins which rewrite SVG documents using the style
// cascade and transform algebra.
package optimize

import (
	"fmt"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"svgmin/style"
	"svgmin/transform"
)

// Plugin changes a document in place and returns the number of changes made.
type Plugin interface {
	Name() string
	Apply(doc *etree.Document, data style.DocData) int
}

const (
	MinifyTransforms     = "minifyTransforms"
	RemoveInheritedAttrs = "removeInheritedAttrs"
)

// PluginNames lists known plugins in their default order.
var PluginNames = []string{MinifyTransforms, RemoveInheritedAttrs}

// NewPlugin creates a plugin by name.
func NewPlugin(name string, params transform.Params, log *zap.Logger) (Plugin, error) {
	switch name {
	case MinifyTransforms:
		return &minifyTransforms{minifier: transform.NewMinifier(params, log), log: log.Named(name)}, nil
	case RemoveInheritedAttrs:
		return &removeInheritedAttrs{log: log.Named(name)}, nil
	}
	return nil, fmt.Errorf("unknown plugin %q, expected one of %s", name, strings.Join(PluginNames, ", "))
}

// walk visits elements depth first, passing parents from the outermost one.
func walk(doc *etree.Document, fn func(el *etree.Element, parents []*etree.Element)) {
	var (
		parents []*etree.Element
		visit   func(el *etree.Element)
	)
	visit = func(el *etree.Element) {
		fn(el, parents)
		parents = append(parents, el)
		for _, child := range el.ChildElements() {
			visit(child)
		}
		parents = parents[:len(parents)-1]
	}
	for _, el := range doc.ChildElements() {
		visit(el)
	}
}

var transformAttrs = []string{"transform", "gradientTransform", "patternTransform"}

type minifyTransforms struct {
	minifier *transform.Minifier
	log      *zap.Logger
}

func (p *minifyTransforms) Name() string {
	return MinifyTransforms
}

func (p *minifyTransforms) Apply(doc *etree.Document, data style.DocData) int {
	if data.Styles == nil || data.HasScripts {
		p.log.Debug("Skipping document", zap.Bool("styles", data.Styles != nil), zap.Bool("scripts", data.HasScripts))
		return 0
	}
	sd := data.Styles

	changed := 0
	walk(doc, func(el *etree.Element, _ []*etree.Element) {
		for _, name := range transformAttrs {
			attr := el.SelectAttr(name)
			if attr == nil || attr.Space != "" || sd.HasAttributeSelector(name) {
				continue
			}
			if name == "transform" {
				if v, ok := sd.ComputeOwnStyle(el)["transform"]; ok && v.Dynamic {
					continue
				}
			}

			out, err := p.minifier.Minify(attr.Value)
			if err != nil {
				p.log.Debug("Unable to parse transform", zap.String("element", el.GetPath()), zap.String(name, attr.Value), zap.Error(err))
				continue
			}
			switch {
			case out == "":
				el.RemoveAttr(name)
			case out != attr.Value:
				attr.Value = out
			default:
				continue
			}
			changed++
		}
	})
	return changed
}

// non-rendered containers: content may be instantiated in another
// inheritance context.
var templateContainers = []string{"defs", "symbol", "clipPath", "mask", "marker", "pattern", "linearGradient", "radialGradient"}

type removeInheritedAttrs struct {
	log *zap.Logger
}

func (p *removeInheritedAttrs) Name() string {
	return RemoveInheritedAttrs
}

func (p *removeInheritedAttrs) Apply(doc *etree.Document, data style.DocData) int {
	if data.Styles == nil || data.HasScripts {
		p.log.Debug("Skipping document", zap.Bool("styles", data.Styles != nil), zap.Bool("scripts", data.HasScripts))
		return 0
	}
	sd := data.Styles

	changed := 0
	walk(doc, func(el *etree.Element, parents []*etree.Element) {
		if len(parents) == 0 || el.SelectAttr("id") != nil || slices.ContainsFunc(parents, func(p *etree.Element) bool {
			return slices.Contains(templateContainers, p.Tag)
		}) {
			return
		}

		var (
			own    style.Style
			parent style.Style
		)
		for _, attr := range slices.Clone(el.Attr) {
			if attr.Space != "" || !style.IsPresentation(attr.Key) || !style.IsInherited(attr.Key) || sd.HasAttributeSelector(attr.Key) {
				continue
			}
			if own == nil {
				own = sd.ComputeOwnStyle(el)
				parent = sd.ComputeStyle(parents[len(parents)-1], parents[:len(parents)-1])
			}
			mine, ok := own.Static(attr.Key)
			if !ok || mine != attr.Value {
				continue
			}
			if theirs, ok := parent.Static(attr.Key); ok && theirs == mine {
				el.RemoveAttr(attr.Key)
				changed++
			}
		}
	})
	return changed
}
