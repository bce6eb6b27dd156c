package style

import (
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
)

// mirror is an html.Node copy of an etree document, selectors are matched
// against it. Tag names and attribute keys are lowercased as selectors are.
type mirror struct {
	nodes map[*etree.Element]*html.Node
}

// top returns the outermost ancestor of el, the document element when el is
// attached to a document.
func top(el *etree.Element) *etree.Element {
	for el.Parent() != nil {
		el = el.Parent()
	}
	return el
}

func newMirror(root *etree.Element) *mirror {
	m := &mirror{nodes: make(map[*etree.Element]*html.Node)}
	var parent *html.Node
	if root.Tag == "" {
		// document node
		parent = &html.Node{Type: html.DocumentNode}
		m.nodes[root] = parent
		for _, child := range root.ChildElements() {
			m.add(parent, child)
		}
		return m
	}
	m.add(nil, root)
	return m
}

func (m *mirror) add(parent *html.Node, el *etree.Element) {
	n := &html.Node{Type: html.ElementNode, Data: strings.ToLower(el.Tag)}
	for _, a := range el.Attr {
		key := a.Key
		if a.Space != "" {
			key = a.Space + ":" + a.Key
		}
		n.Attr = append(n.Attr, html.Attribute{Key: strings.ToLower(key), Val: a.Value})
	}
	if parent != nil {
		parent.AppendChild(n)
	}
	m.nodes[el] = n
	for _, child := range el.ChildElements() {
		m.add(n, child)
	}
}
