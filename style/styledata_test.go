package style_test

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"svgmin/style"
)

func loadDoc(t *testing.T, svg string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(svg); err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

func byID(t *testing.T, doc *etree.Document, id string) *etree.Element {
	t.Helper()
	el := doc.FindElement("//*[@id='" + id + "']")
	if el == nil {
		t.Fatalf("element %q not found", id)
	}
	return el
}

func styles(t *testing.T, doc *etree.Document) *style.StyleData {
	t.Helper()
	data := style.GetDocData(doc, zap.NewNop())
	if data.Styles == nil {
		t.Fatal("expected usable styles")
	}
	return data.Styles
}

const ownStyleSVG = `<svg xmlns="http://www.w3.org/2000/svg">
<style>
.blue { stroke: blue }
#stroke-class-with-id { stroke: yellow }
.imp { stroke: orange !important }
#stroke-style-class-imp-specific { stroke: pink !important }
</style>
<path id="stroke-att" stroke="green"/>
<path id="stroke-style-att" stroke="green" style="stroke:red"/>
<path id="stroke-class" class="blue" stroke="green"/>
<path id="stroke-class-with-id" class="blue"/>
<path id="stroke-style-class-imp" class="imp" style="stroke:red"/>
<path id="stroke-style-class-imp-specific" class="imp" style="stroke:red"/>
<path id="stroke-style-imp" class="imp" style="stroke:purple !important"/>
</svg>`

func TestComputeOwnStyle(t *testing.T) {
	doc := loadDoc(t, ownStyleSVG)
	sd := styles(t, doc)

	tests := []struct {
		id, want string
	}{
		{"stroke-att", "green"},
		{"stroke-style-att", "red"},
		{"stroke-class", "blue"},
		{"stroke-class-with-id", "yellow"},
		{"stroke-style-class-imp", "orange"},
		{"stroke-style-class-imp-specific", "pink"},
		{"stroke-style-imp", "purple"},
	}
	for _, tt := range tests {
		s := sd.ComputeOwnStyle(byID(t, doc, tt.id))
		if got, ok := s.Static("stroke"); !ok || got != tt.want {
			t.Errorf("%s: stroke = %q (%v), want %q", tt.id, got, ok, tt.want)
		}
	}

	s := sd.ComputeOwnStyle(byID(t, doc, "stroke-att"))
	want := style.Style{"stroke": {Text: "green"}}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("stroke-att style mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeOwnStyle_SpecificityOrder(t *testing.T) {
	// declaration order must not matter, the id rule wins
	for _, sheet := range []string{
		`#a{fill:red} .b{fill:green} path{fill:blue}`,
		`path{fill:blue} .b{fill:green} #a{fill:red}`,
		`.b{fill:green} #a{fill:red} path{fill:blue}`,
	} {
		doc := loadDoc(t, `<svg><style>`+sheet+`</style><path id="a" class="b"/></svg>`)
		s := styles(t, doc).ComputeOwnStyle(byID(t, doc, "a"))
		if got, _ := s.Static("fill"); got != "red" {
			t.Errorf("%s: fill = %q, want red", sheet, got)
		}
	}

	doc := loadDoc(t, `<svg><style>path{fill:blue !important} #a{fill:red}</style><path id="a"/></svg>`)
	s := styles(t, doc).ComputeOwnStyle(byID(t, doc, "a"))
	if got, _ := s.Static("fill"); got != "blue" {
		t.Errorf("fill = %q, want important blue", got)
	}
}

func TestComputeOwnStyle_Dynamic(t *testing.T) {
	doc := loadDoc(t, `<svg>
<style>
@media print { path { stroke: blue } }
#dyn.x { stroke: green }
#hover:hover { stroke: red }
.var { stroke: var(--main) }
.partvar { --c: red; fill: var(--c); stroke: blue }
</style>
<path id="media"/>
<path id="dyn" class="x" style="stroke:black !important"/>
<path id="hover" stroke="green"/>
<rect id="no-hover" stroke="green"/>
<rect id="var" class="var" stroke="green"/>
<rect id="partvar" class="partvar"/>
</svg>`)
	sd := styles(t, doc)

	for _, id := range []string{"media", "dyn", "hover", "var", "partvar"} {
		s := sd.ComputeOwnStyle(byID(t, doc, id))
		if v, ok := s["stroke"]; !ok || !v.Dynamic {
			t.Errorf("%s: stroke = %+v, want dynamic", id, v)
		}
		if _, ok := s.Static("stroke"); ok {
			t.Errorf("%s: Static() reported a known value", id)
		}
	}

	partvar := sd.ComputeOwnStyle(byID(t, doc, "partvar"))
	for _, name := range []string{"--c", "fill"} {
		if v, ok := partvar[name]; !ok || !v.Dynamic {
			t.Errorf("partvar: %s = %+v, want dynamic", name, v)
		}
	}

	if got, _ := sd.ComputeOwnStyle(byID(t, doc, "no-hover")).Static("stroke"); got != "green" {
		t.Errorf("no-hover: stroke = %q, want green", got)
	}
}

const computeStyleSVG = `<svg xmlns="http://www.w3.org/2000/svg">
<style>
#gblue { stroke: blue }
.red { stroke: red }
.redimp { stroke: red !important }
@media screen { g.m { marker-end: url(#a) } }
#l1, #l2 { stroke-linecap: round }
</style>
<g id="gblue"><path id="in-blue"/></g>
<g class="red"><g id="gred-g"><path id="deep"/></g></g>
<g class="red"><g id="gred-gblue" stroke="blue"/></g>
<g class="redimp"><g id="gredimp-gblue" stroke="blue"/></g>
<g class="m" opacity=".5" transform="scale(2)" stroke="blue"><path id="marked"/></g>
<path id="l1"/><rect id="l2"/>
</svg>`

func TestComputeStyle(t *testing.T) {
	doc := loadDoc(t, computeStyleSVG)
	sd := styles(t, doc)

	get := func(id, name string) (style.Value, bool) {
		el := byID(t, doc, id)
		v, ok := sd.ComputeStyle(el, style.Parents(el))[name]
		return v, ok
	}

	tests := []struct {
		id, name, want string
	}{
		{"in-blue", "stroke", "blue"},
		{"gred-g", "stroke", "red"},
		{"deep", "stroke", "red"},
		{"gred-gblue", "stroke", "blue"},
		{"gredimp-gblue", "stroke", "blue"},
		{"marked", "stroke", "blue"},
		{"l1", "stroke-linecap", "round"},
		{"l2", "stroke-linecap", "round"},
	}
	for _, tt := range tests {
		if v, ok := get(tt.id, tt.name); !ok || v.Dynamic || v.Text != tt.want {
			t.Errorf("%s: %s = %+v, want %q", tt.id, tt.name, v, tt.want)
		}
	}

	if v, ok := get("marked", "marker-end"); !ok || !v.Dynamic {
		t.Errorf("marked: marker-end = %+v, want dynamic", v)
	}
	for _, name := range []string{"opacity", "transform"} {
		if v, ok := get("marked", name); ok {
			t.Errorf("marked: %s = %+v, want absent", name, v)
		}
	}
}

func TestComputeStyle_Memoization(t *testing.T) {
	doc := loadDoc(t, computeStyleSVG)
	sd := styles(t, doc)

	el := byID(t, doc, "deep")
	first := sd.ComputeStyle(el, style.Parents(el))
	second := sd.ComputeStyle(el, style.Parents(el))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("memoized style mismatch (-first +second):\n%s", diff)
	}

	// fresh StyleData without any cached ancestors must agree
	fresh := styles(t, doc)
	if diff := cmp.Diff(first, fresh.ComputeStyle(el, style.Parents(el))); diff != "" {
		t.Errorf("cached and uncached styles differ (-cached +fresh):\n%s", diff)
	}

	// the .red rule is on the outer group, an attribute on the inner one wins
	byID(t, doc, "gred-g").CreateAttr("stroke", "lime")
	sd.ResetCache()
	if got, _ := sd.ComputeStyle(el, style.Parents(el)).Static("stroke"); got != "lime" {
		t.Errorf("after ResetCache stroke = %q, want lime", got)
	}
}

func TestComputeStyle_NoParents(t *testing.T) {
	doc := loadDoc(t, `<svg stroke="red"><path id="p"/></svg>`)
	sd := styles(t, doc)

	root := doc.Root()
	if parents := style.Parents(root); len(parents) != 0 {
		t.Fatalf("Parents(root) = %d elements, want none", len(parents))
	}
	if got, _ := sd.ComputeStyle(root, nil).Static("stroke"); got != "red" {
		t.Errorf("root stroke = %q, want red", got)
	}
	el := byID(t, doc, "p")
	if got, _ := sd.ComputeStyle(el, style.Parents(el)).Static("stroke"); got != "red" {
		t.Errorf("inherited stroke = %q, want red", got)
	}
}

func TestGetDocData(t *testing.T) {
	tests := []struct {
		name       string
		svg        string
		usable     bool
		hasScripts bool
	}{
		{"no styles", `<svg><path/></svg>`, true, false},
		{"empty style", `<svg><style/></svg>`, true, false},
		{"cdata", `<svg><style><![CDATA[path{fill:red}]]></style></svg>`, true, false},
		{"import", `<svg><style>@import url(a.css);</style></svg>`, false, false},
		{"invalid type", `<svg><style type="text/less">path{fill:red}</style></svg>`, false, false},
		{"invalid attribute", `<svg><style scoped="scoped">path{fill:red}</style></svg>`, false, false},
		{"script", `<svg><script>alert(1)</script></svg>`, true, true},
		{"event handler", `<svg><path onclick="go()"/></svg>`, true, true},
		{"javascript link", `<svg><a href=" javascript:go()"/></svg>`, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := style.GetDocData(loadDoc(t, tt.svg), zap.NewNop())
			if (data.Styles != nil) != tt.usable {
				t.Errorf("usable = %v, want %v", data.Styles != nil, tt.usable)
			}
			if data.HasScripts != tt.hasScripts {
				t.Errorf("HasScripts = %v, want %v", data.HasScripts, tt.hasScripts)
			}
		})
	}
}

func TestHasAttributeSelector(t *testing.T) {
	sd := styles(t, loadDoc(t, `<svg><style>path[d]{fill:red}</style></svg>`))
	if sd.HasAtRules() {
		t.Error("expected no at-rules")
	}
	for name, want := range map[string]bool{"": true, "d": true, "x": false} {
		if got := sd.HasAttributeSelector(name); got != want {
			t.Errorf("HasAttributeSelector(%q) = %v, want %v", name, got, want)
		}
	}

	sd = styles(t, loadDoc(t, `<svg><style>@media print { path[d]{fill:red} }</style></svg>`))
	if !sd.HasAtRules() || !sd.HasAttributeSelector("d") || sd.HasAttributeSelector("x") {
		t.Error("unexpected results with media query")
	}
}

func TestFeatures(t *testing.T) {
	sd := styles(t, loadDoc(t, `<svg><style>div{color:red}</style></svg>`))
	if diff := cmp.Diff([]string{"simple-selectors"}, sd.Features().Names()); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}

	sd = styles(t, loadDoc(t, `<svg><style>g path{fill:red}</style><style media="print">rect{fill:red}</style></svg>`))
	if diff := cmp.Diff([]string{"atrules", "combinators", "simple-selectors"}, sd.Features().Names()); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}

	sd = styles(t, loadDoc(t, `<svg/>`))
	if f := sd.Features(); f != 0 {
		t.Errorf("features of document without styles = %v", f)
	}
}

func TestDump(t *testing.T) {
	doc := loadDoc(t, computeStyleSVG)
	out := style.Dump(doc, styles(t, doc))

	for _, want := range []string{
		"Rule sets: 3 features: [atrules,attribute-selectors,simple-selectors]",
		"<path id=\"in-blue\">",
		"stroke: blue",
		"marker-end: <dynamic>",
		"stroke: red !important",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump() output lacks %q:\n%s", want, out)
		}
	}

	if got := style.Dump(doc, nil); !strings.Contains(got, "not usable") {
		t.Errorf("Dump(nil) = %q", got)
	}
}
