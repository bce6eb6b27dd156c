package optimize_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/charmap"

	"svgmin/config"
	"svgmin/optimize"
	"svgmin/transform"
)

func defaultConfig() *config.OptimizeConfig {
	return &config.OptimizeConfig{
		FloatPrecision: 3,
		Round09:        6,
		Plugins:        []string{optimize.MinifyTransforms, optimize.RemoveInheritedAttrs},
	}
}

func newOptimizer(t *testing.T, cfg *config.OptimizeConfig) *optimize.Optimizer {
	t.Helper()
	o, err := optimize.New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func parse(t *testing.T, svg string) *etree.Document {
	t.Helper()
	doc := optimize.NewDocument()
	if err := doc.ReadFromString(svg); err != nil {
		t.Fatalf("unable to parse test document: %v", err)
	}
	return doc
}

// attr finds element by id or, when there is none, by data-t attribute.
func attr(t *testing.T, doc *etree.Document, id, name string) (string, bool) {
	t.Helper()
	el := doc.FindElement("//*[@id='" + id + "']")
	if el == nil {
		el = doc.FindElement("//*[@data-t='" + id + "']")
	}
	if el == nil {
		t.Fatalf("element %q not found", id)
	}
	a := el.SelectAttr(name)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

const transformsSVG = `<svg xmlns="http://www.w3.org/2000/svg">
  <g id="g" transform="matrix(1 0 0 1 10 20)">
    <rect id="r" transform="translate(0,0)scale(1,1)"/>
    <rect id="bad" transform="rotate(1,2)"/>
  </g>
  <linearGradient id="lg" gradientTransform="scale(2)scale(3)"/>
</svg>`

func TestDocument_MinifyTransforms(t *testing.T) {
	doc := parse(t, transformsSVG)
	res := newOptimizer(t, defaultConfig()).Document(doc)

	if v, _ := attr(t, doc, "g", "transform"); v != "translate(10 20)" {
		t.Errorf("g transform = %q", v)
	}
	if v, ok := attr(t, doc, "r", "transform"); ok {
		t.Errorf("identity transform must be removed, got %q", v)
	}
	if v, _ := attr(t, doc, "bad", "transform"); v != "rotate(1,2)" {
		t.Errorf("unparsable transform must stay, got %q", v)
	}
	if v, _ := attr(t, doc, "lg", "gradientTransform"); v != "scale(6)" {
		t.Errorf("gradientTransform = %q", v)
	}
	if got := res.Changes[optimize.MinifyTransforms]; got != 3 {
		t.Errorf("changes = %d, want 3", got)
	}
	if !res.Styles || res.Scripts {
		t.Errorf("unexpected document data: %+v", res)
	}
}

func TestDocument_MinifyTransformsVetoes(t *testing.T) {
	tests := []struct {
		name string
		head string
	}{
		{"script element", `<script>alert(1)</script>`},
		{"event attribute", `<rect onclick="go()"/>`},
		{"attribute selector", `<style>[transform] { fill: red }</style>`},
		{"unusable styles", `<style>@import url(a.css);</style>`},
		{"foreign style type", `<style type="text/less">g { fill: red }</style>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg">`+tt.head+`<g id="g" transform="matrix(1 0 0 1 10 20)"/></svg>`)
			res := newOptimizer(t, defaultConfig()).Document(doc)
			if v, _ := attr(t, doc, "g", "transform"); v != "matrix(1 0 0 1 10 20)" {
				t.Errorf("transform changed to %q", v)
			}
			if res.Changes[optimize.MinifyTransforms] != 0 {
				t.Errorf("changes = %v", res.Changes)
			}
		})
	}
}

func TestDocument_DynamicTransformStyle(t *testing.T) {
	doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg">
<style>@media print { #dyn { transform: none } }</style>
<g id="dyn" transform="matrix(1 0 0 1 10 20)"/>
<g id="static" transform="matrix(1 0 0 1 10 20)"/>
</svg>`)
	newOptimizer(t, defaultConfig()).Document(doc)

	if v, _ := attr(t, doc, "dyn", "transform"); v != "matrix(1 0 0 1 10 20)" {
		t.Errorf("dynamic element transform changed to %q", v)
	}
	if v, _ := attr(t, doc, "static", "transform"); v != "translate(10 20)" {
		t.Errorf("static element transform = %q", v)
	}
}

func TestDocument_RemoveInheritedAttrs(t *testing.T) {
	doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg" fill="red">
<g data-t="g" fill="red" opacity=".5">
  <path data-t="same" fill="red" opacity=".5"/>
  <path data-t="other" fill="blue"/>
  <circle id="named" fill="red"/>
  <g data-t="styled" style="fill: blue">
    <path data-t="under-styled" fill="blue"/>
  </g>
</g>
<defs><g fill="red"><path data-t="template" fill="red"/></g></defs>
</svg>`)
	cfg := defaultConfig()
	cfg.Plugins = []string{optimize.RemoveInheritedAttrs}
	res := newOptimizer(t, cfg).Document(doc)

	tests := []struct {
		id, name string
		present  bool
	}{
		{"g", "fill", false},
		{"same", "fill", false},
		{"same", "opacity", true},
		{"other", "fill", true},
		{"named", "fill", true},
		{"under-styled", "fill", false},
		{"template", "fill", true},
	}
	for _, tt := range tests {
		if _, ok := attr(t, doc, tt.id, tt.name); ok != tt.present {
			t.Errorf("%s %s present = %v, want %v", tt.id, tt.name, ok, tt.present)
		}
	}
	if got := res.Changes[optimize.RemoveInheritedAttrs]; got != 3 {
		t.Errorf("changes = %d, want 3", got)
	}
}

func TestDocument_RemoveInheritedAttrsSelectorVeto(t *testing.T) {
	doc := parse(t, `<svg xmlns="http://www.w3.org/2000/svg" fill="red">
<style>[fill=red] { stroke: blue }</style>
<path id="p" fill="red"/>
</svg>`)
	cfg := defaultConfig()
	cfg.Plugins = []string{optimize.RemoveInheritedAttrs}
	newOptimizer(t, cfg).Document(doc)
	if _, ok := attr(t, doc, "p", "fill"); !ok {
		t.Error("fill must stay when attribute selectors reference it")
	}
}

func TestOptimize_Stream(t *testing.T) {
	title, err := charmap.Windows1251.NewEncoder().String("Значок")
	if err != nil {
		t.Fatal(err)
	}
	src := `<?xml version="1.0" encoding="windows-1251"?>
<svg xmlns="http://www.w3.org/2000/svg"><title>` + title + `</title><g transform="scale(2)scale(3)"/></svg>`

	var out bytes.Buffer
	res, err := newOptimizer(t, defaultConfig()).Optimize(strings.NewReader(src), &out)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{`encoding="UTF-8"`, "<title>Значок</title>", `transform="scale(6)"`} {
		if !strings.Contains(got, want) {
			t.Errorf("output does not contain %q:\n%s", want, got)
		}
	}
	if res.Changes[optimize.MinifyTransforms] != 1 {
		t.Errorf("changes = %v", res.Changes)
	}
}

func TestOptimize_Errors(t *testing.T) {
	o := newOptimizer(t, defaultConfig())
	for _, src := range []string{"", "not xml at all", "<svg"} {
		if _, err := o.Optimize(strings.NewReader(src), &bytes.Buffer{}); err == nil {
			t.Errorf("Optimize(%q) expected error", src)
		}
	}
}

func TestNew_UnknownPlugin(t *testing.T) {
	cfg := defaultConfig()
	cfg.Plugins = []string{"removeEverything"}
	if _, err := optimize.New(cfg, nil); err == nil {
		t.Error("expected error for unknown plugin")
	}
}

func TestParams(t *testing.T) {
	cfg := &config.OptimizeConfig{FloatPrecision: 2, MatrixPrecision: 7, Round09: 5, RoundToZero: 1e-6}
	want := transform.Params{FloatPrecision: 2, MatrixPrecision: 7, Round09: 5, RoundToZero: 1e-6}
	if diff := cmp.Diff(want, optimize.Params(cfg)); diff != "" {
		t.Errorf("Params() mismatch (-want +got):\n%s", diff)
	}
}

func TestDocument_Dump(t *testing.T) {
	o := newOptimizer(t, defaultConfig())
	doc := parse(t, transformsSVG)
	if res := o.Document(doc); res.Dump != "" {
		t.Errorf("dump must be empty unless requested, got:\n%s", res.Dump)
	}

	o.SetDump(true)
	res := o.Document(parse(t, transformsSVG))
	if !strings.Contains(res.Dump, `<rect id="bad">`) {
		t.Errorf("dump does not list elements:\n%s", res.Dump)
	}
}
