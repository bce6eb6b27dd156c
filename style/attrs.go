package style

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// presentation attributes may be set either as attributes or as properties.
var presentation = set(
	"alignment-baseline", "baseline-shift", "clip", "clip-path", "clip-rule",
	"color", "color-interpolation", "color-interpolation-filters", "color-profile",
	"color-rendering", "cursor", "direction", "display", "dominant-baseline",
	"enable-background", "fill", "fill-opacity", "fill-rule", "filter",
	"flood-color", "flood-opacity", "font-family", "font-size", "font-size-adjust",
	"font-stretch", "font-style", "font-variant", "font-weight",
	"glyph-orientation-horizontal", "glyph-orientation-vertical", "image-rendering",
	"letter-spacing", "lighting-color", "marker-end", "marker-mid", "marker-start",
	"mask", "opacity", "overflow", "paint-order", "pointer-events", "shape-rendering",
	"stop-color", "stop-opacity", "stroke", "stroke-dasharray", "stroke-dashoffset",
	"stroke-linecap", "stroke-linejoin", "stroke-miterlimit", "stroke-opacity",
	"stroke-width", "text-anchor", "text-decoration", "text-overflow",
	"text-rendering", "transform", "transform-origin", "unicode-bidi",
	"vector-effect", "visibility", "word-spacing", "writing-mode",
)

var inheritable = set(
	"clip-rule", "color", "color-interpolation", "color-interpolation-filters",
	"color-profile", "color-rendering", "cursor", "direction", "dominant-baseline",
	"fill", "fill-opacity", "fill-rule", "font", "font-family", "font-size",
	"font-size-adjust", "font-stretch", "font-style", "font-variant", "font-weight",
	"glyph-orientation-horizontal", "glyph-orientation-vertical", "image-rendering",
	"letter-spacing", "marker", "marker-end", "marker-mid", "marker-start",
	"paint-order", "pointer-events", "shape-rendering", "stroke", "stroke-dasharray",
	"stroke-dashoffset", "stroke-linecap", "stroke-linejoin", "stroke-miterlimit",
	"stroke-opacity", "stroke-width", "text-anchor", "text-rendering", "transform",
	"visibility", "word-spacing", "writing-mode",
)

// presentationNonInheritableGroupAttrs never propagate from a group to its
// children.
var presentationNonInheritableGroupAttrs = set(
	"clip-path", "display", "filter", "mask", "opacity", "text-decoration",
	"transform", "unicode-bidi",
)

// IsPresentation reports whether name is a presentation attribute.
func IsPresentation(name string) bool {
	return presentation[name]
}

// IsInherited reports whether a value of name on a parent applies to its
// children.
func IsInherited(name string) bool {
	return inheritable[name] && !presentationNonInheritableGroupAttrs[name]
}

// allowed attributes of <style>, anything else makes styles unusable.
var styleElementAttrs = set("id", "type", "media", "title")
