// Package transform parses SVG transform lists, composes them exactly and
// rewrites them into the shortest equivalent text.
package transform

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Names of transform functions.
const (
	Matrix    = "matrix"
	Translate = "translate"
	Scale     = "scale"
	Rotate    = "rotate"
	SkewX     = "skewX"
	SkewY     = "skewY"
)

// Item is a single transform function with its numeric arguments.
type Item struct {
	Name string
	Data []float64
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	return Item{Name: it.Name, Data: append([]float64(nil), it.Data...)}
}

func (it Item) String() string {
	return ToString([]Item{it})
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

var (
	reFunction = regexp.MustCompile(`^[\s,]*(matrix|translate|scale|rotate|skewX|skewY)\s*\(([^)]*)\)`)
	reNumber   = regexp.MustCompile(`[-+]?(?:\d*\.\d+|\d+\.?)(?:[eE][-+]?\d+)?`)
)

// arity lists the accepted argument counts for every function.
var arity = map[string][]int{
	Matrix:    {6},
	Translate: {1, 2},
	Scale:     {1, 2},
	Rotate:    {1, 3},
	SkewX:     {1},
	SkewY:     {1},
}

// Parse converts transform attribute text into an ordered list of items.
func Parse(s string) ([]Item, error) {
	var items []Item
	rest := s
	for {
		if strings.Trim(rest, " \t\r\n,") == "" {
			return items, nil
		}
		m := reFunction.FindStringSubmatchIndex(rest)
		if m == nil {
			return nil, fmt.Errorf("malformed transform at %q", rest)
		}
		name, args := rest[m[2]:m[3]], rest[m[4]:m[5]]
		data, err := parseNumbers(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if !validArity(name, len(data)) {
			return nil, fmt.Errorf("%s: unexpected number of arguments %d", name, len(data))
		}
		items = append(items, Item{Name: name, Data: data})
		rest = rest[m[1]:]
	}
}

func parseNumbers(args string) ([]float64, error) {
	locs := reNumber.FindAllStringIndex(args, -1)
	data := make([]float64, 0, len(locs))
	last := 0
	for _, loc := range locs {
		if strings.Trim(args[last:loc[0]], " \t\r\n,") != "" {
			return nil, fmt.Errorf("unexpected argument text %q", args[last:loc[0]])
		}
		v, err := strconv.ParseFloat(args[loc[0]:loc[1]], 64)
		if err != nil {
			return nil, err
		}
		data = append(data, v)
		last = loc[1]
	}
	if strings.Trim(args[last:], " \t\r\n,") != "" {
		return nil, fmt.Errorf("unexpected argument text %q", args[last:])
	}
	return data, nil
}

func validArity(name string, n int) bool {
	for _, a := range arity[name] {
		if a == n {
			return true
		}
	}
	return false
}

// IsIdentity reports whether the item leaves coordinates unchanged.
func (it Item) IsIdentity() bool {
	switch it.Name {
	case Translate:
		for _, v := range it.Data {
			if v != 0 {
				return false
			}
		}
		return true
	case Scale:
		for _, v := range it.Data {
			if v != 1 {
				return false
			}
		}
		return true
	case Rotate:
		return math.Mod(it.Data[0], 360) == 0
	case SkewX, SkewY:
		return math.Mod(it.Data[0], 180) == 0
	case Matrix:
		return matrix(it.Data) == identity
	}
	return false
}

// centered reports whether a rotate item carries a non-zero center.
func (it Item) centered() bool {
	return it.Name == Rotate && len(it.Data) == 3 && (it.Data[1] != 0 || it.Data[2] != 0)
}

// affine is a 2x3 matrix in SVG order: a b c d e f.
type affine [6]float64

var identity = affine{1, 0, 0, 1, 0, 0}

func matrix(data []float64) affine {
	var m affine
	copy(m[:], data)
	return m
}

func (m affine) item() Item {
	return Item{Name: Matrix, Data: append([]float64(nil), m[:]...)}
}

// cosSin returns exact values for multiples of 90 degrees.
func cosSin(deg float64) (float64, float64) {
	switch math.Mod(deg, 360) {
	case 0:
		return 1, 0
	case 90, -270:
		return 0, 1
	case 180, -180:
		return -1, 0
	case 270, -90:
		return 0, -1
	}
	r := deg * math.Pi / 180
	return math.Cos(r), math.Sin(r)
}

func tanDeg(deg float64) float64 {
	switch math.Mod(deg, 180) {
	case 0:
		return 0
	case 45, -135:
		return 1
	case -45, 135:
		return -1
	}
	return math.Tan(deg * math.Pi / 180)
}

// affine expands the item into its canonical matrix.
func (it Item) affine() affine {
	d := it.Data
	switch it.Name {
	case Matrix:
		return matrix(d)
	case Translate:
		ty := 0.0
		if len(d) > 1 {
			ty = d[1]
		}
		return affine{1, 0, 0, 1, d[0], ty}
	case Scale:
		sy := d[0]
		if len(d) > 1 {
			sy = d[1]
		}
		return affine{d[0], 0, 0, sy, 0, 0}
	case Rotate:
		cos, sin := cosSin(d[0])
		if !it.centered() {
			return affine{cos, sin, -sin, cos, 0, 0}
		}
		cx, cy := d[1], d[2]
		return affine{cos, sin, -sin, cos, cx - cos*cx + sin*cy, cy - sin*cx - cos*cy}
	case SkewX:
		return affine{1, 0, tanDeg(d[0]), 1, 0, 0}
	case SkewY:
		return affine{1, tanDeg(d[0]), 0, 1, 0, 0}
	}
	return identity
}

// exactAffine returns the canonical matrix only when every entry is known
// exactly (no trigonometry involved).
func (it Item) exactAffine() (affine, bool) {
	switch it.Name {
	case Matrix, Translate, Scale:
		return it.affine(), true
	case Rotate:
		if math.Mod(it.Data[0], 90) == 0 && !it.centered() {
			return it.affine(), true
		}
	case SkewX, SkewY:
		if math.Mod(it.Data[0], 45) == 0 {
			return it.affine(), true
		}
	}
	return affine{}, false
}
