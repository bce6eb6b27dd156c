package transform

import (
	"go.uber.org/zap"
)

// Params configures the minifier.
type Params struct {
	// FloatPrecision is the number of decimal digits kept for angles and
	// translations.
	FloatPrecision int
	// MatrixPrecision is used for matrix entries a-d and scale factors. Zero
	// selects FloatPrecision+2.
	MatrixPrecision int
	// Round09 is the minimal run of zeros or nines which triggers snapping,
	// zero disables it.
	Round09 int
	// RoundToZero snaps smaller magnitudes to zero, zero disables it.
	RoundToZero float64
}

// DefaultParams returns parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{FloatPrecision: 3, Round09: 6}
}

func (p Params) precisions() (int, int) {
	mp := p.MatrixPrecision
	if mp == 0 {
		mp = p.FloatPrecision + 2
	}
	return p.FloatPrecision, mp
}

// Minifier rewrites transform lists into their shortest equivalent form.
type Minifier struct {
	params Params
	info   RoundingInfo
	log    *zap.Logger
}

// NewMinifier creates a minifier for the given parameters.
func NewMinifier(p Params, log *zap.Logger) *Minifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Minifier{params: p, info: GetRoundingInfo(p), log: log.Named("transforms")}
}

// Minify is a shortcut for NewMinifier(p, nil).Minify(s).
func Minify(s string, p Params) (string, error) {
	return NewMinifier(p, nil).Minify(s)
}

// maxPasses bounds how many times the winner is fed back into the minifier.
const maxPasses = 3

// Minify returns the shortest text equivalent to s within the configured
// precision. On parse errors s is returned unchanged together with the error.
func (m *Minifier) Minify(s string) (string, error) {
	items, err := Parse(s)
	if err != nil {
		return s, err
	}
	m.snap(items)

	norm := Normalize(cloneItems(items))
	if len(norm) == 0 {
		return "", nil
	}

	fp, mp := m.params.precisions()
	exact, _ := compose(norm)
	rounded := RoundMatrix(exact.item(), fp, mp)
	if matrix(rounded.Data) == identity {
		return "", nil
	}
	t := nominalTarget(rounded, fp, mp)

	best, n := m.shortest(items, norm, t)

	// the rounded winner may decompose into something shorter than the
	// exact matrix did
	for pass := 0; pass < maxPasses; pass++ {
		again, err := Parse(best)
		if err != nil {
			break
		}
		m.snap(again)
		next, _ := m.shortest(again, Normalize(cloneItems(again)), t)
		if !shorter(next, best) {
			break
		}
		best = next
	}
	m.log.Debug("Transform minified", zap.String("from", s), zap.String("to", best), zap.Int("candidates", n))
	return best, nil
}

func (m *Minifier) snap(items []Item) {
	if m.info.run == 0 && m.info.roundToZero == 0 {
		return
	}
	for i := range items {
		for j, v := range items[i].Data {
			items[i].Data[j] = Round09(v, m.info)
		}
	}
}

// shorter orders serializations by length, then lexically.
func shorter(a, b string) bool {
	return len(a) < len(b) || len(a) == len(b) && a < b
}

// shortest returns the shortest serialization among candidates matching t
// and the number of candidates tried. Source items are a candidate as they
// are.
func (m *Minifier) shortest(source, norm []Item, t target) (string, int) {
	fp, mp := m.params.precisions()
	exact, _ := compose(norm)

	candidates := [][]Item{source}
	if r, ok := adaptiveRound(norm, t, fp, mp); ok {
		candidates = append(candidates, r)
	}
	for _, d := range decompose(exact, t, fp, mp) {
		candidates = append(candidates, dropIdentities(d))
	}
	candidates = append(candidates, expand(t.m))
	for _, c := range candidates {
		candidates = append(candidates, swapVariants(c)...)
	}

	best, found := "", false
	for _, c := range candidates {
		if !t.matches(c) {
			continue
		}
		if str := ToString(c); !found || shorter(str, best) {
			best, found = str, true
		}
	}
	if !found {
		// rounded matrix always matches itself, keep the exact form just in case
		best = ToString(norm)
	}
	return best, len(candidates)
}

// Normalize merges adjacent compatible items and re-expands matrices into the
// shortest primitive form. The result composes to the same matrix as items.
func Normalize(items []Item) []Item {
	var rotated []Item
	for _, it := range items {
		if it.IsIdentity() {
			continue
		}
		if n := len(rotated); n > 0 {
			if merged, ok := mergeRotates(rotated[n-1], it); ok {
				rotated[n-1] = merged
				continue
			}
		}
		rotated = append(rotated, it.Clone())
	}

	var merged []Item
	for _, it := range rotated {
		if it.IsIdentity() {
			continue
		}
		cur := it
		if a, ok := it.exactAffine(); ok {
			cur = a.item()
		}
		if n := len(merged); n > 0 && merged[n-1].Name == Matrix && cur.Name == Matrix {
			if a, ok := multiply(matrix(merged[n-1].Data), matrix(cur.Data)); ok {
				merged[n-1] = a.item()
				continue
			}
		}
		merged = append(merged, cur)
	}

	var out []Item
	for _, it := range merged {
		switch {
		case it.IsIdentity():
		case it.Name == Matrix:
			out = append(out, expand(matrix(it.Data))...)
		default:
			out = append(out, it)
		}
	}
	return shortestSwaps(out)
}

func mergeRotates(prev, cur Item) (Item, bool) {
	if prev.Name != Rotate || cur.Name != Rotate || prev.centered() != cur.centered() {
		return Item{}, false
	}
	if prev.centered() && (prev.Data[1] != cur.Data[1] || prev.Data[2] != cur.Data[2]) {
		return Item{}, false
	}
	deg, ok := addExact(prev.Data[0], cur.Data[0])
	if !ok {
		return Item{}, false
	}
	out := prev.Clone()
	out.Data[0] = deg
	return out, true
}

// expand writes a matrix as translate, scale, quarter rotation or 45 degree
// skew whenever it is one of those.
func expand(m affine) []Item {
	a, b, c, d, e, f := m[0], m[1], m[2], m[3], m[4], m[5]
	var out []Item
	if e != 0 || f != 0 {
		out = append(out, Item{Name: Translate, Data: []float64{e, f}})
	}
	switch {
	case a == 1 && b == 0 && c == 0 && d == 1:
		return out
	case b == 0 && c == 0:
		return append(out, Item{Name: Scale, Data: []float64{a, d}})
	case a == 0 && d == 0 && b == 1 && c == -1:
		return append(out, Item{Name: Rotate, Data: []float64{90}})
	case a == 0 && d == 0 && b == -1 && c == 1:
		return append(out, Item{Name: Rotate, Data: []float64{-90}})
	case a == 1 && d == 1 && b == 0 && (c == 1 || c == -1):
		return append(out, Item{Name: SkewX, Data: []float64{45 * c}})
	case a == 1 && d == 1 && c == 0 && (b == 1 || b == -1):
		return append(out, Item{Name: SkewY, Data: []float64{45 * b}})
	}
	return []Item{m.item()}
}

// flipRotateScale rewrites rotate(θ) scale(s) as rotate(θ+180) scale(-s).
// The pair may come in either order.
func flipRotateScale(first, second Item) (Item, Item, bool) {
	r, s := first, second
	if first.Name == Scale {
		r, s = second, first
	}
	if r.Name != Rotate || s.Name != Scale || r.centered() {
		return Item{}, Item{}, false
	}
	deg, ok := addExact(r.Data[0], 180)
	if !ok {
		return Item{}, Item{}, false
	}
	if deg > 180 {
		deg -= 360
	}
	nr := Item{Name: Rotate, Data: []float64{deg}}
	ns := Item{Name: Scale, Data: make([]float64, len(s.Data))}
	for i, v := range s.Data {
		ns.Data[i] = -v
	}
	if first.Name == Scale {
		return ns, nr, true
	}
	return nr, ns, true
}

func swapVariants(items []Item) [][]Item {
	var out [][]Item
	for i := 0; i+1 < len(items); i++ {
		a, b, ok := flipRotateScale(items[i], items[i+1])
		if !ok {
			continue
		}
		v := cloneItems(items)
		v[i], v[i+1] = a, b
		out = append(out, v)
	}
	return out
}

func shortestSwaps(items []Item) []Item {
	for i := 0; i+1 < len(items); i++ {
		a, b, ok := flipRotateScale(items[i], items[i+1])
		if ok && len(ToString([]Item{a, b})) < len(ToString(items[i:i+2])) {
			items[i], items[i+1] = a, b
		}
	}
	return items
}
