package transform

import (
	"math"
)

type strategy func(translate *Item, m affine, t target, floatPrecision, matrixPrecision int) [][]Item

// Decompose searches for sequences of primitive transforms which, once
// rounded, compose to the rounded matrix. Results of all strategies are
// accumulated; an empty result is a normal outcome.
func Decompose(original, rounded Item, floatPrecision, matrixPrecision int) [][]Item {
	return decompose(matrix(original.Data), targetOf(rounded, floatPrecision, matrixPrecision), floatPrecision, matrixPrecision)
}

func decompose(m affine, t target, floatPrecision, matrixPrecision int) [][]Item {
	var translate *Item
	if m[4] != 0 || m[5] != 0 {
		translate = &Item{Name: Translate, Data: []float64{m[4], m[5]}}
	}

	var out [][]Item
	for _, fn := range []strategy{decomposeRotateScale, decomposeScaleRotate, decomposeRotateSkew, decomposeScaleSkew} {
		out = append(out, fn(translate, m, t, floatPrecision, matrixPrecision)...)
	}
	return out
}

func withTranslate(translate *Item, items ...Item) []Item {
	out := make([]Item, 0, len(items)+1)
	if translate != nil {
		out = append(out, translate.Clone())
	}
	return append(out, items...)
}

func decomposeRotateScale(translate *Item, m affine, t target, floatPrecision, matrixPrecision int) [][]Item {
	rs, ok := rotateScale(m[0], m[1], m[2], m[3], floatPrecision)
	if !ok {
		return nil
	}
	return roundVariants(withTranslate(translate, rs...), t, floatPrecision, matrixPrecision)
}

func decomposeScaleRotate(translate *Item, m affine, t target, floatPrecision, matrixPrecision int) [][]Item {
	a, b, c, d := m[0], m[1], m[2], m[3]
	sx, sy := math.Hypot(a, c), math.Hypot(b, d)
	if sx == 0 || sy == 0 {
		return nil
	}
	cos, sin, cos2 := a/sx, b/sy, d/sy
	if ToFixed(cos+cos2, floatPrecision) == 0 {
		// scales have opposite signs
		sx, cos = -sx, -cos
	}
	deg, ok := findRotation(cos, sin, cos2, floatPrecision)
	if !ok {
		return nil
	}
	items := withTranslate(translate,
		Item{Name: Scale, Data: []float64{sx, sy}},
		Item{Name: Rotate, Data: []float64{deg, 0, 0}},
	)
	if rounded, ok := roundTo(items, t, floatPrecision, matrixPrecision); ok {
		return [][]Item{rounded}
	}
	return nil
}

func decomposeRotateSkew(translate *Item, m affine, t target, floatPrecision, matrixPrecision int) [][]Item {
	a, b, c, d := m[0], m[1], m[2], m[3]

	skew := func(name string, tanA, tanB float64) (Item, bool) {
		if ToFixed(tanA-tanB, floatPrecision) != 0 {
			return Item{}, false
		}
		deg := (math.Atan(tanA) + math.Atan(tanB)) * 90 / math.Pi
		return Item{Name: name, Data: []float64{deg}}, true
	}

	var (
		sk       Item
		rs       []Item
		skewOK   bool
		rotateOK bool
	)
	if a != 0 && b != 0 {
		if sk, skewOK = skew(SkewX, (c+b)/a, (d-a)/b); skewOK {
			// remainder is a rotation, possibly with a small scale
			rs, rotateOK = rotateScale(a, b, -b, a, floatPrecision)
		}
	}
	if !skewOK && c != 0 && d != 0 {
		if sk, skewOK = skew(SkewY, (b+c)/d, (a-d)/c); skewOK {
			rs, rotateOK = rotateScale(d, -c, c, d, floatPrecision)
		}
	}
	if !skewOK || !rotateOK {
		return nil
	}
	return roundVariants(withTranslate(translate, append(rs, sk)...), t, floatPrecision, matrixPrecision)
}

func decomposeScaleSkew(translate *Item, m affine, t target, floatPrecision, matrixPrecision int) [][]Item {
	a, b, c, d := m[0], m[1], m[2], m[3]

	try := func(name string, tan float64) [][]Item {
		items := withTranslate(translate,
			Item{Name: Scale, Data: []float64{a, d}},
			Item{Name: name, Data: []float64{math.Atan(tan) * 180 / math.Pi}},
		)
		if rounded, ok := roundTo(items, t, floatPrecision, matrixPrecision); ok {
			return [][]Item{rounded}
		}
		return nil
	}

	switch {
	case t.m[1] == 0 && a != 0 && c != 0 && d != 0:
		return try(SkewX, c/a)
	case t.m[2] == 0 && a != 0 && b != 0 && d != 0:
		return try(SkewY, b/d)
	}
	return nil
}

// rotateScale factors [a b c d] as rotate(θ) followed by scale(sx, sy).
func rotateScale(a, b, c, d float64, floatPrecision int) ([]Item, bool) {
	sx, sy := math.Hypot(a, b), math.Hypot(c, d)
	if sx == 0 || sy == 0 {
		return nil, false
	}
	cos, sin, cos2 := a/sx, b/sx, d/sy
	if ToFixed(cos+cos2, floatPrecision) == 0 {
		// scales have opposite signs
		sx, cos, sin = -sx, -cos, -sin
	}
	deg, ok := findRotation(cos, sin, cos2, floatPrecision)
	if !ok {
		return nil, false
	}
	return []Item{
		{Name: Rotate, Data: []float64{deg, 0, 0}},
		{Name: Scale, Data: []float64{sx, sy}},
	}, true
}

// findRotation recovers the rotation angle in degrees from its cosine and
// sine by averaging acos and asin corrected for the quadrant. cos2 is a second
// estimate of the cosine which has to agree with cos.
func findRotation(cos, sin, cos2 float64, floatPrecision int) (float64, bool) {
	if ToFixed(cos-cos2, floatPrecision) != 0 {
		return 0, false
	}
	acos, asin := math.Acos(cos), math.Asin(sin)
	if math.IsNaN(acos) || math.IsNaN(asin) {
		return 0, false
	}
	if sin < 0 {
		acos = -acos
		if cos < 0 {
			asin = -math.Pi - asin
		}
	} else if cos < 0 {
		asin = math.Pi - asin
	}
	return (acos + asin) * 90 / math.Pi, true
}

// roundVariants rounds a decomposition and, when it starts with translate
// followed by rotate, also the variant where both merge into one rotate
// around a center.
func roundVariants(items []Item, t target, floatPrecision, matrixPrecision int) [][]Item {
	var out [][]Item
	if rounded, ok := roundTo(items, t, floatPrecision, matrixPrecision); ok {
		out = append(out, rounded)
	}
	if len(items) < 2 || items[0].Name != Translate || items[1].Name != Rotate {
		return out
	}
	deg := items[1].Data[0]
	if math.Mod(deg, 360) == 0 {
		return out
	}
	merged, ok := MergeTranslateAndRotate(items[0].Data[0], items[0].Data[1], deg)
	if !ok {
		return out
	}
	if rounded, ok := roundTo(append([]Item{merged}, items[2:]...), t, floatPrecision, matrixPrecision); ok {
		out = append(out, rounded)
	}
	return out
}

// MergeTranslateAndRotate returns rotate(deg, cx, cy) equivalent to
// translate(tx, ty) rotate(deg).
func MergeTranslateAndRotate(tx, ty, deg float64) (Item, bool) {
	r := deg * math.Pi / 180
	d := 1 - math.Cos(r)
	e := math.Sin(r)
	if d == 0 {
		return Item{}, false
	}
	cy := (d*ty + e*tx) / (d*d + e*e)
	cx := (tx - e*cy) / d
	return Item{Name: Rotate, Data: []float64{deg, cx, cy}}, true
}
