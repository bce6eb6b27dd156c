package transform

import (
	"math"
	"strconv"
	"strings"
)

// maxDigits limits decimal digits tracked by exact arithmetic and rounding
// searches.
const maxDigits = 12

// maxExact is the largest integer below which float64 keeps every unit.
const maxExact = 1 << 53

// ToFixed rounds n to the given number of decimal digits, halves rounding
// towards positive infinity.
func ToFixed(n float64, digits int) float64 {
	pow := math.Pow10(digits)
	return roundHalfUp(n*pow) / pow
}

func roundHalfUp(x float64) float64 {
	f := math.Floor(x)
	if x-f >= 0.5 {
		f++
	}
	return f
}

// DecimalDigits returns the number of digits after the decimal point in the
// shortest representation of n.
func DecimalDigits(n float64) int {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(n, 'e', -1, 64), "e")
	e, _ := strconv.Atoi(exp)
	digits := len(strings.Replace(strings.TrimPrefix(mant, "-"), ".", "", 1))
	if d := digits - 1 - e; d > 0 {
		return d
	}
	return 0
}

// AddDigit returns original rounded to the first precision above the one of
// rounded which gives a different value. It returns rounded unchanged when no
// precision up to 12 digits changes it.
func AddDigit(rounded, original float64) float64 {
	r := rounded
	for n := DecimalDigits(rounded) + 1; r == rounded && r != original && n <= maxDigits; n++ {
		r = ToFixed(original, n)
	}
	return r
}

func isInteger(n float64) bool {
	return n == math.Trunc(n)
}

// mulExact multiplies keeping the decimal digits implied by the operands. The
// boolean is false when the result could not be kept exact, in which case the
// plain floating point product is returned.
func mulExact(a, b float64) (float64, bool) {
	p := a * b
	d := DecimalDigits(a) + DecimalDigits(b)
	if d > maxDigits || math.Abs(p)*math.Pow10(d) >= maxExact {
		return p, false
	}
	return ToFixed(p, d), true
}

func addExact(a, b float64) (float64, bool) {
	s := a + b
	d := max(DecimalDigits(a), DecimalDigits(b))
	if d > maxDigits || math.Abs(s)*math.Pow10(d) >= maxExact {
		return s, false
	}
	return ToFixed(s, d), true
}

// multiply composes m then n and reports whether every step was exact.
func multiply(m, n affine) (affine, bool) {
	exact := true
	dot := func(x1, y1, x2, y2 float64) float64 {
		p, ok1 := mulExact(x1, y1)
		q, ok2 := mulExact(x2, y2)
		s, ok3 := addExact(p, q)
		exact = exact && ok1 && ok2 && ok3
		return s
	}
	plus := func(x, y float64) float64 {
		s, ok := addExact(x, y)
		exact = exact && ok
		return s
	}
	return affine{
		dot(m[0], n[0], m[2], n[1]),
		dot(m[1], n[0], m[3], n[1]),
		dot(m[0], n[2], m[2], n[3]),
		dot(m[1], n[2], m[3], n[3]),
		plus(dot(m[0], n[4], m[2], n[5]), m[4]),
		plus(dot(m[1], n[4], m[3], n[5]), m[5]),
	}, exact
}

func compose(items []Item) (affine, bool) {
	m, exact := identity, true
	for _, it := range items {
		var ok bool
		m, ok = multiply(m, it.affine())
		exact = exact && ok
	}
	return m, exact
}

// Multiply composes items left to right into a single matrix item.
func Multiply(items []Item) Item {
	m, _ := compose(items)
	return m.item()
}

// MultiplyExact is Multiply which also reports whether the composition could
// be carried out without floating point noise.
func MultiplyExact(items []Item) (Item, bool) {
	m, exact := compose(items)
	return m.item(), exact
}
