package transform

import (
	"math"
	"strconv"
	"strings"
)

// maxGrowRounds bounds the number of precision increases in RoundToMatrix.
const maxGrowRounds = 10

// roundItem rounds matrix entries a-d and scale factors at matrixPrecision
// and everything else at floatPrecision.
func roundItem(it Item, floatPrecision, matrixPrecision int) Item {
	out := Item{Name: it.Name, Data: make([]float64, len(it.Data))}
	for i, v := range it.Data {
		p := floatPrecision
		if it.Name == Scale || (it.Name == Matrix && i < 4) {
			p = matrixPrecision
		}
		out.Data[i] = ToFixed(v, p)
	}
	return out
}

// RoundMatrix rounds a matrix item the way targets for RoundToMatrix are
// produced.
func RoundMatrix(m Item, floatPrecision, matrixPrecision int) Item {
	return roundItem(Item{Name: Matrix, Data: m.Data}, floatPrecision, matrixPrecision)
}

// target is a rounded matrix together with the precision its linear (a-d)
// and translation (e, f) parts must be compared at.
type target struct {
	m      affine
	linear int
	shift  int
}

// targetOf compares at the precision present in the target itself, capped by
// the nominal one, so a target rounded at lower precision still matches. A
// group of integer entries shows no precision at all and is compared at the
// nominal one.
func targetOf(t Item, floatPrecision, matrixPrecision int) target {
	m := matrix(t.Data)
	return target{
		m:      m,
		linear: groupPrecision(m[:4], matrixPrecision),
		shift:  groupPrecision(m[4:], floatPrecision),
	}
}

func groupPrecision(values []float64, nominal int) int {
	digits := 0
	for _, v := range values {
		digits = max(digits, DecimalDigits(v))
	}
	if digits == 0 {
		return nominal
	}
	return min(digits, nominal)
}

func nominalTarget(t Item, floatPrecision, matrixPrecision int) target {
	return target{m: matrix(t.Data), linear: matrixPrecision, shift: floatPrecision}
}

func (t target) matches(items []Item) bool {
	m, _ := compose(items)
	for i, v := range m {
		p := t.linear
		if i >= 4 {
			p = t.shift
		}
		if ToFixed(v, p) != t.m[i] {
			return false
		}
	}
	return true
}

// RoundToMatrix rounds every number of items at the smallest precision for
// which the rounded items still compose to the target matrix. The boolean is
// false when no such rounding exists.
func RoundToMatrix(items []Item, target Item, floatPrecision, matrixPrecision int) ([]Item, bool) {
	return roundTo(items, targetOf(target, floatPrecision, matrixPrecision), floatPrecision, matrixPrecision)
}

func roundTo(items []Item, t target, floatPrecision, matrixPrecision int) ([]Item, bool) {
	rounded := make([]Item, len(items))
	for i, it := range items {
		rounded[i] = roundItem(it, floatPrecision, matrixPrecision)
	}

	// grow precision until the composition matches
	for round := 0; !t.matches(rounded); round++ {
		if round == maxGrowRounds || !addDigitToAll(rounded, items) {
			return nil, false
		}
	}

	// then give back every digit that is not needed
	for removeDigitFromAll(rounded, t) {
	}
	return rounded, true
}

func addDigitToAll(rounded, original []Item) bool {
	changed := false
	for i := range rounded {
		for j, v := range rounded[i].Data {
			o := original[i].Data[j]
			if v == o {
				continue
			}
			if nv := AddDigit(v, o); nv != v {
				rounded[i].Data[j] = nv
				changed = true
			}
		}
	}
	return changed
}

func removeDigitFromAll(rounded []Item, t target) bool {
	changed := false
	for i := range rounded {
		for j, v := range rounded[i].Data {
			if isInteger(v) {
				continue
			}
			trial := ToFixed(v, DecimalDigits(v)-1)
			if trial == v {
				continue
			}
			rounded[i].Data[j] = trial
			if t.matches(rounded) {
				changed = true
			} else {
				rounded[i].Data[j] = v
			}
		}
	}
	return changed
}

// AdaptiveRound is RoundToMatrix which additionally elides items that became
// identities after rounding, as long as the result still matches the target.
func AdaptiveRound(items []Item, target Item, floatPrecision, matrixPrecision int) ([]Item, bool) {
	return adaptiveRound(items, targetOf(target, floatPrecision, matrixPrecision), floatPrecision, matrixPrecision)
}

func adaptiveRound(items []Item, t target, floatPrecision, matrixPrecision int) ([]Item, bool) {
	rounded, ok := roundTo(items, t, floatPrecision, matrixPrecision)
	if !ok {
		return nil, false
	}
	if elided := dropIdentities(rounded); len(elided) != len(rounded) && t.matches(elided) {
		return elided, true
	}
	return rounded, true
}

func dropIdentities(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if !it.IsIdentity() {
			out = append(out, it)
		}
	}
	return out
}

// RoundingInfo holds the snapping thresholds used by Round09.
type RoundingInfo struct {
	run         int
	roundToZero float64
}

// GetRoundingInfo extracts snapping thresholds from minifier parameters.
func GetRoundingInfo(p Params) RoundingInfo {
	return RoundingInfo{run: p.Round09, roundToZero: p.RoundToZero}
}

// Round09 snaps n to a shorter value when its decimal expansion contains a
// run of at least info.run zeros or nines after the first significant digit.
// Magnitudes below info.roundToZero become 0.
func Round09(n float64, info RoundingInfo) float64 {
	if info.roundToZero > 0 && math.Abs(n) < info.roundToZero {
		return 0
	}
	if info.run <= 0 {
		return n
	}
	s := plainString(n)
	if strings.ContainsRune(s, 'e') {
		return n
	}
	whole, frac, ok := strings.Cut(s, ".")
	if !ok {
		return n
	}
	start := 0
	if strings.TrimPrefix(whole, "-") == "0" {
		start = strings.IndexFunc(frac, func(r rune) bool { return r != '0' }) + 1
	}
	for i := start; i < len(frac); i++ {
		ch := frac[i]
		if ch != '0' && ch != '9' {
			continue
		}
		j := i
		for j < len(frac) && frac[j] == ch {
			j++
		}
		if j-i >= info.run {
			return ToFixed(n, i)
		}
		i = j - 1
	}
	return n
}

// plainString formats n in positional notation when its magnitude is within
// [1e-6, 1e21) and in exponential notation otherwise.
func plainString(n float64) string {
	if a := math.Abs(n); n != 0 && (a < 1e-6 || a >= 1e21) {
		return strconv.FormatFloat(n, 'e', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
