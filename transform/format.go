package transform

import (
	"math"
	"strconv"
	"strings"
)

// ToString serializes items with the shortest argument lists and number
// forms: functions are concatenated, arguments separated by a space.
func ToString(items []Item) string {
	var sb strings.Builder
	for _, it := range items {
		sb.WriteString(it.Name)
		sb.WriteByte('(')
		for i, v := range shortArgs(it) {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(FormatNumber(v))
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// shortArgs drops arguments implied by their defaults.
func shortArgs(it Item) []float64 {
	d := it.Data
	switch it.Name {
	case Translate:
		if len(d) == 2 && d[1] == 0 {
			return d[:1]
		}
	case Scale:
		if len(d) == 2 && d[0] == d[1] {
			return d[:1]
		}
	case Rotate:
		if len(d) == 3 && d[1] == 0 && d[2] == 0 {
			return d[:1]
		}
	}
	return d
}

// FormatNumber writes n without a leading zero and switches to exponential
// notation for non-zero magnitudes below 0.001.
func FormatNumber(n float64) string {
	if n == 0 {
		return "0"
	}
	if math.Abs(n) < 0.001 {
		mant, exp, _ := strings.Cut(strconv.FormatFloat(n, 'e', -1, 64), "e")
		e, _ := strconv.Atoi(exp)
		return mant + "e" + strconv.Itoa(e)
	}
	s := strconv.FormatFloat(n, 'f', -1, 64)
	switch {
	case strings.HasPrefix(s, "0."):
		return s[1:]
	case strings.HasPrefix(s, "-0."):
		return "-" + s[2:]
	}
	return s
}
