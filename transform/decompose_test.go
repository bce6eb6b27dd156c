package transform_test

import (
	"slices"
	"testing"

	"svgmin/transform"
)

// checkComposes verifies that every decomposition multiplies back to the
// rounded matrix when compared at the nominal precision.
func checkComposes(t *testing.T, got [][]transform.Item, rounded transform.Item, floatPrecision, matrixPrecision int) {
	t.Helper()
	for _, d := range got {
		m := transform.Multiply(d)
		for i, v := range m.Data {
			p := matrixPrecision
			if i >= 4 {
				p = floatPrecision
			}
			if r := transform.ToFixed(v, p); r != rounded.Data[i] {
				t.Errorf("%s composes to %v at index %d, want %v", transform.ToString(d), r, i, rounded.Data[i])
			}
		}
	}
}

func TestDecompose(t *testing.T) {
	tests := []struct {
		matrix  string
		want    []string
		wantNil bool
	}{
		{matrix: "matrix(0.8660254,0.5,-0.5,0.8660254,0,0)", want: []string{"rotate(30)scale(1)", "scale(1)rotate(30)"}},
		{matrix: "matrix(1.5,0,0.8660254,1,0,0)", want: []string{"scale(1.5 1)skewX(30)"}},
		{matrix: "matrix(0.70710678,0.70710678,-0.70710678,0.70710678,10,20)", want: []string{"translate(10 20)rotate(45)scale(1)"}},
		{matrix: "matrix(1,2,3,4,0,0)", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.matrix, func(t *testing.T) {
			original := mustParse(t, tt.matrix)[0]
			rounded := transform.RoundMatrix(original, 3, 5)

			got := transform.Decompose(original, rounded, 3, 5)
			if tt.wantNil {
				if len(got) != 0 {
					t.Fatalf("Decompose() returned %d decompositions, want none", len(got))
				}
				return
			}

			var strs []string
			for _, d := range got {
				strs = append(strs, transform.ToString(d))
			}
			for _, w := range tt.want {
				if !slices.Contains(strs, w) {
					t.Errorf("Decompose() = %q, missing %q", strs, w)
				}
			}
			checkComposes(t, got, rounded, 3, 5)
		})
	}
}

// Integer entries carry no precision of their own: decompositions must still
// match them at the nominal precision.
func TestDecompose_IntegerTarget(t *testing.T) {
	for _, input := range []string{
		"matrix(1,1,-1,1,0,0)",
		"matrix(2,0,1,2,0,0)",
		"matrix(1,1,-1,1,10,5)",
	} {
		t.Run(input, func(t *testing.T) {
			m := mustParse(t, input)[0]
			checkComposes(t, transform.Decompose(m, m, 3, 5), m, 3, 5)
		})
	}
}

func TestMergeTranslateAndRotate(t *testing.T) {
	merged, ok := transform.MergeTranslateAndRotate(10, 20, 90)
	if !ok {
		t.Fatal("MergeTranslateAndRotate() failed")
	}
	want := transform.Multiply(mustParse(t, "translate(10,20)rotate(90)"))
	got := transform.Multiply([]transform.Item{merged})
	for i := range want.Data {
		if transform.ToFixed(got.Data[i], 9) != transform.ToFixed(want.Data[i], 9) {
			t.Fatalf("merged rotate %v composes to %v, want %v", merged.Data, got.Data, want.Data)
		}
	}

	if _, ok := transform.MergeTranslateAndRotate(10, 20, 0); ok {
		t.Error("MergeTranslateAndRotate() with zero angle succeeded")
	}
}
