package process

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
)

func inspectCommand(out *bytes.Buffer) *cli.Command {
	return &cli.Command{
		Name:   "svgmin",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name: "transform",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "precision"},
					&cli.IntFlag{Name: "matrix-precision"},
				},
				Action: Transform,
			},
			{
				Name:   "styles",
				Action: Styles,
			},
		},
	}
}

func runInspect(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := inspectCommand(&out).Run(ctx, append([]string{"svgmin"}, args...))
	return out.String(), err
}

func TestTransform(t *testing.T) {
	ctx, _ := setupTestEnv(t)

	got, err := runInspect(t, ctx, "transform", "matrix(1 0 0 1 10 20)", "translate(0,0)scale(1,1)", "rotate(-23.7001)")
	if err != nil {
		t.Fatalf("transform error = %v", err)
	}
	want := "translate(10 20)\n\nrotate(-23.7)\n"
	if got != want {
		t.Errorf("transform output = %q, want %q", got, want)
	}

	if _, err := runInspect(t, ctx, "transform"); err == nil {
		t.Error("expected error without arguments")
	}
	if _, err := runInspect(t, ctx, "transform", "--precision", "-1", "rotate(5)"); err == nil {
		t.Error("expected error for negative precision")
	}
	if _, err := runInspect(t, ctx, "transform", "bogus(1)"); err == nil {
		t.Error("expected error for malformed transform")
	}
}

func TestStyles(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "icon.svg"), []byte(sampleSVG))

	got, err := runInspect(t, ctx, "styles", src)
	if err != nil {
		t.Fatalf("styles error = %v", err)
	}
	for _, want := range []string{"Rule sets: 0", "<path>", "fill: red"} {
		if !strings.Contains(got, want) {
			t.Errorf("styles output lacks %q:\n%s", want, got)
		}
	}

	if _, err := runInspect(t, ctx, "styles"); err == nil {
		t.Error("expected error without input file")
	}
	notSVG := writeFile(t, filepath.Join(dir, "notes.txt"), []byte("plain text"))
	if _, err := runInspect(t, ctx, "styles", notSVG); err == nil {
		t.Error("expected error for non SVG input")
	}
}
