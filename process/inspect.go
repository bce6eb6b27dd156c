package process

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"svgmin/optimize"
	"svgmin/state"
	"svgmin/style"
	"svgmin/transform"
)

// Transform is the action of transform command: it prints minified form of
// every argument, one per line.
func Transform(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("process")

	if cmd.Args().Len() == 0 {
		return errors.New("no transform has been specified")
	}

	params := optimize.Params(&env.Cfg.Optimize)
	if cmd.IsSet("precision") {
		params.FloatPrecision = int(cmd.Int("precision"))
	}
	if cmd.IsSet("matrix-precision") {
		params.MatrixPrecision = int(cmd.Int("matrix-precision"))
	}
	if params.FloatPrecision < 0 || params.MatrixPrecision < 0 {
		return errors.New("precision cannot be negative")
	}

	m := transform.NewMinifier(params, log)
	out := cmd.Root().Writer
	for _, arg := range cmd.Args().Slice() {
		res, err := m.Minify(arg)
		if err != nil {
			return fmt.Errorf("unable to minify %q: %w", arg, err)
		}
		log.Debug("Minified", zap.String("from", arg), zap.String("to", res))
		if _, err := fmt.Fprintln(out, res); err != nil {
			return err
		}
	}
	return nil
}

// Styles is the action of styles command: it prints rule sets of the
// document and computed style of every element.
func Styles(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("process")

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		return errors.New("no input file has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	kind, err := isSVGFile(fname, env.Cfg.Optimize.Extensions)
	if err != nil {
		return fmt.Errorf("unable to check file type: %w", err)
	}
	if kind == kindUnknown {
		return fmt.Errorf("input was not recognized as SVG document (%s)", fname)
	}

	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()

	in, closeIn, err := openDocument(f, kind)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", fname, err)
	}
	defer closeIn()

	doc := optimize.NewDocument()
	if _, err := doc.ReadFrom(in); err != nil {
		return fmt.Errorf("unable to read SVG: %w", err)
	}

	data := style.GetDocData(doc, log)
	out := cmd.Root().Writer
	if data.HasScripts {
		fmt.Fprintln(out, "Document has scripts")
	}
	_, err = fmt.Fprint(out, style.Dump(doc, data.Styles))
	return err
}
