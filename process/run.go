// Package process finds SVG documents in files, directories and zip archives
// and optimizes them.
package process

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"svgmin/archive"
	"svgmin/state"
)

// Run is the action of optimize command.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("process")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	// empty destination means results are written next to sources
	dst := cmd.Args().Get(1)
	if len(dst) != 0 && dst != stdout {
		if dst, err = filepath.Abs(dst); err != nil {
			return err
		}
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	o, err := env.Optimizer()
	if err != nil {
		return fmt.Errorf("unable to prepare optimizer: %w", err)
	}
	o.SetDump(env.Rpt != nil)

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process determines the input type (directory, archive, or single file) and
// handles it accordingly. Path inside of archive is recognized by walking
// source path up until existing file is found.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)
	exts := env.Cfg.Optimize.Extensions

	// where results go when destination was not specified
	alongside := func(dir string) string {
		if len(dst) != 0 {
			return dst
		}
		env.Suffix = env.Cfg.Optimize.Suffix
		return dir
	}

	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if dst == stdout {
				return errors.New("standard output requires single file source")
			}
			if err := processDir(ctx, head, alongside(head), log); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			if dst == stdout {
				return errors.New("standard output requires single file source")
			}
			// we need to look inside to see if path makes sense
			tail = filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			if err := processArchive(ctx, head, tail, "", alongside(filepath.Dir(head)), log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		kind, err := isSVGFile(head, exts)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if kind != kindUnknown && len(tail) == 0 {
			file, err := os.Open(head)
			if err != nil {
				return fmt.Errorf("unable to open file: %w", err)
			}
			defer file.Close()
			// single requested file failing is the command failure
			return processDocument(ctx, file, kind, filepath.Base(head), alongside(filepath.Dir(head)), log)
		}
		return fmt.Errorf("input was not recognized as SVG document (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// walkDir visits regular files under dir with directory entries in natural
// order. Symbolic links are not followed.
func walkDir(ctx context.Context, dir string, fn func(path string) error, log *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn("Skipping path", zap.String("path", dir), zap.Error(err))
		return nil
	}
	slices.SortFunc(entries, func(a, b os.DirEntry) int {
		switch {
		case natural.Less(a.Name(), b.Name()):
			return -1
		case natural.Less(b.Name(), a.Name()):
			return 1
		}
		return 0
	})

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, e.Name())
		switch {
		case e.IsDir():
			if err := walkDir(ctx, path, fn, log); err != nil {
				return err
			}
		case e.Type().IsRegular():
			if err := fn(path); err != nil {
				return err
			}
		}
	}
	return nil
}

// processDir walks directory tree finding SVG documents and archives and
// processes them.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) (err error) {
	env := state.EnvFromContext(ctx)

	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	return walkDir(ctx, dir, func(path string) error {
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		isArchive, err := isArchiveFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if isArchive {
			if err := processArchive(ctx, path, "", filepath.Dir(rel), dst, log); err != nil {
				log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			return nil
		}

		kind, err := isSVGFile(path, env.Cfg.Optimize.Extensions)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if kind == kindUnknown {
			log.Debug("Skipping file, not recognized as SVG or archive", zap.String("file", path))
			return nil
		}
		if env.Suffix != "" && strings.HasSuffix(strings.TrimSuffix(path, filepath.Ext(path)), env.Suffix) {
			log.Debug("Skipping file, looks like a result of previous run", zap.String("file", path))
			return nil
		}

		count++

		file, err := os.Open(path)
		if err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			return nil
		}
		defer file.Close()

		if err := processDocument(ctx, file, kind, rel, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
		return nil
	}, log)
}

// processArchive walks all files inside archive, finds SVG documents under
// "pathIn" and processes them. Results are placed under "pathOut" relative to
// the destination.
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, log *zap.Logger) (err error) {
	env := state.EnvFromContext(ctx)

	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	w := archive.Walker{CodePage: env.CodePage}
	return w.Walk(path, pathIn, func(arc, name string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		kind, err := isSVGInArchive(f, env.Cfg.Optimize.Extensions)
		if err != nil {
			log.Warn("Skipping file in archive", zap.String("archive", arc), zap.String("path", f.Name), zap.Error(err))
			return nil
		}
		if kind == kindUnknown {
			log.Debug("Skipping file, not recognized as SVG", zap.String("archive", arc), zap.String("file", f.Name))
			return nil
		}

		count++

		r, err := f.Open()
		if err != nil {
			log.Error("Unable to process file in archive", zap.String("archive", arc), zap.String("file", f.Name), zap.Error(err))
			return nil
		}
		defer r.Close()

		if err := processDocument(ctx, r, kind, filepath.Join(pathOut, filepath.FromSlash(name)), dst, log); err != nil {
			log.Error("Unable to process file in archive", zap.String("archive", arc), zap.String("file", f.Name), zap.Error(err))
		}
		return nil
	})
}

// processDocument optimizes single SVG document. "src" is the source path
// relative to the processed location including file name, "dst" is the
// destination directory or "-" for standard output.
func processDocument(ctx context.Context, r io.Reader, kind srcKind, src, dst string, log *zap.Logger) (rerr error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	outputName := buildOutputPath(src, dst, env)

	log.Debug("Optimization starting", zap.String("from", src))
	defer func(start time.Time) {
		// keep going with other documents no matter what
		if r := recover(); r != nil {
			log.Error("Optimization ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("optimization panic: %v", r)
		}
	}(time.Now())

	if outputName != stdout {
		if _, err := os.Stat(outputName); err == nil {
			if !env.Overwrite {
				return fmt.Errorf("output file already exists: %s", outputName)
			}
			log.Warn("Overwriting existing file", zap.String("file", outputName))
		} else if !os.IsNotExist(err) {
			return err
		} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
			return fmt.Errorf("unable to create output directory: %w", err)
		}
	}

	o, err := env.Optimizer()
	if err != nil {
		return err
	}

	var source bytes.Buffer
	if env.Rpt != nil {
		r = io.TeeReader(r, &source)
	}

	in, closeIn, err := openDocument(r, kind)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", src, err)
	}
	defer closeIn()

	var out bytes.Buffer
	start := time.Now()
	res, err := o.Optimize(in, &out)
	if err != nil {
		return fmt.Errorf("unable to optimize %s: %w", src, err)
	}

	if env.Rpt != nil {
		name := filepath.ToSlash(src)
		env.Rpt.StoreData("source/"+name, source.Bytes())
		env.Rpt.StoreData("styles/"+name+".txt", []byte(res.Dump))
		env.Rpt.StoreData("result/"+name, out.Bytes())
	}

	data := out.Bytes()
	if kind == kindSVGZ {
		var gz bytes.Buffer
		zw := gzip.NewWriter(&gz)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("unable to compress result: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("unable to compress result: %w", err)
		}
		data = gz.Bytes()
	}

	if outputName == stdout {
		_, err = os.Stdout.Write(data)
	} else {
		err = os.WriteFile(outputName, data, 0644)
	}
	if err != nil {
		return fmt.Errorf("unable to write result: %w", err)
	}

	log.Info("Optimization completed", zap.String("from", src), zap.String("to", outputName),
		zap.Any("changes", res.Changes), zap.Bool("styles", res.Styles), zap.Bool("scripts", res.Scripts),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
