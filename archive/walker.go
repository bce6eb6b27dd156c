// Package archive walks SVG files packed into zip archives (icon packs and
// similar bundles).
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/maruel/natural"
	"golang.org/x/text/encoding"
)

// WalkFunc is called for each file in archive visited by Walk. The archive
// argument contains path to archive passed to Walk, name is the entry name
// decoded as requested. If an error is returned, processing stops.
type WalkFunc func(archive, name string, file *zip.File) error

// Walker visits archive entries under a path prefix in natural name order.
type Walker struct {
	// CodePage, when set, is used to decode entry names not flagged as UTF-8.
	CodePage encoding.Encoding
}

// Walk visits all regular files in the archive whose names start with
// pattern. Entries with absolute paths or ".." components fail the walk.
func (w Walker) Walk(archive, pattern string, walkFn WalkFunc) error {

	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	files := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, pattern) {
			files = append(files, f)
		}
	}
	slices.SortStableFunc(files, func(a, b *zip.File) int {
		switch {
		case natural.Less(a.Name, b.Name):
			return -1
		case natural.Less(b.Name, a.Name):
			return 1
		}
		return 0
	})

	for _, f := range files {
		if err := walkFn(archive, w.name(f), f); err != nil {
			return err
		}
	}
	return nil
}

// Walk is Walker{}.Walk.
func Walk(archive, pattern string, walkFn WalkFunc) error {
	return Walker{}.Walk(archive, pattern, walkFn)
}

func (w Walker) name(f *zip.File) string {
	if w.CodePage == nil || !f.FileHeader.NonUTF8 {
		return f.FileHeader.Name
	}
	if n, err := w.CodePage.NewDecoder().String(f.FileHeader.Name); err == nil {
		return n
	}
	return f.FileHeader.Name
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	return !slices.Contains(strings.Split(name, "/"), "..")
}
