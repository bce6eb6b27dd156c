package process

import (
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// headSize is how much of the input is inspected to recognize it. Editors
// like to put long comments and doctype declarations before the root.
const headSize = 8192

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

type srcKind int

const (
	kindUnknown srcKind = iota
	kindSVG
	// gzip compressed SVG
	kindSVGZ
)

var svgType = filetype.NewType("svg", "image/svg+xml")

func init() {
	filetype.AddMatcher(svgType, isSVGHead)
}

var svgRoot = regexp.MustCompile(`<(?:[A-Za-z_][\w.-]*:)?svg[\s/>]`)

// isSVGHead checks the beginning of the input for the svg root element.
func isSVGHead(buf []byte) bool {
	enc := detectEncoding(buf)
	if enc != encUnknown && enc != encUTF8 {
		// truncated head may end in the middle of a code unit
		decoded, err := io.ReadAll(selectReader(bytes.NewReader(buf), enc))
		if err != nil && len(decoded) == 0 {
			return false
		}
		buf = decoded
	}
	return svgRoot.Match(buf)
}

// detectEncoding looks for byte order mark.
func detectEncoding(head []byte) srcEncoding {
	switch {
	case bytes.HasPrefix(head, []byte{0x00, 0x00, 0xFE, 0xFF}):
		return encUTF32BigEndian
	case bytes.HasPrefix(head, []byte{0xFF, 0xFE, 0x00, 0x00}):
		return encUTF32LittleEndian
	case bytes.HasPrefix(head, []byte{0xEF, 0xBB, 0xBF}):
		return encUTF8
	case bytes.HasPrefix(head, []byte{0xFE, 0xFF}):
		return encUTF16BigEndian
	case bytes.HasPrefix(head, []byte{0xFF, 0xFE}):
		return encUTF16LittleEndian
	}
	return encUnknown
}

// selectReader returns reader producing UTF-8 without byte order mark.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown:
		return r
	case encUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder())
	}
	// this should never happen
	panic(fmt.Sprintf("unsupported source encoding %d", enc))
}

func readHead(r io.Reader) ([]byte, error) {
	head := make([]byte, headSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return head[:n], nil
}

func hasExt(path string, exts []string) bool {
	ext := filepath.Ext(path)
	return slices.ContainsFunc(exts, func(e string) bool {
		return strings.EqualFold(e, ext)
	})
}

func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head, err := readHead(f)
	if err != nil {
		return false, err
	}
	return filetype.Is(head, "zip"), nil
}

// classify recognizes plain and compressed SVG by content.
func classify(head []byte) srcKind {
	switch {
	case filetype.Is(head, "gz"):
		return kindSVGZ
	case filetype.Is(head, svgType.Extension):
		return kindSVG
	}
	return kindUnknown
}

func isSVGFile(path string, exts []string) (srcKind, error) {
	if !hasExt(path, exts) {
		return kindUnknown, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return kindUnknown, err
	}
	defer f.Close()

	head, err := readHead(f)
	if err != nil {
		return kindUnknown, err
	}
	return classify(head), nil
}

func isSVGInArchive(f *zip.File, exts []string) (srcKind, error) {
	if !hasExt(f.Name, exts) {
		return kindUnknown, nil
	}
	r, err := f.Open()
	if err != nil {
		return kindUnknown, err
	}
	defer r.Close()

	head, err := readHead(r)
	if err != nil {
		return kindUnknown, err
	}
	return classify(head), nil
}

// openDocument returns UTF-8 reader for SVG text, decompressing it when
// necessary. Returned closer must be called when reading is done.
func openDocument(r io.Reader, kind srcKind) (io.Reader, func() error, error) {
	closer := func() error { return nil }
	if kind == kindSVGZ {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to decompress: %w", err)
		}
		r, closer = gz, gz.Close
	}

	br := bufio.NewReaderSize(r, headSize)
	head, err := br.Peek(headSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		closer()
		return nil, nil, err
	}
	if kind == kindSVGZ && !isSVGHead(head) {
		closer()
		return nil, nil, errors.New("compressed content is not SVG")
	}
	return selectReader(br, detectEncoding(head)), closer, nil
}
