package optimize

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"svgmin/config"
	"svgmin/style"
	"svgmin/transform"
)

// Params converts configuration into minifier parameters.
func Params(cfg *config.OptimizeConfig) transform.Params {
	return transform.Params{
		FloatPrecision:  cfg.FloatPrecision,
		MatrixPrecision: cfg.MatrixPrecision,
		Round09:         cfg.Round09,
		RoundToZero:     cfg.RoundToZero,
	}
}

// Optimizer runs configured plugins over documents.
type Optimizer struct {
	plugins []Plugin
	indent  int
	dump    bool
	log     *zap.Logger
}

// Result describes a single optimization run.
type Result struct {
	Changes map[string]int
	Styles  bool
	Scripts bool
	// Dump is computed style tree of the source document, only filled when
	// requested with SetDump.
	Dump string
}

// New creates an optimizer for the plugins named in configuration.
func New(cfg *config.OptimizeConfig, log *zap.Logger) (*Optimizer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	o := &Optimizer{indent: cfg.Indent, log: log.Named("optimize")}
	params := Params(cfg)
	for _, name := range cfg.Plugins {
		p, err := NewPlugin(name, params, log)
		if err != nil {
			return nil, err
		}
		o.plugins = append(o.plugins, p)
	}
	return o, nil
}

// SetDump requests computed style dumps of processed documents.
func (o *Optimizer) SetDump(on bool) {
	o.dump = on
}

// Document runs all plugins over doc. The style cache is reset after every
// plugin since plugins change the document.
func (o *Optimizer) Document(doc *etree.Document) Result {
	data := style.GetDocData(doc, o.log)
	res := Result{Changes: make(map[string]int, len(o.plugins)), Styles: data.Styles != nil, Scripts: data.HasScripts}
	if o.dump {
		res.Dump = style.Dump(doc, data.Styles)
	}
	for _, p := range o.plugins {
		start := time.Now()
		n := p.Apply(doc, data)
		res.Changes[p.Name()] = n
		if data.Styles != nil {
			data.Styles.ResetCache()
		}
		o.log.Debug("Plugin done", zap.String("plugin", p.Name()), zap.Int("changes", n), zap.Duration("elapsed", time.Since(start)))
	}
	return res
}

// NewDocument returns an empty document with read and write settings used
// for SVG files.
func NewDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charsetReader,
		Permissive:    true,
		PreserveCData: true,
	}
	doc.WriteSettings = etree.WriteSettings{
		CanonicalAttrVal: true,
	}
	return doc
}

// charsetReader decodes declared legacy encodings. Unicode encodings are
// passed through: encoding/xml only sees declaration of UTF-16 or UTF-32
// document after it was transcoded to UTF-8 by the caller.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	if strings.HasPrefix(l, "utf-16") || strings.HasPrefix(l, "utf-32") || strings.HasPrefix(l, "ucs-") {
		return input, nil
	}
	return charset.NewReaderLabel(label, input)
}

var declEncoding = regexp.MustCompile(`(encoding\s*=\s*)("[^"]*"|'[^']*')`)

// fixDeclaration makes XML declaration match UTF-8 output.
func fixDeclaration(doc *etree.Document) {
	for _, t := range doc.Child {
		if pi, ok := t.(*etree.ProcInst); ok && pi.Target == "xml" {
			pi.Inst = declEncoding.ReplaceAllString(pi.Inst, `${1}"UTF-8"`)
			return
		}
	}
}

// Optimize reads an SVG document from r, optimizes it and writes the result
// to w.
func (o *Optimizer) Optimize(r io.Reader, w io.Writer) (Result, error) {
	doc := NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return Result{}, fmt.Errorf("unable to read SVG: %w", err)
	}
	if doc.Root() == nil {
		return Result{}, fmt.Errorf("unable to read SVG: no root element")
	}

	res := o.Document(doc)

	fixDeclaration(doc)
	if o.indent > 0 {
		doc.Indent(o.indent)
	}
	if _, err := doc.WriteTo(w); err != nil {
		return res, fmt.Errorf("unable to write SVG: %w", err)
	}
	return res, nil
}
