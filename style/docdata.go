package style

import (
	"errors"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"svgmin/css"
)

// DocData is what plugins need to know about a document before changing it.
type DocData struct {
	// Styles is nil when the document stylesheets cannot be used: style
	// dependent optimizations must be skipped then.
	Styles *StyleData
	// HasScripts is set when the document contains scripts or event
	// handlers.
	HasScripts bool
}

// GetDocData collects <style> elements of the document and detects scripts.
func GetDocData(doc *etree.Document, log *zap.Logger) DocData {
	if log == nil {
		log = zap.NewNop()
	}
	var (
		data    DocData
		sets    []css.RuleSet
		usable  = true
		parser  = css.NewParser(log)
		visitFn func(el *etree.Element)
	)

	visitFn = func(el *etree.Element) {
		if isScript(el) {
			data.HasScripts = true
		}
		if el.Tag == "style" && usable {
			rs, err := parseStyleElement(parser, el)
			if err != nil {
				log.Debug("Document styles are not usable", zap.String("element", el.GetPath()), zap.Error(err))
				usable = false
			}
			sets = append(sets, rs...)
		}
		for _, child := range el.ChildElements() {
			visitFn(child)
		}
	}
	for _, el := range doc.ChildElements() {
		visitFn(el)
	}

	if !usable {
		return data
	}
	styles, err := New(sets, log)
	if err != nil {
		log.Debug("Document styles are not usable", zap.Error(err))
		return data
	}
	data.Styles = styles
	return data
}

var errStyleElement = errors.New("unsupported <style> element")

func parseStyleElement(parser *css.Parser, el *etree.Element) ([]css.RuleSet, error) {
	for _, a := range el.Attr {
		if a.Space != "" || !styleElementAttrs[a.Key] {
			return nil, &css.ParseError{Msg: "attribute " + a.FullKey(), Err: errStyleElement}
		}
	}
	if typ := el.SelectAttrValue("type", ""); typ != "" && typ != "text/css" {
		return nil, &css.ParseError{Msg: "type " + typ, Err: errStyleElement}
	}

	var text strings.Builder
	for _, node := range el.Child {
		if cd, ok := node.(*etree.CharData); ok {
			text.WriteString(cd.Data)
		}
	}
	return parser.ParseStylesheet(text.String(), el.SelectAttrValue("media", ""))
}

func isScript(el *etree.Element) bool {
	if el.Tag == "script" {
		return true
	}
	for _, a := range el.Attr {
		if a.Space == "" && len(a.Key) > 2 && strings.EqualFold(a.Key[:2], "on") {
			return true
		}
		if a.Key == "href" && strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Value)), "javascript:") {
			return true
		}
	}
	return false
}
