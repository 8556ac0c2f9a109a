// Package svgdom wraps an etree document holding one SVG drawing and
// provides the node-level primitives the mimic aspects are applied with.
package svgdom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

const (
	// BindingAttr marks an element as driven by the named parameter.
	BindingAttr = "data-rtmt-binding-id"

	Namespace = "http://www.w3.org/2000/svg"
)

var (
	ErrNotSVG = errors.New("document root is not an svg element")
	ErrEmpty  = errors.New("empty document")

	// ErrEntities rejects documents declaring a DTD internal subset.
	ErrEntities = errors.New("document declares entities")
)

// Document is a parsed SVG drawing. The root element stays valid after it is
// moved under a Host.
type Document struct {
	doc  *etree.Document
	root *etree.Element
}

// Parse reads an SVG document. Non UTF-8 encodings declared in the XML
// prolog are converted.
func Parse(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	for _, tok := range doc.Child {
		if d, ok := tok.(*etree.Directive); ok && strings.Contains(d.Data, "ENTITY") {
			return nil, ErrEntities
		}
	}

	root := doc.Root()
	if root == nil {
		return nil, ErrEmpty
	}
	if root.Tag != "svg" {
		return nil, fmt.Errorf("%w: found <%s>", ErrNotSVG, root.FullTag())
	}

	return &Document{doc: doc, root: root}, nil
}

func (d *Document) Root() *etree.Element { return d.root }

// Bound returns, in document order, every element carrying attr.
func (d *Document) Bound(attr string) []*etree.Element {
	var out []*etree.Element
	walk(d.root, func(el *etree.Element) {
		if el.SelectAttr(attr) != nil {
			out = append(out, el)
		}
	})
	return out
}

// Count returns the number of elements in the drawing.
func (d *Document) Count() int {
	n := 0
	walk(d.root, func(*etree.Element) { n++ })
	return n
}

// Bytes serialises the drawing as a standalone SVG document.
func (d *Document) Bytes() ([]byte, error) {
	return Serialise(d.root)
}

// Serialise writes el and its subtree as a standalone XML document without
// detaching it from its current parent.
func Serialise(el *etree.Element) ([]byte, error) {
	out := etree.NewDocument()
	out.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	out.SetRoot(el.Copy())
	return out.WriteToBytes()
}

func walk(el *etree.Element, fn func(*etree.Element)) {
	fn(el)
	for _, child := range el.ChildElements() {
		walk(child, fn)
	}
}
