package svgdom

import (
	"errors"

	"github.com/beevik/etree"
)

const ContainerID = "mimic"

var ErrAttached = errors.New("host already holds a drawing")

// Host is an XHTML page with one container element that a drawing can be
// attached to.
type Host struct {
	page      *etree.Document
	body      *etree.Element
	container *etree.Element
	attached  *etree.Element
}

func NewHost(title string) *Host {
	page := etree.NewDocument()
	page.CreateDirective("DOCTYPE html")

	html := page.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")

	head := html.CreateElement("head")
	meta := head.CreateElement("meta")
	meta.CreateAttr("charset", "utf-8")
	head.CreateElement("title").SetText(title)

	body := html.CreateElement("body")
	container := body.CreateElement("div")
	container.CreateAttr("id", ContainerID)

	return &Host{page: page, body: body, container: container}
}

// Attach moves root under the container.
func (h *Host) Attach(root *etree.Element) error {
	if h.attached != nil {
		return ErrAttached
	}
	h.container.AddChild(root)
	h.attached = root
	return nil
}

// Detach removes root from the container. Detaching a drawing that is not
// attached does nothing.
func (h *Host) Detach(root *etree.Element) {
	if h.attached == nil || h.attached != root {
		return
	}
	h.container.RemoveChild(root)
	h.attached = nil
}

func (h *Host) Attached() bool { return h.attached != nil }

// AddScript appends an inline script to the page body.
func (h *Host) AddScript(source string) {
	script := h.body.CreateElement("script")
	script.CreateCData(source)
}

// Bytes serialises the page. Serve it as application/xhtml+xml; inline
// scripts are written as CDATA sections.
func (h *Host) Bytes() ([]byte, error) {
	return h.page.WriteToBytes()
}

// Page builds a host page around an already serialised drawing.
func Page(title string, svg []byte, scripts ...string) ([]byte, error) {
	doc, err := Parse(svg)
	if err != nil {
		return nil, err
	}
	h := NewHost(title)
	if err := h.Attach(doc.Root()); err != nil {
		return nil, err
	}
	for _, s := range scripts {
		h.AddScript(s)
	}
	return h.Bytes()
}
