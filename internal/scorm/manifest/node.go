package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Node is one element of a parsed manifest. Attributes live apart from child
// elements; character data is split into plain text and CDATA so callers can
// prefer one over the other. Whitespace-only text between elements is dropped.
type Node struct {
	Name      string
	Namespace string
	Attrs     map[string]string
	Text      string
	CDATA     string
	Children  []*Node
}

// Parse builds the element tree for an XML document. The returned node is a
// synthetic document node whose children are the top-level elements.
func Parse(xmlText string) (*Node, error) {
	data := []byte(xmlText)
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.Entity = xml.HTMLEntity
	// Input is already UTF-8 text; a declared legacy encoding is taken at face value.
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	doc := &Node{}
	stack := []*Node{doc}
	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, Namespace: t.Name.Space, Attrs: attrMap(t.Attr)}
			top.Children = append(top.Children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if top == doc {
				continue
			}
			if isCDATA(data, start) {
				top.CDATA += string(t)
				continue
			}
			if strings.TrimSpace(string(t)) != "" {
				top.Text += string(t)
			}
		}
	}
	if len(doc.Children) == 0 {
		return nil, errors.New("parse manifest: no root element")
	}
	return doc, nil
}

func isCDATA(data []byte, offset int64) bool {
	if offset < 0 || offset >= int64(len(data)) {
		return false
	}
	return bytes.HasPrefix(data[offset:], []byte("<![CDATA["))
}

func attrMap(attrs []xml.Attr) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		key := a.Name.Local
		switch {
		case a.Name.Space == "xmlns":
			key = "xmlns:" + a.Name.Local
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			key = "xmlns"
		}
		if _, dup := out[key]; !dup {
			out[key] = a.Value
		}
	}
	return out
}

// Attr returns the trimmed value of an attribute and whether it is non-empty.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	v := strings.TrimSpace(n.Attrs[name])
	return v, v != ""
}

// All returns the direct children named name, in document order.
func (n *Node) All(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// First returns the first direct child named name.
func (n *Node) First(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Has reports whether n has a direct child named name.
func (n *Node) Has(name string) bool {
	return n.First(name) != nil
}

// Select walks a path of element names from n and returns every element
// reached, in document order. Repeated siblings at any step are all followed.
func (n *Node) Select(path ...string) []*Node {
	if n == nil {
		return nil
	}
	cur := []*Node{n}
	for _, name := range path {
		var next []*Node
		for _, c := range cur {
			next = append(next, c.All(name)...)
		}
		if len(next) == 0 {
			return nil
		}
		cur = next
	}
	return cur
}

// Value returns the element's character content, preferring CDATA over text.
func (n *Node) Value() (string, bool) {
	if n == nil {
		return "", false
	}
	if v := strings.TrimSpace(n.CDATA); v != "" {
		return v, true
	}
	if v := strings.TrimSpace(n.Text); v != "" {
		return v, true
	}
	return "", false
}
