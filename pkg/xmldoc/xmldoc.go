// Package xmldoc is the hierarchical named-node document used to persist
// parameter containers, geometry trees and link tables.
//
// Every reader goes through Value and AttrValue, so a missing or malformed
// field always falls back to the caller's default.
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Attr is a single name/value attribute.
type Attr struct {
	Name  string
	Value string
}

// Node is one element of a document.
type Node struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Node
}

// New returns an empty node with the given element name.
func New(name string) *Node {
	return &Node{Name: name}
}

// AddChild appends and returns a new child element.
func (n *Node) AddChild(name string) *Node {
	c := New(name)
	n.Children = append(n.Children, c)
	return c
}

// Append adds an existing node as the last child.
func (n *Node) Append(c *Node) {
	if c != nil {
		n.Children = append(n.Children, c)
	}
}

// AddText appends a child holding only text.
func (n *Node) AddText(name, text string) *Node {
	c := n.AddChild(name)
	c.Text = text
	return c
}

// AddFloat appends a child holding a float formatted for exact round-trip.
func (n *Node) AddFloat(name string, v float64) *Node {
	return n.AddText(name, FormatFloat(v))
}

// AddInt appends a child holding an integer.
func (n *Node) AddInt(name string, v int) *Node {
	return n.AddText(name, strconv.Itoa(v))
}

// SetAttr sets or replaces an attribute.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// SetFloatAttr sets an attribute to an exactly round-tripping float.
func (n *Node) SetFloatAttr(name string, v float64) {
	n.SetAttr(name, FormatFloat(v))
}

// Attr returns the named attribute. It is safe on a nil node.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first child with the given name, or nil. It is safe on
// a nil node, so lookups can be chained.
func (n *Node) Child(name string) *Node {
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

// ChildrenNamed returns every child with the given name in document order.
func (n *Node) ChildrenNamed(name string) []*Node {
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

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Name: n.Name, Text: n.Text}
	c.Attrs = append([]Attr(nil), n.Attrs...)
	for _, ch := range n.Children {
		c.Children = append(c.Children, ch.Clone())
	}
	return c
}

// Walk calls fn for n and every descendant in document order.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// ---------------------------------------------------------------------------
// Decode with defaults
// ---------------------------------------------------------------------------

// Scalar is the set of types the default-filling readers understand.
type Scalar interface {
	string | int | float64 | bool
}

// Value reads the text of child name as T. A missing child or a value that
// does not parse yields def.
func Value[T Scalar](n *Node, name string, def T) T {
	c := n.Child(name)
	if c == nil {
		return def
	}
	return parse(c.Text, def)
}

// AttrValue reads attribute name as T with the same default policy as Value.
func AttrValue[T Scalar](n *Node, name string, def T) T {
	s, ok := n.Attr(name)
	if !ok {
		return def
	}
	return parse(s, def)
}

func parse[T Scalar](s string, def T) T {
	s = strings.TrimSpace(s)
	var out any
	switch any(def).(type) {
	case string:
		out = s
	case int:
		v, err := strconv.Atoi(s)
		if err != nil {
			// Older documents store integer parms as floats.
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return def
			}
			v = int(f)
		}
		out = v
	case float64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return def
		}
		out = v
	case bool:
		switch strings.ToLower(s) {
		case "1", "true", "yes":
			out = true
		case "0", "false", "no":
			out = false
		default:
			return def
		}
	}
	return out.(T)
}

// FormatFloat formats v so that parsing it yields exactly v.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ---------------------------------------------------------------------------
// encoding/xml bridge
// ---------------------------------------------------------------------------

// MarshalXML writes n as an element named n.Name.
func (n *Node) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: n.Name}
	start.Attr = nil
	for _, a := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if n.Text != "" {
		if err := e.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := e.EncodeElement(c, xml.StartElement{Name: xml.Name{Local: c.Name}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// UnmarshalXML reads an arbitrary element tree.
func (n *Node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.Name = start.Name.Local
	for _, a := range start.Attr {
		n.Attrs = append(n.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
	}
	var text strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			c := &Node{}
			if err := c.UnmarshalXML(d, t); err != nil {
				return err
			}
			n.Children = append(n.Children, c)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			n.Text = strings.TrimSpace(text.String())
			return nil
		}
	}
}

// Write encodes n as an indented XML document.
func Write(w io.Writer, n *Node) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(n); err != nil {
		return fmt.Errorf("xmldoc: encode %s: %w", n.Name, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Read decodes a document.
func Read(r io.Reader) (*Node, error) {
	var root Node
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("xmldoc: decode: %w", err)
	}
	return &root, nil
}

// Marshal is Write into a byte slice.
func Marshal(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal is Read from a byte slice.
func Unmarshal(data []byte) (*Node, error) {
	return Read(bytes.NewReader(data))
}
