// Package markup implements the command document format carried inside
// protocol frames: named elements with string attributes and an ordered list
// of text and element children.
package markup

import (
	"fmt"
	"strconv"
	"strings"
)

// Attr is a single name/value attribute. Attribute order is preserved.
type Attr struct {
	Name  string
	Value string
}

// Node is one child of an element: either text or a nested element.
type Node struct {
	Text string
	Elem *Element
}

// IsText reports whether the node carries character data.
func (n Node) IsText() bool {
	return n.Elem == nil
}

// Element is a decoded command tree. Elements produced by Parse are never
// mutated afterwards.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []Node
}

// New creates an element with the given name.
func New(name string) *Element {
	return &Element{Name: name}
}

// NewText creates an element holding a single text child.
func NewText(name, text string) *Element {
	return New(name).AddText(text)
}

// SetAttr appends an attribute and returns the element for chaining.
func (e *Element) SetAttr(name, value string) *Element {
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
	return e
}

// SetAttrInt appends an integer-valued attribute.
func (e *Element) SetAttrInt(name string, value int) *Element {
	return e.SetAttr(name, strconv.Itoa(value))
}

// AddText appends a text child.
func (e *Element) AddText(text string) *Element {
	e.Children = append(e.Children, Node{Text: text})
	return e
}

// AddElement appends an element child.
func (e *Element) AddElement(child *Element) *Element {
	e.Children = append(e.Children, Node{Elem: child})
	return e
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttr reports whether the named attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// AttrInt returns the named attribute parsed as a decimal integer, or def
// when it is missing or malformed.
func (e *Element) AttrInt(name string, def int) int {
	v, ok := e.Attr(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Child returns the first child element with the given name.
func (e *Element) Child(name string) *Element {
	for _, c := range e.Children {
		if c.Elem != nil && c.Elem.Name == name {
			return c.Elem
		}
	}
	return nil
}

// Text returns the concatenated text children of the element.
func (e *Element) Text() string {
	var sb strings.Builder
	for _, c := range e.Children {
		if c.Elem == nil {
			sb.WriteString(c.Text)
		}
	}
	return sb.String()
}

// HasChildren reports whether the element has any children.
func (e *Element) HasChildren() bool {
	return len(e.Children) > 0
}

// String returns the wire encoding of the element.
func (e *Element) String() string {
	return string(Marshal(e))
}

// SyntaxError describes malformed markup.
type SyntaxError struct {
	Offset int
	Msg    string
}

// Error implements the error interface
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("markup syntax error at offset %d: %s", e.Offset, e.Msg)
}
