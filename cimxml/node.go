// Package cimxml implements the CIM-XML wire codec: request-side encoding
// of CIM operations into the DTD-compliant envelope, and response-side
// decoding of that envelope back into an intermediate Node tree that the
// wbem package's operation layer maps onto cim objects.
package cimxml

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Node is a generic XML element: its name, attributes, raw inner
// content, and child elements. The decoder parses the whole response
// body into a Node tree once; individual Decode* helpers then walk that
// tree, rather than each maintaining their own xml.Decoder cursor. This
// mirrors the teacher's *ASDU Decode* methods, which each consume a
// fixed prefix off a shared buffer and advance a cursor — here the
// "buffer" is the child-node list and "advancing" is tree descent.
type Node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Chardata string    `xml:",chardata"`
	Children []Node    `xml:",any"`
}

// ParseNode parses a single top-level XML element from b.
func ParseNode(b []byte) (Node, error) {
	var n Node
	if err := xml.Unmarshal(b, &n); err != nil {
		return Node{}, fmt.Errorf("%w: %v", ErrXMLSyntax, err)
	}
	return n, nil
}

// Attr returns the named attribute's value, case-sensitively (CIM-XML
// attribute names are uppercase by convention but the DTD does not
// mandate case folding).
func (n Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first child element with the given local name.
func (n Node) Child(name string) (Node, bool) {
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			return c, true
		}
	}
	return Node{}, false
}

// ChildrenNamed returns all child elements with the given local name, in
// document order.
func (n Node) ChildrenNamed(name string) []Node {
	var out []Node
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			out = append(out, c)
		}
	}
	return out
}

// Text returns the trimmed character data directly inside the element.
func (n Node) Text() string {
	return strings.TrimSpace(n.Chardata)
}
