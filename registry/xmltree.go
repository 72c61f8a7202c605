package registry

import (
	"encoding/xml"
	"io"
	"strings"
)

// Node is an element of a parsed XML document.
//
// Declarations in the registry are mixed content, e.g.
//
//	<member>const <type>void</type>* <name>pNext</name></member>
//
// so a node keeps the text before its first child in Text and the text
// following its own end tag in Tail.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Tail     string
	Children []*Node
}

// ParseTree reads a whole XML document and returns its root element.
func ParseTree(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			n := &Node{Tag: tok.Name.Local}
			if len(tok.Attr) > 0 {
				n.Attrs = make(map[string]string, len(tok.Attr))
				for _, a := range tok.Attr {
					n.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			cur := stack[len(stack)-1]
			if len(cur.Children) == 0 {
				cur.Text += string(tok)
			} else {
				last := cur.Children[len(cur.Children)-1]
				last.Tail += string(tok)
			}
		}
	}
	if root == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return root, nil
}

// Get returns the value of an attribute, or "" if it isn't set.
func (n *Node) Get(attr string) string {
	return n.Attrs[attr]
}

// Find returns the first element matching a slash separated path of
// tags relative to n, or nil.
func (n *Node) Find(path string) *Node {
	cur := n
	for _, tag := range strings.Split(path, "/") {
		var next *Node
		for _, c := range cur.Children {
			if c.Tag == tag {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// FindAll returns the direct children with the given tag.
func (n *Node) FindAll(tag string) []*Node {
	var res []*Node
	for _, c := range n.Children {
		if c.Tag == tag {
			res = append(res, c)
		}
	}
	return res
}

// FindText returns the Text of the element at path, or "" if there is
// none.
func (n *Node) FindText(path string) string {
	if c := n.Find(path); c != nil {
		return c.Text
	}
	return ""
}
