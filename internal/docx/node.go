package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type nodeKind int

const (
	elementNode nodeKind = iota
	textNode
	rawNode
)

// Node is one item of a parsed XML part. Names keep their original prefix in
// Name.Space (for example "w" for "w:p"), so a part serializes back with the
// namespace declarations it was read with.
type Node struct {
	kind     nodeKind
	Name     xml.Name
	Attrs    []xml.Attr
	Children []*Node
	Text     string
	raw      []byte
	Parent   *Node
}

// parseXML reads a complete part into a synthetic root whose children are the
// top-level tokens (processing instruction, document element).
func parseXML(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	root := &Node{kind: elementNode}
	cur := root
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{kind: elementNode, Name: t.Name, Attrs: append([]xml.Attr(nil), t.Attr...), Parent: cur}
			cur.Children = append(cur.Children, n)
			cur = n
		case xml.EndElement:
			if cur.Parent == nil {
				return nil, fmt.Errorf("unexpected closing tag %s", qualified(t.Name))
			}
			cur = cur.Parent
		case xml.CharData:
			cur.Children = append(cur.Children, &Node{kind: textNode, Text: string(t), Parent: cur})
		case xml.ProcInst:
			var b bytes.Buffer
			fmt.Fprintf(&b, "<?%s %s?>", t.Target, t.Inst)
			cur.Children = append(cur.Children, &Node{kind: rawNode, raw: b.Bytes(), Parent: cur})
		case xml.Comment:
			cur.Children = append(cur.Children, &Node{kind: rawNode, raw: []byte("<!--" + string(t) + "-->"), Parent: cur})
		case xml.Directive:
			cur.Children = append(cur.Children, &Node{kind: rawNode, raw: []byte("<!" + string(t) + ">"), Parent: cur})
		}
	}
	if cur != root {
		return nil, fmt.Errorf("unclosed element %s", qualified(cur.Name))
	}
	return root, nil
}

// parseFragment parses a snippet with a single top-level element.
func parseFragment(s string) (*Node, error) {
	root, err := parseXML([]byte(s))
	if err != nil {
		return nil, err
	}
	for _, c := range root.Children {
		if c.kind == elementNode {
			c.Parent = nil
			return c, nil
		}
	}
	return nil, fmt.Errorf("fragment has no element")
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#xD;")

// serialize writes the top-level tokens of a parsed part. Text between them
// is whitespace only and is written as is: a character reference outside
// the document element is not well-formed.
func (n *Node) serialize() []byte {
	var b bytes.Buffer
	for _, c := range n.Children {
		if c.kind == textNode {
			if strings.TrimSpace(c.Text) == "" {
				b.WriteString(c.Text)
			}
			continue
		}
		c.write(&b)
	}
	return b.Bytes()
}

func (n *Node) write(b *bytes.Buffer) {
	switch n.kind {
	case textNode:
		_, _ = textEscaper.WriteString(b, n.Text)
	case rawNode:
		b.Write(n.raw)
	case elementNode:
		name := qualified(n.Name)
		b.WriteByte('<')
		b.WriteString(name)
		for _, a := range n.Attrs {
			b.WriteByte(' ')
			b.WriteString(qualified(a.Name))
			b.WriteString(`="`)
			_ = xml.EscapeText(b, []byte(a.Value))
			b.WriteByte('"')
		}
		if len(n.Children) == 0 {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for _, c := range n.Children {
			c.write(b)
		}
		b.WriteString("</")
		b.WriteString(name)
		b.WriteByte('>')
	}
}

func (n *Node) is(space, local string) bool {
	return n.kind == elementNode && n.Name.Space == space && n.Name.Local == local
}

// elements returns the direct element children matching space:local.
func (n *Node) elements(space, local string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.is(space, local) {
			out = append(out, c)
		}
	}
	return out
}

func (n *Node) first(space, local string) *Node {
	for _, c := range n.Children {
		if c.is(space, local) {
			return c
		}
	}
	return nil
}

// find walks the subtree depth-first and returns the first match.
func (n *Node) find(space, local string) *Node {
	for _, c := range n.Children {
		if c.is(space, local) {
			return c
		}
		if f := c.find(space, local); f != nil {
			return f
		}
	}
	return nil
}

// collect returns every descendant matching space:local in document order,
// without descending into matches.
func (n *Node) collect(space, local string, out []*Node) []*Node {
	for _, c := range n.Children {
		if c.is(space, local) {
			out = append(out, c)
			continue
		}
		out = c.collect(space, local, out)
	}
	return out
}

func (n *Node) attr(space, local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func (n *Node) setAttr(space, local, value string) {
	for i, a := range n.Attrs {
		if a.Name.Space == space && a.Name.Local == local {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Space: space, Local: local}, Value: value})
}

// text concatenates all character data below n.
func (n *Node) text() string {
	var b bytes.Buffer
	n.appendText(&b)
	return b.String()
}

func (n *Node) appendText(b *bytes.Buffer) {
	for _, c := range n.Children {
		if c.kind == textNode {
			b.WriteString(c.Text)
		} else {
			c.appendText(b)
		}
	}
}

func (n *Node) appendChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

func (n *Node) insertChild(i int, c *Node) {
	c.Parent = n
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = c
}

func (n *Node) index(c *Node) int {
	for i, x := range n.Children {
		if x == c {
			return i
		}
	}
	return -1
}

func (n *Node) removeChild(c *Node) {
	if i := n.index(c); i >= 0 {
		n.Children = append(n.Children[:i], n.Children[i+1:]...)
		c.Parent = nil
	}
}

func (n *Node) clone() *Node {
	c := &Node{kind: n.kind, Name: n.Name, Text: n.Text}
	c.Attrs = append([]xml.Attr(nil), n.Attrs...)
	if n.raw != nil {
		c.raw = append([]byte(nil), n.raw...)
	}
	for _, ch := range n.Children {
		cc := ch.clone()
		cc.Parent = c
		c.Children = append(c.Children, cc)
	}
	return c
}

func newElement(space, local string) *Node {
	return &Node{kind: elementNode, Name: xml.Name{Space: space, Local: local}}
}
