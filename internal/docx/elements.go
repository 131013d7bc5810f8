package docx

import "strings"

// Paragraph is a w:p element.
type Paragraph struct {
	node *Node
	doc  *Document
}

func wrapParagraphs(d *Document, nodes []*Node) []*Paragraph {
	out := make([]*Paragraph, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &Paragraph{node: n, doc: d})
	}
	return out
}

// Runs returns the runs of the paragraph, including runs nested in
// hyperlinks.
func (p *Paragraph) Runs() []*Run {
	var out []*Run
	for _, c := range p.node.Children {
		switch {
		case c.is("w", "r"):
			out = append(out, &Run{node: c, doc: p.doc})
		case c.is("w", "hyperlink"):
			for _, r := range c.elements("w", "r") {
				out = append(out, &Run{node: r, doc: p.doc})
			}
		}
	}
	return out
}

func (p *Paragraph) Text() string {
	return paragraphText(p.node)
}

func paragraphText(n *Node) string {
	var b strings.Builder
	for _, t := range n.collect("w", "t", nil) {
		b.WriteString(t.text())
	}
	return b.String()
}

// AddRun appends a run holding text.
func (p *Paragraph) AddRun(text string) *Run {
	r := &Run{node: newElement("w", "r"), doc: p.doc}
	p.node.appendChild(r.node)
	r.SetText(text)
	return r
}

// ClearRuns empties the text of every run.
func (p *Paragraph) ClearRuns() {
	for _, r := range p.Runs() {
		r.SetText("")
	}
}

// Position returns the position right after this paragraph.
func (p *Paragraph) Position() Position {
	return Position{node: p.node}
}

// Run is a w:r element.
type Run struct {
	node *Node
	doc  *Document
}

func (r *Run) Text() string {
	var b strings.Builder
	for _, t := range r.node.elements("w", "t") {
		b.WriteString(t.text())
	}
	return b.String()
}

// SetText replaces the text of the run. Formatting (w:rPr) is kept.
func (r *Run) SetText(s string) {
	ts := r.node.elements("w", "t")
	for i, t := range ts {
		if i > 0 {
			r.node.removeChild(t)
		}
	}
	var t *Node
	if len(ts) > 0 {
		t = ts[0]
		t.Children = nil
	} else {
		t = newElement("w", "t")
		r.node.appendChild(t)
	}
	t.setAttr("xml", "space", "preserve")
	if s != "" {
		t.appendChild(&Node{kind: textNode, Text: s})
	}
}

// Table is a w:tbl element.
type Table struct {
	node *Node
	doc  *Document
}

func (t *Table) Rows() []*Row {
	var out []*Row
	for _, n := range t.node.elements("w", "tr") {
		out = append(out, &Row{node: n, doc: t.doc})
	}
	return out
}

// Row returns row i or nil.
func (t *Table) Row(i int) *Row {
	rows := t.Rows()
	if i < 0 || i >= len(rows) {
		return nil
	}
	return rows[i]
}

// AddRow appends a row with as many empty cells as the first row has. Row
// and cell properties are copied from the first row.
func (t *Table) AddRow() *Row {
	tr := newElement("w", "tr")
	if first := t.Row(0); first != nil {
		if trPr := first.node.first("w", "trPr"); trPr != nil {
			tr.appendChild(trPr.clone())
		}
		for _, tc := range first.node.elements("w", "tc") {
			tr.appendChild(emptyCell(tc.first("w", "tcPr")))
		}
	}
	t.node.appendChild(tr)
	return &Row{node: tr, doc: t.doc}
}

// Row is a w:tr element.
type Row struct {
	node *Node
	doc  *Document
}

// Remove detaches the row from its table.
func (r *Row) Remove() {
	if r.node.Parent != nil {
		r.node.Parent.removeChild(r.node)
	}
}

func (r *Row) Cells() []*Cell {
	var out []*Cell
	for _, n := range r.node.elements("w", "tc") {
		out = append(out, &Cell{node: n, doc: r.doc})
	}
	return out
}

// Cell returns cell i or nil.
func (r *Row) Cell(i int) *Cell {
	cells := r.Cells()
	if i < 0 || i >= len(cells) {
		return nil
	}
	return cells[i]
}

// AddCell appends an empty cell.
func (r *Row) AddCell() *Cell {
	tc := emptyCell(nil)
	r.node.appendChild(tc)
	return &Cell{node: tc, doc: r.doc}
}

func emptyCell(tcPr *Node) *Node {
	tc := newElement("w", "tc")
	if tcPr != nil {
		tc.appendChild(tcPr.clone())
	}
	tc.appendChild(newElement("w", "p"))
	return tc
}

// Cell is a w:tc element.
type Cell struct {
	node *Node
	doc  *Document
}

func (c *Cell) Paragraphs() []*Paragraph {
	return wrapParagraphs(c.doc, c.node.collect("w", "p", nil))
}

// Text joins the cell's paragraphs with newlines.
func (c *Cell) Text() string {
	var lines []string
	for _, p := range c.Paragraphs() {
		lines = append(lines, p.Text())
	}
	return strings.Join(lines, "\n")
}

// Clear removes all paragraphs but keeps an empty one carrying the first
// paragraph's properties, as a cell must hold at least one paragraph.
func (c *Cell) Clear() {
	var pPr *Node
	for _, p := range c.node.elements("w", "p") {
		if pPr == nil {
			if pp := p.first("w", "pPr"); pp != nil {
				pPr = pp.clone()
			}
		}
		c.node.removeChild(p)
	}
	p := newElement("w", "p")
	if pPr != nil {
		p.appendChild(pPr)
	}
	c.node.appendChild(p)
}

// SetText replaces the runs of the first paragraph with a single run.
func (c *Cell) SetText(s string) {
	p := c.node.first("w", "p")
	if p == nil {
		p = newElement("w", "p")
		c.node.appendChild(p)
	}
	kept := p.Children[:0]
	for _, ch := range p.Children {
		if ch.is("w", "pPr") {
			kept = append(kept, ch)
		}
	}
	p.Children = kept
	(&Paragraph{node: p, doc: c.doc}).AddRun(s)
}
