// Package docx is a small mutable object model over WordprocessingML
// packages: body and footer paragraphs, runs, tables and inline pictures.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

const (
	documentPart     = "word/document.xml"
	contentTypesPart = "[Content_Types].xml"
	appPropsPart     = "docProps/app.xml"
)

var footerPartRe = regexp.MustCompile(`^word/footer\d*\.xml$`)

// Document is an opened .docx package. Parts that are not modelled are
// copied through unchanged on Save.
type Document struct {
	order   []string
	parts   map[string][]byte
	trees   map[string]*Node
	footers []string
	body    *Node

	pictureSeq int
}

// Open reads a .docx package from memory.
func Open(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx archive: %w", err)
	}

	d := &Document{
		parts: make(map[string][]byte, len(zr.File)),
		trees: make(map[string]*Node),
	}
	for _, f := range zr.File {
		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
		}
		d.order = append(d.order, f.Name)
		d.parts[f.Name] = content
		if footerPartRe.MatchString(f.Name) {
			d.footers = append(d.footers, f.Name)
		}
	}
	sort.Strings(d.footers)

	root, err := d.tree(documentPart)
	if err != nil {
		return nil, err
	}
	d.body = root.find("w", "body")
	if d.body == nil {
		return nil, fmt.Errorf("%s has no body", documentPart)
	}
	return d, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// tree returns the parsed form of a part, parsing it on first use.
func (d *Document) tree(name string) (*Node, error) {
	if t, ok := d.trees[name]; ok {
		return t, nil
	}
	raw, ok := d.parts[name]
	if !ok {
		return nil, fmt.Errorf("docx has no part %s", name)
	}
	t, err := parseXML(raw)
	if err != nil {
		return nil, fmt.Errorf("part %s: %w", name, err)
	}
	d.trees[name] = t
	return t, nil
}

func (d *Document) addPart(name string, content []byte) {
	if _, exists := d.parts[name]; !exists {
		d.order = append(d.order, name)
	}
	d.parts[name] = content
	delete(d.trees, name)
}

// Save serializes the package, writing modified parts back in their
// original order and new parts at the end.
func (d *Document) Save() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range d.order {
		content := d.parts[name]
		if t, ok := d.trees[name]; ok {
			content = t.serialize()
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("failed to create part %s: %w", name, err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, fmt.Errorf("failed to write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize docx archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Paragraphs returns the top-level body paragraphs.
func (d *Document) Paragraphs() []*Paragraph {
	return wrapParagraphs(d, d.body.elements("w", "p"))
}

// Tables returns the top-level body tables.
func (d *Document) Tables() []*Table {
	var out []*Table
	for _, n := range d.body.elements("w", "tbl") {
		out = append(out, &Table{node: n, doc: d})
	}
	return out
}

// FooterParagraphs returns the paragraphs of every footer part.
func (d *Document) FooterParagraphs() []*Paragraph {
	var out []*Paragraph
	for _, name := range d.footers {
		t, err := d.tree(name)
		if err != nil {
			continue
		}
		if ftr := t.first("w", "ftr"); ftr != nil {
			out = append(out, wrapParagraphs(d, ftr.collect("w", "p", nil))...)
		}
	}
	return out
}

// Text returns the rendered text of the body followed by the footers, one
// line per paragraph.
func (d *Document) Text() string {
	var lines []string
	for _, p := range d.body.collect("w", "p", nil) {
		lines = append(lines, paragraphText(p))
	}
	for _, p := range d.FooterParagraphs() {
		lines = append(lines, p.Text())
	}
	return strings.Join(lines, "\n")
}

// Position marks a place in the body after which content is inserted.
type Position struct {
	node *Node
}

// InsertParagraphAfter inserts an empty paragraph right after pos and
// returns it together with the position following it.
func (d *Document) InsertParagraphAfter(pos Position) (*Paragraph, Position, error) {
	if pos.node == nil || pos.node.Parent == nil {
		return nil, Position{}, fmt.Errorf("invalid insert position")
	}
	parent := pos.node.Parent
	p := newElement("w", "p")
	if pPr := pos.node.first("w", "pPr"); pPr != nil && pos.node.is("w", "p") {
		p.appendChild(pPr.clone())
	}
	parent.insertChild(parent.index(pos.node)+1, p)
	return &Paragraph{node: p, doc: d}, Position{node: p}, nil
}
