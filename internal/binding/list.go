package binding

import (
	"strings"

	"github.com/Lllllllleong/docassembly/internal/docx"
	"github.com/Lllllllleong/docassembly/internal/models"
)

// ListContext renders list items as consecutive paragraphs. The cursor
// always points after the last paragraph rendered, so item renderers that
// need extra paragraphs must create them with Paragraph.
type ListContext struct {
	doc    *docx.Document
	cursor docx.Position
}

// Paragraph inserts a paragraph after the cursor and moves the cursor past it.
func (l *ListContext) Paragraph() (*docx.Paragraph, error) {
	p, next, err := l.doc.InsertParagraphAfter(l.cursor)
	if err != nil {
		return nil, err
	}
	l.cursor = next
	return p, nil
}

// List registers a dynamic list anchored at the last body paragraph
// containing ${name}. The anchor paragraph is reused for the first item.
func List[T any](c *Context, name string, items []T, render func(*ListContext, T, *docx.Paragraph)) {
	c.lists = append(c.lists, func() error {
		anchor := findParagraph(c.doc, name)
		if anchor == nil {
			return models.NewTemplateStructureError("paragraph", name)
		}
		anchor.ClearRuns()

		l := &ListContext{doc: c.doc, cursor: anchor.Position()}
		for i, item := range items {
			p := anchor
			if i > 0 {
				var err error
				if p, err = l.Paragraph(); err != nil {
					return err
				}
			}
			render(l, item, p)
		}
		return nil
	})
}

func findParagraph(doc *docx.Document, name string) *docx.Paragraph {
	token := "${" + name + "}"
	var found *docx.Paragraph
	for _, p := range doc.Paragraphs() {
		if strings.Contains(p.Text(), token) {
			found = p
		}
	}
	return found
}
