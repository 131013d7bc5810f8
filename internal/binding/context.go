package binding

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Lllllllleong/docassembly/internal/docx"
	"github.com/Lllllllleong/docassembly/internal/models"
)

var leftoverPlaceholderRe = regexp.MustCompile(`\$\{[A-Za-z0-9]+\}`)

// Context fills one .docx template. Tables and lists are registered before
// Generate and rendered after scalar substitution.
type Context struct {
	doc    *docx.Document
	fields Fields
	tables []func() error
	lists  []func() error
}

// NewContext opens the template. The template bytes are not modified.
func NewContext(template []byte, fields Fields) (*Context, error) {
	doc, err := docx.Open(template)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	return &Context{doc: doc, fields: fields}, nil
}

// Document exposes the document being filled.
func (c *Context) Document() *docx.Document {
	return c.doc
}

// Generate substitutes scalars, renders tables and lists, places images and
// validates that no placeholder is left.
func (c *Context) Generate() (*docx.Document, error) {
	err := c.scan(func(r *docx.Run) error {
		text := r.Text()
		if replaced := c.substitute(text); replaced != text {
			r.SetText(replaced)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, render := range c.tables {
		if err := render(); err != nil {
			return nil, err
		}
	}
	for _, render := range c.lists {
		if err := render(); err != nil {
			return nil, err
		}
	}

	if err := c.placeImages(); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c.doc, nil
}

// Render generates and serializes the document.
func (c *Context) Render() ([]byte, error) {
	doc, err := c.Generate()
	if err != nil {
		return nil, err
	}
	return doc.Save()
}

func (c *Context) substitute(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	for _, f := range c.fields.Scalars {
		s = strings.ReplaceAll(s, "${"+f.Name+"}", f.Value)
	}
	return s
}

// scan visits every run: table cells first, then footers, then the body.
func (c *Context) scan(fn func(*docx.Run) error) error {
	var paragraphs []*docx.Paragraph
	for _, t := range c.doc.Tables() {
		for _, row := range t.Rows() {
			for _, cell := range row.Cells() {
				paragraphs = append(paragraphs, cell.Paragraphs()...)
			}
		}
	}
	paragraphs = append(paragraphs, c.doc.FooterParagraphs()...)
	paragraphs = append(paragraphs, c.doc.Paragraphs()...)

	for _, p := range paragraphs {
		for _, r := range p.Runs() {
			if err := fn(r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Context) placeImages() error {
	return c.scan(func(r *docx.Run) error {
		for _, img := range c.fields.Images {
			if img.Name == TemplateField {
				continue
			}
			if !strings.Contains(r.Text(), "${"+img.Name+"}") {
				continue
			}
			r.SetText("")
			if c.fields.Stamp == models.StampNo {
				continue
			}
			size := int64(img.kind().Pixels()) * docx.EMUPerPixel
			if err := r.AddPicture(img.Data, "stamp", size, size); err != nil {
				return fmt.Errorf("failed to place image %s: %w", img.Name, err)
			}
		}
		return nil
	})
}

func (c *Context) validate() error {
	tokens := leftoverPlaceholderRe.FindAllString(c.doc.Text(), -1)
	if len(tokens) > 0 {
		return models.NewTemplateValidationError(tokens)
	}
	return nil
}
