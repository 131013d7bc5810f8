package archive

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Lllllllleong/docassembly/internal/binding"
	"github.com/Lllllllleong/docassembly/internal/layout"
	"github.com/Lllllllleong/docassembly/internal/models"
)

// MergedBuilder collects PDFs to be concatenated into one document.
type MergedBuilder struct {
	gen   Generator
	parts []func(ctx context.Context) ([]byte, error)
}

func NewMergedBuilder(gen Generator) *MergedBuilder {
	return &MergedBuilder{gen: gen}
}

// PDF generates src as a PDF.
func (m *MergedBuilder) PDF(src binding.Source) *MergedBuilder {
	m.parts = append(m.parts, func(ctx context.Context) ([]byte, error) {
		doc, err := m.gen.PDF(ctx, src, false)
		if err != nil {
			return nil, err
		}
		return models.Drain(doc)
	})
	return m
}

// PDFBytes adds an existing PDF.
func (m *MergedBuilder) PDFBytes(b []byte) *MergedBuilder {
	m.parts = append(m.parts, func(context.Context) ([]byte, error) {
		return b, nil
	})
	return m
}

// PDFFile adds a PDF read from disk when the merge runs.
func (m *MergedBuilder) PDFFile(path string) *MergedBuilder {
	m.parts = append(m.parts, func(context.Context) ([]byte, error) {
		b, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.NewMissingResourceError(path, err)
		}
		return b, err
	})
	return m
}

// Merge realises the parts in order and concatenates them.
func (m *MergedBuilder) Merge(ctx context.Context, countPages bool) (*models.Document, error) {
	pdfs := make([][]byte, 0, len(m.parts))
	for i, part := range m.parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := part(ctx)
		if err != nil {
			return nil, fmt.Errorf("merge part %d: %w", i+1, err)
		}
		pdfs = append(pdfs, b)
	}

	merged, err := layout.Merge(pdfs)
	if err != nil {
		return nil, err
	}
	doc := models.NewDocumentBytes(merged, models.FormatPDF)
	if countPages {
		n, err := layout.PageCount(merged)
		if err != nil {
			return nil, err
		}
		doc.WithPageCount(n)
	}
	return doc, nil
}
