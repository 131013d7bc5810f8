package services

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/docassembly/internal/archive"
	"github.com/Lllllllleong/docassembly/internal/layout"
	"github.com/Lllllllleong/docassembly/internal/models"
)

// Recipe produces the content of one document type from its input data.
type Recipe func(ctx context.Context, data any, f models.Format) (models.Content, error)

// Recipes maps document types to their recipes.
type Recipes map[models.DocType]Recipe

func DefaultRecipes(s *DocumentService) Recipes {
	return Recipes{
		models.DocTypeCourtOrder: s.courtOrder,
	}
}

// CourtOrderRequest is the input of the court order recipe: a certificate
// page followed by the pages of a register extract.
type CourtOrderRequest struct {
	PDF         []byte
	Options     models.Options
	Orientation models.Orientation
}

// Get runs the recipe registered for t.
func (s *DocumentService) Get(ctx context.Context, t models.DocType, data any, f models.Format) (models.Content, error) {
	recipe, ok := s.recipes[t]
	if !ok {
		return nil, models.NewUnknownValueError("document type", string(t))
	}
	return recipe(ctx, data, f)
}

func (s *DocumentService) courtOrder(ctx context.Context, data any, f models.Format) (models.Content, error) {
	if f != models.FormatPDF && f != models.FormatNone {
		return nil, models.NewUnsupportedFormatError("court order", f)
	}
	var req CourtOrderRequest
	switch v := data.(type) {
	case CourtOrderRequest:
		req = v
	case *CourtOrderRequest:
		req = *v
	default:
		return nil, fmt.Errorf("court order expects CourtOrderRequest, got %T", data)
	}

	switch {
	case req.Options.NeedCombine:
		return s.combineCourtOrder(ctx, req)
	case req.Options.NeedSplit:
		from, to, err := splitRange(req.Options.PagesForSplit)
		if err != nil {
			return nil, err
		}
		return s.Split(req.PDF, from, to)
	}
	return models.NewDocumentBytes(req.PDF, models.FormatPDF), nil
}

// combineCourtOrder keeps the certificate on its own page and lays the
// remaining pages out N per sheet behind it.
func (s *DocumentService) combineCourtOrder(ctx context.Context, req CourtOrderRequest) (*models.Document, error) {
	n, err := s.CountPages(models.FormatPDF, req.PDF)
	if err != nil {
		return nil, err
	}
	if n < 2 {
		return models.NewDocumentBytes(req.PDF, models.FormatPDF).WithPageCount(n), nil
	}

	certificate, err := s.Split(req.PDF, 1, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to split certificate: %w", err)
	}
	extract, err := s.Split(req.PDF, 2, n)
	if err != nil {
		return nil, fmt.Errorf("failed to split extract: %w", err)
	}
	extractBytes, err := models.Drain(extract)
	if err != nil {
		return nil, err
	}
	combined, err := s.Combine(extractBytes, req.Orientation)
	if err != nil {
		return nil, err
	}

	certBytes, err := models.Drain(certificate)
	if err != nil {
		return nil, err
	}
	combinedBytes, err := models.Drain(combined)
	if err != nil {
		return nil, err
	}
	return s.Merge(ctx, true, func(m *archive.MergedBuilder) {
		m.PDFBytes(certBytes).PDFBytes(combinedBytes)
	})
}

func splitRange(pages []int) (int, int, error) {
	switch len(pages) {
	case 1:
		return pages[0], pages[0], nil
	case 2:
		return pages[0], pages[1], nil
	}
	return 0, 0, fmt.Errorf("pagesForSplit must hold one page or a [from, to] pair, got %v: %w", pages, layout.ErrPageRange)
}
