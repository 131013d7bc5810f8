package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/extrame/xls"

	"github.com/Lllllllleong/docassembly/internal/archive"
	"github.com/Lllllllleong/docassembly/internal/binding"
	"github.com/Lllllllleong/docassembly/internal/docx"
	"github.com/Lllllllleong/docassembly/internal/layout"
	"github.com/Lllllllleong/docassembly/internal/models"
)

// Converter turns office documents into PDF.
type Converter interface {
	Convert(ctx context.Context, data []byte) ([]byte, error)
}

// DocumentService generates documents from templates and reshapes PDFs.
type DocumentService struct {
	converter Converter
	modifiers *binding.ModifierRegistry
	renderers *binding.RendererRegistry
	recipes   Recipes
}

func NewDocumentService(converter Converter, modifiers *binding.ModifierRegistry, renderers *binding.RendererRegistry) *DocumentService {
	s := &DocumentService{
		converter: converter,
		modifiers: modifiers,
		renderers: renderers,
	}
	s.recipes = DefaultRecipes(s)
	return s
}

// Docx fills the template of src. With countPages the document is converted
// to PDF once to learn its page count.
func (s *DocumentService) Docx(ctx context.Context, src binding.Source, countPages bool) (*models.Document, error) {
	data, err := binding.GenerateDocx(src, s.modifiers)
	if err != nil {
		return nil, err
	}
	doc := models.NewDocumentBytes(data, models.FormatDOCX)
	if countPages {
		pdf, err := s.ConvertToPDF(ctx, data)
		if err != nil {
			return nil, err
		}
		n, err := layout.PageCount(pdf)
		if err != nil {
			return nil, err
		}
		doc.WithPageCount(n)
	}
	return doc, nil
}

// PDF fills the template of src and converts the result.
func (s *DocumentService) PDF(ctx context.Context, src binding.Source, countPages bool) (*models.Document, error) {
	data, err := binding.GenerateDocx(src, s.modifiers)
	if err != nil {
		return nil, err
	}
	pdf, err := s.ConvertToPDF(ctx, data)
	if err != nil {
		return nil, err
	}
	doc := models.NewDocumentBytes(pdf, models.FormatPDF)
	if countPages {
		n, err := layout.PageCount(pdf)
		if err != nil {
			return nil, err
		}
		doc.WithPageCount(n)
	}
	return doc, nil
}

func (s *DocumentService) ConvertToPDF(ctx context.Context, data []byte) ([]byte, error) {
	if s.converter == nil {
		return nil, fmt.Errorf("no converter configured")
	}
	pdf, err := s.converter.Convert(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to pdf: %w", err)
	}
	return pdf, nil
}

// Txt renders src with the text renderer registered for its tag.
func (s *DocumentService) Txt(src binding.Source) (*models.TextDocument, error) {
	return s.renderers.Render(src)
}

// Xlsx fills the workbook template of src.
func (s *DocumentService) Xlsx(src binding.Source) (*models.Document, error) {
	fields := src.Fields()
	data, err := binding.FillWorkbook(fields.Template, fields)
	if err != nil {
		return nil, err
	}
	return models.NewDocumentBytes(data, models.FormatXLSX), nil
}

func (s *DocumentService) Combine(pdf []byte, o models.Orientation) (*models.Document, error) {
	return layout.Combine(pdf, o)
}

func (s *DocumentService) Split(pdf []byte, from, to int) (*models.Document, error) {
	return layout.Split(pdf, from, to)
}

// Merge concatenates the PDFs registered by fill.
func (s *DocumentService) Merge(ctx context.Context, countPages bool, fill func(*archive.MergedBuilder)) (*models.Document, error) {
	m := archive.NewMergedBuilder(s)
	fill(m)
	return m.Merge(ctx, countPages)
}

// Zip builds an archive from the entries registered by fill.
func (s *DocumentService) Zip(ctx context.Context, fill func(*archive.Builder)) (*models.Archive, error) {
	b := archive.NewBuilder(s)
	fill(b)
	return b.Build(ctx)
}

// CountPages counts PDF pages, the declared pages of a DOCX, or the
// physical rows of the first XLS sheet.
func (s *DocumentService) CountPages(f models.Format, data []byte) (int, error) {
	switch f {
	case models.FormatPDF:
		return layout.PageCount(data)
	case models.FormatDOCX:
		return docx.PageCount(data)
	case models.FormatXLS:
		return countXLSRows(data)
	}
	return 0, models.NewUnsupportedFormatError("page count", f)
}

func countXLSRows(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("malformed xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return 0, fmt.Errorf("failed to open xls: %w", err)
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return 0, fmt.Errorf("xls has no sheets")
	}
	for i := 0; i <= int(ws.MaxRow); i++ {
		if hasRow(ws, i) {
			n++
		}
	}
	return n, nil
}

// hasRow reports whether row i is physically present. WorkSheet.Row
// dereferences missing rows, so absence shows up as a panic.
func hasRow(ws *xls.WorkSheet, i int) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return ws.Row(i) != nil
}
