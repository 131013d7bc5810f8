package layout

import (
	"bytes"
	"fmt"
	"io"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/Lllllllleong/docassembly/internal/models"
)

// TransformError wraps a failure of the underlying PDF processor.
type TransformError struct {
	Op  string
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("pdf %s failed: %v", e.Op, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

func transformErr(op string, err error) error {
	return &TransformError{Op: op, Err: err}
}

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func read(pdf []byte) (*model.Context, error) {
	ctx, err := pdfapi.ReadValidateAndOptimize(bytes.NewReader(pdf), newConfig())
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	return ctx, nil
}

func write(ctx *model.Context) ([]byte, error) {
	var out bytes.Buffer
	if err := pdfapi.WriteContext(ctx, &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// PageCount returns the number of pages of a PDF.
func PageCount(pdf []byte) (int, error) {
	ctx, err := read(pdf)
	if err != nil {
		return 0, transformErr("page count", err)
	}
	return ctx.PageCount, nil
}

// Split copies the inclusive 1-based page range [from, to] into a new
// document.
func Split(pdf []byte, from, to int) (*models.Document, error) {
	ctx, err := read(pdf)
	if err != nil {
		return nil, transformErr("split", err)
	}
	if from < 1 || to > ctx.PageCount || from > to {
		return nil, fmt.Errorf("pages %d-%d of %d: %w", from, to, ctx.PageCount, ErrPageRange)
	}

	pages := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		pages = append(pages, i)
	}
	out, err := pdfcpu.ExtractPages(ctx, pages, false)
	if err != nil {
		return nil, transformErr("split", err)
	}
	b, err := write(out)
	if err != nil {
		return nil, transformErr("split", err)
	}
	return models.NewDocumentBytes(b, models.FormatPDF).WithPageCount(len(pages)), nil
}

// Merge concatenates whole PDFs in order.
func Merge(pdfs [][]byte) ([]byte, error) {
	switch len(pdfs) {
	case 0:
		return nil, transformErr("merge", fmt.Errorf("no documents to merge"))
	case 1:
		return pdfs[0], nil
	}

	readers := make([]io.ReadSeeker, len(pdfs))
	for i, data := range pdfs {
		readers[i] = bytes.NewReader(data)
	}
	var out bytes.Buffer
	if err := pdfapi.MergeRaw(readers, &out, false, newConfig()); err != nil {
		return nil, transformErr("merge", err)
	}
	return out.Bytes(), nil
}

// Combine lays the pages of pdf out N per sheet according to Plan.
func Combine(pdf []byte, o models.Orientation) (*models.Document, error) {
	src, err := read(pdf)
	if err != nil {
		return nil, transformErr("combine", err)
	}
	if src.PageCount == 0 {
		return nil, transformErr("combine", fmt.Errorf("document has no pages"))
	}

	sheets, err := Plan(src.PageCount, o)
	if err != nil {
		return nil, err
	}

	rendered := make([][]byte, 0, len(sheets))
	for i, sheet := range sheets {
		b, err := renderSheet(src, sheet)
		if err != nil {
			return nil, transformErr(fmt.Sprintf("combine sheet %d", i+1), err)
		}
		rendered = append(rendered, b)
	}

	out, err := Merge(rendered)
	if err != nil {
		return nil, err
	}
	return models.NewDocumentBytes(out, models.FormatPDF).WithPageCount(len(sheets)), nil
}

// renderSheet extracts the sheet's pages, turns each into a form XObject and
// rewrites the first page to draw all forms through their slot matrices.
func renderSheet(src *model.Context, sheet Sheet) ([]byte, error) {
	pageNrs := make([]int, len(sheet.Slots))
	for i, s := range sheet.Slots {
		pageNrs[i] = s.Page + 1
	}
	ctx, err := pdfcpu.ExtractPages(src, pageNrs, false)
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}

	xobjects := types.Dict{}
	var content bytes.Buffer
	for i, slot := range sheet.Slots {
		ref, err := pageForm(ctx, i+1)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", slot.Page+1, err)
		}
		name := fmt.Sprintf("Fm%d", i)
		xobjects[name] = *ref
		fmt.Fprintf(&content, "q %s /%s Do Q\n", slot.Matrix, name)
	}

	pageDict, _, _, err := ctx.PageDict(1, false)
	if err != nil {
		return nil, err
	}
	if pageDict == nil {
		return nil, fmt.Errorf("sheet page missing")
	}

	sd, err := ctx.NewStreamDictForBuf(content.Bytes())
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	contentRef, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return nil, err
	}

	pageDict["MediaBox"] = types.RectForWidthAndHeight(0, 0, sheet.Width, sheet.Height).Array()
	pageDict.Delete("CropBox")
	pageDict.Delete("Rotate")
	pageDict["Resources"] = types.Dict{"XObject": xobjects}
	pageDict["Contents"] = *contentRef

	out, err := pdfcpu.ExtractPages(ctx, []int{1}, false)
	if err != nil {
		return nil, err
	}
	return write(out)
}

// pageForm wraps the content of page pageNr into a form XObject that
// reproduces the page as displayed, rotation included.
func pageForm(ctx *model.Context, pageNr int) (*types.IndirectRef, error) {
	pageDict, _, inh, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, err
	}
	if pageDict == nil || inh == nil || inh.MediaBox == nil {
		return nil, fmt.Errorf("page has no media box")
	}
	body, err := pageContent(ctx, pageDict)
	if err != nil {
		return nil, err
	}

	box := inh.MediaBox
	w, h := box.Width(), box.Height()
	var buf bytes.Buffer
	if inh.Rotate != 0 {
		buf.Write(model.ContentBytesForPageRotation(inh.Rotate, w, h))
		if inh.Rotate%180 != 0 {
			w, h = h, w
		}
	}
	if box.LL.X != 0 || box.LL.Y != 0 {
		fmt.Fprintf(&buf, "1 0 0 1 %.5f %.5f cm ", -box.LL.X, -box.LL.Y)
	}
	buf.Write(body)

	sd, err := ctx.NewStreamDictForBuf(buf.Bytes())
	if err != nil {
		return nil, err
	}
	sd.Dict["Type"] = types.Name("XObject")
	sd.Dict["Subtype"] = types.Name("Form")
	sd.Dict["BBox"] = types.RectForWidthAndHeight(0, 0, w, h).Array()
	if inh.Resources != nil {
		sd.Dict["Resources"] = inh.Resources
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ctx.IndRefForNewObject(*sd)
}

// pageContent concatenates the decoded content streams of a page. Streams
// without filters are taken as stored: StreamDict.Decode cannot read them.
func pageContent(ctx *model.Context, pageDict types.Dict) ([]byte, error) {
	o, found := pageDict.Find("Contents")
	if !found || o == nil {
		return nil, nil
	}
	o, err := ctx.Dereference(o)
	if err != nil || o == nil {
		return nil, err
	}

	var streams []types.Object
	switch v := o.(type) {
	case types.StreamDict:
		streams = []types.Object{v}
	case types.Array:
		streams = v
	default:
		return nil, fmt.Errorf("unexpected page contents %T", o)
	}

	var out bytes.Buffer
	for _, obj := range streams {
		if obj == nil {
			continue
		}
		sd, _, err := ctx.DereferenceStreamDict(obj)
		if err != nil {
			return nil, err
		}
		if sd == nil {
			continue
		}
		data, err := streamBytes(sd)
		if err != nil {
			return nil, err
		}
		out.Write(data)
		out.WriteByte('\n')
	}
	return out.Bytes(), nil
}

func streamBytes(sd *types.StreamDict) ([]byte, error) {
	if sd.Content != nil {
		return sd.Content, nil
	}
	if len(sd.FilterPipeline) == 0 {
		return sd.Raw, nil
	}
	if err := sd.Decode(); err != nil {
		return nil, err
	}
	return sd.Content, nil
}
