// Package layouttest writes small uncompressed PDFs for tests.
package layouttest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PageText is the text drawn on page n (1-based) of a fixture.
func PageText(n int) string {
	return fmt.Sprintf("Page %d", n)
}

// PDF returns a document of n A4 pages, page i showing PageText(i).
func PDF(n int) []byte {
	return PDFWithBox(n, 595, 842)
}

// PDFWithBox returns a document of n pages sized w x h points.
func PDFWithBox(n int, w, h float64) []byte {
	var objects []string
	add := func(body string) int {
		objects = append(objects, body)
		return len(objects)
	}

	add("") // catalog, filled below
	add("") // page tree
	font := add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	kids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		stream := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", PageText(i))
		content := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
		page := add(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			w, h, font, content))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}
	objects[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func read(pdf []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := pdfapi.ReadValidateAndOptimize(bytes.NewReader(pdf), conf)
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// Contents returns the decoded content of every page of pdf.
func Contents(pdf []byte) ([][]byte, error) {
	ctx, err := read(pdf)
	if err != nil {
		return nil, err
	}

	out := make([][]byte, 0, ctx.PageCount)
	for i := 1; i <= ctx.PageCount; i++ {
		d, _, _, err := ctx.PageDict(i, false)
		if err != nil {
			return nil, err
		}
		var content []byte
		if o, ok := d.Find("Contents"); ok {
			if content, err = streamContent(ctx, o); err != nil {
				return nil, fmt.Errorf("page %d: %w", i, err)
			}
		}
		out = append(out, content)
	}
	return out, nil
}

// FormContents returns the decoded content of every form XObject of pdf in
// object number order.
func FormContents(pdf []byte) ([][]byte, error) {
	ctx, err := read(pdf)
	if err != nil {
		return nil, err
	}
	nrs := make([]int, 0, len(ctx.Table))
	for nr := range ctx.Table {
		nrs = append(nrs, nr)
	}
	sort.Ints(nrs)

	var out [][]byte
	for _, nr := range nrs {
		entry := ctx.Table[nr]
		if entry == nil || entry.Free {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if st := sd.Subtype(); st == nil || *st != "Form" {
			continue
		}
		c, err := streamContent(ctx, sd)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", nr, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func streamContent(ctx *model.Context, o types.Object) ([]byte, error) {
	o, err := ctx.Dereference(o)
	if err != nil || o == nil {
		return nil, err
	}
	if arr, ok := o.(types.Array); ok {
		var b []byte
		for _, e := range arr {
			c, err := streamContent(ctx, e)
			if err != nil {
				return nil, err
			}
			b = append(b, c...)
		}
		return b, nil
	}
	sd, ok := o.(types.StreamDict)
	if !ok {
		return nil, fmt.Errorf("contents is %T", o)
	}
	switch {
	case sd.Content != nil:
		return sd.Content, nil
	case len(sd.FilterPipeline) == 0:
		return sd.Raw, nil
	}
	if err := sd.Decode(); err != nil {
		return nil, err
	}
	return sd.Content, nil
}
