package binding_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Lllllllleong/docassembly/internal/binding"
	"github.com/Lllllllleong/docassembly/internal/docx"
	"github.com/Lllllllleong/docassembly/internal/docx/docxtest"
	"github.com/Lllllllleong/docassembly/internal/models"
)

var fakePNG = []byte("\x89PNG\r\n\x1a\nfake")

func generate(t *testing.T, c *binding.Context) *docx.Document {
	t.Helper()
	out, err := c.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	d, err := docx.Open(out)
	if err != nil {
		t.Fatalf("Open(rendered) error = %v", err)
	}
	return d
}

func newContext(t *testing.T, body string, fields binding.Fields, opts ...docxtest.Option) *binding.Context {
	t.Helper()
	c, err := binding.NewContext(docxtest.Build(body, opts...), fields)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	return c
}

func paragraphTexts(d *docx.Document) []string {
	var out []string
	for _, p := range d.Paragraphs() {
		out = append(out, p.Text())
	}
	return out
}

func TestScalarSubstitution(t *testing.T) {
	var f binding.Fields
	f.Text("name", "Ivanov").Text("date", "01.02.2024")

	body := docxtest.Paragraph("Debtor: ", "${name}") +
		docxtest.Paragraph("Issued ${date} to ${name}") +
		docxtest.Table([]string{"Date", "${date}"})
	d := generate(t, newContext(t, body, f, docxtest.WithFooter(docxtest.Paragraph("p. ${name}"))))

	want := []string{"Debtor: Ivanov", "Issued 01.02.2024 to Ivanov"}
	if diff := cmp.Diff(want, paragraphTexts(d)); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
	if got := d.Tables()[0].Row(0).Cell(1).Text(); got != "01.02.2024" {
		t.Errorf("table cell = %q", got)
	}
	if got := d.FooterParagraphs()[0].Text(); got != "p. Ivanov" {
		t.Errorf("footer = %q", got)
	}
}

func TestValidationReportsLeftovers(t *testing.T) {
	var f binding.Fields
	f.Text("name", "x")
	c := newContext(t, docxtest.Paragraph("${name} ${missing}")+docxtest.Paragraph("${other}"), f)

	_, err := c.Render()
	var verr *models.TemplateValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Render() error = %v, want TemplateValidationError", err)
	}
	if diff := cmp.Diff([]string{"${missing}", "${other}"}, verr.Tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestValidationIgnoresNonAlphanumericTokens(t *testing.T) {
	c := newContext(t, docxtest.Paragraph("cost ${a-b} and ${}"), binding.Fields{})
	if _, err := c.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
}

type debt struct {
	Number string
	Amount string
}

func TestTableRendersOneRowPerItem(t *testing.T) {
	body := docxtest.Table([]string{"${debts}", ""}) + docxtest.Paragraph("after")
	c := newContext(t, body, binding.Fields{})

	items := []debt{{"1", "100"}, {"2", "200"}, {"3", "300"}}
	binding.Table(c, "debts", items, func(r *binding.RowContext, d debt) {
		r.Cell(d.Number)
		r.Cell(d.Amount)
	})
	d := generate(t, c)

	var got [][]string
	for _, row := range d.Tables()[0].Rows() {
		var cells []string
		for _, cell := range row.Cells() {
			cells = append(cells, cell.Text())
		}
		got = append(got, cells)
	}
	want := [][]string{{"1", "100"}, {"2", "200"}, {"3", "300"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestTableAddsCellsBeyondTemplateWidth(t *testing.T) {
	c := newContext(t, docxtest.Table([]string{"${t}"}), binding.Fields{})
	binding.Table(c, "t", []string{"a"}, func(r *binding.RowContext, s string) {
		r.Cell(s)
		r.Cell(s + s)
	})
	d := generate(t, c)
	cells := d.Tables()[0].Row(0).Cells()
	if len(cells) != 2 || cells[1].Text() != "aa" {
		t.Fatalf("cells = %d", len(cells))
	}
}

func TestTableWithNoItemsDropsAnchorRow(t *testing.T) {
	c := newContext(t, docxtest.Table([]string{"${t}", "x"}), binding.Fields{})
	binding.Table(c, "t", []string(nil), func(*binding.RowContext, string) {})
	d := generate(t, c)
	if rows := d.Tables()[0].Rows(); len(rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(rows))
	}
}

func TestMissingAnchorsFail(t *testing.T) {
	tests := []struct {
		name     string
		register func(c *binding.Context)
		kind     string
	}{
		{
			name: "table",
			register: func(c *binding.Context) {
				binding.Table(c, "absent", []int{1}, func(*binding.RowContext, int) {})
			},
			kind: "table",
		},
		{
			name: "list",
			register: func(c *binding.Context) {
				binding.List(c, "absent", []int{1}, func(*binding.ListContext, int, *docx.Paragraph) {})
			},
			kind: "paragraph",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newContext(t, docxtest.Paragraph("nothing here"), binding.Fields{})
			tt.register(c)
			_, err := c.Render()
			var serr *models.TemplateStructureError
			if !errors.As(err, &serr) {
				t.Fatalf("Render() error = %v, want TemplateStructureError", err)
			}
			if serr.Kind != tt.kind || serr.Name != "absent" {
				t.Errorf("error = %+v", serr)
			}
		})
	}
}

func TestListRendersConsecutiveParagraphs(t *testing.T) {
	body := docxtest.Paragraph("before") + docxtest.Paragraph("${claims}") + docxtest.Paragraph("after")
	c := newContext(t, body, binding.Fields{})

	binding.List(c, "claims", []string{"one", "two", "three"}, func(_ *binding.ListContext, s string, p *docx.Paragraph) {
		p.AddRun(s)
	})
	d := generate(t, c)

	want := []string{"before", "one", "two", "three", "after"}
	if diff := cmp.Diff(want, paragraphTexts(d)); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateAnchorsUseTheLastOne(t *testing.T) {
	body := docxtest.Table([]string{"${debts}"}) + docxtest.Table([]string{"${debts}"}) +
		docxtest.Paragraph("${claims}") + docxtest.Paragraph("middle") + docxtest.Paragraph("${claims}")
	c := newContext(t, body, binding.Fields{})
	binding.Table(c, "debts", []string{"100"}, func(r *binding.RowContext, s string) {
		r.Cell(s)
	})
	binding.List(c, "claims", []string{"one", "two"}, func(_ *binding.ListContext, s string, p *docx.Paragraph) {
		p.AddRun(s)
	})

	_, err := c.Generate()
	var verr *models.TemplateValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Generate() error = %v, want TemplateValidationError", err)
	}
	if diff := cmp.Diff([]string{"${debts}", "${claims}"}, verr.Tokens); diff != "" {
		t.Errorf("leftover tokens mismatch (-want +got):\n%s", diff)
	}

	d := c.Document()
	tables := d.Tables()
	if got := tables[0].Row(0).Cell(0).Text(); got != "${debts}" {
		t.Errorf("first table cell = %q, want the untouched anchor", got)
	}
	if got := tables[1].Row(0).Cell(0).Text(); got != "100" {
		t.Errorf("last table cell = %q, want 100", got)
	}
	want := []string{"${claims}", "middle", "one", "two"}
	if diff := cmp.Diff(want, paragraphTexts(d)); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
}

func TestListItemMayAddParagraphs(t *testing.T) {
	body := docxtest.Paragraph("${items}") + docxtest.Paragraph("end")
	c := newContext(t, body, binding.Fields{})

	binding.List(c, "items", []string{"a", "b"}, func(l *binding.ListContext, s string, p *docx.Paragraph) {
		p.AddRun(s)
		extra, err := l.Paragraph()
		if err != nil {
			t.Fatalf("Paragraph() error = %v", err)
		}
		extra.AddRun(s + " details")
	})
	d := generate(t, c)

	want := []string{"a", "a details", "b", "b details", "end"}
	if diff := cmp.Diff(want, paragraphTexts(d)); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
}

func TestImagesArePlacedAndSized(t *testing.T) {
	var f binding.Fields
	f.Picture("sign", "", fakePNG)
	c := newContext(t, docxtest.Paragraph("Signed: ", "${sign}"), f)

	out, err := c.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	d, err := docx.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"image1.png"}, d.Media()); diff != "" {
		t.Errorf("media mismatch (-want +got):\n%s", diff)
	}
	if got := paragraphTexts(d)[0]; got != "Signed: " {
		t.Errorf("paragraph = %q", got)
	}
	xml := documentXML(t, out)
	if !strings.Contains(xml, `cx="952500"`) {
		t.Errorf("sign image should be 100px wide: %s", xml)
	}
}

func documentXML(t *testing.T, docxBytes []byte) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(docxBytes), int64(len(docxBytes)))
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		return string(b)
	}
	t.Fatal("word/document.xml missing")
	return ""
}

func TestStampSuppressed(t *testing.T) {
	var f binding.Fields
	f.Picture("stamp", binding.ImageStamp, fakePNG)
	f.Stamp = models.StampNo
	d := generate(t, newContext(t, docxtest.Paragraph("${stamp}"), f))

	if media := d.Media(); len(media) != 0 {
		t.Errorf("Media() = %v, want none", media)
	}
	if got := paragraphTexts(d)[0]; got != "" {
		t.Errorf("placeholder not cleared: %q", got)
	}
}

func TestImageKindPixels(t *testing.T) {
	tests := map[binding.ImageKind]int{
		binding.ImageSign:      100,
		binding.ImageStamp:     150,
		binding.ImageSignStamp: 150,
	}
	for kind, want := range tests {
		if got := kind.Pixels(); got != want {
			t.Errorf("%s.Pixels() = %d, want %d", kind, got, want)
		}
	}
}
