package services_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Lllllllleong/docassembly/internal/binding"
	"github.com/Lllllllleong/docassembly/internal/docx"
	"github.com/Lllllllleong/docassembly/internal/docx/docxtest"
	"github.com/Lllllllleong/docassembly/internal/layout/layouttest"
	"github.com/Lllllllleong/docassembly/internal/models"
	"github.com/Lllllllleong/docassembly/internal/services"
)

func TestNewRequestSourceOrdersFields(t *testing.T) {
	req := &models.GenerateRequest{
		Fields: map[string]string{"zip": "101000", "city": "Moscow", "name": "Ivanov"},
		Stamp:  "no",
	}
	src := services.NewRequestSource(req, []byte("tpl"), map[string][]byte{"stamp": {1}, "sign": {2}})
	f := src.Fields()

	want := []binding.Scalar{{Name: "city", Value: "Moscow"}, {Name: "name", Value: "Ivanov"}, {Name: "zip", Value: "101000"}}
	if diff := cmp.Diff(want, f.Scalars); diff != "" {
		t.Errorf("Scalars mismatch (-want +got):\n%s", diff)
	}
	if len(f.Images) != 2 || f.Images[0].Name != "sign" || f.Images[1].Name != "stamp" {
		t.Errorf("Images = %+v", f.Images)
	}
	if f.Stamp != models.StampNo {
		t.Errorf("Stamp = %v, want StampNo", f.Stamp)
	}
	if src.Tag() != services.RequestTag {
		t.Errorf("Tag() = %q", src.Tag())
	}
}

func TestRequestModifierRendersTablesAndLists(t *testing.T) {
	body := docxtest.Paragraph("Creditor: ${name}") +
		docxtest.Table([]string{"${debts}", ""}) +
		docxtest.Paragraph("${claims}")
	req := &models.GenerateRequest{
		Fields: map[string]string{"name": "Bank"},
		Tables: []models.TableData{{Name: "debts", Rows: [][]string{{"2024-01-01", "100"}, {"2024-02-01", "250"}}}},
		Lists:  []models.ListData{{Name: "claims", Items: []string{"principal", "interest"}}},
	}
	modifiers, renderers := services.NewRequestRegistries()
	s := services.NewDocumentService(&fakeConverter{pages: 1}, modifiers, renderers)

	doc, err := s.Docx(context.Background(), services.NewRequestSource(req, docxtest.Build(body), nil), false)
	if err != nil {
		t.Fatalf("Docx() error = %v", err)
	}
	d, err := docx.Open(drain(t, doc))
	if err != nil {
		t.Fatal(err)
	}

	var paragraphs []string
	for _, p := range d.Paragraphs() {
		paragraphs = append(paragraphs, p.Text())
	}
	if diff := cmp.Diff([]string{"Creditor: Bank", "principal", "interest"}, paragraphs); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}

	var cells [][]string
	for _, row := range d.Tables()[0].Rows() {
		var texts []string
		for _, c := range row.Cells() {
			texts = append(texts, c.Text())
		}
		cells = append(cells, texts)
	}
	if diff := cmp.Diff([][]string{{"2024-01-01", "100"}, {"2024-02-01", "250"}}, cells); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestRenderer(t *testing.T) {
	req := &models.GenerateRequest{Fields: map[string]string{"name": "Ivanov"}}
	_, renderers := services.NewRequestRegistries()
	s := services.NewDocumentService(nil, nil, renderers)

	doc, err := s.Txt(services.NewRequestSource(req, []byte("Debtor: ${name}\n${unbound}"), nil))
	if err != nil {
		t.Fatalf("Txt() error = %v", err)
	}
	if got := string(drain(t, doc)); got != "Debtor: Ivanov\n${unbound}" {
		t.Errorf("Txt() = %q", got)
	}
}

func TestEntryNaming(t *testing.T) {
	doc := models.NewDocumentBytes(layouttest.PDF(1), models.FormatPDF).WithPageCount(12)

	tests := []struct {
		name string
		want string
	}{
		{"order", "order.pdf"},
		{"extract-%d-pages", "extract-12-pages.pdf"},
	}
	for _, tt := range tests {
		got, err := services.EntryNaming(tt.name).Name(doc)
		if err != nil {
			t.Fatalf("Name(%q) error = %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
