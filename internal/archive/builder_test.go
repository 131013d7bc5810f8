package archive_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Lllllllleong/docassembly/internal/archive"
	"github.com/Lllllllleong/docassembly/internal/binding"
	"github.com/Lllllllleong/docassembly/internal/layout"
	"github.com/Lllllllleong/docassembly/internal/layout/layouttest"
	"github.com/Lllllllleong/docassembly/internal/models"
)

type certificate struct{ pages int }

func (c certificate) Tag() string { return "certificate" }
func (c certificate) Fields() binding.Fields { return binding.Fields{} }

// fakeGenerator records calls and produces fixture documents.
type fakeGenerator struct {
	calls []string
	fail  string
}

func (g *fakeGenerator) generate(kind string, src binding.Source, countPages bool) (*models.Document, error) {
	g.calls = append(g.calls, kind)
	if kind == g.fail {
		return nil, fmt.Errorf("%s generation failed", kind)
	}
	pages := src.(certificate).pages
	var doc *models.Document
	if kind == "pdf" {
		doc = models.NewDocumentBytes(layouttest.PDF(pages), models.FormatPDF)
	} else {
		doc = models.NewDocumentBytes([]byte("docx"), models.FormatDOCX)
	}
	if countPages {
		doc.WithPageCount(pages)
	}
	return doc, nil
}

func (g *fakeGenerator) Docx(_ context.Context, src binding.Source, countPages bool) (*models.Document, error) {
	return g.generate("docx", src, countPages)
}

func (g *fakeGenerator) PDF(_ context.Context, src binding.Source, countPages bool) (*models.Document, error) {
	return g.generate("pdf", src, countPages)
}

func certName(n int) string { return fmt.Sprintf("cert-%d", n) }

func entries(t *testing.T, a *models.Archive) map[string][]byte {
	t.Helper()
	data, err := models.Drain(a)
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[archive.EntryName(f)] = b
	}
	return out
}

func entryNames(t *testing.T, a *models.Archive) []string {
	t.Helper()
	data, err := models.Drain(a)
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, archive.EntryName(f))
	}
	return names
}

func TestPageCountNaming(t *testing.T) {
	gen := &fakeGenerator{}
	a, err := archive.NewBuilder(gen).
		PDF(certificate{pages: 7}, true, models.PageCountName(certName)).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if diff := cmp.Diff([]string{"cert-7.pdf"}, entryNames(t, a)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestPageCountNamingWithoutCount(t *testing.T) {
	_, err := archive.NewBuilder(&fakeGenerator{}).
		PDF(certificate{pages: 7}, false, models.PageCountName(certName)).
		Build(context.Background())
	var missing *models.MissingPageCountError
	if !errors.As(err, &missing) {
		t.Fatalf("Build() error = %v, want MissingPageCountError", err)
	}
}

func TestBuildKeepsRegistrationOrder(t *testing.T) {
	gen := &fakeGenerator{}
	inner, err := archive.NewBuilder(gen).
		External(strings.NewReader("a,b"), models.FormatCSV, models.ConstantName("data")).
		Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	a, err := archive.NewBuilder(gen).
		Docx(certificate{pages: 1}, false, models.ConstantName("notice")).
		RawPDF(layouttest.PDF(3), models.PageCountName(certName)).
		Zip(inner, models.ConstantName("nested")).
		MergedPDF(true, models.PageCountName(func(n int) string { return fmt.Sprintf("merged-%d", n) }), func(m *archive.MergedBuilder) {
			m.PDF(certificate{pages: 2}).PDFBytes(layouttest.PDF(1))
		}).
		External(strings.NewReader("hello"), models.FormatTXT, models.ConstantName("readme")).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []string{"notice.docx", "cert-3.pdf", "nested.zip", "merged-3.pdf", "readme.txt"}
	if diff := cmp.Diff(want, entryNames(t, a)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"docx", "pdf"}, gen.calls); diff != "" {
		t.Errorf("generator calls mismatch (-want +got):\n%s", diff)
	}
	if len(a.Elements) != len(want) {
		t.Errorf("Elements = %d, want %d", len(a.Elements), len(want))
	}
}

func TestBuildRealisesLazily(t *testing.T) {
	gen := &fakeGenerator{}
	b := archive.NewBuilder(gen).Docx(certificate{}, false, models.ConstantName("x"))
	if len(gen.calls) != 0 {
		t.Fatalf("generator called before Build: %v", gen.calls)
	}
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(gen.calls) != 1 {
		t.Errorf("calls = %v", gen.calls)
	}
}

func TestBuildAbortsOnFailure(t *testing.T) {
	gen := &fakeGenerator{fail: "pdf"}
	a, err := archive.NewBuilder(gen).
		Docx(certificate{}, false, models.ConstantName("first")).
		PDF(certificate{}, false, models.ConstantName("second")).
		Docx(certificate{}, false, models.ConstantName("third")).
		Build(context.Background())
	if err == nil || a != nil {
		t.Fatalf("Build() = %v, %v, want failure and no archive", a, err)
	}
	if diff := cmp.Diff([]string{"docx", "pdf"}, gen.calls); diff != "" {
		t.Errorf("later entries must not be realised (-want +got):\n%s", diff)
	}
}

func TestCyrillicNamesRoundTrip(t *testing.T) {
	a, err := archive.NewBuilder(&fakeGenerator{}).
		External(strings.NewReader("text"), models.FormatTXT, models.ConstantName("Судебный приказ №5")).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	got := entries(t, a)
	if string(got["Судебный приказ №5.txt"]) != "text" {
		t.Errorf("entries = %v", got)
	}
}

func TestUnrepresentableNameFails(t *testing.T) {
	_, err := archive.NewBuilder(&fakeGenerator{}).
		External(strings.NewReader("x"), models.FormatTXT, models.ConstantName("文件")).
		Build(context.Background())
	if err == nil {
		t.Fatal("Build() expected an error for a name outside CP866")
	}
}

func TestExternalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "приложение.csv")
	if err := os.WriteFile(path, []byte("1;2"), 0o600); err != nil {
		t.Fatal(err)
	}

	a, err := archive.NewBuilder(&fakeGenerator{}).ExternalFile(path, models.FormatCSV).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := entries(t, a); string(got["приложение.csv"]) != "1;2" {
		t.Errorf("entries = %v", got)
	}

	_, err = archive.NewBuilder(&fakeGenerator{}).ExternalFile(filepath.Join(dir, "absent.csv"), models.FormatCSV).Build(context.Background())
	var missing *models.MissingResourceError
	if !errors.As(err, &missing) {
		t.Fatalf("Build() error = %v, want MissingResourceError", err)
	}
}

func TestMergedBuilder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tail.pdf")
	if err := os.WriteFile(path, layouttest.PDF(2), 0o600); err != nil {
		t.Fatal(err)
	}

	doc, err := archive.NewMergedBuilder(&fakeGenerator{}).
		PDFBytes(layouttest.PDF(1)).
		PDF(certificate{pages: 3}).
		PDFFile(path).
		Merge(context.Background(), true)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if n, ok := doc.PageCount(); !ok || n != 6 {
		t.Errorf("PageCount() = %d, %v, want 6", n, ok)
	}
	data, err := models.Drain(doc)
	if err != nil {
		t.Fatal(err)
	}
	if n, err := layout.PageCount(data); err != nil || n != 6 {
		t.Errorf("layout.PageCount() = %d, %v", n, err)
	}

	_, err = archive.NewMergedBuilder(&fakeGenerator{}).PDFFile(filepath.Join(dir, "absent.pdf")).Merge(context.Background(), false)
	var missing *models.MissingResourceError
	if !errors.As(err, &missing) {
		t.Fatalf("Merge() error = %v, want MissingResourceError", err)
	}
}
