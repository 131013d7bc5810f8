package services_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Lllllllleong/docassembly/internal/layout/layouttest"
	"github.com/Lllllllleong/docassembly/internal/models"
	"github.com/Lllllllleong/docassembly/internal/services"
)

func TestArchiveRecipeRepeatsExternalObject(t *testing.T) {
	pdf := layouttest.PDF(2)
	entries := []models.ArchiveEntry{
		{Kind: "external", Object: "shared/order.pdf"},
		{Kind: "external", Name: "copy", Object: "shared/order.pdf"},
	}
	externals := map[string]services.ExternalObject{
		"shared/order.pdf": {Data: pdf, Format: models.FormatPDF},
	}

	s := services.NewDocumentService(nil, nil, nil)
	a, err := s.Zip(context.Background(), services.ArchiveRecipe(entries, nil, externals))
	if err != nil {
		t.Fatalf("Zip() error = %v", err)
	}
	data := drain(t, a)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, pdf) {
			t.Errorf("%s: %d bytes, want the full %d byte object", f.Name, len(got), len(pdf))
		}
	}
	if diff := cmp.Diff([]string{"order.pdf", "copy.pdf"}, names); diff != "" {
		t.Errorf("entry names mismatch (-want +got):\n%s", diff)
	}
}
