package binding_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/Lllllllleong/docassembly/internal/binding"
	"github.com/Lllllllleong/docassembly/internal/models"
)

func buildWorkbook(t *testing.T, cells map[string]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for cell, v := range cells {
		if err := f.SetCellStr("Sheet1", cell, v); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFillWorkbook(t *testing.T) {
	template := buildWorkbook(t, map[string]string{
		"A1": "Name",
		"B1": " ${name} ",
		"A2": "Total",
		"B2": "${total}",
		"C3": "literal text",
	})
	var f binding.Fields
	f.Text("name", "Petrov").Text("total", "1500.00")

	out, err := binding.FillWorkbook(template, f)
	if err != nil {
		t.Fatalf("FillWorkbook() error = %v", err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()
	rows, err := wb.GetRows("Sheet1")
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"Name", "Petrov"},
		{"Total", "1500.00"},
		{"", "", "literal text"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFillWorkbookRejectsLeftovers(t *testing.T) {
	template := buildWorkbook(t, map[string]string{
		"A1": "${known}",
		"A2": "${unknown}",
		"A3": "prefix ${inline}",
	})
	var f binding.Fields
	f.Text("known", "ok")

	_, err := binding.FillWorkbook(template, f)
	var verr *models.TemplateValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("FillWorkbook() error = %v, want TemplateValidationError", err)
	}
	if diff := cmp.Diff([]string{"${unknown}", "${inline}"}, verr.Tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestFillWorkbookRejectsGarbage(t *testing.T) {
	if _, err := binding.FillWorkbook([]byte("not a workbook"), binding.Fields{}); err == nil {
		t.Fatal("FillWorkbook() expected an error")
	}
}
