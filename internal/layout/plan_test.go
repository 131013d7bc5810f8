package layout_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/Lllllllleong/docassembly/internal/layout"
	"github.com/Lllllllleong/docassembly/internal/models"
)

func TestPlanSheetCounts(t *testing.T) {
	tests := []struct {
		name      string
		pages     int
		o         models.Orientation
		wantSlots []int
	}{
		{"empty", 0, models.Portrait, nil},
		{"single page", 1, models.Portrait, []int{1}},
		{"exactly N portrait", 4, models.Portrait, []int{4}},
		{"N+1 portrait", 5, models.Portrait, []int{4, 1}},
		{"2N portrait", 8, models.Portrait, []int{4, 4}},
		{"exactly N landscape", 2, models.Landscape, []int{2}},
		{"N+1 landscape", 3, models.Landscape, []int{2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheets, err := layout.Plan(tt.pages, tt.o)
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			var got []int
			for _, s := range sheets {
				got = append(got, len(s.Slots))
			}
			if diff := cmp.Diff(tt.wantSlots, got); diff != "" {
				t.Errorf("slots per sheet mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlanKeepsPageOrder(t *testing.T) {
	sheets, err := layout.Plan(6, models.Portrait)
	if err != nil {
		t.Fatal(err)
	}
	var pages []int
	for _, s := range sheets {
		for _, slot := range s.Slots {
			pages = append(pages, slot.Page)
		}
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4, 5}, pages); diff != "" {
		t.Errorf("page order mismatch (-want +got):\n%s", diff)
	}
}

func TestSheetSize(t *testing.T) {
	w, h := layout.SheetSize(models.Portrait)
	if w != layout.A4Width || h != layout.A4Height {
		t.Errorf("portrait = %vx%v", w, h)
	}
	w, h = layout.SheetSize(models.Landscape)
	if w != layout.A4Height || h != layout.A4Width {
		t.Errorf("landscape = %vx%v", w, h)
	}
}

func TestSlotMatrix(t *testing.T) {
	approx := cmpopts.EquateApprox(0, 1e-9)
	pw, ph := layout.SheetSize(models.Portrait)
	lw, lh := layout.SheetSize(models.Landscape)
	sx := layout.A4Width / layout.A4Height
	sy := layout.A4Height / (2 * layout.A4Width)

	tests := []struct {
		o    models.Orientation
		slot int
		w, h float64
		want layout.Matrix
	}{
		{models.Portrait, 0, pw, ph, layout.Matrix{A: 0.5, D: 0.5, F: ph / 2}},
		{models.Portrait, 1, pw, ph, layout.Matrix{A: 0.5, D: 0.5, E: pw / 2, F: ph / 2}},
		{models.Portrait, 2, pw, ph, layout.Matrix{A: 0.5, D: 0.5}},
		{models.Portrait, 3, pw, ph, layout.Matrix{A: 0.5, D: 0.5, E: pw / 2}},
		{models.Landscape, 0, lw, lh, layout.Matrix{A: sx, D: sy}},
		{models.Landscape, 1, lw, lh, layout.Matrix{A: sx, D: sy, E: lw / 2}},
	}
	for _, tt := range tests {
		got, err := layout.SlotMatrix(tt.o, tt.slot, tt.w, tt.h)
		if err != nil {
			t.Fatalf("SlotMatrix(%v, %d) error = %v", tt.o, tt.slot, err)
		}
		if diff := cmp.Diff(tt.want, got, approx); diff != "" {
			t.Errorf("SlotMatrix(%v, %d) mismatch (-want +got):\n%s", tt.o, tt.slot, diff)
		}
	}
}

// A4 is only approximately 1:sqrt(2), hence the tolerance.
func TestLandscapeSlotFillsHalfSheet(t *testing.T) {
	w, h := layout.SheetSize(models.Landscape)
	m, err := layout.SlotMatrix(models.Landscape, 0, w, h)
	if err != nil {
		t.Fatal(err)
	}
	if got := layout.A4Width * m.A; math.Abs(got-w/2) > 0.1 {
		t.Errorf("scaled width = %v, want %v", got, w/2)
	}
	if got := layout.A4Height * m.D; math.Abs(got-h) > 0.1 {
		t.Errorf("scaled height = %v, want %v", got, h)
	}
}

func TestSlotMatrixOutOfRange(t *testing.T) {
	tests := []struct {
		o    models.Orientation
		slot int
	}{
		{models.Portrait, 4},
		{models.Portrait, -1},
		{models.Landscape, 2},
	}
	for _, tt := range tests {
		_, err := layout.SlotMatrix(tt.o, tt.slot, 1, 1)
		if !errors.Is(err, layout.ErrSlotOutOfRange) {
			t.Errorf("SlotMatrix(%v, %d) error = %v, want ErrSlotOutOfRange", tt.o, tt.slot, err)
		}
	}
}

func TestMatrixString(t *testing.T) {
	m := layout.Matrix{A: 0.5, D: 0.5, E: 10, F: 20}
	if got, want := m.String(), "0.50000 0.00000 0.00000 0.50000 10.00000 20.00000 cm"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
