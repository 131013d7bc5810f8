// Package layout splits, merges and re-paginates PDF page sequences.
package layout

import (
	"errors"
	"fmt"

	"github.com/Lllllllleong/docassembly/internal/models"
)

// A4 dimensions in PDF points.
const (
	A4Width  = 210 * 72 / 25.4
	A4Height = 297 * 72 / 25.4
)

var (
	// ErrSlotOutOfRange means a sheet was asked to hold more pages than its
	// orientation allows.
	ErrSlotOutOfRange = errors.New("slot out of range")
	// ErrPageRange reports a page range outside the source document.
	ErrPageRange = errors.New("page range out of bounds")
)

// Matrix is a PDF transformation matrix [a b c d e f].
type Matrix struct {
	A, B, C, D, E, F float64
}

// String renders the matrix as a cm operator.
func (m Matrix) String() string {
	return fmt.Sprintf("%.5f %.5f %.5f %.5f %.5f %.5f cm", m.A, m.B, m.C, m.D, m.E, m.F)
}

// Slot places one source page on a sheet. Page is 0-based.
type Slot struct {
	Page   int
	Matrix Matrix
}

// Sheet is one output page of a combined document.
type Sheet struct {
	Width  float64
	Height float64
	Slots  []Slot
}

// SheetSize returns the output sheet dimensions for an orientation.
func SheetSize(o models.Orientation) (w, h float64) {
	if o == models.Landscape {
		return A4Height, A4Width
	}
	return A4Width, A4Height
}

// SlotMatrix returns the transform that scales an A4 page into the given
// slot of a sheet.
func SlotMatrix(o models.Orientation, slot int, sheetW, sheetH float64) (Matrix, error) {
	switch o {
	case models.Portrait:
		m := Matrix{A: 0.5, D: 0.5}
		switch slot {
		case 0:
			m.F = sheetH / 2
		case 1:
			m.E, m.F = sheetW/2, sheetH/2
		case 2:
		case 3:
			m.E = sheetW / 2
		default:
			return Matrix{}, fmt.Errorf("portrait slot %d: %w", slot, ErrSlotOutOfRange)
		}
		return m, nil
	case models.Landscape:
		m := Matrix{A: A4Width / A4Height, D: A4Height / (2 * A4Width)}
		switch slot {
		case 0:
		case 1:
			m.E = sheetW / 2
		default:
			return Matrix{}, fmt.Errorf("landscape slot %d: %w", slot, ErrSlotOutOfRange)
		}
		return m, nil
	}
	return Matrix{}, fmt.Errorf("unknown orientation %d", o)
}

// Plan partitions pageCount pages into sheets of N slots, N being 4 for
// portrait and 2 for landscape. The last sheet holds the remainder.
func Plan(pageCount int, o models.Orientation) ([]Sheet, error) {
	n := o.PagesPerSheet()
	w, h := SheetSize(o)

	var sheets []Sheet
	for start := 0; start < pageCount; start += n {
		end := min(start+n, pageCount)
		sheet := Sheet{Width: w, Height: h}
		for page := start; page < end; page++ {
			m, err := SlotMatrix(o, page-start, w, h)
			if err != nil {
				return nil, err
			}
			sheet.Slots = append(sheet.Slots, Slot{Page: page, Matrix: m})
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}
