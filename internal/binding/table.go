package binding

import (
	"strings"

	"github.com/Lllllllleong/docassembly/internal/docx"
	"github.com/Lllllllleong/docassembly/internal/models"
)

// RowContext writes the cells of one table row left to right.
type RowContext struct {
	row  *docx.Row
	next int
}

// Cell writes text into the next cell, reusing existing cells before
// creating new ones.
func (r *RowContext) Cell(text string) *docx.Cell {
	cell := r.row.Cell(r.next)
	if cell == nil {
		cell = r.row.AddCell()
	}
	r.next++
	cell.SetText(text)
	return cell
}

// Row exposes the underlying row.
func (r *RowContext) Row() *docx.Row {
	return r.row
}

// Table registers a dynamic table. The template must hold a table whose
// first cell is exactly ${name}, the last such table wins; the first row is reused for the first item
// and a row is appended for each further item. With no items the anchor row
// is dropped.
func Table[T any](c *Context, name string, items []T, render func(*RowContext, T)) {
	c.tables = append(c.tables, func() error {
		table := findTable(c.doc, name)
		if table == nil {
			return models.NewTemplateStructureError("table", name)
		}
		anchor := table.Row(0)
		if len(items) == 0 {
			anchor.Remove()
			return nil
		}
		anchor.Cell(0).Clear()

		for i, item := range items {
			row := anchor
			if i > 0 {
				row = table.AddRow()
			}
			render(&RowContext{row: row}, item)
		}
		return nil
	})
}

// findTable returns the last body table anchored at ${name}.
func findTable(doc *docx.Document, name string) *docx.Table {
	token := "${" + name + "}"
	var found *docx.Table
	for _, t := range doc.Tables() {
		row := t.Row(0)
		if row == nil {
			continue
		}
		cell := row.Cell(0)
		if cell == nil {
			continue
		}
		if strings.TrimSpace(cell.Text()) == token {
			found = t
		}
	}
	return found
}
