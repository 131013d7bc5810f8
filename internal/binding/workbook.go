package binding

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Lllllllleong/docassembly/internal/models"
)

var (
	cellPlaceholderRe  = regexp.MustCompile(`^\$\{(\w+)\}$`)
	workbookLeftoverRe = regexp.MustCompile(`\$\{\w+\}`)
)

// FillWorkbook replaces whole-cell ${name} placeholders on the first sheet
// of an .xlsx template.
func FillWorkbook(template []byte, fields Fields) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]

	values := make(map[string]string, len(fields.Scalars))
	for _, s := range fields.Scalars {
		values[s.Name] = s.Value
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	for r, row := range rows {
		for c, v := range row {
			m := cellPlaceholderRe.FindStringSubmatch(strings.TrimSpace(v))
			if m == nil {
				continue
			}
			value, ok := values[m[1]]
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellStr(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to set %s: %w", cell, err)
			}
		}
	}

	rows, err = f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read sheet %s: %w", sheet, err)
	}
	var leftovers []string
	for _, row := range rows {
		for _, v := range row {
			leftovers = append(leftovers, workbookLeftoverRe.FindAllString(v, -1)...)
		}
	}
	if len(leftovers) > 0 {
		return nil, models.NewTemplateValidationError(leftovers)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
