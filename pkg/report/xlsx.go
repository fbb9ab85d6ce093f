package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/validation-tool/launcher/pkg/errors"
)

// WriteXLSX writes one event table as a workbook with a frozen header row and
// auto-sized columns.
func WriteXLSX(path, sheet string, events []*Event, columns []Column) error {
	f := excelize.NewFile()
	defer f.Close()

	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "failed to name sheet")
	}

	widths := make([]int, len(columns))
	for col, c := range columns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, c.Name); err != nil {
			return errors.Wrap(err, "failed to write header")
		}
		widths[col] = len(c.Name)
	}

	for row, e := range events {
		for col, c := range columns {
			v := c.Value(e)
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return errors.Wrap(err, "failed to write cell")
			}
			if w := firstLineLen(cellString(v)); w > widths[col] {
				widths[col] = w
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return errors.Wrap(err, "failed to freeze header")
	}

	for col := range columns {
		name, _ := excelize.ColumnNumberToName(col + 1)
		w := widths[col] + 2
		if w < 10 {
			w = 10
		}
		if w > 70 {
			w = 70
		}
		if err := f.SetColWidth(sheet, name, name, float64(w)); err != nil {
			return errors.Wrap(err, "failed to size column")
		}
	}

	return errors.Wrap(f.SaveAs(path), "failed to save workbook")
}

// cellString renders a cell value for width measurement and HTML output.
func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.3f", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// firstLineLen measures the first line only; multi-line cells wrap anyway.
func firstLineLen(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return i
		}
	}
	return len(s)
}
