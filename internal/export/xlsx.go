// Package export renders the report workbook and the ion-balance CSV.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the MIME type of the workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// styleKey identifies a cell style; styles are created once per workbook.
type styleKey struct {
	fill     string
	bold     bool
	decimals int
	number   bool
	percent  bool
	center   bool
}

type xlsxWriter struct {
	f      *excelize.File
	styles map[styleKey]int
}

// WriteXLSX renders the layout as an .xlsx workbook to w.
func WriteXLSX(w io.Writer, layout core.WorkbookLayout) error {
	f := excelize.NewFile()
	defer f.Close()

	xw := &xlsxWriter{f: f, styles: make(map[styleKey]int)}
	defaultSheet := f.GetSheetName(0)

	for i, sheet := range layout.Sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet.Name, err)
		}
		if err := xw.writeSheet(sheet); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet.Name, err)
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (xw *xlsxWriter) writeSheet(sheet core.SheetLayout) error {
	for line, cells := range sheet.Lines {
		for col, cell := range cells {
			if err := xw.writeCell(sheet.Name, col, line, cell); err != nil {
				return err
			}
		}
	}

	for _, m := range sheet.Merges {
		from, err := cellName(m.Col, m.Line)
		if err != nil {
			return err
		}
		to, err := cellName(m.Col+m.Width-1, m.Line)
		if err != nil {
			return err
		}
		if err := xw.f.MergeCell(sheet.Name, from, to); err != nil {
			return fmt.Errorf("merge %s:%s: %w", from, to, err)
		}
	}

	for col, width := range sheet.ColumnWidths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := xw.f.SetColWidth(sheet.Name, name, name, width); err != nil {
			return fmt.Errorf("column width %s: %w", name, err)
		}
	}
	return nil
}

// cellName converts zero-based layout coordinates to an A1 reference.
func cellName(col, line int) (string, error) {
	return excelize.CoordinatesToCellName(col+1, line+1)
}

func (xw *xlsxWriter) writeCell(sheet string, col, line int, cell core.LayoutCell) error {
	ref, err := cellName(col, line)
	if err != nil {
		return err
	}

	key := styleKey{fill: cell.Fill, bold: cell.Bold}
	switch cell.Kind {
	case core.CellBlank:
		// only the fill, if any
	case core.CellText:
		if err := xw.f.SetCellStr(sheet, ref, cell.Text); err != nil {
			return err
		}
	case core.CellNumber:
		key.number = true
		key.decimals = cell.Decimals
		if err := xw.f.SetCellFloat(sheet, ref, cell.Number, cell.Decimals, 64); err != nil {
			return err
		}
	case core.CellInput:
		key.center = true
	case core.CellInactive:
		key.center = true
		if err := xw.f.SetCellStr(sheet, ref, cell.Text); err != nil {
			return err
		}
	case core.CellDeviation:
		key.percent = true
		formula, err := deviationFormula(col, line, cell)
		if err != nil {
			return err
		}
		if err := xw.f.SetCellFormula(sheet, ref, formula); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cell %s: unknown kind %d", ref, cell.Kind)
	}

	if key == (styleKey{}) {
		return nil
	}
	style, err := xw.style(key)
	if err != nil {
		return err
	}
	return xw.f.SetCellStyle(sheet, ref, ref, style)
}

// deviationFormula compares the input cell against the original value and
// stays empty until both are filled in.
func deviationFormula(col, line int, cell core.LayoutCell) (string, error) {
	orig, err := cellName(col, line-cell.OriginalOffset)
	if err != nil {
		return "", err
	}
	input, err := cellName(col, line-cell.InputOffset)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`IF(OR(%[1]s="",%[2]s="",%[1]s=0),"",(%[2]s-%[1]s)/%[1]s)`, orig, input), nil
}

func (xw *xlsxWriter) style(key styleKey) (int, error) {
	if id, ok := xw.styles[key]; ok {
		return id, nil
	}

	s := &excelize.Style{}
	if key.fill != "" {
		s.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{strings.TrimPrefix(key.fill, "#")}}
	}
	if key.bold {
		s.Font = &excelize.Font{Bold: true}
	}
	if key.center {
		s.Alignment = &excelize.Alignment{Horizontal: "center"}
	}
	switch {
	case key.percent:
		format := "0.0%"
		s.CustomNumFmt = &format
	case key.number:
		format := "0"
		if key.decimals > 0 {
			format += "." + strings.Repeat("0", key.decimals)
		}
		s.CustomNumFmt = &format
	}

	id, err := xw.f.NewStyle(s)
	if err != nil {
		return 0, fmt.Errorf("create style: %w", err)
	}
	xw.styles[key] = id
	return id, nil
}
