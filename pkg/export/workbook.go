package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of an .xlsx file.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet is one tab of a workbook.
type Sheet struct {
	Title  string
	Header []string
	Rows   [][]any
}

// Workbook wraps an excelize file built from sheets.
type Workbook struct {
	file *excelize.File
}

// NewWorkbook renders the sheets with a bold, filterable header row and heuristic column widths.
func NewWorkbook(sheets []Sheet) (*Workbook, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook needs at least one sheet")
	}

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Title); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.Title); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", s.Title, err)
		}

		if err := writeSheet(f, s, bold); err != nil {
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return &Workbook{file: f}, nil
}

func writeSheet(f *excelize.File, s Sheet, headerStyle int) error {
	header := make([]any, len(s.Header))
	for i, h := range s.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(s.Title, "A1", &header); err != nil {
		return fmt.Errorf("write header of %s: %w", s.Title, err)
	}

	for r, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(s.Title, cell, &values); err != nil {
			return fmt.Errorf("write row %d of %s: %w", r+2, s.Title, err)
		}
	}

	if len(s.Header) == 0 {
		return nil
	}

	last, err := excelize.ColumnNumberToName(len(s.Header))
	if err != nil {
		return err
	}
	_ = f.SetCellStyle(s.Title, "A1", last+"1", headerStyle)
	_ = f.AutoFilter(s.Title, "A1:"+last+"1", nil)

	for c := 1; c <= len(s.Header); c++ {
		col, _ := excelize.ColumnNumberToName(c)
		_ = f.SetColWidth(s.Title, col, col, columnWidth(s, c-1))
	}
	return nil
}

func columnWidth(s Sheet, idx int) float64 {
	longest := len(s.Header[idx])
	for r := 0; r < min(50, len(s.Rows)); r++ {
		if idx < len(s.Rows[r]) {
			if l := len(fmt.Sprint(s.Rows[r][idx])); l > longest {
				longest = l
			}
		}
	}
	w := float64(longest) * 1.1
	return max(12, min(w, 45))
}

// WriteTo streams the workbook as .xlsx.
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.file.WriteTo(out)
}

// File exposes the underlying excelize file.
func (w *Workbook) File() *excelize.File {
	return w.file
}

// Close releases temporary files held by excelize.
func (w *Workbook) Close() error {
	return w.file.Close()
}
