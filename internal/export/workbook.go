// Package export renders dashboard data as xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]any
}

// Workbook writes every sheet in order. The first sheet replaces excelize's default.
func Workbook(sheets []SheetSpec) (*excelize.File, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Title); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.Title); err != nil {
			return nil, fmt.Errorf("new sheet: %w", err)
		}

		if len(s.Header) == 0 {
			continue
		}
		header := make([]any, len(s.Header))
		for c, h := range s.Header {
			header[c] = h
		}
		if err := f.SetSheetRow(s.Title, "A1", &header); err != nil {
			return nil, fmt.Errorf("header %s: %w", s.Title, err)
		}
		end := colName(len(s.Header)) + "1"
		_ = f.SetCellStyle(s.Title, "A1", end, bold)
		_ = f.AutoFilter(s.Title, "A1:"+end, nil)

		for r, row := range s.Rows {
			cell := fmt.Sprintf("A%d", r+2)
			if err := f.SetSheetRow(s.Title, cell, &row); err != nil {
				return nil, fmt.Errorf("set row %s: %w", cell, err)
			}
		}
		fitColumns(f, s)
	}
	return f, nil
}

// Bytes serializes the workbook
func Bytes(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename builds a dated attachment name such as ideas_2026-01-31.xlsx
func Filename(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, at.Format("2006-01-02"))
}

// fitColumns sizes columns from the header and the first rows
func fitColumns(f *excelize.File, s SheetSpec) {
	for c := 1; c <= len(s.Header); c++ {
		width := len(s.Header[c-1])
		for r := 0; r < min(50, len(s.Rows)); r++ {
			if c-1 >= len(s.Rows[r]) {
				continue
			}
			if l := len(fmt.Sprint(s.Rows[r][c-1])); l > width {
				width = l
			}
		}
		w := float64(width) * 0.9
		if w < 12 {
			w = 12
		}
		if w > 40 {
			w = 40
		}
		_ = f.SetColWidth(s.Title, colName(c), colName(c), w)
	}
}

func colName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}
