package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the longest sheet name a workbook accepts.
const maxSheetName = 31

// ErrDuplicateSheet is returned when two sheets share a name. Sheet names
// are compared after SheetName and without case.
var ErrDuplicateSheet = errors.New("duplicate sheet name")

// Sheet is one worksheet of a workbook.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// WriteWorkbook writes sheets as an xlsx workbook to w. The header row of
// each sheet is bold.
func WriteWorkbook(w io.Writer, sheets []Sheet) error {
	f, err := buildWorkbook(sheets)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveWorkbook writes sheets as an xlsx workbook at path. Nothing is written
// when the workbook cannot be built.
func SaveWorkbook(path string, sheets []Sheet) error {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, sheets); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// SheetName makes name usable as a worksheet name.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "Sheet"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}

// ====================== Private Methods ======================

func buildWorkbook(sheets []Sheet) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook needs at least one sheet")
	}
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	seen := make(map[string]bool, len(sheets))
	for i, sheet := range sheets {
		name := SheetName(sheet.Name)
		if seen[strings.ToLower(name)] {
			f.Close()
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSheet, name)
		}
		seen[strings.ToLower(name)] = true
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to name sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
		if err := fillSheet(f, name, sheet, bold); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func fillSheet(f *excelize.File, name string, sheet Sheet, headerStyle int) error {
	row := 1
	if len(sheet.Header) > 0 {
		if err := setRow(f, name, row, sheet.Header); err != nil {
			return err
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(sheet.Header), row)
		if err := f.SetCellStyle(name, first, last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header of %s: %w", name, err)
		}
		lastCol, _ := excelize.ColumnNumberToName(len(sheet.Header))
		if err := f.SetColWidth(name, "A", lastCol, 24); err != nil {
			return fmt.Errorf("failed to size columns of %s: %w", name, err)
		}
		row++
	}
	for _, values := range sheet.Rows {
		if err := setRow(f, name, row, values); err != nil {
			return err
		}
		row++
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}
