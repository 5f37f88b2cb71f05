// =============================================================================
// Statement Normalizer - Spreadsheet Parser
// =============================================================================
//
// This module reads spreadsheet statement exports into the tabular
// intermediate. Two engines are available:
//
//   | Engine   | Library                    | Files                    |
//   |----------|----------------------------|--------------------------|
//   | excelize | github.com/xuri/excelize   | Office Open XML (.xlsx)  |
//   | xls      | github.com/extrame/xls     | legacy BIFF (.xls)       |
//
// The primary engine is picked from the file extension. If it cannot open
// the workbook the other engine is tried, because banks routinely ship
// .xls files that are really .xlsx (and the reverse).
//
// Only the active sheet is read (the first sheet for .xls). The first
// non-empty row is the header. Cells are read as their display text, except
// numeric cells with a date number format, which become time.Time so the
// reconciler never has to guess the order of a month-first display string.
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

// =============================================================================
// ENGINES
// =============================================================================

// engine reads the cell grid from a workbook. A cell is a string or a
// time.Time.
type engine struct {
	name string
	read func(data []byte) ([][]any, error)
}

var (
	excelizeEngine = engine{name: "excelize", read: readXLSX}
	xlsEngine      = engine{name: "xls", read: readXLS}
)

// enginesFor returns the engines to try for a file name, primary first.
func enginesFor(filename string) []engine {
	if strings.EqualFold(filepath.Ext(filename), ".xls") {
		return []engine{xlsEngine, excelizeEngine}
	}
	return []engine{excelizeEngine, xlsEngine}
}

// readXLSX reads the active sheet with excelize.
func readXLSX(data []byte) ([][]any, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(f.GetActiveSheetIndex())
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}

	dates := dateStyles{file: f, known: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		dates.date1904 = *props.Date1904
	}
	grid := make([][]any, len(rows))
	for r, cells := range rows {
		grid[r] = make([]any, len(cells))
		for c, display := range cells {
			grid[r][c] = display
			if strings.TrimSpace(display) == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			if t, ok := dates.value(sheetName, cell); ok {
				grid[r][c] = t
			}
		}
	}
	return grid, nil
}

// dateStyles resolves whether a cell holds a date serial. Results are cached
// per style index.
type dateStyles struct {
	file     *excelize.File
	known    map[int]bool
	date1904 bool
}

// value returns the cell as a time when its style is a date format and its
// raw value is a serial number.
func (d dateStyles) value(sheet, cell string) (time.Time, bool) {
	styleID, err := d.file.GetCellStyle(sheet, cell)
	if err != nil || styleID == 0 {
		return time.Time{}, false
	}

	isDate, cached := d.known[styleID]
	if !cached {
		if style, err := d.file.GetStyle(styleID); err == nil && style != nil {
			isDate = isDateFormat(style.NumFmt, style.CustomNumFmt)
		}
		d.known[styleID] = isDate
	}
	if !isDate {
		return time.Time{}, false
	}

	raw, err := d.file.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return time.Time{}, false
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// isDateFormat reports whether a number format displays a calendar date.
// Built-in ids follow ECMA-376 18.8.30; time-only formats are excluded.
func isDateFormat(numFmt int, custom *string) bool {
	if custom != nil && *custom != "" {
		return isDatePattern(*custom)
	}
	switch {
	case numFmt >= 14 && numFmt <= 17, numFmt == 22:
		return true
	case numFmt >= 27 && numFmt <= 36, numFmt >= 50 && numFmt <= 58:
		return true
	}
	return false
}

// isDatePattern looks for day or year tokens outside quoted literals and
// bracketed sections ("[Red]", "[$-409]"). "m" alone is ambiguous with
// minutes and does not count.
func isDatePattern(pattern string) bool {
	inQuote, inBracket := false, false
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '\\':
			i++
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case inBracket:
		case ch == 'd' || ch == 'D' || ch == 'y' || ch == 'Y':
			return true
		}
	}
	return false
}

// readXLS reads the first sheet with extrame/xls. The library panics on
// some malformed inputs, so panics are turned into errors here.
func readXLS(data []byte) (rows [][]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("xls reader panicked: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no readable sheet")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]any, 0, row.LastCol())
		for col := 0; col < row.LastCol(); col++ {
			cells = append(cells, row.Col(col))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a workbook into the tabular intermediate.
//
// PARAMETERS:
//   - data: The raw upload.
//   - filename: Used only to pick the primary engine.
//
// RETURNS:
//   - The parsed table.
//   - An *types.ExtractionError carrying every engine's failure if no
//     engine could read the workbook.
func Parse(data []byte, filename string) (*types.Table, error) {
	var errs []error
	for _, e := range enginesFor(filename) {
		grid, err := e.read(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
			continue
		}
		return gridToTable(grid), nil
	}
	return nil, &types.ExtractionError{Format: types.FormatSpreadsheet, Cause: errors.Join(errs...)}
}

// gridToTable turns a cell grid into a table. Leading blank rows are
// skipped, the first non-blank row is the header, later blank rows are
// dropped and blank cells become nil.
func gridToTable(grid [][]any) *types.Table {
	table := &types.Table{Rows: []types.Row{}}

	headerIndex := -1
	for i, cells := range grid {
		if !isRowEmpty(cells) {
			headerIndex = i
			break
		}
	}
	if headerIndex < 0 {
		return table
	}

	headers := make([]string, len(grid[headerIndex]))
	for i, cell := range grid[headerIndex] {
		headers[i] = cellText(cell)
	}
	table.Columns = cleanHeaders(headers)

	for _, cells := range grid[headerIndex+1:] {
		if isRowEmpty(cells) {
			continue
		}
		row := make(types.Row, len(table.Columns))
		for col, header := range table.Columns {
			var value any
			if col < len(cells) {
				switch cell := cells[col].(type) {
				case time.Time:
					value = cell
				default:
					if text := strings.TrimSpace(cellText(cell)); text != "" {
						value = text
					}
				}
			}
			row[header] = value
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[header]; dup {
			seen[header] = n + 1
			header = fmt.Sprintf("%s.%d", header, n+1)
		} else {
			seen[header] = 0
		}
		cleaned[i] = header
	}
	return cleaned
}

func isRowEmpty(cells []any) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cellText(cell)) != "" {
			return false
		}
	}
	return true
}

func cellText(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}
