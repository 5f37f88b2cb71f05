// =============================================================================
// Statement Normalizer - CSV Parser Module
// =============================================================================
//
// This module turns a CSV statement export into the tabular intermediate.
// It handles:
//   - Unknown text encodings (UTF-8, then Latin-1, then Windows-1252)
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Multi-line headers and custom data start rows
//   - Ragged rows and sloppy quoting
//
// Empty cells become nil so the reconciler can tell "missing" from "present".
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/statement-normalizer/internal/config"
	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

// =============================================================================
// ENCODINGS
// =============================================================================

// decoder turns raw bytes into UTF-8 text, or fails.
type decoder struct {
	name   string
	decode func([]byte) ([]byte, error)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decoders are tried in this order. Latin-1 maps every byte, so in practice
// it is the last one that can fail-over; Windows-1252 only runs when forced.
var decoders = []decoder{
	{name: "utf-8", decode: func(b []byte) ([]byte, error) {
		b = bytes.TrimPrefix(b, utf8BOM)
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("invalid utf-8 byte sequence")
		}
		return b, nil
	}},
	{name: "latin-1", decode: func(b []byte) ([]byte, error) {
		return charmap.ISO8859_1.NewDecoder().Bytes(b)
	}},
	{name: "windows-1252", decode: func(b []byte) ([]byte, error) {
		return charmap.Windows1252.NewDecoder().Bytes(b)
	}},
}

// SupportedEncodings lists the encodings in the order they are tried.
func SupportedEncodings() []string {
	names := make([]string, len(decoders))
	for i, d := range decoders {
		names[i] = d.name
	}
	return names
}

// Decode converts raw bytes to UTF-8 text. With encoding "auto" (or empty)
// each supported encoding is tried in order; otherwise only the named one.
//
// RETURNS:
//   - The decoded text and the name of the encoding that worked.
//   - An error if no candidate encoding could decode the bytes.
func Decode(data []byte, encoding string) ([]byte, string, error) {
	candidates := decoders
	if forced := normalizeEncodingName(encoding); forced != "auto" {
		candidates = nil
		for _, d := range decoders {
			if d.name == forced {
				candidates = []decoder{d}
			}
		}
		if candidates == nil {
			return nil, "", fmt.Errorf("unknown encoding %q", encoding)
		}
	}

	var lastErr error
	for _, d := range candidates {
		text, err := d.decode(data)
		if err == nil {
			return text, d.name, nil
		}
		lastErr = err
	}
	return nil, "", fmt.Errorf("could not decode file with any supported encoding: %w", lastErr)
}

// KnownEncoding reports whether name is "auto" or a supported encoding.
func KnownEncoding(name string) bool {
	forced := normalizeEncodingName(name)
	if forced == "auto" {
		return true
	}
	for _, d := range decoders {
		if d.name == forced {
			return true
		}
	}
	return false
}

// ResolveDelimiter turns a configured delimiter into the field separator.
// Accepts a single character or one of "tab", "pipe", "semicolon".
func ResolveDelimiter(delimiter string) (rune, error) {
	switch delimiter {
	case "", ",":
		return ',', nil
	case "\\t", "\t", "tab", "TAB":
		return '\t', nil
	case "|", "pipe", "PIPE":
		return '|', nil
	case ";", "semicolon":
		return ';', nil
	}
	r, size := utf8.DecodeRuneInString(delimiter)
	if r == utf8.RuneError || size != len(delimiter) || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", delimiter)
	}
	return r, nil
}

func normalizeEncodingName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return "auto"
	case "utf-8", "utf8":
		return "utf-8"
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return "latin-1"
	case "windows-1252", "cp1252":
		return "windows-1252"
	default:
		return name
	}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads CSV bytes and returns the tabular intermediate.
//
// PARAMETERS:
//   - data: The raw upload.
//   - settings: Delimiter, header layout and encoding.
//
// RETURNS:
//   - The parsed table.
//   - An *types.ExtractionError if the bytes cannot be decoded or parsed.
//
// PARSING PROCESS:
//  1. Decode the bytes to UTF-8
//  2. Configure the CSV reader with the delimiter
//  3. Read and merge header rows
//  4. Read data rows starting from the configured data start row
func Parse(data []byte, settings config.CSVSettings) (*types.Table, error) {
	if settings.HeaderRows <= 0 {
		settings.HeaderRows = 1
	}
	if settings.DataStartRow <= settings.HeaderRows {
		settings.DataStartRow = settings.HeaderRows + 1
	}

	text, _, err := Decode(data, settings.Encoding)
	if err != nil {
		return nil, &types.ExtractionError{Format: types.FormatCSV, Cause: err}
	}

	csvReader := csv.NewReader(bytes.NewReader(text))
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, &types.ExtractionError{Format: types.FormatCSV, Cause: fmt.Errorf("failed to read CSV: %w", err)}
	}

	if len(allRows) == 0 {
		return nil, types.NewExtractionError(types.FormatCSV, "no columns to parse from file")
	}

	headers, err := extractHeaders(allRows, settings)
	if err != nil {
		return nil, &types.ExtractionError{Format: types.FormatCSV, Cause: err}
	}

	return &types.Table{
		Columns: headers,
		Rows:    extractDataRows(allRows, headers, settings),
	}, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	comma, err := ResolveDelimiter(settings.Delimiter)
	if err != nil {
		comma = ','
	}
	reader.Comma = comma

	// Bank exports are frequently ragged and loosely quoted.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// extractHeaders extracts and merges headers from the CSV.
//
// MULTI-LINE HEADER HANDLING:
//
//	Row 1: "Transaction", "",       "Value"
//	Row 2: "Date",        "Details", "Date"
//	Result: "Transaction Date", "Details", "Value Date"
func extractHeaders(allRows [][]string, settings config.CSVSettings) ([]string, error) {
	if len(allRows) < settings.HeaderRows {
		return nil, fmt.Errorf("file has fewer rows (%d) than header_rows (%d)", len(allRows), settings.HeaderRows)
	}

	if settings.HeaderRows == 1 {
		return cleanHeaders(allRows[0]), nil
	}

	maxCols := 0
	for i := 0; i < settings.HeaderRows; i++ {
		if len(allRows[i]) > maxCols {
			maxCols = len(allRows[i])
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < settings.HeaderRows; row++ {
			if col < len(allRows[row]) {
				if value := strings.TrimSpace(allRows[row][col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers), nil
}

// cleanHeaders trims headers, names blank ones Column_N and suffixes
// repeated names (".1", ".2", ...) so no column shadows another.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
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

// extractDataRows converts raw records to rows keyed by header.
// Blank lines are skipped; blank cells and missing trailing cells are nil.
func extractDataRows(allRows [][]string, headers []string, settings config.CSVSettings) []types.Row {
	startIndex := settings.DataStartRow - 1
	if startIndex >= len(allRows) {
		return []types.Row{}
	}

	rows := make([]types.Row, 0, len(allRows)-startIndex)
	for rowIndex := startIndex; rowIndex < len(allRows); rowIndex++ {
		record := allRows[rowIndex]
		if isRowEmpty(record) {
			continue
		}

		row := make(types.Row, len(headers))
		for colIndex, header := range headers {
			var value any
			if colIndex < len(record) {
				if cell := strings.TrimSpace(record[colIndex]); cell != "" {
					value = cell
				}
			}
			row[header] = value
		}
		rows = append(rows, row)
	}
	return rows
}

func isRowEmpty(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
