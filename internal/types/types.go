// =============================================================================
// Statement Normalizer - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - the format parsers (csvparser, xlsxparser, jsonparser, pdfparser)
//   - reconcile and categorize
//   - converter, report and server
//
// =============================================================================

package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TABULAR INTERMEDIATE
// =============================================================================

// Row is one source row: raw column name to raw value.
// Values are string, json.Number, float64, int, time.Time or nil.
type Row map[string]any

// Table is the format-neutral output of every extractor.
type Table struct {
	// Columns keeps the source column order (header order for CSV and
	// spreadsheets, first-seen order for JSON).
	Columns []string

	// Rows are kept in source order. Their position is the row's SourceRow.
	Rows []Row
}

// Len returns the number of rows in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Format identifies which extractor handles an upload.
type Format string

const (
	FormatCSV         Format = "csv"
	FormatSpreadsheet Format = "spreadsheet"
	FormatJSON        Format = "json"
	FormatPDF         Format = "pdf"
)

// =============================================================================
// CANONICAL RECORD MODEL
// =============================================================================

// Direction says whether money left (Debit) or entered (Credit) the account.
type Direction string

const (
	Debit  Direction = "Debit"
	Credit Direction = "Credit"
)

// ParseDirection maps a raw direction marker to a Direction.
// Anything that is not recognisably a debit is treated as a credit.
func ParseDirection(raw string) Direction {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debit", "dr", "d", "withdrawal", "out":
		return Debit
	default:
		return Credit
	}
}

// Lower returns the lower-case wire form ("debit" or "credit").
func (d Direction) Lower() string {
	return strings.ToLower(string(d))
}

const (
	// DefaultCurrency is used when the source carries no currency.
	DefaultCurrency = "AED"

	// DefaultStatus is used when the source carries no status.
	DefaultStatus = "SETTLED"

	// Uncategorized is the category every record starts with. It is never
	// matched by the categorizer.
	Uncategorized = "Uncategorized"
)

// Transaction is the canonical record every extractor path ends up as.
type Transaction struct {
	// SourceRow is the 0-based position of the row in the extracted table.
	// It survives row drops, so it can be used to build stable IDs.
	SourceRow int

	// Date is a calendar date at UTC midnight.
	Date time.Time

	Description string

	// Amount is always non-negative; the sign lives in Direction.
	Amount decimal.Decimal

	Direction Direction
	Currency  string
	Status    string
	Category  string
}

// DateString renders Date as YYYY-MM-DD.
func (t Transaction) DateString() string {
	return t.Date.Format("2006-01-02")
}
