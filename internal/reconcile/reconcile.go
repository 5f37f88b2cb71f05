// =============================================================================
// Statement Normalizer - Schema Reconciler
// =============================================================================
//
// The reconciler maps a table with arbitrary column names onto the canonical
// transaction record. Steps, in order:
//
//   1. Trim column names
//   2. Map source columns to canonical fields through the synonym table
//   3. Require date, description and amount
//   4. Parse amounts (thousands separators and currency symbols stripped)
//   5. Parse dates day-first
//   6. Derive direction from the amount sign when no direction column exists
//   7. Fill currency and status defaults
//
// Rows failing step 4 or 5 are dropped and reported, never fatal. A table
// where every row is dropped yields an empty result, not an error.
//
// =============================================================================

package reconcile

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/statement-normalizer/internal/datefmt"
	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

// Options tune the reconciler.
type Options struct {
	// Synonyms defaults to DefaultSynonyms().
	Synonyms *Synonyms
	// DefaultCurrency defaults to types.DefaultCurrency.
	DefaultCurrency string
	// DefaultStatus defaults to types.DefaultStatus.
	DefaultStatus string
}

// RowIssue describes a dropped row.
type RowIssue struct {
	// Row is the 0-based SourceRow of the dropped row.
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (i RowIssue) String() string {
	return fmt.Sprintf("row %d: %s %q: %s", i.Row, i.Field, i.Value, i.Reason)
}

// Result is the reconciler's output.
type Result struct {
	Transactions []types.Transaction
	Dropped      []RowIssue
	// Mapping is canonical field to the source column it was read from.
	Mapping map[string]string
}

// Reconcile converts a table to canonical transactions.
//
// RETURNS:
//   - The records that survived, in source order, plus the dropped rows.
//   - A *types.SchemaError if a required field has no source column.
func Reconcile(table *types.Table, opts Options) (*Result, error) {
	if opts.Synonyms == nil {
		opts.Synonyms = DefaultSynonyms()
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = types.DefaultCurrency
	}
	if opts.DefaultStatus == "" {
		opts.DefaultStatus = types.DefaultStatus
	}
	if table == nil {
		table = &types.Table{}
	}

	mapping := mapColumns(table.Columns, opts.Synonyms)

	var missing []string
	for _, field := range RequiredFields {
		if _, ok := mapping[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		available := make([]string, len(table.Columns))
		for i, c := range table.Columns {
			available[i] = strings.TrimSpace(c)
		}
		return nil, &types.SchemaError{Missing: missing, Available: available}
	}

	_, hasDirection := mapping[FieldDirection]

	result := &Result{
		Transactions: make([]types.Transaction, 0, table.Len()),
		Mapping:      mapping,
	}

	for i, row := range table.Rows {
		get := func(field string) any {
			column, ok := mapping[field]
			if !ok {
				return nil
			}
			return row[column]
		}
		drop := func(field string, value any, reason string) {
			result.Dropped = append(result.Dropped, RowIssue{Row: i, Field: field, Value: text(value), Reason: reason})
		}

		rawAmount := get(FieldAmount)
		amount, err := ParseAmount(rawAmount)
		if err != nil {
			drop(FieldAmount, rawAmount, err.Error())
			continue
		}

		rawDate := get(FieldDate)
		date, err := parseDate(rawDate)
		if err != nil {
			drop(FieldDate, rawDate, err.Error())
			continue
		}

		description := strings.TrimSpace(text(get(FieldDescription)))
		if description == "" {
			drop(FieldDescription, nil, "missing description")
			continue
		}

		txn := types.Transaction{
			SourceRow:   i,
			Date:        date,
			Description: description,
			Amount:      amount.Abs(),
			Currency:    orDefault(text(get(FieldCurrency)), opts.DefaultCurrency),
			Status:      orDefault(text(get(FieldStatus)), opts.DefaultStatus),
			Category:    types.Uncategorized,
		}

		if hasDirection {
			txn.Direction = types.ParseDirection(text(get(FieldDirection)))
		} else if amount.IsNegative() {
			txn.Direction = types.Debit
		} else {
			txn.Direction = types.Credit
		}

		result.Transactions = append(result.Transactions, txn)
	}

	return result, nil
}

// mapColumns picks one source column per canonical field. When several
// columns map to the same field, the better-ranked synonym wins, then the
// earlier column.
func mapColumns(columns []string, synonyms *Synonyms) map[string]string {
	type candidate struct {
		column string
		rank   int
	}
	best := make(map[string]candidate)
	for _, column := range columns {
		field, rank, ok := synonyms.Lookup(column)
		if !ok {
			continue
		}
		current, seen := best[field]
		if !seen || rank < current.rank {
			best[field] = candidate{column: column, rank: rank}
		}
	}

	mapping := make(map[string]string, len(best))
	for field, c := range best {
		mapping[field] = c.column
	}
	return mapping
}

// MappedColumns returns "field <- column" pairs, sorted, for logging.
func (r *Result) MappedColumns() []string {
	pairs := make([]string, 0, len(r.Mapping))
	for field, column := range r.Mapping {
		pairs = append(pairs, field+" <- "+column)
	}
	sort.Strings(pairs)
	return pairs
}

// =============================================================================
// VALUE PARSING
// =============================================================================

// ParseAmount parses a raw amount. Thousands separators, whitespace and
// currency symbols are ignored, and accounting parentheses mean negative.
func ParseAmount(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("missing amount")
	case decimal.Decimal:
		return v, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount")
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		return parseAmountString(v)
	default:
		return decimal.Zero, fmt.Errorf("unsupported amount value of type %T", value)
	}
}

func parseAmountString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	s = strings.TrimFunc(s, isCurrencyAffix)

	var b strings.Builder
	b.WriteString(sign)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
			b.WriteRune(r)
		case r == ',' || r == ' ' || r == '\u00a0' || r == '\'':
			// thousands separators
		case isCurrencySymbol(r):
		default:
			return decimal.Zero, fmt.Errorf("invalid amount")
		}
	}

	cleaned := b.String()
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, fmt.Errorf("missing amount")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount")
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func isCurrencySymbol(r rune) bool {
	switch r {
	case '$', '€', '£', '¥', '₹', '₽', '₩', '₺', '₪', '฿', '¢':
		return true
	}
	return false
}

// isCurrencyAffix matches what may surround the number: currency signs,
// ISO code letters ("AED 5.00", "5.00 USD") and spaces. Letters inside the
// number, such as an exponent, are left alone.
func isCurrencyAffix(r rune) bool {
	return isCurrencySymbol(r) || (r >= 'A' && r <= 'Z') || r == ' ' || r == '\u00a0'
}

func parseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("missing date")
	case time.Time:
		return datefmt.Truncate(v), nil
	case string:
		return datefmt.ParseDayFirst(v)
	default:
		return time.Time{}, fmt.Errorf("unsupported date value of type %T", value)
	}
}

// text renders a raw cell as a string; nil is "".
func text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value == "" {
		return fallback
	}
	return value
}
