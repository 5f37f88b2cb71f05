// =============================================================================
// Statement Normalizer - PDF Parser
// =============================================================================
//
// PDF statements have no schema. This module pulls the text out of the
// document and scans it line by line for known transaction layouts:
//
//   15 Jan 2024 Coffee Shop 5.50 AED Debit
//   15 Jan 2024 1,200.00 Rent Payment DEBIT
//   Grocery Store 15 Jan 2024 45.20 Credit
//
// Lines that match no layout are skipped. A document without a single
// matching line is an extraction error.
//
// TEXT EXTRACTION:
//   Strategies are tried in order. The next strategy runs when the previous
//   one fails or returns only whitespace.
//
// =============================================================================

package pdfparser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

// Output column names. They are the canonical names, so the reconciler maps
// them onto themselves.
const (
	ColumnDate        = "date"
	ColumnDescription = "description"
	ColumnAmount      = "amount"
	ColumnCurrency    = "currency"
	ColumnDirection   = "direction"
	ColumnStatus      = "status"
)

// ErrNoTransactions is the cause of the extraction error returned when no
// line in the document matched.
var ErrNoTransactions = errors.New("no valid transactions found in PDF")

// Parser extracts statement lines from PDF documents.
type Parser struct {
	strategies      []TextExtractor
	defaultCurrency string
	logger          zerolog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithStrategies replaces the text extraction strategies.
func WithStrategies(strategies ...TextExtractor) Option {
	return func(p *Parser) { p.strategies = strategies }
}

// WithDefaultCurrency sets the currency for layouts without a currency code.
func WithDefaultCurrency(currency string) Option {
	return func(p *Parser) { p.defaultCurrency = currency }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// New returns a Parser using the native text layer first and pdftotext
// second.
func New(opts ...Option) *Parser {
	p := &Parser{
		strategies:      []TextExtractor{NativeText{}, PdftotextCLI{}},
		defaultCurrency: types.DefaultCurrency,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts the transactions found in a PDF document.
func (p *Parser) Parse(ctx context.Context, data []byte) (*types.Table, error) {
	text, err := p.extractText(ctx, data)
	if err != nil {
		return nil, &types.ExtractionError{Format: types.FormatPDF, Cause: err}
	}

	table := ScanText(text, p.defaultCurrency)
	if table.Len() == 0 {
		return nil, &types.ExtractionError{Format: types.FormatPDF, Cause: ErrNoTransactions}
	}

	p.logger.Debug().Int("transactions", table.Len()).Msg("pdf lines matched")
	return table, nil
}

func (p *Parser) extractText(ctx context.Context, data []byte) (string, error) {
	var errs []error
	for _, strategy := range p.strategies {
		text, err := strategy.ExtractText(ctx, data)
		if err != nil {
			p.logger.Debug().Err(err).Str("strategy", strategy.Name()).Msg("pdf text strategy failed")
			errs = append(errs, fmt.Errorf("%s: %w", strategy.Name(), err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			p.logger.Debug().Str("strategy", strategy.Name()).Msg("pdf text strategy returned no text")
			errs = append(errs, fmt.Errorf("%s: no text", strategy.Name()))
			continue
		}
		return text, nil
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("no text extraction strategy configured")
	}
	return "", fmt.Errorf("could not extract text: %w", errors.Join(errs...))
}

// ScanText turns every matching line of text into a row.
func ScanText(text, defaultCurrency string) *types.Table {
	table := &types.Table{
		Columns: []string{ColumnDate, ColumnDescription, ColumnAmount, ColumnCurrency, ColumnDirection, ColumnStatus},
		Rows:    []types.Row{},
	}

	for _, line := range strings.Split(text, "\n") {
		m, ok := MatchLine(line)
		if !ok {
			continue
		}
		currency := m.Currency
		if currency == "" {
			currency = defaultCurrency
		}
		table.Rows = append(table.Rows, types.Row{
			ColumnDate:        m.Date.Format("2006-01-02"),
			ColumnDescription: m.Description,
			ColumnAmount:      m.Amount.String(),
			ColumnCurrency:    currency,
			ColumnDirection:   m.Direction,
			ColumnStatus:      types.DefaultStatus,
		})
	}
	return table
}
