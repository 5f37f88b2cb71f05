// =============================================================================
// Statement Normalizer - Converter Module
// =============================================================================
//
// This module orchestrates the pipeline for a single upload, from raw bytes
// to categorized canonical transactions.
//
// CONVERSION PIPELINE:
//   1. Resolve the source profile from the file name
//   2. Detect the format and extract the tabular intermediate
//   3. Reconcile columns onto the canonical record
//   4. Load the category rules
//   5. Categorize
//
// ERRORS:
//   UnsupportedFormatError, ExtractionError and SchemaError are returned
//   unchanged. Anything else, including a panic inside a parser, comes back
//   as a ProcessingError.
//
// CONCURRENCY:
//   A Converter holds no per-upload state; one instance serves concurrent
//   Run calls.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/statement-normalizer/internal/categorize"
	"github.com/ginjaninja78/statement-normalizer/internal/config"
	"github.com/ginjaninja78/statement-normalizer/internal/extract"
	"github.com/ginjaninja78/statement-normalizer/internal/pdfparser"
	"github.com/ginjaninja78/statement-normalizer/internal/reconcile"
	"github.com/ginjaninja78/statement-normalizer/internal/rules"
	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Upload is one statement to process.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Result is the outcome of processing one upload.
type Result struct {
	Filename string
	Format   types.Format

	// Profile is the matched source profile code, or "default".
	Profile string

	// Transactions are in source order, categorized.
	Transactions []types.Transaction

	// Dropped lists rows the reconciler rejected.
	Dropped []reconcile.RowIssue

	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsExtracted is the number of rows in the tabular intermediate.
	RowsExtracted int

	// RecordsProduced is the number of canonical transactions.
	RecordsProduced int

	// RowsDropped is the number of rows rejected by the reconciler.
	RowsDropped int

	// Categorized is the number of records matched by a rule.
	Categorized int

	// ProcessingTime is the time taken to process the upload.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// RuleSource provides the category rules. rules.Store and rules.Manager
// both satisfy it.
type RuleSource interface {
	Load(ctx context.Context) (rules.RuleSet, error)
}

// Converter runs the pipeline.
type Converter struct {
	mainConfig *config.MainConfig
	profiles   []*config.SourceProfile
	rules      RuleSource
	pdfOptions []pdfparser.Option
	logger     zerolog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithProfiles sets the source profiles.
func WithProfiles(profiles []*config.SourceProfile) Option {
	return func(c *Converter) { c.profiles = profiles }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Converter) { c.logger = logger }
}

// WithPDFOptions passes options to every PDF parser the converter builds.
func WithPDFOptions(opts ...pdfparser.Option) Option {
	return func(c *Converter) { c.pdfOptions = append(c.pdfOptions, opts...) }
}

// New creates a Converter. A nil mainConfig means config.Default().
func New(mainConfig *config.MainConfig, ruleSource RuleSource, opts ...Option) *Converter {
	if mainConfig == nil {
		mainConfig = config.Default()
	}
	c := &Converter{
		mainConfig: mainConfig,
		rules:      ruleSource,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for one upload.
func (c *Converter) Run(ctx context.Context, upload Upload) (result *Result, err error) {
	startTime := time.Now()
	log := c.logger.With().Str("file", upload.Filename).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("pipeline panicked")
			result, err = nil, &types.ProcessingError{Cause: fmt.Errorf("panic: %v", r)}
			return
		}
		if err != nil && !types.IsClientError(err) {
			err = &types.ProcessingError{Cause: err}
		}
	}()

	// =========================================================================
	// STEP 1: RESOLVE PROFILE
	// =========================================================================

	settings := c.settingsFor(upload.Filename)
	result = &Result{Filename: upload.Filename, Profile: settings.profileCode}
	if settings.profileCode != defaultProfile {
		log.Debug().Str("profile", settings.profileCode).Msg("using source profile")
	}

	// =========================================================================
	// STEP 2: EXTRACT
	// =========================================================================

	pdfOpts := append([]pdfparser.Option{
		pdfparser.WithDefaultCurrency(settings.reconcile.DefaultCurrency),
		pdfparser.WithLogger(log),
	}, c.pdfOptions...)
	extractor := extract.New(settings.csv, pdfparser.New(pdfOpts...))

	table, format, err := extractor.Extract(ctx, upload.Data, upload.Filename, upload.ContentType)
	if err != nil {
		log.Warn().Err(err).Msg("extraction failed")
		return nil, err
	}
	result.Format = format
	result.Stats.RowsExtracted = table.Len()
	log.Debug().Str("format", string(format)).Int("rows", table.Len()).Strs("columns", table.Columns).Msg("extracted table")

	// =========================================================================
	// STEP 3: RECONCILE
	// =========================================================================

	reconciled, err := reconcile.Reconcile(table, settings.reconcile)
	if err != nil {
		log.Warn().Err(err).Msg("schema reconciliation failed")
		return nil, err
	}
	for _, issue := range reconciled.Dropped {
		log.Warn().Int("row", issue.Row).Str("field", issue.Field).Str("value", issue.Value).Str("reason", issue.Reason).Msg("row dropped")
	}
	result.Dropped = reconciled.Dropped
	log.Debug().Strs("mapping", reconciled.MappedColumns()).Msg("columns mapped")

	// =========================================================================
	// STEP 4: LOAD RULES
	// =========================================================================

	ruleSet := rules.NewRuleSet()
	if c.rules != nil {
		ruleSet, err = c.rules.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load category rules: %w", err)
		}
	}

	// =========================================================================
	// STEP 5: CATEGORIZE
	// =========================================================================

	result.Transactions = categorize.Categorize(reconciled.Transactions, ruleSet)

	result.Stats.RecordsProduced = len(result.Transactions)
	result.Stats.RowsDropped = len(result.Dropped)
	for _, txn := range result.Transactions {
		if txn.Category != types.Uncategorized {
			result.Stats.Categorized++
		}
	}
	result.Stats.ProcessingTime = time.Since(startTime)

	log.Info().
		Str("format", string(format)).
		Int("records", result.Stats.RecordsProduced).
		Int("dropped", result.Stats.RowsDropped).
		Int("categorized", result.Stats.Categorized).
		Dur("elapsed", result.Stats.ProcessingTime).
		Msg("statement processed")

	return result, nil
}
