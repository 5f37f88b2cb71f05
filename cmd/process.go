// =============================================================================
// Statement Normalizer - Process Command
// =============================================================================
//
// COMMAND USAGE:
//   normalizer process [flags]
//
// FLAGS:
//   --dry-run     : Run the pipeline without writing outputs or archiving
//   --file        : Process a single statement instead of the input directory
//   --profile     : Only process files whose matched profile has this code
//
// PROCESSING PIPELINE:
//   1. Load source profiles and open the category rule store
//   2. Discover statements in the input directory
//   3. For each file (bounded by max_concurrency):
//      a. Run the converter (detect, extract, reconcile, categorize)
//      b. Write the normalized result to the output directory
//      c. Archive the input
//   4. Write the error log and the batch summary
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/statement-normalizer/internal/config"
	"github.com/ginjaninja78/statement-normalizer/internal/converter"
	"github.com/ginjaninja78/statement-normalizer/internal/extract"
	"github.com/ginjaninja78/statement-normalizer/internal/report"
	"github.com/ginjaninja78/statement-normalizer/internal/rules"
	"github.com/ginjaninja78/statement-normalizer/internal/types"
	"github.com/ginjaninja78/statement-normalizer/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun        bool
	singleFile    string
	profileFilter string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Normalize every statement in the input directory",
	Long: `The process command scans the input directory for supported statements
(.csv, .xlsx, .xls, .json, .pdf), normalizes each one and writes the result
to the output directory as JSON or XLSX.

On success the statement is moved to the input archive. On failure it stays
in place and the error is written to the logs directory. Rows that could not
be reconciled are listed in the same error log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context(), mainConfig)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the pipeline without writing outputs or archiving inputs")
	processCmd.Flags().StringVar(&singleFile, "file", "", "Process a single statement at this path")
	processCmd.Flags().StringVar(&profileFilter, "profile", "", "Only process files matching this source profile code")
}

// fileOutcome is the result of processing one input file.
type fileOutcome struct {
	path        string
	result      *converter.Result
	outputFile  string
	archivePath string
	err         error
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context, cfg *config.MainConfig) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: PROFILES, RULES AND CONVERTER
	// =========================================================================

	if err := config.EnsureDirectories(cfg); err != nil {
		return err
	}

	profiles, err := config.LoadProfiles(cfg.ProfilesDir)
	if err != nil {
		return fmt.Errorf("failed to load source profiles: %w", err)
	}
	log.Info().Int("profiles", len(profiles)).Msg("loaded source profiles")

	store, closeStore, err := openRuleStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open category rules: %w", err)
	}
	defer closeStore()

	conv := converter.New(cfg, rules.NewManager(store),
		converter.WithProfiles(profiles),
		converter.WithLogger(log),
	)

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.LogsDir)

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if singleFile != "" {
		inputFiles = []string{singleFile}
	} else {
		inputFiles, err = fm.DiscoverInputFiles(extract.SupportedExtensions())
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	if profileFilter != "" {
		inputFiles = filterByProfile(inputFiles, profiles, profileFilter)
	}

	if len(inputFiles) == 0 {
		log.Info().Str("input_dir", cfg.InputDir).Msg("no statements to process")
		return nil
	}
	log.Info().Int("files", len(inputFiles)).Bool("dry_run", dryRun).Msg("processing statements")

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================

	outcomes := processFiles(ctx, conv, fm, cfg, inputFiles)

	// =========================================================================
	// STEP 4: ERROR LOG AND SUMMARY
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime:  startTime,
		TotalFiles: len(inputFiles),
	}
	var logEntries []utils.ErrorLogEntry

	for _, outcome := range outcomes {
		name := filepath.Base(outcome.path)

		if outcome.err != nil {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    name,
				ErrorType:    errorType(outcome.err),
				ErrorMessage: outcome.err.Error(),
			})
			logEntries = append(logEntries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     name,
				ErrorType:    errorType(outcome.err),
				ErrorMessage: outcome.err.Error(),
				Row:          -1,
			})
			log.Error().Err(outcome.err).Str("file", name).Msg("statement failed")
			continue
		}

		res := outcome.result
		summary.SuccessfulFiles++
		summary.TotalRecords += res.Stats.RecordsProduced
		summary.TotalDropped += res.Stats.RowsDropped
		summary.TotalCategorized += res.Stats.Categorized
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   name,
			OutputFile:  outcome.outputFile,
			ArchivePath: outcome.archivePath,
			Format:      string(res.Format),
			Profile:     res.Profile,
			Records:     res.Stats.RecordsProduced,
			Dropped:     res.Stats.RowsDropped,
			ProcessTime: res.Stats.ProcessingTime,
		})

		for _, issue := range res.Dropped {
			logEntries = append(logEntries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     name,
				ErrorType:    "dropped_row",
				ErrorMessage: issue.Reason,
				Row:          issue.Row,
				Field:        issue.Field,
				Value:        issue.Value,
			})
		}

		log.Info().
			Str("file", name).
			Str("output", outcome.outputFile).
			Int("records", res.Stats.RecordsProduced).
			Int("dropped", res.Stats.RowsDropped).
			Msg("statement processed")
	}
	summary.EndTime = time.Now()

	if !dryRun {
		if path, err := fm.WriteErrorLog(logEntries); err != nil {
			log.Error().Err(err).Msg("failed to write error log")
		} else if path != "" {
			log.Info().Str("path", path).Msg("error log written")
		}
		if path, err := fm.WriteSummaryLog(summary); err != nil {
			log.Error().Err(err).Msg("failed to write processing summary")
		} else {
			log.Info().Str("path", path).Msg("processing summary written")
		}
	}

	log.Info().
		Int("total", summary.TotalFiles).
		Int("successful", summary.SuccessfulFiles).
		Int("failed", summary.FailedFiles).
		Int("records", summary.TotalRecords).
		Dur("elapsed", summary.EndTime.Sub(startTime)).
		Msg("processing complete")

	if summary.FailedFiles > 0 && !cfg.ContinueOnErrorEnabled() {
		return fmt.Errorf("%d of %d statement(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// processFiles runs every file through the converter with at most
// cfg.MaxConcurrency files in flight. Outcomes keep the input order. When
// continue_on_error is off, files not yet started after the first failure
// are reported as cancelled.
func processFiles(ctx context.Context, conv *converter.Converter, fm *utils.FileManager, cfg *config.MainConfig, files []string) []fileOutcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limit := cfg.MaxConcurrency
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	outcomes := make([]fileOutcome, len(files))
	var wg sync.WaitGroup

	for i, path := range files {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				outcomes[i] = fileOutcome{path: path, err: fmt.Errorf("not processed: %w", ctx.Err())}
				return
			}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				outcomes[i] = fileOutcome{path: path, err: fmt.Errorf("not processed: %w", ctx.Err())}
				return
			}

			outcomes[i] = processFile(ctx, conv, fm, cfg, path)
			if outcomes[i].err != nil && !cfg.ContinueOnErrorEnabled() {
				cancel()
			}
		}(i, path)
	}

	wg.Wait()
	return outcomes
}

// processFile normalizes one statement, writes the output and archives the
// input.
//
// PARAMETERS:
//   - path: The statement to process.
//
// RETURNS:
//   - The outcome; err is set on any failure. The input is only archived
//     after the output was written.
func processFile(ctx context.Context, conv *converter.Converter, fm *utils.FileManager, cfg *config.MainConfig, path string) fileOutcome {
	outcome := fileOutcome{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		outcome.err = fmt.Errorf("failed to read input: %w", err)
		return outcome
	}

	name := filepath.Base(path)
	result, err := conv.Run(ctx, converter.Upload{Data: data, Filename: name})
	if err != nil {
		outcome.err = err
		return outcome
	}
	outcome.result = result

	params := map[string]string{
		"original": strings.TrimSuffix(name, filepath.Ext(name)),
		"profile":  result.Profile,
	}
	outName := utils.GenerateOutputFileName(cfg.OutputNameFormat, params, "."+cfg.OutputType)
	outcome.outputFile = outName

	if dryRun {
		return outcome
	}

	resp := report.Build(result, report.FileInfo{Filename: name, SizeBytes: int64(len(data))})
	if err := report.WriteFile(filepath.Join(cfg.OutputDir, outName), resp, cfg.OutputType); err != nil {
		outcome.err = err
		return outcome
	}

	archivePath, err := fm.ArchiveInputFile(path)
	if err != nil {
		// The output exists; keep the file counted as processed.
		log.Warn().Err(err).Str("file", name).Msg("failed to archive input")
	}
	outcome.archivePath = archivePath
	return outcome
}

// filterByProfile keeps files whose matched profile code equals code.
// "default" selects files that match no profile.
func filterByProfile(files []string, profiles []*config.SourceProfile, code string) []string {
	var kept []string
	for _, file := range files {
		matched := "default"
		if profile := config.FindProfile(profiles, file); profile != nil {
			matched = profile.ProfileCode
		}
		if strings.EqualFold(matched, code) {
			kept = append(kept, file)
		}
	}
	return kept
}

// errorType names the error taxonomy bucket for logs.
func errorType(err error) string {
	var (
		unsupported *types.UnsupportedFormatError
		extraction  *types.ExtractionError
		schema      *types.SchemaError
	)
	switch {
	case errors.As(err, &unsupported):
		return "unsupported_format"
	case errors.As(err, &extraction):
		return "extraction_error"
	case errors.As(err, &schema):
		return "schema_error"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "processing_error"
	}
}
