// =============================================================================
// Statement Normalizer - File Manager Utility
// =============================================================================
//
// File handling for the batch process command:
//   - Statement discovery in the input directory
//   - Archival of processed statements
//   - Output file naming
//   - Error and summary logs
//
// ARCHIVAL STRATEGY:
//   - Statements are moved to input_archive after successful processing
//   - Failed statements stay in the input directory for the next run
//   - Logs are written to the logs directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for batch processing.
type FileManager struct {
	InputDir        string
	OutputDir       string
	InputArchiveDir string
	LogsDir         string

	// UseTimestampSubdirs archives into YYYY/MM/DD subdirectories.
	UseTimestampSubdirs bool
}

// NewFileManager creates a FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, logsDir string) *FileManager {
	return &FileManager{
		InputDir:        inputDir,
		OutputDir:       outputDir,
		InputArchiveDir: inputArchiveDir,
		LogsDir:         logsDir,
	}
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists regular files in the input directory whose
// extension is in extensions (case-insensitive), sorted by name. Hidden
// files are skipped.
func (fm *FileManager) DiscoverInputFiles(extensions []string) ([]string, error) {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(name))] {
			files = append(files, filepath.Join(fm.InputDir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a processed statement to the archive directory and
// returns its new path.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.archivePath(filePath, time.Now())

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

func (fm *FileManager) archivePath(filePath string, now time.Time) string {
	fileName := filepath.Base(filePath)
	if fm.UseTimestampSubdirs {
		return filepath.Join(fm.InputArchiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName)
	}
	return filepath.Join(fm.InputArchiveDir, fileName)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName builds an output file name from a template.
//
// PARAMETERS:
//   - format: The name template. Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     plus one placeholder per key of params, e.g. {original}, {profile}
//   - params: Placeholder values.
//   - ext: Extension to ensure, e.g. ".json".
//
// EXAMPLE:
//
//	format: "{profile}_{original}_{timestamp}"
//	params: {"profile": "enbd", "original": "march"}
//	ext:    ".json"
//	output: "enbd_march_20240115_143022.json"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = sanitizeName(value)
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// sanitizeName keeps placeholder values from introducing path separators.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry is one failed file or one dropped row.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string

	// Row, Field and Value are set for dropped rows. Row is 0-based; -1
	// means the entry is about the whole file.
	Row   int
	Field string
	Value string
}

// WriteErrorLog writes entries to a timestamped log in the logs directory.
// It returns "" without writing when there are no entries.
func (fm *FileManager) WriteErrorLog(entries []ErrorLogEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(fm.LogsDir, fmt.Sprintf("error_log_%s.txt", time.Now().Format("20060102_150405")))
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Statement Normalizer - Error Log\n"+
		"Generated: %s\n"+
		"Total Entries: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Entry #%d\n"+
			"  Timestamp:  %s\n"+
			"  File:       %s\n"+
			"  Type:       %s\n"+
			"  Message:    %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)
		if entry.Row >= 0 {
			fmt.Fprintf(writer, "  Row:        %d\n", entry.Row)
		}
		if entry.Field != "" {
			fmt.Fprintf(writer, "  Field:      %s\n", entry.Field)
		}
		if entry.Value != "" {
			fmt.Fprintf(writer, "  Value:      %s\n", entry.Value)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary describes one batch run.
type ProcessingSummary struct {
	StartTime        time.Time
	EndTime          time.Time
	TotalFiles       int
	SuccessfulFiles  int
	FailedFiles      int
	TotalRecords     int
	TotalDropped     int
	TotalCategorized int
	ProcessedFiles   []ProcessedFileInfo
	FailedFilesList  []FailedFileInfo
}

// ProcessedFileInfo describes a successfully processed statement.
type ProcessedFileInfo struct {
	InputFile   string
	OutputFile  string
	ArchivePath string
	Format      string
	Profile     string
	Records     int
	Dropped     int
	ProcessTime time.Duration
}

// FailedFileInfo describes a statement that could not be processed.
type FailedFileInfo struct {
	InputFile    string
	ErrorType    string
	ErrorMessage string
}

// WriteSummaryLog writes the run summary to a timestamped file in the logs
// directory.
func (fm *FileManager) WriteSummaryLog(summary ProcessingSummary) (string, error) {
	summaryPath := filepath.Join(fm.LogsDir, fmt.Sprintf("processing_summary_%s.txt", time.Now().Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Statement Normalizer - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:   %s\n"+
		"  End Time:     %s\n"+
		"  Duration:     %s\n\n"+
		"Statistics:\n"+
		"  Total Files:  %d\n"+
		"  Successful:   %d\n"+
		"  Failed:       %d\n"+
		"  Records:      %d\n"+
		"  Dropped Rows: %d\n"+
		"  Categorized:  %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalRecords,
		summary.TotalDropped,
		summary.TotalCategorized)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Successful Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Output:       %s\n", pf.OutputFile)
			if pf.ArchivePath != "" {
				fmt.Fprintf(writer, "  Archived To:  %s\n", pf.ArchivePath)
			}
			fmt.Fprintf(writer, "  Format:       %s (profile %s)\n", pf.Format, pf.Profile)
			fmt.Fprintf(writer, "  Records:      %d (%d dropped)\n", pf.Records, pf.Dropped)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Type:  %s\n", ff.ErrorType)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	return destFile.Sync()
}
