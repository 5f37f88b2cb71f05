// Package extract detects the format of an upload and runs the matching
// parser, producing the tabular intermediate.
package extract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/statement-normalizer/internal/config"
	"github.com/ginjaninja78/statement-normalizer/internal/csvparser"
	"github.com/ginjaninja78/statement-normalizer/internal/jsonparser"
	"github.com/ginjaninja78/statement-normalizer/internal/pdfparser"
	"github.com/ginjaninja78/statement-normalizer/internal/types"
	"github.com/ginjaninja78/statement-normalizer/internal/xlsxparser"
)

var extensionFormats = map[string]types.Format{
	".csv":  types.FormatCSV,
	".xlsx": types.FormatSpreadsheet,
	".xls":  types.FormatSpreadsheet,
	".json": types.FormatJSON,
	".pdf":  types.FormatPDF,
}

// SupportedExtensions lists the accepted file extensions.
func SupportedExtensions() []string {
	return []string{".csv", ".xlsx", ".xls", ".json", ".pdf"}
}

// DetectFormat picks a format from the file extension, falling back to the
// content type. No bytes are inspected.
func DetectFormat(filename, contentType string) (types.Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if format, ok := extensionFormats[ext]; ok {
		return format, nil
	}

	ct := strings.ToLower(contentType)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(ct)
	switch {
	case ct == "text/csv" || ct == "application/csv":
		return types.FormatCSV, nil
	case strings.Contains(ct, "excel") || strings.Contains(ct, "spreadsheetml"):
		return types.FormatSpreadsheet, nil
	case ct == "application/json":
		return types.FormatJSON, nil
	case ct == "application/pdf":
		return types.FormatPDF, nil
	}

	return "", &types.UnsupportedFormatError{Extension: ext, ContentType: contentType}
}

// Extractor dispatches uploads to the format parsers.
type Extractor struct {
	// CSV is used for CSV uploads.
	CSV config.CSVSettings
	// PDF parses PDF uploads. New sets a default.
	PDF *pdfparser.Parser
}

// New returns an Extractor with the given CSV settings and PDF parser.
func New(csv config.CSVSettings, pdf *pdfparser.Parser) *Extractor {
	if pdf == nil {
		pdf = pdfparser.New()
	}
	return &Extractor{CSV: csv, PDF: pdf}
}

// Extract detects the format and parses data. An unsupported format is
// reported before any parser runs.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename, contentType string) (*types.Table, types.Format, error) {
	format, err := DetectFormat(filename, contentType)
	if err != nil {
		return nil, "", err
	}
	table, err := e.ExtractAs(ctx, format, data, filename)
	return table, format, err
}

// ExtractAs parses data with the parser for an already known format.
func (e *Extractor) ExtractAs(ctx context.Context, format types.Format, data []byte, filename string) (*types.Table, error) {
	switch format {
	case types.FormatCSV:
		return csvparser.Parse(data, e.CSV)
	case types.FormatSpreadsheet:
		return xlsxparser.Parse(data, filename)
	case types.FormatJSON:
		return jsonparser.Parse(data)
	case types.FormatPDF:
		return e.PDF.Parse(ctx, data)
	default:
		return nil, &types.UnsupportedFormatError{Extension: filepath.Ext(filename)}
	}
}
