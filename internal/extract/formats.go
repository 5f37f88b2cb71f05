package extract

import "github.com/ginjaninja78/statement-normalizer/internal/csvparser"

// FormatInfo describes one accepted upload format.
type FormatInfo struct {
	Extension   string `json:"extension"`
	Description string `json:"description"`
}

// Catalog is the machine-readable description of what uploads are
// accepted and how columns are recognised.
type Catalog struct {
	SupportedFormats   []FormatInfo        `json:"supported_formats"`
	ColumnMapping      map[string][]string `json:"column_mapping"`
	Limits             Limits              `json:"limits"`
	SupportedEncodings []string            `json:"supported_encodings"`
}

// Limits are the upload constraints.
type Limits struct {
	MaxFileSizeBytes int64    `json:"max_file_size_bytes"`
	AllowedTypes     []string `json:"allowed_extensions"`
}

// SupportedFormats builds the catalogue. columnMapping is the reconciler's
// synonym table keyed by canonical field.
func SupportedFormats(columnMapping map[string][]string, maxUploadBytes int64) Catalog {
	return Catalog{
		SupportedFormats: []FormatInfo{
			{Extension: ".csv", Description: "Comma-separated values (UTF-8, Latin-1 or Windows-1252)"},
			{Extension: ".xlsx", Description: "Excel workbook, active sheet"},
			{Extension: ".xls", Description: "Legacy Excel workbook, first sheet"},
			{Extension: ".json", Description: "List of transactions, {\"transactions\": [...]} or a single object"},
			{Extension: ".pdf", Description: "Text PDF statement with one transaction per line"},
		},
		ColumnMapping: columnMapping,
		Limits: Limits{
			MaxFileSizeBytes: maxUploadBytes,
			AllowedTypes:     SupportedExtensions(),
		},
		SupportedEncodings: csvparser.SupportedEncodings(),
	}
}
