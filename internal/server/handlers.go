package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/statement-normalizer/internal/converter"
	"github.com/ginjaninja78/statement-normalizer/internal/extract"
	"github.com/ginjaninja78/statement-normalizer/internal/reconcile"
	"github.com/ginjaninja78/statement-normalizer/internal/report"
	"github.com/ginjaninja78/statement-normalizer/internal/rules"
	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

// Handlers serves the HTTP API.
type Handlers struct {
	converter         *converter.Converter
	rules             *rules.Manager
	maxUploadBytes    int64
	allowedExtensions map[string]bool
}

// NewHandlers creates the handlers. Uploads are limited to the extensions
// in extract.SupportedExtensions.
func NewHandlers(conv *converter.Converter, manager *rules.Manager, maxUploadBytes int64) *Handlers {
	allowed := make(map[string]bool)
	for _, ext := range extract.SupportedExtensions() {
		allowed[ext] = true
	}
	return &Handlers{converter: conv, rules: manager, maxUploadBytes: maxUploadBytes, allowedExtensions: allowed}
}

// Root answers liveness checks.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, "Not Found")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Finance API is running"})
}

// SupportedFormats describes the accepted uploads.
func (h *Handlers) SupportedFormats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, extract.SupportedFormats(reconcile.DefaultSynonyms().Table(), h.maxUploadBytes))
}

// UploadTransactions processes a multipart upload in the "file" field.
func (h *Handlers) UploadTransactions(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r.Context())

	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusBadRequest, h.tooLargeMessage())
			return
		}
		WriteError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !h.allowedExtensions[ext] {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported file type: %s. Supported types: %s",
			ext, strings.Join(extract.SupportedExtensions(), ", ")))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read file: %v", err))
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		WriteError(w, http.StatusBadRequest, h.tooLargeMessage())
		return
	}
	if len(data) == 0 {
		WriteError(w, http.StatusBadRequest, "Empty file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	result, err := h.converter.Run(r.Context(), converter.Upload{
		Data:        data,
		Filename:    header.Filename,
		ContentType: contentType,
	})
	if err != nil {
		if types.IsClientError(err) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("file", header.Filename).Msg("upload processing failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, report.Build(result, report.FileInfo{
		Filename:    header.Filename,
		FileType:    ext,
		SizeBytes:   int64(len(data)),
		ContentType: contentType,
	}))
}

func (h *Handlers) tooLargeMessage() string {
	return fmt.Sprintf("File size too large. Maximum size is %dMB.", h.maxUploadBytes/(1024*1024))
}

// ListCategories returns the category rules.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	rs, err := h.rules.Load(r.Context())
	if err != nil {
		log := requestLogger(r.Context())
		log.Error().Err(err).Msg("failed to load categories")
		WriteError(w, http.StatusInternalServerError, "Failed to load categories")
		return
	}
	WriteJSON(w, http.StatusOK, rs)
}

type addKeywordRequest struct {
	Category string `json:"category"`
	Keyword  string `json:"keyword"`
}

// AddKeyword adds a keyword to a category, creating the category if needed.
func (h *Handlers) AddKeyword(w http.ResponseWriter, r *http.Request) {
	var req addKeywordRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Category = strings.TrimSpace(req.Category)
	if req.Category == "" {
		WriteError(w, http.StatusBadRequest, "Category is required")
		return
	}

	rs, added, err := h.rules.AddKeyword(r.Context(), req.Category, req.Keyword)
	if err != nil {
		log := requestLogger(r.Context())
		log.Error().Err(err).Msg("failed to update categories")
		WriteError(w, http.StatusInternalServerError, "Failed to update categories")
		return
	}

	message := "Keyword already present"
	if added {
		message = "Category updated successfully"
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": message, "categories": rs})
}

// The analytics endpoints have no transaction store behind them yet and
// answer with empty structures.

// TransactionsSummary is a stub.
func (h *Handlers) TransactionsSummary(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"total_expenses":      0,
		"total_income":        0,
		"expense_by_category": []any{},
		"monthly_trends":      []any{},
	})
}

// ExpensesByCategory is a stub.
func (h *Handlers) ExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"categories": []any{},
		"amounts":    []any{},
	})
}

// MonthlyTrends is a stub.
func (h *Handlers) MonthlyTrends(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"months":   []any{},
		"income":   []any{},
		"expenses": []any{},
	})
}
