package pdfparser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextExtractor pulls plain text out of a PDF document.
type TextExtractor interface {
	Name() string
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// =============================================================================
// PURE-GO STRATEGY
// =============================================================================

// NativeText reads the text layer with github.com/ledongthuc/pdf.
type NativeText struct{}

func (NativeText) Name() string { return "native" }

// ExtractText returns the plain text of every page, pages separated by a
// newline. The library panics on some malformed files; those panics are
// returned as errors.
func (NativeText) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf reader panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// =============================================================================
// POPPLER STRATEGY
// =============================================================================

// PdftotextCLI shells out to poppler's pdftotext with layout preservation,
// which keeps table rows on one line more reliably than the text layer.
type PdftotextCLI struct {
	// Binary defaults to "pdftotext" on PATH.
	Binary string
}

func (PdftotextCLI) Name() string { return "pdftotext" }

func (p PdftotextCLI) ExtractText(ctx context.Context, data []byte) (string, error) {
	binary := p.Binary
	if binary == "" {
		binary = "pdftotext"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return "", fmt.Errorf("%s not available: %w", binary, err)
	}

	tmpDir, err := os.MkdirTemp("", "normalizer-pdf-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "statement.pdf")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write temp PDF: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
