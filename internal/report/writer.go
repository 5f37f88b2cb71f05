package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

// Write encodes resp to w as "json" or "xlsx".
func Write(w io.Writer, resp UploadResponse, outputType string) error {
	switch outputType {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("failed to encode JSON report: %w", err)
		}
		return nil
	case "xlsx":
		return writeXLSX(w, resp)
	default:
		return fmt.Errorf("unsupported output type %q", outputType)
	}
}

// WriteFile writes resp to path, replacing any existing file.
func WriteFile(path string, resp UploadResponse, outputType string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(f, resp, outputType); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

var transactionHeaders = []string{"ID", "Date", "Description", "Amount", "Type", "Currency", "Status", "Category"}

// writeXLSX writes a workbook with a Transactions sheet and a Summary sheet.
func writeXLSX(w io.Writer, resp UploadResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Transactions"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, h := range transactionHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for r, txn := range resp.Transactions {
		values := []any{txn.ID, txn.Date, txn.Description, txn.Amount, txn.Type, txn.Currency, txn.Status, txn.Category}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", r+1, err)
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "B", 12)
	_ = f.SetColWidth(sheet, "C", "C", 40)
	_ = f.SetColWidth(sheet, "D", "H", 14)

	const summarySheet = "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}
	summary := [][]any{
		{"File", resp.FileInfo.Filename},
		{"Type", resp.FileInfo.FileType},
		{"Total count", resp.Summary.TotalCount},
		{"Debit count", resp.Summary.DebitCount},
		{"Credit count", resp.Summary.CreditCount},
		{"Total debit amount", resp.Summary.TotalDebitAmount},
		{"Total credit amount", resp.Summary.TotalCreditAmount},
		{"Dropped rows", len(resp.Dropped)},
	}
	for r, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		values := row
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 22)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
