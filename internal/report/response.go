// =============================================================================
// Statement Normalizer - Report Module
// =============================================================================
//
// This module turns a converter result into the upload response document
// and writes it out for the batch command.
//
// RESPONSE STRUCTURE:
//
//   {
//     "message": "Successfully processed 2 transactions from march.csv",
//     "file_info": {"filename": ..., "file_type": ..., ...},
//     "transactions": [{"id": "txn-0", "date": "2024-01-15", ...}],
//     "summary": {"total_count": 2, "debit_count": 1, ...},
//     "debits": [...],
//     "credits": [...]
//   }
//
// IDs are "txn-<source row>", so they stay stable when rows are dropped.
// Totals are summed in decimal and only converted to float for output.
//
// =============================================================================

package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/statement-normalizer/internal/converter"
	"github.com/ginjaninja78/statement-normalizer/internal/reconcile"
	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

// SuccessMessage is the message of a successful upload response.
func SuccessMessage(count int, filename string) string {
	return fmt.Sprintf("Successfully processed %d transactions from %s", count, filename)
}

// FileInfo describes the uploaded file.
type FileInfo struct {
	Filename    string `json:"filename"`
	FileType    string `json:"file_type"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type,omitempty"`
}

// Transaction is the wire form of a canonical record.
type Transaction struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"`
	Category    string  `json:"category"`
}

// Summary aggregates the transactions by direction.
type Summary struct {
	TotalCount        int     `json:"total_count"`
	DebitCount        int     `json:"debit_count"`
	CreditCount       int     `json:"credit_count"`
	TotalDebitAmount  float64 `json:"total_debit_amount"`
	TotalCreditAmount float64 `json:"total_credit_amount"`
}

// UploadResponse is the full response document.
type UploadResponse struct {
	Message      string               `json:"message"`
	FileInfo     FileInfo             `json:"file_info"`
	Transactions []Transaction        `json:"transactions"`
	Summary      Summary              `json:"summary"`
	Debits       []Transaction        `json:"debits"`
	Credits      []Transaction        `json:"credits"`
	Dropped      []reconcile.RowIssue `json:"dropped_rows,omitempty"`
}

// TransactionID builds the stable ID of a record.
func TransactionID(txn types.Transaction) string {
	return fmt.Sprintf("txn-%d", txn.SourceRow)
}

// FromRecord converts a canonical record to its wire form.
func FromRecord(txn types.Transaction) Transaction {
	return Transaction{
		ID:          TransactionID(txn),
		Date:        txn.DateString(),
		Description: txn.Description,
		Amount:      txn.Amount.InexactFloat64(),
		Type:        txn.Direction.Lower(),
		Currency:    txn.Currency,
		Status:      txn.Status,
		Category:    txn.Category,
	}
}

// Build assembles the response for a processed upload.
func Build(result *converter.Result, info FileInfo) UploadResponse {
	if info.Filename == "" {
		info.Filename = result.Filename
	}
	if info.FileType == "" {
		info.FileType = strings.ToLower(filepath.Ext(info.Filename))
	}

	resp := UploadResponse{
		Message:      SuccessMessage(len(result.Transactions), info.Filename),
		FileInfo:     info,
		Transactions: make([]Transaction, 0, len(result.Transactions)),
		Debits:       []Transaction{},
		Credits:      []Transaction{},
		Dropped:      result.Dropped,
	}

	debitTotal, creditTotal := decimal.Zero, decimal.Zero
	for _, txn := range result.Transactions {
		wire := FromRecord(txn)
		resp.Transactions = append(resp.Transactions, wire)
		if txn.Direction == types.Debit {
			resp.Debits = append(resp.Debits, wire)
			debitTotal = debitTotal.Add(txn.Amount)
		} else {
			resp.Credits = append(resp.Credits, wire)
			creditTotal = creditTotal.Add(txn.Amount)
		}
	}

	resp.Summary = Summary{
		TotalCount:        len(resp.Transactions),
		DebitCount:        len(resp.Debits),
		CreditCount:       len(resp.Credits),
		TotalDebitAmount:  debitTotal.InexactFloat64(),
		TotalCreditAmount: creditTotal.InexactFloat64(),
	}
	return resp
}
