package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/statement-normalizer/internal/converter"
	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

func sampleResult() *converter.Result {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	txn := func(row int, desc, amount string, dir types.Direction) types.Transaction {
		return types.Transaction{
			SourceRow: row, Date: day, Description: desc,
			Amount: decimal.RequireFromString(amount), Direction: dir,
			Currency: "AED", Status: "SETTLED", Category: types.Uncategorized,
		}
	}
	return &converter.Result{
		Filename: "statement.csv",
		Format:   types.FormatCSV,
		Transactions: []types.Transaction{
			txn(0, "Coffee Shop", "5.50", types.Debit),
			txn(2, "Salary", "3000", types.Credit),
			txn(3, "Taxi", "0.10", types.Debit),
			txn(4, "Taxi", "0.20", types.Debit),
		},
	}
}

func TestBuild(t *testing.T) {
	resp := Build(sampleResult(), FileInfo{SizeBytes: 120, ContentType: "text/csv"})

	if resp.Message != "Successfully processed 4 transactions from statement.csv" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.FileInfo.Filename != "statement.csv" || resp.FileInfo.FileType != ".csv" {
		t.Errorf("file info = %+v", resp.FileInfo)
	}
	if len(resp.Transactions) != 4 || len(resp.Debits) != 3 || len(resp.Credits) != 1 {
		t.Fatalf("partition = %d/%d/%d", len(resp.Transactions), len(resp.Debits), len(resp.Credits))
	}

	first := resp.Transactions[0]
	if first.ID != "txn-0" || first.Date != "2024-01-15" || first.Type != "debit" || first.Amount != 5.5 {
		t.Errorf("first = %+v", first)
	}
	if resp.Transactions[1].ID != "txn-2" {
		t.Errorf("second id = %s, want txn-2", resp.Transactions[1].ID)
	}

	want := Summary{TotalCount: 4, DebitCount: 3, CreditCount: 1, TotalDebitAmount: 5.8, TotalCreditAmount: 3000}
	if resp.Summary != want {
		t.Errorf("summary = %+v, want %+v", resp.Summary, want)
	}
}

func TestBuildEmptyListsAreNotNull(t *testing.T) {
	resp := Build(&converter.Result{Filename: "empty.csv", Format: types.FormatCSV}, FileInfo{})

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"transactions", "debits", "credits"} {
		if _, ok := decoded[key].([]any); !ok {
			t.Errorf("%s = %v, want empty list", key, decoded[key])
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Build(sampleResult(), FileInfo{}), "xlsx"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Transactions")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want header + 4", len(rows))
	}
	if rows[1][0] != "txn-0" || rows[1][2] != "Coffee Shop" {
		t.Errorf("first data row = %v", rows[1])
	}

	summary, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("GetRows(Summary) error = %v", err)
	}
	if summary[2][0] != "Total count" || summary[2][1] != "4" {
		t.Errorf("summary row = %v", summary[2])
	}
}

func TestWriteUnknownType(t *testing.T) {
	if err := Write(&bytes.Buffer{}, UploadResponse{}, "xml"); err == nil {
		t.Error("expected error for unknown output type")
	}
}
