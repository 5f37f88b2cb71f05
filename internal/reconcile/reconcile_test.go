package reconcile

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

func table(columns []string, rows ...[]any) *types.Table {
	t := &types.Table{Columns: columns}
	for _, values := range rows {
		row := make(types.Row, len(columns))
		for i, c := range columns {
			row[c] = values[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestReconcileCSVStyleRow(t *testing.T) {
	in := table([]string{"Date", "Details", "Amount"}, []any{"15/01/2024", "Coffee Shop", "-5.50"})

	res, err := Reconcile(in, Options{})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(res.Transactions))
	}

	got := res.Transactions[0]
	if want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC); !got.Date.Equal(want) {
		t.Errorf("date = %s, want %s", got.Date, want)
	}
	if got.Description != "Coffee Shop" {
		t.Errorf("description = %q", got.Description)
	}
	if !got.Amount.Equal(decimal.RequireFromString("5.50")) {
		t.Errorf("amount = %s, want 5.50", got.Amount)
	}
	if got.Direction != types.Debit {
		t.Errorf("direction = %s, want Debit", got.Direction)
	}
	if got.Currency != "AED" || got.Status != "SETTLED" {
		t.Errorf("currency/status = %s/%s, want AED/SETTLED", got.Currency, got.Status)
	}
	if got.Category != types.Uncategorized {
		t.Errorf("category = %q, want Uncategorized", got.Category)
	}
}

func TestReconcileDirectionColumn(t *testing.T) {
	in := table([]string{"date", "description", "amount", "type"},
		[]any{"2024-01-15", "Salary", json.Number("3000"), "credit"},
		[]any{"2024-01-16", "Rent", json.Number("1200"), "DR"},
	)

	res, err := Reconcile(in, Options{})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("transactions = %d, want 2", len(res.Transactions))
	}
	if got := res.Transactions[0]; got.Direction != types.Credit || !got.Amount.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("salary = %s %s, want Credit 3000", got.Direction, got.Amount)
	}
	if got := res.Transactions[1]; got.Direction != types.Debit {
		t.Errorf("rent direction = %s, want Debit", got.Direction)
	}
}

func TestReconcileSignInference(t *testing.T) {
	in := table([]string{"Posting_Date", "Memo", "Transaction_Amount"},
		[]any{"01/02/2024", "Refund", "12.00"},
		[]any{"02/02/2024", "Fee", "(3.25)"},
		[]any{"03/02/2024", "Zero", "0"},
	)

	res, err := Reconcile(in, Options{})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	want := []struct {
		dir    types.Direction
		amount string
	}{
		{types.Credit, "12"},
		{types.Debit, "3.25"},
		{types.Credit, "0"},
	}
	for i, w := range want {
		got := res.Transactions[i]
		if got.Direction != w.dir || !got.Amount.Equal(decimal.RequireFromString(w.amount)) {
			t.Errorf("row %d = %s %s, want %s %s", i, got.Direction, got.Amount, w.dir, w.amount)
		}
		if got.Amount.IsNegative() {
			t.Errorf("row %d amount negative", i)
		}
	}
}

func TestReconcileSchemaError(t *testing.T) {
	in := table([]string{"When", "Details", "Total"}, []any{"15/01/2024", "x", "1"})

	_, err := Reconcile(in, Options{})

	var schema *types.SchemaError
	if !errors.As(err, &schema) {
		t.Fatalf("error = %v, want SchemaError", err)
	}
	if len(schema.Missing) != 2 || schema.Missing[0] != FieldDate || schema.Missing[1] != FieldAmount {
		t.Errorf("missing = %v, want [date amount]", schema.Missing)
	}
	if len(schema.Available) != 3 {
		t.Errorf("available = %v", schema.Available)
	}
}

func TestReconcileDropsBadRows(t *testing.T) {
	in := table([]string{" Date ", "Narrative", "Value"},
		[]any{"15/01/2024", "Good", "1,234.50"},
		[]any{"not a date", "Bad date", "1"},
		[]any{"16/01/2024", "Bad amount", "abc"},
		[]any{"17/01/2024", "Missing amount", nil},
		[]any{"18/01/2024", nil, "2"},
		[]any{"19/01/2024", "Also good", "$ 10"},
	)

	res, err := Reconcile(in, Options{})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("transactions = %d, want 2", len(res.Transactions))
	}
	if res.Transactions[0].SourceRow != 0 || res.Transactions[1].SourceRow != 5 {
		t.Errorf("source rows = %d,%d, want 0,5", res.Transactions[0].SourceRow, res.Transactions[1].SourceRow)
	}
	if !res.Transactions[0].Amount.Equal(decimal.RequireFromString("1234.5")) {
		t.Errorf("amount = %s, want 1234.5", res.Transactions[0].Amount)
	}
	if len(res.Dropped) != 4 {
		t.Fatalf("dropped = %v, want 4 issues", res.Dropped)
	}
	if res.Dropped[0].Row != 1 || res.Dropped[0].Field != FieldDate {
		t.Errorf("first issue = %+v", res.Dropped[0])
	}
}

func TestReconcileEmptyIsNotAnError(t *testing.T) {
	in := table([]string{"Date", "Details", "Amount"}, []any{"bad", "x", "1"})

	res, err := Reconcile(in, Options{})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Transactions) != 0 {
		t.Errorf("transactions = %d, want 0", len(res.Transactions))
	}
}

func TestReconcileDefaultsAndExistingValues(t *testing.T) {
	in := table([]string{"date", "details", "amount", "ccy", "transaction_status"},
		[]any{"15/01/2024", "a", "1", "usd", "PENDING"},
		[]any{"15/01/2024", "b", "1", nil, " "},
	)

	res, err := Reconcile(in, Options{DefaultCurrency: "EUR"})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if got := res.Transactions[0]; got.Currency != "usd" || got.Status != "PENDING" {
		t.Errorf("row 0 = %s/%s, want usd/PENDING", got.Currency, got.Status)
	}
	if got := res.Transactions[1]; got.Currency != "EUR" || got.Status != "SETTLED" {
		t.Errorf("row 1 = %s/%s, want EUR/SETTLED", got.Currency, got.Status)
	}
}

func TestMapColumnsPrefersBetterSynonym(t *testing.T) {
	in := table([]string{"Memo", "Description", "Date", "Amount"},
		[]any{"memo text", "desc text", "15/01/2024", "1"})

	res, err := Reconcile(in, Options{})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if got := res.Transactions[0].Description; got != "desc text" {
		t.Errorf("description = %q, want desc text", got)
	}
	if res.Mapping[FieldDescription] != "Description" {
		t.Errorf("mapping = %v", res.Mapping)
	}
}

func TestExtraSynonyms(t *testing.T) {
	in := table([]string{"Txn Date", "Beneficiary", "Amount"}, []any{"15/01/2024", "ACME", "1"})
	opts := Options{Synonyms: NewSynonyms(map[string][]string{
		FieldDate:        {"Txn Date"},
		FieldDescription: {" beneficiary "},
		"unknown":        {"ignored"},
	})}

	res, err := Reconcile(in, opts)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(res.Transactions) != 1 || res.Transactions[0].Description != "ACME" {
		t.Errorf("transactions = %+v", res.Transactions)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      any
		want    string
		wantErr bool
	}{
		{in: "1,234.56", want: "1234.56"},
		{in: "-5.50", want: "-5.5"},
		{in: "AED 99", want: "99"},
		{in: "€1 000.00", want: "1000"},
		{in: "(12.00)", want: "-12"},
		{in: json.Number("3000.10"), want: "3000.1"},
		{in: json.Number("1.5E3"), want: "1500"},
		{in: json.Number("2e2"), want: "200"},
		{in: "1.5E3", want: "1500"},
		{in: "5.00 USD", want: "5"},
		{in: "-AED 12", want: "-12"},
		{in: "USD", wantErr: true},
		{in: 42.5, want: "42.5"},
		{in: 7, want: "7"},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: nil, wantErr: true},
		{in: true, wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%v) expected error, got %s", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%v) error = %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
