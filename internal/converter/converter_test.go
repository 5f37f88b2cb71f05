package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/statement-normalizer/internal/config"
	"github.com/ginjaninja78/statement-normalizer/internal/rules"
	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

func newStore(t *testing.T, categories map[string][]string) *rules.FileStore {
	t.Helper()
	store := rules.NewFileStore(filepath.Join(t.TempDir(), "categories.json"))
	rs := rules.NewRuleSet()
	for name, keywords := range categories {
		rs.Set(name, keywords)
	}
	if err := store.Save(context.Background(), rs); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return store
}

func TestRunCSV(t *testing.T) {
	store := newStore(t, map[string][]string{"Groceries": {"coffee shop"}})
	c := New(config.Default(), store)

	res, err := c.Run(context.Background(), Upload{
		Data:     []byte("Date,Details,Amount\n15/01/2024,Coffee Shop,-5.50\n16/01/2024,Salary,3000\n"),
		Filename: "statement.csv",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Format != types.FormatCSV || res.Profile != "default" {
		t.Errorf("format/profile = %s/%s", res.Format, res.Profile)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("transactions = %d, want 2", len(res.Transactions))
	}

	coffee := res.Transactions[0]
	if coffee.DateString() != "2024-01-15" || coffee.Direction != types.Debit ||
		!coffee.Amount.Equal(decimal.RequireFromString("5.50")) ||
		coffee.Currency != "AED" || coffee.Status != "SETTLED" || coffee.Category != "Groceries" {
		t.Errorf("unexpected coffee record %+v", coffee)
	}
	if res.Transactions[1].Category != types.Uncategorized {
		t.Errorf("salary category = %q", res.Transactions[1].Category)
	}
	if res.Stats.RowsExtracted != 2 || res.Stats.RecordsProduced != 2 || res.Stats.Categorized != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestRunJSON(t *testing.T) {
	c := New(nil, newStore(t, nil))

	res, err := c.Run(context.Background(), Upload{
		Data:     []byte(`{"transactions":[{"date":"2024-01-15","description":"Salary","amount":3000,"type":"credit"}]}`),
		Filename: "export.json",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(res.Transactions))
	}
	got := res.Transactions[0]
	if got.Direction != types.Credit || !got.Amount.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("record = %+v", got)
	}
}

func TestRunTaxonomyErrorsPassThrough(t *testing.T) {
	c := New(nil, newStore(t, nil))
	ctx := context.Background()

	_, err := c.Run(ctx, Upload{Data: []byte("BM"), Filename: "scan.bmp"})
	var unsupported *types.UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Errorf("bmp error = %v, want UnsupportedFormatError", err)
	}

	_, err = c.Run(ctx, Upload{Data: []byte(`{"date":`), Filename: "x.json"})
	var extraction *types.ExtractionError
	if !errors.As(err, &extraction) {
		t.Errorf("json error = %v, want ExtractionError", err)
	}

	_, err = c.Run(ctx, Upload{Data: []byte("When,What\n1,2\n"), Filename: "x.csv"})
	var schema *types.SchemaError
	if !errors.As(err, &schema) {
		t.Errorf("csv error = %v, want SchemaError", err)
	}
}

func TestRunRuleStoreFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	c := New(nil, rules.NewFileStore(path))

	_, err := c.Run(context.Background(), Upload{Data: []byte("Date,Details,Amount\n15/01/2024,x,1\n"), Filename: "x.csv"})

	var processing *types.ProcessingError
	if !errors.As(err, &processing) {
		t.Fatalf("error = %v, want ProcessingError", err)
	}
	if types.IsClientError(err) {
		t.Error("rule store failure reported as client error")
	}
}

type panickingRules struct{}

func (panickingRules) Load(context.Context) (rules.RuleSet, error) { panic("boom") }

func TestRunRecoversPanics(t *testing.T) {
	c := New(nil, panickingRules{})

	_, err := c.Run(context.Background(), Upload{Data: []byte("Date,Details,Amount\n15/01/2024,x,1\n"), Filename: "x.csv"})

	var processing *types.ProcessingError
	if !errors.As(err, &processing) {
		t.Fatalf("error = %v, want ProcessingError", err)
	}
}

func TestRunWithProfile(t *testing.T) {
	profile := &config.SourceProfile{
		ProfileCode:          "acme",
		FileMatchingPatterns: []string{"acme_*.csv"},
		CSVSettings:          config.CSVSettings{Delimiter: ";", HeaderRows: 1, DataStartRow: 2},
		DefaultCurrency:      "USD",
		ColumnSynonyms:       map[string][]string{"description": {"Payee"}},
	}
	c := New(nil, newStore(t, nil), WithProfiles([]*config.SourceProfile{profile}))

	res, err := c.Run(context.Background(), Upload{
		Data:     []byte("Date;Payee;Amount\n15/01/2024;ACME Corp;-10\n"),
		Filename: "acme_jan.csv",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Profile != "acme" {
		t.Errorf("profile = %q, want acme", res.Profile)
	}
	if got := res.Transactions[0]; got.Description != "ACME Corp" || got.Currency != "USD" {
		t.Errorf("record = %+v", got)
	}
}

func TestRunReportsDroppedRows(t *testing.T) {
	c := New(nil, newStore(t, nil))

	res, err := c.Run(context.Background(), Upload{
		Data:     []byte("Date,Details,Amount\nbad,x,1\n15/01/2024,y,2\n"),
		Filename: "x.csv",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Stats.RowsDropped != 1 || len(res.Dropped) != 1 || res.Dropped[0].Row != 0 {
		t.Errorf("dropped = %+v", res.Dropped)
	}
	if res.Transactions[0].SourceRow != 1 {
		t.Errorf("SourceRow = %d, want 1", res.Transactions[0].SourceRow)
	}
}

func TestRunSpreadsheetDateCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"Date", "Description", "Amount"},
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "Coffee Shop", -5.5},
		{time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), "Salary", 3000},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	res, err := New(nil, newStore(t, nil)).Run(context.Background(), Upload{Data: buf.Bytes(), Filename: "march.xlsx"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Transactions) != 2 || len(res.Dropped) != 0 {
		t.Fatalf("transactions = %d dropped = %v", len(res.Transactions), res.Dropped)
	}
	if got := res.Transactions[0].DateString(); got != "2024-01-15" {
		t.Errorf("first date = %s", got)
	}
	if got := res.Transactions[1].DateString(); got != "2024-03-05" {
		t.Errorf("second date = %s", got)
	}
	if res.Transactions[0].Direction != types.Debit || !res.Transactions[0].Amount.Equal(decimal.RequireFromString("5.5")) {
		t.Errorf("first record = %+v", res.Transactions[0])
	}
}

func TestRunJSONExponentAmounts(t *testing.T) {
	res, err := New(nil, newStore(t, nil)).Run(context.Background(), Upload{
		Data: []byte(`[{"date":"2024-01-15","description":"A","amount":1.5E3},` +
			`{"date":"2024-01-16","description":"B","amount":-2e2}]`),
		Filename: "export.json",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("transactions = %d dropped = %v", len(res.Transactions), res.Dropped)
	}
	if !res.Transactions[0].Amount.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("first amount = %s, want 1500", res.Transactions[0].Amount)
	}
	if !res.Transactions[1].Amount.Equal(decimal.NewFromInt(200)) || res.Transactions[1].Direction != types.Debit {
		t.Errorf("second record = %+v", res.Transactions[1])
	}
}
