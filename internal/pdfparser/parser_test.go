package pdfparser

import (
	"context"
	"errors"
	"testing"

	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

type fakeText struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeText) Name() string { return f.name }

func (f *fakeText) ExtractText(context.Context, []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestMatchLine(t *testing.T) {
	tests := []struct {
		line      string
		wantOK    bool
		date      string
		desc      string
		amount    string
		direction string
		currency  string
	}{
		{
			line: "15 Jan 2024 Coffee Shop 5.50 AED Debit", wantOK: true,
			date: "2024-01-15", desc: "Coffee Shop", amount: "5.5", direction: "Debit", currency: "AED",
		},
		{
			line: "16 Jan 2024 1,200.00 Rent Payment DEBIT", wantOK: true,
			date: "2024-01-16", desc: "Rent Payment", amount: "1200", direction: "Debit",
		},
		{
			line: "Grocery Store 17 Jan 2024 45.20 CREDIT", wantOK: true,
			date: "2024-01-17", desc: "Grocery Store", amount: "45.2", direction: "Credit",
		},
		{line: "Opening balance 1,000.00", wantOK: false},
		{line: "", wantOK: false},
		{line: "32 Foo 2024 Thing 5.00 AED Debit", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			m, ok := MatchLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("MatchLine() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got := m.Date.Format("2006-01-02"); got != tt.date {
				t.Errorf("date = %s, want %s", got, tt.date)
			}
			if m.Description != tt.desc {
				t.Errorf("description = %q, want %q", m.Description, tt.desc)
			}
			if m.Amount.String() != tt.amount {
				t.Errorf("amount = %s, want %s", m.Amount, tt.amount)
			}
			if m.Direction != tt.direction {
				t.Errorf("direction = %s, want %s", m.Direction, tt.direction)
			}
			if m.Currency != tt.currency {
				t.Errorf("currency = %q, want %q", m.Currency, tt.currency)
			}
		})
	}
}

func TestParseFallsBackToSecondStrategy(t *testing.T) {
	primary := &fakeText{name: "primary", text: "   \n"}
	secondary := &fakeText{name: "secondary", text: "Statement\n15 Jan 2024 Coffee Shop 5.50 AED Debit\nGrocery Store 17 Jan 2024 45.20 Credit\n"}

	p := New(WithStrategies(primary, secondary), WithDefaultCurrency("USD"))
	table, err := p.Parse(context.Background(), []byte("%PDF"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.calls, secondary.calls)
	}
	if table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", table.Len())
	}
	if got := table.Rows[0][ColumnCurrency]; got != "AED" {
		t.Errorf("row 0 currency = %v, want AED", got)
	}
	if got := table.Rows[1][ColumnCurrency]; got != "USD" {
		t.Errorf("row 1 currency = %v, want default USD", got)
	}
	if got := table.Rows[1][ColumnStatus]; got != types.DefaultStatus {
		t.Errorf("status = %v, want %s", got, types.DefaultStatus)
	}
}

func TestParseNoTransactions(t *testing.T) {
	p := New(WithStrategies(&fakeText{name: "only", text: "Account summary\nNothing here\n"}))

	_, err := p.Parse(context.Background(), []byte("%PDF"))

	var extraction *types.ExtractionError
	if !errors.As(err, &extraction) {
		t.Fatalf("error = %v, want ExtractionError", err)
	}
	if !errors.Is(err, ErrNoTransactions) {
		t.Errorf("error = %v, want ErrNoTransactions cause", err)
	}
}

func TestParseAllStrategiesFail(t *testing.T) {
	p := New(WithStrategies(
		&fakeText{name: "a", err: errors.New("boom")},
		&fakeText{name: "b", err: errors.New("missing binary")},
	))

	_, err := p.Parse(context.Background(), nil)

	var extraction *types.ExtractionError
	if !errors.As(err, &extraction) || extraction.Format != types.FormatPDF {
		t.Fatalf("error = %v, want pdf ExtractionError", err)
	}
}

func TestNativeTextRejectsGarbage(t *testing.T) {
	if _, err := (NativeText{}).ExtractText(context.Background(), []byte("not a pdf")); err == nil {
		t.Error("expected error for non-PDF input")
	}
}
