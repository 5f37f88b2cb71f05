package jsonparser

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantRows int
		wantCols []string
	}{
		{
			name:     "top-level list",
			input:    `[{"date":"2024-01-15","amount":1},{"date":"2024-01-16","memo":"x"}]`,
			wantRows: 2,
			wantCols: []string{"date", "amount", "memo"},
		},
		{
			name:     "transactions wrapper",
			input:    `{"account":"123","transactions":[{"description":"Salary","amount":3000}]}`,
			wantRows: 1,
			wantCols: []string{"description", "amount"},
		},
		{
			name:     "single object",
			input:    `{"date":"2024-01-15","description":"Rent","amount":"1,200.00"}`,
			wantRows: 1,
			wantCols: []string{"date", "description", "amount"},
		},
		{
			name:     "transactions not a list",
			input:    `{"transactions":"none","amount":1}`,
			wantRows: 1,
			wantCols: []string{"transactions", "amount"},
		},
		{
			name:     "empty list",
			input:    `[]`,
			wantRows: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if table.Len() != tt.wantRows {
				t.Errorf("rows = %d, want %d", table.Len(), tt.wantRows)
			}
			if len(table.Columns) != len(tt.wantCols) {
				t.Fatalf("columns = %v, want %v", table.Columns, tt.wantCols)
			}
			for i, c := range tt.wantCols {
				if table.Columns[i] != c {
					t.Errorf("column %d = %q, want %q", i, table.Columns[i], c)
				}
			}
		})
	}
}

func TestParseKeepsNumbersExact(t *testing.T) {
	table, err := Parse([]byte(`{"transactions":[{"amount":3000.10}]}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	n, ok := table.Rows[0]["amount"].(json.Number)
	if !ok || n.String() != "3000.10" {
		t.Errorf("amount = %#v, want json.Number 3000.10", table.Rows[0]["amount"])
	}
}

func TestParseFillsMissingColumns(t *testing.T) {
	table, err := Parse([]byte(`[{"a":1},{"b":2}]`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v, ok := table.Rows[0]["b"]; !ok || v != nil {
		t.Errorf("row 0 b = %v (present %v), want explicit nil", v, ok)
	}
}

func TestParseErrors(t *testing.T) {
	inputs := map[string]string{
		"invalid":        `{"date":`,
		"scalar":         `42`,
		"string":         `"hello"`,
		"list of scalar": `[1, 2]`,
		"empty":          ``,
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			var extraction *types.ExtractionError
			if !errors.As(err, &extraction) {
				t.Fatalf("error = %v, want ExtractionError", err)
			}
		})
	}
}
