// Package jsonparser reads JSON statement exports into the tabular
// intermediate.
//
// Accepted shapes:
//
//	[ {...}, {...} ]                  each object is a row
//	{"transactions": [ {...}, ... ]}  each element of transactions is a row
//	{...}                             the object itself is one row
//
// Anything else is an extraction error. Object key order is kept so the
// column list follows the document.
package jsonparser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

// Parse decodes data into a table.
func Parse(data []byte) (*types.Table, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, types.NewExtractionError(types.FormatJSON, "empty document")
	}

	var elements []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return nil, invalid(err)
		}
	case '{':
		var wrapper struct {
			Transactions json.RawMessage `json:"transactions"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, invalid(err)
		}
		if list := bytes.TrimSpace(wrapper.Transactions); len(list) > 0 && list[0] == '[' {
			if err := json.Unmarshal(list, &elements); err != nil {
				return nil, invalid(err)
			}
		} else {
			elements = []json.RawMessage{trimmed}
		}
	default:
		return nil, types.NewExtractionError(types.FormatJSON, "unsupported JSON structure: expected an array or an object")
	}

	table := &types.Table{Rows: make([]types.Row, 0, len(elements))}
	seen := make(map[string]bool)
	for i, element := range elements {
		keys, row, err := decodeObject(element)
		if err != nil {
			return nil, types.NewExtractionError(types.FormatJSON, "element %d: %v", i, err)
		}
		for _, key := range keys {
			if !seen[key] {
				seen[key] = true
				table.Columns = append(table.Columns, key)
			}
		}
		table.Rows = append(table.Rows, row)
	}

	// Rows missing a column get an explicit nil, like a blank cell.
	for _, row := range table.Rows {
		for _, column := range table.Columns {
			if _, ok := row[column]; !ok {
				row[column] = nil
			}
		}
	}
	return table, nil
}

func invalid(err error) error {
	return &types.ExtractionError{Format: types.FormatJSON, Cause: fmt.Errorf("invalid JSON: %w", err)}
}

// decodeObject decodes one JSON object, returning its keys in document
// order. Numbers are kept as json.Number.
func decodeObject(raw json.RawMessage) ([]string, types.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected an object, got %s", describe(tok))
	}

	var keys []string
	row := make(types.Row)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected an object key, got %v", tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		if _, dup := row[key]; !dup {
			keys = append(keys, key)
		}
		row[key] = value
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, nil, err
	}
	return keys, row, nil
}

func describe(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		if v == '[' {
			return "an array"
		}
		return string(v)
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", tok)
	}
}
