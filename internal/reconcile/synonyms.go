package reconcile

import "strings"

// Canonical field names.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldDirection   = "direction"
	FieldCurrency    = "currency"
	FieldStatus      = "status"
)

// Fields lists the canonical fields in output order.
var Fields = []string{FieldDate, FieldDescription, FieldAmount, FieldDirection, FieldCurrency, FieldStatus}

// RequiredFields must be present among the source columns.
var RequiredFields = []string{FieldDate, FieldDescription, FieldAmount}

// defaultSynonyms lists the lower-case source names recognised for each
// canonical field, best match first.
var defaultSynonyms = map[string][]string{
	FieldDate:        {"date", "transaction_date", "trans_date", "posting_date"},
	FieldDescription: {"description", "details", "transaction_details", "memo", "reference", "narrative"},
	FieldAmount:      {"amount", "transaction_amount", "value"},
	FieldDirection:   {"direction", "type", "transaction_type", "dr_cr", "debit_credit", "debit/credit"},
	FieldCurrency:    {"currency", "ccy", "curr"},
	FieldStatus:      {"status", "transaction_status"},
}

// Synonyms is a lookup from lower-case source column name to canonical field.
type Synonyms struct {
	byName map[string]synonym
	table  map[string][]string
}

type synonym struct {
	field string
	rank  int
}

// DefaultSynonyms returns the built-in synonym table.
func DefaultSynonyms() *Synonyms {
	return NewSynonyms(nil)
}

// NewSynonyms returns the built-in table extended with extra names per
// canonical field. Extra names rank after the built-in ones; names for
// unknown fields are ignored.
func NewSynonyms(extra map[string][]string) *Synonyms {
	s := &Synonyms{
		byName: make(map[string]synonym),
		table:  make(map[string][]string, len(defaultSynonyms)),
	}
	for _, field := range Fields {
		names := append([]string(nil), defaultSynonyms[field]...)
		for _, name := range extra[field] {
			if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
				names = append(names, name)
			}
		}
		for rank, name := range names {
			if _, taken := s.byName[name]; !taken {
				s.byName[name] = synonym{field: field, rank: rank}
			}
		}
		s.table[field] = names
	}
	return s
}

// Lookup returns the canonical field for a source column name and the
// synonym's rank (lower is better).
func (s *Synonyms) Lookup(column string) (field string, rank int, ok bool) {
	syn, ok := s.byName[strings.ToLower(strings.TrimSpace(column))]
	return syn.field, syn.rank, ok
}

// Table returns a copy of the synonym table keyed by canonical field.
func (s *Synonyms) Table() map[string][]string {
	out := make(map[string][]string, len(s.table))
	for field, names := range s.table {
		out[field] = append([]string(nil), names...)
	}
	return out
}
