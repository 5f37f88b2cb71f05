// Package categorize assigns spending categories to transactions by exact,
// case-insensitive description match against the keyword rules.
package categorize

import (
	"strings"

	"github.com/ginjaninja78/statement-normalizer/internal/rules"
	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

// Categorize returns a copy of records with Category set. Every record
// starts as Uncategorized; rules then apply in rule-set order, so when two
// categories list the same keyword the later one wins. The Uncategorized
// rule and rules without keywords never match. The input is not modified.
func Categorize(records []types.Transaction, rs rules.RuleSet) []types.Transaction {
	out := make([]types.Transaction, len(records))
	copy(out, records)

	keys := make([]string, len(out))
	for i := range out {
		out[i].Category = types.Uncategorized
		keys[i] = normalize(out[i].Description)
	}

	for _, rule := range rs.Rules {
		if rule.Category == types.Uncategorized || len(rule.Keywords) == 0 {
			continue
		}
		keywords := make(map[string]struct{}, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			keywords[normalize(kw)] = struct{}{}
		}
		for i, key := range keys {
			if _, ok := keywords[key]; ok {
				out[i].Category = rule.Category
			}
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
