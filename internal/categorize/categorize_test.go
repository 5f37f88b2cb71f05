package categorize

import (
	"reflect"
	"testing"

	"github.com/ginjaninja78/statement-normalizer/internal/rules"
	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

func records(descriptions ...string) []types.Transaction {
	out := make([]types.Transaction, len(descriptions))
	for i, d := range descriptions {
		out[i] = types.Transaction{SourceRow: i, Description: d, Category: types.Uncategorized}
	}
	return out
}

func ruleSet(pairs ...any) rules.RuleSet {
	rs := rules.NewRuleSet()
	for i := 0; i < len(pairs); i += 2 {
		rs.Set(pairs[i].(string), pairs[i+1].([]string))
	}
	return rs
}

func TestCategorizeExactCaseInsensitive(t *testing.T) {
	rs := ruleSet("Groceries", []string{"coffee shop"})

	got := Categorize(records("Coffee Shop", "  COFFEE SHOP ", "Coffee Shop Dubai Mall"), rs)

	want := []string{"Groceries", "Groceries", types.Uncategorized}
	for i, w := range want {
		if got[i].Category != w {
			t.Errorf("record %d (%q) category = %q, want %q", i, got[i].Description, got[i].Category, w)
		}
	}
}

func TestCategorizeLastRuleWins(t *testing.T) {
	rs := ruleSet(
		"Dining", []string{"starbucks"},
		"Coffee", []string{"Starbucks"},
	)

	got := Categorize(records("starbucks"), rs)
	if got[0].Category != "Coffee" {
		t.Errorf("category = %q, want Coffee", got[0].Category)
	}
}

func TestCategorizeNeverMatchesUncategorized(t *testing.T) {
	rs := rules.RuleSet{Rules: []rules.Rule{
		{Category: types.Uncategorized, Keywords: []string{"mystery"}},
		{Category: "Empty", Keywords: nil},
	}}

	got := Categorize(records("mystery"), rs)
	if got[0].Category != types.Uncategorized {
		t.Errorf("category = %q, want Uncategorized", got[0].Category)
	}
}

func TestCategorizeIdempotentAndPure(t *testing.T) {
	rs := ruleSet("Groceries", []string{"carrefour"}, "Transport", []string{"uber"})
	in := records("Carrefour", "Uber", "Rent")
	in[2].Category = "Stale"

	once := Categorize(in, rs)
	twice := Categorize(once, rs)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second pass changed result: %+v vs %+v", once, twice)
	}
	if once[2].Category != types.Uncategorized {
		t.Errorf("stale category kept: %q", once[2].Category)
	}
	if in[0].Category != types.Uncategorized || in[2].Category != "Stale" {
		t.Error("input records were modified")
	}
}
