package rules

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

func sampleRules() RuleSet {
	return RuleSet{Rules: []Rule{
		{Category: types.Uncategorized, Keywords: []string{}},
		{Category: "Transport", Keywords: []string{"uber", "careem"}},
		{Category: "Groceries", Keywords: []string{"coffee shop", "carrefour"}},
		{Category: "Empty", Keywords: []string{}},
	}}
}

func TestRuleSetJSONKeepsOrder(t *testing.T) {
	input := `{"Zeta": ["z"], "Alpha": ["a", "b"], "Uncategorized": []}`

	var rs RuleSet
	if err := json.Unmarshal([]byte(input), &rs); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got, want := rs.Categories(), []string{"Zeta", "Alpha", "Uncategorized"}; !reflect.DeepEqual(got, want) {
		t.Errorf("categories = %v, want %v", got, want)
	}

	out, err := json.Marshal(rs)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := `{"Zeta":["z"],"Alpha":["a","b"],"Uncategorized":[]}`; string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}
}

func TestRuleSetUnmarshalRejectsNonObject(t *testing.T) {
	var rs RuleSet
	if err := json.Unmarshal([]byte(`["Groceries"]`), &rs); err == nil {
		t.Error("expected error for a JSON array")
	}
	if err := json.Unmarshal([]byte(`{"Groceries": "coffee"}`), &rs); err == nil {
		t.Error("expected error for a non-list keyword value")
	}
}

func TestRuleSetAddKeyword(t *testing.T) {
	rs := NewRuleSet()

	if !rs.AddKeyword("Dining", "  Pizza Place ") {
		t.Fatal("expected keyword to be added")
	}
	if rs.AddKeyword("Dining", "Pizza Place") {
		t.Error("duplicate keyword added")
	}
	if rs.AddKeyword("Travel", "   ") {
		t.Error("blank keyword added")
	}
	if got, _ := rs.Keywords("Dining"); !reflect.DeepEqual(got, []string{"Pizza Place"}) {
		t.Errorf("Dining = %v", got)
	}
	if _, ok := rs.Keywords("Travel"); !ok {
		t.Error("category not created for blank keyword")
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "categories.json"))

	rs, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(rs, NewRuleSet()) {
		t.Errorf("Load() = %+v, want only Uncategorized", rs)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "categories.json")
	store := NewFileStore(path)

	want := sampleRules()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the rules file", len(entries))
	}
}

func TestFileStoreAddsUncategorized(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "categories.json")
	if err := os.WriteFile(path, []byte(`{"Groceries": ["coffee shop"]}`), 0644); err != nil {
		t.Fatal(err)
	}

	rs, err := NewFileStore(path).Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := rs.Categories(); !reflect.DeepEqual(got, []string{types.Uncategorized, "Groceries"}) {
		t.Errorf("categories = %v", got)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Error("expected error for corrupt rules file")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLiteStore(ctx, filepath.Join(t.TempDir(), "rules.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	defer store.Close()

	empty, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(empty, NewRuleSet()) {
		t.Errorf("empty Load() = %+v", empty)
	}

	want := sampleRules()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}

	// A second save fully replaces the first.
	smaller := NewRuleSet()
	smaller.Set("Rent", []string{"landlord"})
	if err := store.Save(ctx, smaller); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, smaller) {
		t.Errorf("after replace = %+v, want %+v", got, smaller)
	}
}

func TestManagerAddKeywordConcurrent(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(NewFileStore(filepath.Join(t.TempDir(), "categories.json")))

	keywords := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, kw := range keywords {
		wg.Add(1)
		go func(kw string) {
			defer wg.Done()
			if _, _, err := manager.AddKeyword(ctx, "Misc", kw); err != nil {
				t.Errorf("AddKeyword(%q) error = %v", kw, err)
			}
		}(kw)
	}
	wg.Wait()

	rs, err := manager.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got, _ := rs.Keywords("Misc")
	if len(got) != len(keywords) {
		t.Errorf("Misc has %d keywords, want %d (%v)", len(got), len(keywords), got)
	}
}

func TestManagerAddKeywordResult(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(NewFileStore(filepath.Join(t.TempDir(), "categories.json")))

	_, added, err := manager.AddKeyword(ctx, "Groceries", "coffee shop")
	if err != nil || !added {
		t.Fatalf("first AddKeyword() = %v, %v", added, err)
	}
	_, added, err = manager.AddKeyword(ctx, "Groceries", "coffee shop")
	if err != nil || added {
		t.Fatalf("duplicate AddKeyword() = %v, %v", added, err)
	}
	if _, _, err := manager.AddKeyword(ctx, "", "x"); err == nil {
		t.Error("expected error for empty category")
	}
}
