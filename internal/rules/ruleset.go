// Package rules holds the category keyword rules and their persistence.
//
// A RuleSet is ordered. On disk it is a JSON object
//
//	{"Uncategorized": [], "Groceries": ["carrefour", "coffee shop"]}
//
// and the key order of that object is the rule order, which decides the
// winner when two categories list the same keyword (the later one wins).
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ginjaninja78/statement-normalizer/internal/types"
)

// Rule maps a category to the descriptions it claims.
type Rule struct {
	Category string
	Keywords []string
}

// RuleSet is the ordered list of rules.
type RuleSet struct {
	Rules []Rule
}

// NewRuleSet returns a rule set holding only Uncategorized.
func NewRuleSet() RuleSet {
	return RuleSet{Rules: []Rule{{Category: types.Uncategorized, Keywords: []string{}}}}
}

// Categories returns the category names in rule order.
func (rs RuleSet) Categories() []string {
	names := make([]string, len(rs.Rules))
	for i, r := range rs.Rules {
		names[i] = r.Category
	}
	return names
}

// Keywords returns the keywords of a category.
func (rs RuleSet) Keywords(category string) ([]string, bool) {
	if i := rs.index(category); i >= 0 {
		return rs.Rules[i].Keywords, true
	}
	return nil, false
}

func (rs RuleSet) index(category string) int {
	for i, r := range rs.Rules {
		if r.Category == category {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (rs RuleSet) Clone() RuleSet {
	out := RuleSet{Rules: make([]Rule, len(rs.Rules))}
	for i, r := range rs.Rules {
		out.Rules[i] = Rule{Category: r.Category, Keywords: append([]string{}, r.Keywords...)}
	}
	return out
}

// Set replaces a category's keywords, appending the category if new.
func (rs *RuleSet) Set(category string, keywords []string) {
	if i := rs.index(category); i >= 0 {
		rs.Rules[i].Keywords = keywords
		return
	}
	rs.Rules = append(rs.Rules, Rule{Category: category, Keywords: keywords})
}

// AddKeyword appends keyword to category, creating the category if needed.
// The keyword is trimmed; empty or already listed keywords are not added.
// It reports whether the keyword was added.
func (rs *RuleSet) AddKeyword(category, keyword string) bool {
	i := rs.index(category)
	if i < 0 {
		rs.Rules = append(rs.Rules, Rule{Category: category, Keywords: []string{}})
		i = len(rs.Rules) - 1
	}

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return false
	}
	for _, existing := range rs.Rules[i].Keywords {
		if existing == keyword {
			return false
		}
	}
	rs.Rules[i].Keywords = append(rs.Rules[i].Keywords, keyword)
	return true
}

// ensureUncategorized puts Uncategorized first if it is missing.
func (rs *RuleSet) ensureUncategorized() {
	if rs.index(types.Uncategorized) >= 0 {
		return
	}
	rs.Rules = append([]Rule{{Category: types.Uncategorized, Keywords: []string{}}}, rs.Rules...)
}

// MarshalJSON writes the rules as a JSON object in rule order.
func (rs RuleSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range rs.Rules {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Category)
		if err != nil {
			return nil, err
		}
		keywords := r.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		value, err := json.Marshal(keywords)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of category to keyword list, keeping
// key order. A repeated key keeps its first position and its last value.
func (rs *RuleSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("category rules must be a JSON object")
	}

	parsed := RuleSet{Rules: []Rule{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		category, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var keywords []string
		if err := dec.Decode(&keywords); err != nil {
			return fmt.Errorf("category %q: %w", category, err)
		}
		if keywords == nil {
			keywords = []string{}
		}
		parsed.Set(category, keywords)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*rs = parsed
	return nil
}
