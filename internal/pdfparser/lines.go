package pdfparser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ginjaninja78/statement-normalizer/internal/datefmt"
)

// LineMatch is one transaction recognised on a statement line.
type LineMatch struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Direction   string
	// Currency is empty unless the layout carries a currency code.
	Currency string
}

// lineLayout is one known statement line layout. Group indexes point into
// the regexp submatches; currency is 0 when the layout has none.
type lineLayout struct {
	name                                      string
	re                                        *regexp.Regexp
	date, description, amount, direction, ccy int
}

const (
	datePattern      = `(\d{1,2}\s+[A-Za-z]{3}\s+\d{4})`
	amountPattern    = `([\d,.-]+)`
	directionPattern = `(Debit|Credit|DEBIT|CREDIT)`
)

// layouts are tried in order; the first that matches and parses wins.
var layouts = []lineLayout{
	{
		name:        "date-description-amount-currency-type",
		re:          regexp.MustCompile(datePattern + `\s+([^0-9-]+?)\s+` + amountPattern + `\s+([A-Z]+)\s+` + directionPattern),
		date:        1,
		description: 2,
		amount:      3,
		ccy:         4,
		direction:   5,
	},
	{
		name:        "date-amount-description-type",
		re:          regexp.MustCompile(datePattern + `\s+` + amountPattern + `\s+([^0-9-]+?)\s+` + directionPattern),
		date:        1,
		amount:      2,
		description: 3,
		direction:   4,
	},
	{
		name:        "description-date-amount-type",
		re:          regexp.MustCompile(`([^0-9]+?)\s+` + datePattern + `\s+` + amountPattern + `\s+` + directionPattern),
		description: 1,
		date:        2,
		amount:      3,
		direction:   4,
	},
}

var nonAmountChars = regexp.MustCompile(`[^\d.-]`)

// MatchLine tries every layout against one line of text.
func MatchLine(line string) (LineMatch, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return LineMatch{}, false
	}
	for _, layout := range layouts {
		if m, ok := layout.match(line); ok {
			return m, true
		}
	}
	return LineMatch{}, false
}

func (l lineLayout) match(line string) (LineMatch, bool) {
	groups := l.re.FindStringSubmatch(line)
	if groups == nil {
		return LineMatch{}, false
	}

	date, err := datefmt.ParseDayFirst(groups[l.date])
	if err != nil {
		return LineMatch{}, false
	}
	amount, err := decimal.NewFromString(nonAmountChars.ReplaceAllString(groups[l.amount], ""))
	if err != nil {
		return LineMatch{}, false
	}
	description := strings.TrimSpace(groups[l.description])
	if description == "" {
		return LineMatch{}, false
	}

	m := LineMatch{
		Date:        date,
		Description: description,
		Amount:      amount,
		Direction:   cases.Title(language.English).String(groups[l.direction]),
	}
	if l.ccy > 0 {
		m.Currency = groups[l.ccy]
	}
	return m, true
}
