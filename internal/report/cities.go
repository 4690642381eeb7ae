package report

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/donormap/internal/amount"
	"github.com/sells-group/donormap/internal/model"
)

var printer = message.NewPrinter(language.English)

// CityTotal summarizes the donations from a set of cities.
type CityTotal struct {
	Donors int
	Total  float64
	// Max and Min are nil when no donor matched.
	Max *float64
	Min *float64
}

// CityTotals counts the records whose city, trimmed and lowercased, is one
// of cities. Matching is case-insensitive.
func CityTotals(records []model.Record, cities []string) CityTotal {
	want := make(map[string]bool, len(cities))
	for _, c := range cities {
		want[strings.ToLower(strings.TrimSpace(c))] = true
	}

	var ct CityTotal
	for _, r := range records {
		if !want[strings.ToLower(strings.TrimSpace(r.City()))] {
			continue
		}
		amt := amount.FromRecord(r)
		ct.Donors++
		ct.Total += amt
		if ct.Max == nil || amt > *ct.Max {
			v := amt
			ct.Max = &v
		}
		if ct.Min == nil || amt < *ct.Min {
			v := amt
			ct.Min = &v
		}
	}
	return ct
}

// Lines renders the console report: donor count and total, then the highest
// and lowest gifts when any donor matched.
func (c CityTotal) Lines() []string {
	lines := []string{
		printer.Sprintf("Donors: %d", c.Donors),
		"Total: " + amount.FormatDollars(c.Total),
	}
	if c.Max != nil {
		lines = append(lines, "Highest: "+amount.FormatDollars(*c.Max))
	}
	if c.Min != nil {
		lines = append(lines, "Lowest: "+amount.FormatDollars(*c.Min))
	}
	return lines
}
