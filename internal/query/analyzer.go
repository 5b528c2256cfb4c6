// Package query analyzes free-text questions and selects the forecast
// rows the assistant should see. The questions come from users in French
// or English, so both keyword sets are matched.
package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"demandsight/internal/forecast"
)

// Intent is the detected purpose of a question.
type Intent string

const (
	IntentComparison    Intent = "comparison"
	IntentGrowth        Intent = "growth"
	IntentTopCities     Intent = "top_cities"
	IntentStockIncrease Intent = "stock_increase"
	IntentGeneral       Intent = "general"
)

var (
	reStockIncrease = regexp.MustCompile(`(augment|stock|approvision|commander|livr)`)
	reComparison    = regexp.MustCompile(`(compar|versus|vs|différence|entre)`)
	reGrowth        = regexp.MustCompile(`(progress|croissance|évolu|augment|tendance|growth|trend)`)
	reTopCities     = regexp.MustCompile(`(top|meilleur|plus fort|classement|best|highest)`)
	reCityState     = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\s*\(([A-Z]{2})\)`)
	reThinkPad      = regexp.MustCompile(`(thinkpad|laptop|ordinateur)`)
	reBatteries     = regexp.MustCompile(`(batter|pile|aaa)`)
)

// cityAliases maps lowercase city mentions to the City_State labels used
// in the prediction tables.
var cityAliases = map[string]string{
	"dallas":        "Dallas (TX)",
	"houston":       "Houston (TX)",
	"austin":        "Austin (TX)",
	"san francisco": "San Francisco (CA)",
	"los angeles":   "Los Angeles (CA)",
	"new york":      "New York City (NY)",
	"boston":        "Boston (MA)",
	"seattle":       "Seattle (WA)",
	"atlanta":       "Atlanta (GA)",
	"portland":      "Portland (ME)",
	"washington":    "Washington DC",
}

var aliasOrder = func() []string {
	keys := make([]string, 0, len(cityAliases))
	for k := range cityAliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()

// Known product labels in the prediction tables.
const (
	ProductThinkPad  = "ThinkPad Laptop"
	ProductBatteries = "AAA Batteries (4-pack)"
)

// Summary holds what the analyzer extracted from a question. Shown in the
// dashboard's "detected" panel.
type Summary struct {
	Intent  Intent   `json:"intent"`
	Cities  []string `json:"cities,omitempty"`
	Product string   `json:"product,omitempty"`
	Query   string   `json:"query"`
}

// Analyzer selects forecast rows relevant to a question.
type Analyzer struct {
	tables *forecast.Tables
}

// NewAnalyzer builds an analyzer over a table snapshot.
func NewAnalyzer(tables *forecast.Tables) *Analyzer {
	return &Analyzer{tables: tables}
}

// DetectIntent classifies the question. Comparison wins over growth wins
// over top-cities wins over stock, matching how users phrase overlapping
// questions ("compare la croissance...").
func DetectIntent(q string) Intent {
	lower := strings.ToLower(q)
	switch {
	case reComparison.MatchString(lower):
		return IntentComparison
	case reGrowth.MatchString(lower):
		return IntentGrowth
	case reTopCities.MatchString(lower):
		return IntentTopCities
	case reStockIncrease.MatchString(lower):
		return IntentStockIncrease
	default:
		return IntentGeneral
	}
}

// ExtractCities finds city mentions, via the alias table and via the
// literal "City (ST)" pattern.
func ExtractCities(q string) []string {
	var cities []string
	seen := make(map[string]bool)
	lower := strings.ToLower(q)

	// Alias order is fixed so extraction is deterministic.
	for _, alias := range aliasOrder {
		full := cityAliases[alias]
		if strings.Contains(lower, alias) && !seen[full] {
			seen[full] = true
			cities = append(cities, full)
		}
	}

	for _, m := range reCityState.FindAllStringSubmatch(q, -1) {
		full := fmt.Sprintf("%s (%s)", m[1], m[2])
		if !seen[full] {
			seen[full] = true
			cities = append(cities, full)
		}
	}

	return cities
}

// ExtractProduct maps product mentions to the table labels. Returns ""
// when no known product is named.
func ExtractProduct(q string) string {
	lower := strings.ToLower(q)
	if reThinkPad.MatchString(lower) {
		return ProductThinkPad
	}
	if reBatteries.MatchString(lower) {
		return ProductBatteries
	}
	return ""
}

// Summarize reports everything extracted from the question.
func Summarize(q string) Summary {
	return Summary{
		Intent:  DetectIntent(q),
		Cities:  ExtractCities(q),
		Product: ExtractProduct(q),
		Query:   q,
	}
}

// RelevantRows selects the monthly rows the assistant should see for the
// question. Growth questions get the pivot instead; both row kinds are
// returned and at most one of them is non-empty.
func (a *Analyzer) RelevantRows(q string) ([]forecast.MonthlyRow, []forecast.GrowthRow) {
	intent := DetectIntent(q)
	cities := ExtractCities(q)
	product := ExtractProduct(q)

	switch intent {
	case IntentComparison:
		if len(cities) >= 2 {
			return a.tables.CompareCities(cities[0], cities[1], product), nil
		}
		return a.tables.FilterRows(product, cities), nil

	case IntentGrowth:
		rows := a.tables.Growth(product)
		if len(cities) > 0 {
			rows = filterGrowth(rows, cities)
		}
		return nil, rows

	case IntentTopCities:
		if product != "" {
			top := a.tables.TopCities(product, 10)
			topCities := make([]string, len(top))
			for i, c := range top {
				topCities[i] = c.CityState
			}
			return a.tables.FilterRows(product, topCities), nil
		}
		return a.tables.FilterRows("", nil), nil

	case IntentStockIncrease:
		return a.tables.FilterRows(product, cities), nil

	default:
		return a.tables.FilterRows(product, cities), nil
	}
}

func filterGrowth(rows []forecast.GrowthRow, cities []string) []forecast.GrowthRow {
	citySet := make(map[string]bool, len(cities))
	for _, c := range cities {
		citySet[c] = true
	}
	var out []forecast.GrowthRow
	for _, row := range rows {
		if citySet[row.CityState] {
			out = append(out, row)
		}
	}
	return out
}
