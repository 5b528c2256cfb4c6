package forecast

import (
	"math"
	"sort"
)

// Stats computes the at-a-glance summary of both tables.
func (t *Tables) Stats() SummaryStats {
	stats := SummaryStats{
		TotalPredictions: len(t.Daily),
		TotalDemand:      make(map[string]int),
	}

	products := make(map[string]bool)
	cities := make(map[string]bool)
	months := make(map[string]bool)
	for _, row := range t.Monthly {
		products[row.Product] = true
		cities[row.CityState] = true
		months[row.Month] = true
		stats.TotalDemand[row.Product] += row.Quantity
	}
	stats.Products = sortedKeys(products)
	stats.Cities = sortedKeys(cities)
	stats.Months = sortedKeys(months)

	for _, row := range t.Daily {
		d := row.Date.Format(dateLayout)
		if stats.DateRangeStart == "" || d < stats.DateRangeStart {
			stats.DateRangeStart = d
		}
		if d > stats.DateRangeEnd {
			stats.DateRangeEnd = d
		}
	}

	return stats
}

// ProductRows returns the monthly rows for one product.
func (t *Tables) ProductRows(product string) []MonthlyRow {
	var rows []MonthlyRow
	for _, row := range t.Monthly {
		if row.Product == product {
			rows = append(rows, row)
		}
	}
	return rows
}

// CityRows returns the monthly rows for one city.
func (t *Tables) CityRows(cityState string) []MonthlyRow {
	var rows []MonthlyRow
	for _, row := range t.Monthly {
		if row.CityState == cityState {
			rows = append(rows, row)
		}
	}
	return rows
}

// FilterRows returns monthly rows matching the given product and cities.
// Empty product or empty city list means "no filter on that axis".
func (t *Tables) FilterRows(product string, cities []string) []MonthlyRow {
	citySet := make(map[string]bool, len(cities))
	for _, c := range cities {
		citySet[c] = true
	}

	var rows []MonthlyRow
	for _, row := range t.Monthly {
		if product != "" && row.Product != product {
			continue
		}
		if len(citySet) > 0 && !citySet[row.CityState] {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// CompareCities returns the monthly rows for two cities, optionally
// restricted to one product.
func (t *Tables) CompareCities(city1, city2, product string) []MonthlyRow {
	return t.FilterRows(product, []string{city1, city2})
}

// TopCities ranks cities by total predicted quantity for a product.
func (t *Tables) TopCities(product string, n int) []CityTotal {
	totals := make(map[string]int)
	for _, row := range t.Monthly {
		if row.Product == product {
			totals[row.CityState] += row.Quantity
		}
	}

	ranked := make([]CityTotal, 0, len(totals))
	for city, qty := range totals {
		ranked = append(ranked, CityTotal{CityState: city, Quantity: qty})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		return ranked[i].CityState < ranked[j].CityState
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Growth pivots the monthly table per (product, city) and computes
// month-over-month growth percentages. Empty product means all products.
// With fewer than two months in the data no growth columns are filled.
func (t *Tables) Growth(product string) []GrowthRow {
	months := make(map[string]bool)
	type key struct{ product, city string }
	pivot := make(map[key]map[string]int)

	for _, row := range t.Monthly {
		if product != "" && row.Product != product {
			continue
		}
		months[row.Month] = true
		k := key{row.Product, row.CityState}
		if pivot[k] == nil {
			pivot[k] = make(map[string]int)
		}
		pivot[k][row.Month] += row.Quantity
	}

	ordered := sortedKeys(months)

	keys := make([]key, 0, len(pivot))
	for k := range pivot {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].product != keys[j].product {
			return keys[i].product < keys[j].product
		}
		return keys[i].city < keys[j].city
	})

	rows := make([]GrowthRow, 0, len(keys))
	for _, k := range keys {
		row := GrowthRow{
			Product:   k.product,
			CityState: k.city,
			ByMonth:   pivot[k],
		}
		if len(ordered) >= 2 {
			row.GrowthM1M2 = growthBetween(pivot[k], ordered[0], ordered[1])
			if len(ordered) >= 3 {
				row.GrowthM2M3 = growthBetween(pivot[k], ordered[1], ordered[2])
				row.GrowthTotal = growthBetween(pivot[k], ordered[0], ordered[2])
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// growthBetween computes the percent change between two months of a
// pivot row. A month absent from the pivot yields nil, not a change
// from or to zero.
func growthBetween(byMonth map[string]int, from, to string) *float64 {
	base, okBase := byMonth[from]
	next, okNext := byMonth[to]
	if !okBase || !okNext {
		return nil
	}
	return growthPercent(base, next)
}

// growthPercent returns the percent change from base to next, rounded to
// two decimals, or nil when the base month has no demand.
func growthPercent(base, next int) *float64 {
	if base == 0 {
		return nil
	}
	g := math.Round(float64(next-base)/float64(base)*100*100) / 100
	return &g
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
