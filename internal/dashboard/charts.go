package dashboard

import (
	"fmt"
	"sort"

	"demandsight/internal/forecast"
)

// Trace is one plotly trace: the page hands these to Plotly.newPlot
// unchanged. X and Y hold either category labels or quantities depending
// on orientation.
type Trace struct {
	Name        string `json:"name,omitempty"`
	Type        string `json:"type"` // bar, scatter
	X           any    `json:"x"`
	Y           any    `json:"y"`
	Orientation string `json:"orientation,omitempty"` // "h" for horizontal bars
}

// Chart is a titled set of traces plus the plotly barmode.
type Chart struct {
	Title   string  `json:"title"`
	BarMode string  `json:"barmode,omitempty"`
	Traces  []Trace `json:"traces"`
}

// ChartBundle is everything the product view renders.
type ChartBundle struct {
	Product      string `json:"product"`
	DemandByCity Chart  `json:"demand_by_city"`
	MonthlyTrend Chart  `json:"monthly_trend"`
	TopCities    Chart  `json:"top_cities"`
}

// BuildCharts computes the three product charts from a table snapshot.
// Unknown products yield empty but well-formed charts.
func BuildCharts(tables *forecast.Tables, product string) ChartBundle {
	rows := tables.ProductRows(product)

	months := make(map[string]bool)
	cities := make(map[string]bool)
	for _, row := range rows {
		months[row.Month] = true
		cities[row.CityState] = true
	}
	monthList := sortedSet(months)
	cityList := sortedSet(cities)

	return ChartBundle{
		Product:      product,
		DemandByCity: demandByCityChart(rows, product, monthList, cityList),
		MonthlyTrend: monthlyTrendChart(rows, product, monthList),
		TopCities:    topCitiesChart(tables, product),
	}
}

// demandByCityChart is the grouped bar chart: one trace per month over the
// city axis.
func demandByCityChart(rows []forecast.MonthlyRow, product string, months, cities []string) Chart {
	byMonthCity := make(map[string]map[string]int)
	for _, row := range rows {
		if byMonthCity[row.Month] == nil {
			byMonthCity[row.Month] = make(map[string]int)
		}
		byMonthCity[row.Month][row.CityState] += row.Quantity
	}

	traces := make([]Trace, 0, len(months))
	for _, month := range months {
		ys := make([]int, len(cities))
		for i, city := range cities {
			ys[i] = byMonthCity[month][city]
		}
		traces = append(traces, Trace{Name: month, Type: "bar", X: cities, Y: ys})
	}

	return Chart{
		Title:   fmt.Sprintf("Demand for %s by city and month", product),
		BarMode: "group",
		Traces:  traces,
	}
}

// monthlyTrendChart is the line of total demand per month.
func monthlyTrendChart(rows []forecast.MonthlyRow, product string, months []string) Chart {
	totals := make(map[string]int)
	for _, row := range rows {
		totals[row.Month] += row.Quantity
	}

	ys := make([]int, len(months))
	for i, month := range months {
		ys[i] = totals[month]
	}

	return Chart{
		Title: fmt.Sprintf("Total demand trend for %s", product),
		Traces: []Trace{{
			Type: "scatter",
			X:    months,
			Y:    ys,
		}},
	}
}

// topCitiesChart is the top-10 horizontal bar, reversed so plotly renders
// the biggest city on top.
func topCitiesChart(tables *forecast.Tables, product string) Chart {
	top := tables.TopCities(product, 10)

	quantities := make([]int, 0, len(top))
	labels := make([]string, 0, len(top))
	for i := len(top) - 1; i >= 0; i-- {
		quantities = append(quantities, top[i].Quantity)
		labels = append(labels, top[i].CityState)
	}

	return Chart{
		Title: fmt.Sprintf("Top 10 cities for %s", product),
		Traces: []Trace{{
			Type:        "bar",
			Orientation: "h",
			X:           quantities,
			Y:           labels,
		}},
	}
}

func sortedSet(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
