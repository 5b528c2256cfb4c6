// Package forecast loads the prediction tables emitted by the modeling
// pipeline and exposes the aggregations the assistant and dashboard are
// built on. The tables are read-only after load; hot reload swaps whole
// snapshots.
package forecast

import "time"

// MonthlyRow is one row of the monthly aggregate table: predicted demand
// for a product in a city for one month.
type MonthlyRow struct {
	Product   string `json:"product"`
	CityState string `json:"city_state"` // "Dallas (TX)"
	Month     string `json:"month"`      // "2020-03"
	Quantity  int    `json:"predicted_quantity"`
}

// DailyRow is one row of the daily 60-day forecast table.
type DailyRow struct {
	Product   string    `json:"product"`
	CityState string    `json:"city_state"`
	Date      time.Time `json:"date"`
	Quantity  int       `json:"predicted_quantity"`
}

// Tables holds both prediction tables as loaded from disk.
type Tables struct {
	Monthly []MonthlyRow
	Daily   []DailyRow
}

// SummaryStats describes the loaded data at a glance. Rendered in the
// dashboard sidebar and by the stats command.
type SummaryStats struct {
	TotalPredictions int            `json:"total_predictions"`
	Products         []string       `json:"products"`
	Cities           []string       `json:"cities"`
	Months           []string       `json:"months"`
	DateRangeStart   string         `json:"date_range_start"`
	DateRangeEnd     string         `json:"date_range_end"`
	TotalDemand      map[string]int `json:"total_demand"` // per product
}

// CityTotal is a city ranked by summed predicted quantity.
type CityTotal struct {
	CityState string `json:"city_state"`
	Quantity  int    `json:"predicted_quantity"`
}

// GrowthRow is one line of the month-over-month growth pivot. Growth
// percentages are nil when the base month has no demand or the month is
// missing.
type GrowthRow struct {
	Product     string         `json:"product"`
	CityState   string         `json:"city_state"`
	ByMonth     map[string]int `json:"by_month"`
	GrowthM1M2  *float64       `json:"growth_m1_m2,omitempty"`
	GrowthM2M3  *float64       `json:"growth_m2_m3,omitempty"`
	GrowthTotal *float64       `json:"growth_total,omitempty"`
}
