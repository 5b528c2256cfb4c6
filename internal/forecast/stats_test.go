package forecast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func loadTestTables(t *testing.T) *Tables {
	t.Helper()
	monthly, daily := writeFixtures(t)
	tables, err := Load(monthly, daily)
	require.NoError(t, err)
	return tables
}

func TestStats(t *testing.T) {
	tables := loadTestTables(t)
	stats := tables.Stats()

	require.Equal(t, 3, stats.TotalPredictions)
	require.Equal(t, []string{"AAA Batteries (4-pack)", "ThinkPad Laptop"}, stats.Products)
	require.Equal(t, []string{"Austin (TX)", "Dallas (TX)"}, stats.Cities)
	require.Equal(t, []string{"2020-03", "2020-04", "2020-05"}, stats.Months)
	require.Equal(t, "2020-03-01", stats.DateRangeStart)
	require.Equal(t, "2020-04-29", stats.DateRangeEnd)
	require.Equal(t, 120+150+180+100+90+110, stats.TotalDemand["ThinkPad Laptop"])
	require.Equal(t, 900+950+1000, stats.TotalDemand["AAA Batteries (4-pack)"])
}

func TestTopCities(t *testing.T) {
	tables := loadTestTables(t)

	top := tables.TopCities("ThinkPad Laptop", 5)
	require.Len(t, top, 2)
	require.Equal(t, "Dallas (TX)", top[0].CityState)
	require.Equal(t, 450, top[0].Quantity)
	require.Equal(t, "Austin (TX)", top[1].CityState)
	require.Equal(t, 300, top[1].Quantity)

	// n limits the ranking
	top = tables.TopCities("ThinkPad Laptop", 1)
	require.Len(t, top, 1)

	// unknown product yields an empty ranking, not a crash
	require.Empty(t, tables.TopCities("Wired Headphones", 5))
}

func TestCompareCities(t *testing.T) {
	tables := loadTestTables(t)

	rows := tables.CompareCities("Dallas (TX)", "Austin (TX)", "ThinkPad Laptop")
	require.Len(t, rows, 6)
	for _, row := range rows {
		require.Equal(t, "ThinkPad Laptop", row.Product)
	}

	rows = tables.CompareCities("Dallas (TX)", "Austin (TX)", "")
	require.Len(t, rows, 9)
}

func TestGrowth(t *testing.T) {
	tables := loadTestTables(t)

	rows := tables.Growth("ThinkPad Laptop")
	require.Len(t, rows, 2)

	// Austin: 100 -> 90 -> 110
	austin := rows[0]
	require.Equal(t, "Austin (TX)", austin.CityState)
	require.NotNil(t, austin.GrowthM1M2)
	require.InDelta(t, -10.0, *austin.GrowthM1M2, 0.001)
	require.NotNil(t, austin.GrowthM2M3)
	require.InDelta(t, 22.22, *austin.GrowthM2M3, 0.001)
	require.NotNil(t, austin.GrowthTotal)
	require.InDelta(t, 10.0, *austin.GrowthTotal, 0.001)

	// Dallas: 120 -> 150 -> 180
	dallas := rows[1]
	require.Equal(t, "Dallas (TX)", dallas.CityState)
	require.InDelta(t, 25.0, *dallas.GrowthM1M2, 0.001)
	require.InDelta(t, 20.0, *dallas.GrowthM2M3, 0.001)
	require.InDelta(t, 50.0, *dallas.GrowthTotal, 0.001)
}

func TestGrowth_ZeroBase(t *testing.T) {
	tables := &Tables{Monthly: []MonthlyRow{
		{Product: "p", CityState: "c", Month: "2020-03", Quantity: 0},
		{Product: "p", CityState: "c", Month: "2020-04", Quantity: 10},
	}}

	rows := tables.Growth("")
	require.Len(t, rows, 1)
	require.Nil(t, rows[0].GrowthM1M2)
}

func TestGrowth_MissingMonth(t *testing.T) {
	// The second city only appears in the first month; its growth
	// columns stay unset rather than reading as a drop to zero.
	tables := &Tables{Monthly: []MonthlyRow{
		{Product: "p", CityState: "a", Month: "2020-03", Quantity: 100},
		{Product: "p", CityState: "a", Month: "2020-04", Quantity: 110},
		{Product: "p", CityState: "a", Month: "2020-05", Quantity: 121},
		{Product: "p", CityState: "b", Month: "2020-03", Quantity: 50},
	}}

	rows := tables.Growth("")
	require.Len(t, rows, 2)

	a := rows[0]
	require.Equal(t, "a", a.CityState)
	require.NotNil(t, a.GrowthM1M2)
	require.InDelta(t, 10.0, *a.GrowthM1M2, 0.001)

	b := rows[1]
	require.Equal(t, "b", b.CityState)
	require.Nil(t, b.GrowthM1M2)
	require.Nil(t, b.GrowthM2M3)
	require.Nil(t, b.GrowthTotal)
}

func TestFilterRows_Empty(t *testing.T) {
	tables := loadTestTables(t)
	require.Empty(t, tables.FilterRows("Wired Headphones", nil))
	require.Empty(t, tables.ProductRows("Wired Headphones"))
	require.Empty(t, tables.CityRows("Boston (MA)"))
}
