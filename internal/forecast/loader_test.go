package forecast

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const monthlyCSV = `Product,City_State,Month,Predicted_Quantity
ThinkPad Laptop,Dallas (TX),2020-03,120
ThinkPad Laptop,Dallas (TX),2020-04,150
ThinkPad Laptop,Dallas (TX),2020-05,180
ThinkPad Laptop,Austin (TX),2020-03,100
ThinkPad Laptop,Austin (TX),2020-04,90
ThinkPad Laptop,Austin (TX),2020-05,110
AAA Batteries (4-pack),Dallas (TX),2020-03,900
AAA Batteries (4-pack),Dallas (TX),2020-04,950
AAA Batteries (4-pack),Dallas (TX),2020-05,1000
`

const dailyCSV = `Product,City_State,Date,Predicted_Quantity
ThinkPad Laptop,Dallas (TX),2020-03-01,4
ThinkPad Laptop,Dallas (TX),2020-03-02,5
AAA Batteries (4-pack),Dallas (TX),2020-04-29,31
`

func writeFixtures(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	monthly := filepath.Join(dir, "predictions_3_mois.csv")
	daily := filepath.Join(dir, "predictions_60_jours.csv")
	require.NoError(t, os.WriteFile(monthly, []byte(monthlyCSV), 0644))
	require.NoError(t, os.WriteFile(daily, []byte(dailyCSV), 0644))
	return monthly, daily
}

func TestLoad(t *testing.T) {
	monthly, daily := writeFixtures(t)

	tables, err := Load(monthly, daily)
	require.NoError(t, err)
	require.Len(t, tables.Monthly, 9)
	require.Len(t, tables.Daily, 3)

	want := MonthlyRow{
		Product:   "ThinkPad Laptop",
		CityState: "Dallas (TX)",
		Month:     "2020-03",
		Quantity:  120,
	}
	if diff := cmp.Diff(want, tables.Monthly[0]); diff != "" {
		t.Errorf("first monthly row mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, "2020-03-01", tables.Daily[0].Date.Format("2006-01-02"))
	for _, row := range tables.Daily {
		require.GreaterOrEqual(t, row.Quantity, 0)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, daily := writeFixtures(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"), daily)
	require.Error(t, err)
	require.Contains(t, err.Error(), "monthly predictions")
}

func TestLoadMonthly_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("Product,City,Month,Qty\na,b,c,1\n"), 0644))

	_, err := LoadMonthly(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing column")
}

func TestLoadMonthly_BadQuantity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	data := "Product,City_State,Month,Predicted_Quantity\nThinkPad Laptop,Dallas (TX),2020-03,lots\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	_, err := LoadMonthly(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "row 2")
}

func TestLoadMonthly_FloatQuantity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "float.csv")
	data := "Product,City_State,Month,Predicted_Quantity\nThinkPad Laptop,Dallas (TX),2020-03,42.0\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	rows, err := LoadMonthly(path)
	require.NoError(t, err)
	require.Equal(t, 42, rows[0].Quantity)
}

func TestLoadDaily_BadDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	data := "Product,City_State,Date,Predicted_Quantity\nThinkPad Laptop,Dallas (TX),03/01/2020,4\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	_, err := LoadDaily(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid date")
}
