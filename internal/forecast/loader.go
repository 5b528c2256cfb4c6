package forecast

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Expected CSV headers. The modeling pipeline writes these columns; any
// other layout is a fatal load error.
const (
	colProduct   = "Product"
	colCityState = "City_State"
	colMonth     = "Month"
	colDate      = "Date"
	colQuantity  = "Predicted_Quantity"
)

const dateLayout = "2006-01-02"

// Load reads both prediction tables. It fails on a missing file, a missing
// column, or a row whose quantity or date does not parse.
func Load(monthlyPath, dailyPath string) (*Tables, error) {
	monthly, err := LoadMonthly(monthlyPath)
	if err != nil {
		return nil, fmt.Errorf("monthly predictions: %w", err)
	}
	daily, err := LoadDaily(dailyPath)
	if err != nil {
		return nil, fmt.Errorf("daily predictions: %w", err)
	}
	return &Tables{Monthly: monthly, Daily: daily}, nil
}

// LoadMonthly reads the monthly aggregate table.
func LoadMonthly(path string) ([]MonthlyRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	cols, err := headerIndex(r, colProduct, colCityState, colMonth, colQuantity)
	if err != nil {
		return nil, err
	}

	var rows []MonthlyRow
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line++

		qty, err := parseQuantity(record[cols[colQuantity]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		rows = append(rows, MonthlyRow{
			Product:   record[cols[colProduct]],
			CityState: record[cols[colCityState]],
			Month:     record[cols[colMonth]],
			Quantity:  qty,
		})
	}
	return rows, nil
}

// LoadDaily reads the daily 60-day forecast table.
func LoadDaily(path string) ([]DailyRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	cols, err := headerIndex(r, colProduct, colCityState, colDate, colQuantity)
	if err != nil {
		return nil, err
	}

	var rows []DailyRow
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line++

		qty, err := parseQuantity(record[cols[colQuantity]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		date, err := time.Parse(dateLayout, record[cols[colDate]])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q: %w", line, record[cols[colDate]], err)
		}
		rows = append(rows, DailyRow{
			Product:   record[cols[colProduct]],
			CityState: record[cols[colCityState]],
			Date:      date,
			Quantity:  qty,
		})
	}
	return rows, nil
}

// headerIndex reads the header row and maps the required column names to
// their positions.
func headerIndex(r *csv.Reader, required ...string) (map[string]int, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing column %q in header %v", name, header)
		}
	}
	return idx, nil
}

func parseQuantity(s string) (int, error) {
	qty, err := strconv.Atoi(s)
	if err != nil {
		// The pipeline occasionally emits float-formatted integers.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, fmt.Errorf("invalid quantity %q", s)
		}
		qty = int(f)
	}
	if qty < 0 {
		return 0, fmt.Errorf("negative quantity %d", qty)
	}
	return qty, nil
}
