package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"quantsim/internal/candle"
)

// CSVDriver serves 1m candles from an exported CSV file, one row per
// minute: timestamp_ms,open,close,high,low,volume. Header rows are
// skipped. Useful for offline imports and fixture data.
type CSVDriver struct {
	name    string
	candles []candle.Candle
}

// NewCSVDriver loads the file into memory sorted by timestamp.
func NewCSVDriver(name, path string) (*CSVDriver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("source: parse csv: %w", err)
	}

	var out []candle.Candle
	for _, row := range rows {
		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			// header row
			continue
		}
		c := candle.Candle{Timestamp: ts}
		for i, dst := range []*float64{&c.Open, &c.Close, &c.High, &c.Low, &c.Volume} {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("source: csv row at ts %d: %w", ts, err)
			}
			*dst = v
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })

	return &CSVDriver{name: name, candles: out}, nil
}

// Name identifies the driver.
func (d *CSVDriver) Name() string { return d.name }

// StartingTime returns the first loaded candle's timestamp.
func (d *CSVDriver) StartingTime(ctx context.Context, symbol string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(d.candles) == 0 {
		return 0, ErrSymbolNotFound
	}
	return d.candles[0].Timestamp, nil
}

// Fetch returns up to limit candles at or after startMs.
func (d *CSVDriver) Fetch(ctx context.Context, symbol string, startMs int64, limit int) ([]candle.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.candles) == 0 {
		return nil, ErrSymbolNotFound
	}
	i := sort.Search(len(d.candles), func(i int) bool {
		return d.candles[i].Timestamp >= startMs
	})
	if i == len(d.candles) {
		return nil, nil
	}
	end := i + limit
	if end > len(d.candles) {
		end = len(d.candles)
	}
	out := make([]candle.Candle, end-i)
	copy(out, d.candles[i:end])
	return out, nil
}
