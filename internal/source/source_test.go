package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"quantsim/internal/candle"
)

func mc(minute int64, close float64) candle.Candle {
	return candle.Candle{
		Timestamp: minute * candle.MinuteMs,
		Open:      close, Close: close, High: close + 0.5, Low: close - 0.5, Volume: 1,
	}
}

func TestFillGaps(t *testing.T) {
	batch := []candle.Candle{mc(0, 100), mc(3, 103)}
	got := FillGaps(batch)

	if len(got) != 4 {
		t.Fatalf("len = %d, want 4: %v", len(got), got)
	}
	for i, c := range got {
		if c.Timestamp != int64(i)*candle.MinuteMs {
			t.Errorf("candle %d ts = %d", i, c.Timestamp)
		}
	}
	// synthesized minutes are flat at the previous close with no volume
	for _, c := range got[1:3] {
		if c.Open != 100 || c.Close != 100 || c.High != 100 || c.Low != 100 || c.Volume != 0 {
			t.Errorf("filler candle = %+v", c)
		}
	}
	if got[3].Close != 103 {
		t.Errorf("real candle lost: %+v", got[3])
	}
}

func TestFillGapsContiguousUntouched(t *testing.T) {
	batch := []candle.Candle{mc(0, 100), mc(1, 101), mc(2, 102)}
	got := FillGaps(batch)
	if len(got) != 3 {
		t.Errorf("contiguous batch grew to %d", len(got))
	}
	if got := FillGaps([]candle.Candle{mc(0, 100)}); len(got) != 1 {
		t.Errorf("single candle batch changed: %v", got)
	}
}

func writeCandleCSV(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	if err := os.WriteFile(path, []byte(rows), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCSVDriver(t *testing.T) {
	path := writeCandleCSV(t, `timestamp_ms,open,close,high,low,volume
120000,101,102,103,100,7
60000,100,101,102,99,5
180000,102,103,104,101,9
`)
	d, err := NewCSVDriver("binance", path)
	if err != nil {
		t.Fatal(err)
	}
	if d.Name() != "binance" {
		t.Errorf("Name = %q", d.Name())
	}

	ctx := context.Background()

	// the listing time is the earliest row
	first, err := d.StartingTime(ctx, "BTC-USDT")
	if err != nil {
		t.Fatal(err)
	}
	if first != 60000 {
		t.Errorf("StartingTime = %d, want 60000", first)
	}

	// rows come back sorted regardless of file order
	got, err := d.Fetch(ctx, "BTC-USDT", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Timestamp != 60000 || got[2].Timestamp != 180000 {
		t.Fatalf("Fetch = %v", got)
	}
	if got[0].Open != 100 || got[0].Volume != 5 {
		t.Errorf("first candle = %+v", got[0])
	}

	// limit and start offset
	got, _ = d.Fetch(ctx, "BTC-USDT", 120000, 1)
	if len(got) != 1 || got[0].Timestamp != 120000 {
		t.Errorf("offset fetch = %v", got)
	}

	// past the end of history
	got, err = d.Fetch(ctx, "BTC-USDT", 600000, 10)
	if err != nil || got != nil {
		t.Errorf("past-end fetch = %v, %v", got, err)
	}
}

func TestCSVDriverEmptyFile(t *testing.T) {
	path := writeCandleCSV(t, "timestamp_ms,open,close,high,low,volume\n")
	d, err := NewCSVDriver("binance", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Fetch(context.Background(), "BTC-USDT", 0, 10); err != ErrSymbolNotFound {
		t.Errorf("empty driver Fetch = %v, want ErrSymbolNotFound", err)
	}
	if _, err := d.StartingTime(context.Background(), "BTC-USDT"); err != ErrSymbolNotFound {
		t.Errorf("empty driver StartingTime = %v, want ErrSymbolNotFound", err)
	}
}

func TestCSVDriverBadRow(t *testing.T) {
	path := writeCandleCSV(t, "60000,100,xx,102,99,5\n")
	if _, err := NewCSVDriver("binance", path); err == nil {
		t.Error("malformed numeric column must error")
	}
}

func TestClipTo(t *testing.T) {
	batch := []candle.Candle{mc(0, 100), mc(1, 101), mc(2, 102)}
	if got := clipTo(batch, 1*candle.MinuteMs); len(got) != 2 {
		t.Errorf("clipTo = %v", got)
	}
	if got := clipTo(batch, 10*candle.MinuteMs); len(got) != 3 {
		t.Errorf("clipTo past end = %v", got)
	}
}
