package optimize

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"quantsim/internal/strategy"
	"quantsim/internal/trades"
)

// csvSep separates columns; hyperparameter names may not contain it.
const csvSep = ";"

// csvMetricColumns follow the score column in every row.
var csvMetricColumns = []string{
	"total_trades", "win_rate", "net_profit_pct",
	"max_drawdown", "sharpe", "sortino", "calmar", "omega",
}

// StudyName builds the canonical study identifier.
func StudyName(strategyName, exchange, symbol, timeframe, algorithm string) string {
	return strings.Join([]string{strategyName, exchange, symbol, timeframe, algorithm}, "-")
}

// CSVPath returns the study's CSV location under the storage root.
func CSVPath(storageDir, study string) string {
	return filepath.Join(storageDir, "optimize", "csv", study+".csv")
}

// CSVWriter appends scored candidates to a study CSV, one row per
// candidate. The layout is one leading column per hyperparameter holding
// the decoded value, then score, then the metric columns; failed or
// rule-rejected candidates carry "nan" in the score and metric columns so
// a resumed study skips them without re-running.
type CSVWriter struct {
	path string
	hps  []strategy.Hyperparameter
	f    *os.File
	w    *bufio.Writer
}

// NewCSVWriter opens (or creates) the study CSV for appending. The
// hyperparameter declaration fixes the column layout.
func NewCSVWriter(path string, hps []strategy.Hyperparameter) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("optimize: create csv dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("optimize: open csv: %w", err)
	}
	cw := &CSVWriter{path: path, hps: hps, f: f, w: bufio.NewWriter(f)}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size() == 0 {
		if _, err := cw.w.WriteString(strings.Join(cw.header(), csvSep) + "\n"); err != nil {
			f.Close()
			return nil, err
		}
	}
	return cw, nil
}

func (cw *CSVWriter) header() []string {
	cols := make([]string, 0, len(cw.hps)+1+len(csvMetricColumns))
	for _, h := range cw.hps {
		cols = append(cols, h.Name)
	}
	cols = append(cols, "score")
	return append(cols, csvMetricColumns...)
}

// Load reads previously scored candidates for study resume, keyed back to
// DNA via the hyperparameter columns. Rows with a "nan" score map to zero
// so they stay memoized as failures.
func (cw *CSVWriter) Load() (map[string]float64, error) {
	f, err := os.Open(cw.path)
	if err != nil {
		return nil, fmt.Errorf("optimize: read csv: %w", err)
	}
	defer f.Close()

	out := make(map[string]float64)
	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			first = false
			continue
		}
		if line == "" {
			continue
		}
		cols := strings.Split(line, csvSep)
		if len(cols) < len(cw.hps)+1 {
			continue
		}
		values := make(map[string]float64, len(cw.hps))
		ok := true
		for i, h := range cw.hps {
			v, err := strconv.ParseFloat(cols[i], 64)
			if err != nil {
				ok = false
				break
			}
			values[h.Name] = v
		}
		if !ok {
			continue
		}
		dna, err := strategy.EncodeDNA(cw.hps, values)
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(cols[len(cw.hps)], 64)
		if err != nil || math.IsNaN(score) {
			score = 0
		}
		out[dna] = score
	}
	return out, sc.Err()
}

// Record appends one candidate row and flushes. scored=false marks a
// failed or rule-rejected candidate.
func (cw *CSVWriter) Record(dna string, score float64, m trades.Metrics, scored bool) error {
	values, err := strategy.DecodeDNA(cw.hps, dna)
	if err != nil {
		return fmt.Errorf("optimize: record candidate: %w", err)
	}
	cols := make([]string, 0, len(cw.hps)+1+len(csvMetricColumns))
	for _, h := range cw.hps {
		cols = append(cols, formatHPValue(h, values[h.Name]))
	}
	if scored {
		cols = append(cols, formatFloat(score),
			strconv.Itoa(m.TotalTrades),
			formatFloat(m.WinRate),
			formatFloat(m.NetProfitPct),
			formatFloat(m.MaxDrawdown),
			formatFloat(m.SharpeRatio),
			formatFloat(m.SortinoRatio),
			formatFloat(m.CalmarRatio),
			formatFloat(m.OmegaRatio),
		)
	} else {
		for len(cols) < len(cw.hps)+1+len(csvMetricColumns) {
			cols = append(cols, "nan")
		}
	}
	if _, err := cw.w.WriteString(strings.Join(cols, csvSep) + "\n"); err != nil {
		return err
	}
	return cw.w.Flush()
}

// Close flushes and closes the underlying file.
func (cw *CSVWriter) Close() error {
	if err := cw.w.Flush(); err != nil {
		cw.f.Close()
		return err
	}
	return cw.f.Close()
}

// formatHPValue prints grid values so that Load parses them back onto the
// same grid point: integers without a fraction, floats at full precision.
func formatHPValue(h strategy.Hyperparameter, v float64) string {
	if h.Type == strategy.TypeFloat {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.Itoa(int(v))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
