// Package normalize turns raw daily bars from any source into one canonical
// schema: sorted by date, one bar per date, only bars that pass validation.
package normalize

import (
	"sort"
	"strings"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
)

// Canonical column names.
const (
	ColumnTime   = "time"
	ColumnOpen   = "open"
	ColumnHigh   = "high"
	ColumnLow    = "low"
	ColumnClose  = "close"
	ColumnVolume = "volume"
)

// RequiredColumns lists the canonical columns every source must provide.
var RequiredColumns = []string{ColumnTime, ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume}

var aliases = map[string]string{
	"date":           ColumnTime,
	"timestamp":      ColumnTime,
	"datetime":       ColumnTime,
	"max":            ColumnHigh,
	"min":            ColumnLow,
	"trading_volume": ColumnVolume,
	"vol":            ColumnVolume,
}

// Column maps a source column name to its canonical name. Unknown names are
// returned lower-cased.
func Column(name string) string {
	folded := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[folded]; ok {
		return canonical
	}

	return folded
}

// Columns maps each canonical column to the source column that provides it.
// When several source columns map to the same canonical name the exact
// canonical spelling wins, then the first seen. Missing required columns are
// an error.
func Columns(source []string) (map[string]string, error) {
	mapping := make(map[string]string, len(RequiredColumns))

	for _, name := range source {
		if folded := strings.ToLower(strings.TrimSpace(name)); folded == Column(name) {
			if _, taken := mapping[folded]; !taken {
				mapping[folded] = name
			}
		}
	}

	for _, name := range source {
		canonical := Column(name)
		if _, taken := mapping[canonical]; !taken {
			mapping[canonical] = name
		}
	}

	var missing []string

	for _, required := range RequiredColumns {
		if _, ok := mapping[required]; !ok {
			missing = append(missing, required)
		}
	}

	if len(missing) > 0 {
		return nil, errors.Newf(errors.ErrCodeMarketDataParseFailed, "missing columns %s in %v", strings.Join(missing, ", "), source)
	}

	return mapping, nil
}

// Bars sorts bars by date, keeps the first bar of each trading day, drops bars
// that fail validation and stamps symbol on the rest. It returns the clean
// series and the number of dropped bars.
func Bars(symbol string, bars []types.MarketData) ([]types.MarketData, int) {
	sorted := make([]types.MarketData, len(bars))
	copy(sorted, bars)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	clean := make([]types.MarketData, 0, len(sorted))
	seen := make(map[int64]struct{}, len(sorted))
	dropped := 0

	for _, bar := range sorted {
		if bar.Time.IsZero() {
			dropped++

			continue
		}

		day := types.TradingDay(bar.Time)
		if _, dup := seen[day.Unix()]; dup {
			dropped++

			continue
		}

		seen[day.Unix()] = struct{}{}

		if err := bar.Validate(); err != nil {
			dropped++

			continue
		}

		bar.Time = day
		if symbol != "" {
			bar.Symbol = symbol
		}

		clean = append(clean, bar)
	}

	return clean, dropped
}
