package marketdata

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata/normalize"
	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata/provider"
)

// NormalizingSource wraps a provider so every series it returns is sorted,
// free of duplicate days and free of bars that break the OHLC invariants.
type NormalizingSource struct {
	inner  provider.Source
	logger *logger.Logger
}

// NewNormalizingSource wraps inner.
func NewNormalizingSource(inner provider.Source, log *logger.Logger) *NormalizingSource {
	return &NormalizingSource{inner: inner, logger: log}
}

// NewSource creates the configured provider wrapped in a NormalizingSource.
func NewSource(providerType provider.ProviderType, config provider.Config, log *logger.Logger) (provider.Source, error) {
	inner, err := provider.NewSource(providerType, config, log)
	if err != nil {
		return nil, err
	}

	return NewNormalizingSource(inner, log), nil
}

// FetchDailyBars implements provider.Source.
func (s *NormalizingSource) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.MarketData, error) {
	raw, err := s.inner.FetchDailyBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	bars, dropped := normalize.Bars(symbol, raw)
	if dropped > 0 {
		s.logger.Warn("Dropped invalid or duplicate bars",
			zap.String("symbol", symbol),
			zap.Int("dropped", dropped),
			zap.Int("kept", len(bars)),
		)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoDataFound, "no valid bars for %s", symbol)
	}

	return bars, nil
}
