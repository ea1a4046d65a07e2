package provider

import (
	"context"
	"time"

	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderFinMind ProviderType = "finmind"
	ProviderPolygon ProviderType = "polygon"
	ProviderLocal   ProviderType = "local"
)

var AllProviders = []any{
	ProviderFinMind,
	ProviderPolygon,
	ProviderLocal,
}

// Source returns the daily bars of one symbol.
type Source interface {
	// FetchDailyBars returns the bars of symbol between start and end, both
	// inclusive. A zero start or end leaves that side unbounded where the
	// source allows it. Bars are returned as delivered; callers normalize them.
	// example:
	// FetchDailyBars(ctx, "2330", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.MarketData, error)
}

// Config carries the settings of every provider. Only the fields of the
// selected provider are read.
type Config struct {
	FinMind FinMindConfig
	Polygon PolygonConfig
	DataDir string
}

// NewSource creates a market data source based on the provider type.
func NewSource(providerType ProviderType, config Config, log *logger.Logger) (Source, error) {
	switch providerType {
	case ProviderFinMind:
		return NewFinMindClient(config.FinMind, log)
	case ProviderPolygon:
		return NewPolygonClient(config.Polygon.APIKey)
	case ProviderLocal:
		return NewLocalSource(config.DataDir, log)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}
