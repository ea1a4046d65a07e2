package indicator

import (
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
)

// minimumBars is the least a series needs for a previous/current comparison.
const minimumBars = 2

// Annotator turns a normalized bar series into an IndicatedSeries.
type Annotator interface {
	Annotate(symbol string, bars []types.MarketData) (*types.IndicatedSeries, error)
}

// Provider annotates normalized bar series with every indicator column the
// signal rules read.
type Provider struct {
	registry IndicatorRegistry
	params   Params
}

// NewProvider registers and configures the indicators for params.
func NewProvider(params Params) (*Provider, error) {
	registry := NewIndicatorRegistry()

	configured := []struct {
		indicator Indicator
		params    []any
	}{
		{NewMACD(), []any{params.MACDFast, params.MACDSlow, params.MACDSignal}},
		{NewWeeklyMACD(), []any{params.WeeklyMACDFast, params.WeeklyMACDSlow, params.WeeklyMACDSignal}},
		{NewADX(), []any{params.ADXPeriod}},
		{NewRSI(), []any{params.RSIPeriod}},
		{NewATR(), []any{params.ATRPeriod}},
		{NewMA(types.IndicatorTypeVolumeMA, types.ColumnVolumeSMA, VolumeField, 0), []any{params.VolumeSMAPeriod}},
		{NewMA(types.IndicatorTypeRegimeMA, types.ColumnSMARegime, CloseField, 0), []any{params.RegimeSMAPeriod}},
		{NewMA(types.IndicatorTypeTrendMA, types.ColumnSMATrend, CloseField, 0), []any{params.TrendSMAPeriod}},
		{NewRollingExtremes(), []any{params.RollingWindow}},
	}

	for _, c := range configured {
		if err := c.indicator.Config(c.params...); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to configure indicator %s", c.indicator.Name())
		}

		if err := registry.RegisterIndicator(c.indicator); err != nil {
			return nil, err
		}
	}

	return &Provider{
		registry: registry,
		params:   params,
	}, nil
}

// Registry exposes the configured indicators.
func (p *Provider) Registry() IndicatorRegistry {
	return p.registry
}

// Annotate returns bars augmented with all indicator columns. Rows inside an
// indicator's warmup hold NaN.
func (p *Provider) Annotate(symbol string, bars []types.MarketData) (*types.IndicatedSeries, error) {
	if len(bars) < minimumBars {
		return nil, errors.NewInsufficientDataErrorf(minimumBars, len(bars), symbol,
			"insufficient bars to annotate %s: required %d, got %d", symbol, minimumBars, len(bars))
	}

	series := types.NewIndicatedSeries(symbol, bars)

	for _, name := range p.registry.ListIndicators() {
		ind, err := p.registry.GetIndicator(name)
		if err != nil {
			return nil, err
		}

		if err := ind.Annotate(series); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "failed to compute %s for %s", name, symbol)
		}
	}

	return series, nil
}
