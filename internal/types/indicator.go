package types

type IndicatorType string

const (
	IndicatorTypeRSI             IndicatorType = "rsi"
	IndicatorTypeMACD            IndicatorType = "macd"
	IndicatorTypeWeeklyMACD      IndicatorType = "weekly_macd"
	IndicatorTypeADX             IndicatorType = "adx"
	IndicatorTypeATR             IndicatorType = "atr"
	IndicatorTypeRegimeMA        IndicatorType = "regime_ma"
	IndicatorTypeTrendMA         IndicatorType = "trend_ma"
	IndicatorTypeVolumeMA        IndicatorType = "volume_ma"
	IndicatorTypeRollingExtremes IndicatorType = "rolling_extremes"
)

// Column names written by the indicators into an IndicatedSeries.
const (
	ColumnMACDHist       = "macd_hist"
	ColumnWeeklyMACDHist = "macd_hist_w"
	ColumnADX            = "adx"
	ColumnRSI            = "rsi"
	ColumnATR            = "atr"
	ColumnVolumeSMA      = "vol_sma"
	ColumnSMARegime      = "sma_regime"
	ColumnSMATrend       = "sma_trend"
	ColumnRollingHigh    = "rolling_high"
	ColumnRollingLow     = "rolling_low"
)
