package indicator

import (
	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// Indicator interface defines methods that any technical indicator must implement.
// An indicator reads the bars of a series and writes one or more named columns.
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// Config sets the indicator periods. The expected parameters depend on the indicator.
	Config(params ...any) error
	// Annotate computes the indicator over the whole series and stores its columns.
	Annotate(series *types.IndicatedSeries) error
	// Columns returns the column names written by Annotate.
	Columns() []string
}

// Params holds every period used to annotate a series.
type Params struct {
	MACDFast         int `yaml:"macd_fast" json:"macd_fast" jsonschema:"title=MACD Fast,description=Fast EMA period of the daily MACD,default=24" validate:"gt=0"`
	MACDSlow         int `yaml:"macd_slow" json:"macd_slow" jsonschema:"title=MACD Slow,description=Slow EMA period of the daily MACD,default=60" validate:"gtfield=MACDFast"`
	MACDSignal       int `yaml:"macd_signal" json:"macd_signal" jsonschema:"title=MACD Signal,description=Signal EMA period of the daily MACD,default=24" validate:"gt=0"`
	WeeklyMACDFast   int `yaml:"weekly_macd_fast" json:"weekly_macd_fast" jsonschema:"title=Weekly MACD Fast,default=20" validate:"gt=0"`
	WeeklyMACDSlow   int `yaml:"weekly_macd_slow" json:"weekly_macd_slow" jsonschema:"title=Weekly MACD Slow,default=50" validate:"gtfield=WeeklyMACDFast"`
	WeeklyMACDSignal int `yaml:"weekly_macd_signal" json:"weekly_macd_signal" jsonschema:"title=Weekly MACD Signal,default=20" validate:"gt=0"`
	ADXPeriod        int `yaml:"adx_period" json:"adx_period" jsonschema:"title=ADX Period,default=10" validate:"gt=0"`
	RSIPeriod        int `yaml:"rsi_period" json:"rsi_period" jsonschema:"title=RSI Period,default=12" validate:"gt=0"`
	ATRPeriod        int `yaml:"atr_period" json:"atr_period" jsonschema:"title=ATR Period,default=15" validate:"gt=0"`
	VolumeSMAPeriod  int `yaml:"volume_sma_period" json:"volume_sma_period" jsonschema:"title=Volume SMA Period,default=20" validate:"gt=0"`
	RegimeSMAPeriod  int `yaml:"regime_sma_period" json:"regime_sma_period" jsonschema:"title=Regime SMA Period,description=Moving average the market index must close above,default=200" validate:"gt=0"`
	TrendSMAPeriod   int `yaml:"trend_sma_period" json:"trend_sma_period" jsonschema:"title=Trend SMA Period,default=50" validate:"gt=0"`
	RollingWindow    int `yaml:"rolling_window" json:"rolling_window" jsonschema:"title=Rolling Window,description=Window of the rolling high and low,default=50" validate:"gt=0"`
}

// DefaultParams returns the periods of the Chaos King screen.
func DefaultParams() Params {
	return Params{
		MACDFast:         24,
		MACDSlow:         60,
		MACDSignal:       24,
		WeeklyMACDFast:   20,
		WeeklyMACDSlow:   50,
		WeeklyMACDSignal: 20,
		ADXPeriod:        10,
		RSIPeriod:        12,
		ATRPeriod:        15,
		VolumeSMAPeriod:  20,
		RegimeSMAPeriod:  200,
		TrendSMAPeriod:   50,
		RollingWindow:    50,
	}
}
