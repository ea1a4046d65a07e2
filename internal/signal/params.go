package signal

// Params holds the strategy thresholds and rule switches.
type Params struct {
	ADXEntryThreshold     float64 `yaml:"adx_entry_threshold" json:"adx_entry_threshold" jsonschema:"title=ADX Entry Threshold,description=ADX must be above this value to enter,default=14" validate:"gte=0,lte=100"`
	RSIEntryThreshold     float64 `yaml:"rsi_entry_threshold" json:"rsi_entry_threshold" jsonschema:"title=RSI Entry Threshold,description=RSI must be above this value to enter,default=66" validate:"gte=0,lte=100"`
	RSIExitThreshold      float64 `yaml:"rsi_exit_threshold" json:"rsi_exit_threshold" jsonschema:"title=RSI Exit Threshold,description=An open position exits when RSI falls below this value,default=20" validate:"gte=0,lte=100"`
	UseWeeklyMACD         bool    `yaml:"use_weekly_macd" json:"use_weekly_macd" jsonschema:"title=Use Weekly MACD,description=Require a positive weekly MACD histogram,default=true"`
	UseVolume             bool    `yaml:"use_volume" json:"use_volume" jsonschema:"title=Use Volume,description=Require volume above its moving average,default=true"`
	VolumeSpikeMultiplier float64 `yaml:"volume_spike_multiplier" json:"volume_spike_multiplier" jsonschema:"title=Volume Spike Multiplier,default=1" validate:"gt=0"`
	UseMACDExit           bool    `yaml:"use_macd_exit" json:"use_macd_exit" jsonschema:"title=Use MACD Exit,description=Exit on a daily MACD histogram death cross,default=true"`
	UseTrendFilter        bool    `yaml:"use_trend_filter" json:"use_trend_filter" jsonschema:"title=Use Trend Filter,description=Require the close above the trend SMA,default=false"`
	UseBreakout           bool    `yaml:"use_breakout" json:"use_breakout" jsonschema:"title=Use Breakout,description=Require the close above the previous rolling high,default=false"`
}

// DefaultParams returns the Chaos King thresholds.
func DefaultParams() Params {
	return Params{
		ADXEntryThreshold:     14,
		RSIEntryThreshold:     66,
		RSIExitThreshold:      20,
		UseWeeklyMACD:         true,
		UseVolume:             true,
		VolumeSpikeMultiplier: 1,
		UseMACDExit:           true,
		UseTrendFilter:        false,
		UseBreakout:           false,
	}
}
