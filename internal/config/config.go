// Package config loads the scanner configuration from YAML, applies
// environment overrides and validates the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/twstock-scanner/internal/indicator"
	"github.com/rxtech-lab/twstock-scanner/internal/ledger"
	"github.com/rxtech-lab/twstock-scanner/internal/ledger/commission_fee"
	"github.com/rxtech-lab/twstock-scanner/internal/position"
	"github.com/rxtech-lab/twstock-scanner/internal/signal"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata/provider"
)

// Environment variables that override the file.
const (
	EnvFinMindToken  = "FINMIND_API_TOKEN"
	EnvPolygonAPIKey = "POLYGON_API_KEY"
	EnvLogLevel      = "TWSCAN_LOG_LEVEL"
)

// Config is the complete scanner configuration.
type Config struct {
	Data       DataConfig            `yaml:"data" json:"data" jsonschema:"title=Data"`
	Universe   UniverseConfig        `yaml:"universe" json:"universe" jsonschema:"title=Universe"`
	Scan       ScanConfig            `yaml:"scan" json:"scan" jsonschema:"title=Scan"`
	Indicators indicator.Params      `yaml:"indicators" json:"indicators" jsonschema:"title=Indicators"`
	Strategy   signal.Params         `yaml:"strategy" json:"strategy" jsonschema:"title=Strategy"`
	Stops      position.Params       `yaml:"stops" json:"stops" jsonschema:"title=Stops"`
	Risk       ledger.Params         `yaml:"risk" json:"risk" jsonschema:"title=Risk"`
	Costs      commission_fee.Config `yaml:"costs" json:"costs" jsonschema:"title=Costs"`
	Fetch      FetchConfig           `yaml:"fetch" json:"fetch" jsonschema:"title=Fetch"`
	Output     OutputConfig          `yaml:"output" json:"output" jsonschema:"title=Output"`
	Log        LogConfig             `yaml:"log" json:"log" jsonschema:"title=Log"`
	Dashboard  DashboardConfig       `yaml:"dashboard" json:"dashboard" jsonschema:"title=Dashboard"`
}

type DataConfig struct {
	Dir         string `yaml:"dir" json:"dir" jsonschema:"title=Data Directory,description=Where per-symbol history files live,default=data" validate:"required"`
	IndexSymbol string `yaml:"index_symbol" json:"index_symbol" jsonschema:"title=Index Symbol,description=Market index used for the regime filter,default=TAIEX" validate:"required"`
}

// UniverseConfig lists the screened symbols, from a file, inline or both.
type UniverseConfig struct {
	File    string   `yaml:"file" json:"file" jsonschema:"title=Universe File,description=Text file with one symbol per line" validate:"required_without=Symbols"`
	Symbols []string `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Inline symbols appended after the file" validate:"dive,required"`
}

type ScanConfig struct {
	MinHistoryBars int `yaml:"min_history_bars" json:"min_history_bars" jsonschema:"title=Min History Bars,description=Bars a symbol needs before it can be entered,default=350" validate:"gte=2"`
	LookbackDays   int `yaml:"lookback_days" json:"lookback_days" jsonschema:"title=Lookback Days,description=Calendar days of history fetched per symbol,default=730" validate:"gte=1"`
}

type FetchConfig struct {
	Provider    provider.ProviderType `yaml:"provider" json:"provider" jsonschema:"title=Provider,enum=finmind,enum=polygon,enum=local,default=finmind" validate:"required,oneof=finmind polygon local"`
	Concurrency int                   `yaml:"concurrency" json:"concurrency" jsonschema:"title=Concurrency,description=Symbols fetched in parallel,default=4" validate:"gte=1,lte=64"`
	FinMind     FinMindConfig         `yaml:"finmind" json:"finmind" jsonschema:"title=FinMind"`
	Polygon     PolygonConfig         `yaml:"polygon" json:"polygon" jsonschema:"title=Polygon"`
}

type FinMindConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url" jsonschema:"title=Base URL,default=https://api.finmindtrade.com/api/v4" validate:"omitempty,url"`
	Token             string        `yaml:"token" json:"token" jsonschema:"title=Token,description=API token. FINMIND_API_TOKEN overrides it"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout" jsonschema:"title=Timeout,default=30s" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second" jsonschema:"title=Requests Per Second,default=2" validate:"gte=0"`
	Burst             int           `yaml:"burst" json:"burst" jsonschema:"title=Burst,default=1" validate:"gte=0"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries" jsonschema:"title=Max Retries,default=2" validate:"gte=0,lte=10"`
	BreakerFailures   uint32        `yaml:"breaker_failures" json:"breaker_failures" jsonschema:"title=Breaker Failures,description=Consecutive failures that open the circuit,default=5"`
	BreakerCooldown   time.Duration `yaml:"breaker_cooldown" json:"breaker_cooldown" jsonschema:"title=Breaker Cooldown,default=60s" validate:"gte=0"`
}

type PolygonConfig struct {
	APIKey string `yaml:"api_key" json:"api_key" jsonschema:"title=API Key,description=POLYGON_API_KEY overrides it"`
}

type OutputConfig struct {
	StateFile     string `yaml:"state_file" json:"state_file" jsonschema:"title=State File,default=portfolio_state.json" validate:"required"`
	ReportDir     string `yaml:"report_dir" json:"report_dir" jsonschema:"title=Report Directory,default=reports" validate:"required"`
	ExportParquet bool   `yaml:"export_parquet" json:"export_parquet" jsonschema:"title=Export Parquet,description=Also export trades and the equity curve as parquet,default=false"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level" jsonschema:"title=Level,enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `yaml:"dir" json:"dir" jsonschema:"title=Log Directory,description=Daily scan_YYYYMMDD.log files are written here,default=logs"`
}

type DashboardConfig struct {
	Addr string `yaml:"addr" json:"addr" jsonschema:"title=Listen Address,default=127.0.0.1:8080" validate:"required"`
}

// Default returns the production configuration.
func Default() Config {
	return Config{
		Data: DataConfig{
			Dir:         "data",
			IndexSymbol: "TAIEX",
		},
		Universe: UniverseConfig{
			File: "universe.txt",
		},
		Scan: ScanConfig{
			MinHistoryBars: 350,
			LookbackDays:   730,
		},
		Indicators: indicator.DefaultParams(),
		Strategy:   signal.DefaultParams(),
		Stops:      position.DefaultParams(),
		Risk:       ledger.DefaultParams(),
		Costs:      commission_fee.DefaultConfig(),
		Fetch: FetchConfig{
			Provider:    provider.ProviderFinMind,
			Concurrency: 4,
			FinMind: FinMindConfig{
				BaseURL:           provider.DefaultFinMindBaseURL,
				Timeout:           30 * time.Second,
				RequestsPerSecond: 2,
				Burst:             1,
				MaxRetries:        2,
				BreakerFailures:   5,
				BreakerCooldown:   60 * time.Second,
			},
		},
		Output: OutputConfig{
			StateFile: "portfolio_state.json",
			ReportDir: "reports",
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "logs",
		},
		Dashboard: DashboardConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Load reads path over the defaults. An empty path uses the defaults only.
// A .env file next to the config, or in the working directory, is loaded
// before the environment overrides are applied. Variables already set in the
// environment win over .env.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config %s", path)
		}
	}

	if err := loadDotEnv(path); err != nil {
		return Config{}, err
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(configPath), ".env")}, candidates...)
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}

		if err := godotenv.Load(candidate); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to load %s", candidate)
		}

		return nil
	}

	return nil
}

// ApplyEnv copies credentials and the log level from the environment.
func (c *Config) ApplyEnv() {
	if token := os.Getenv(EnvFinMindToken); token != "" {
		c.Fetch.FinMind.Token = token
	}

	if key := os.Getenv(EnvPolygonAPIKey); key != "" {
		c.Fetch.Polygon.APIKey = key
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

// Validate checks the struct tags plus the rules that span sections.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if c.Fetch.Provider == provider.ProviderPolygon && c.Fetch.Polygon.APIKey == "" {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "polygon provider needs an api key (set %s)", EnvPolygonAPIKey)
	}

	if c.Costs.Broker == commission_fee.BrokerCustom && c.Costs.BuyRate == 0 && c.Costs.SellRate == 0 && c.Costs.TaxRate == 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "custom broker needs at least one non-zero rate")
	}

	return nil
}

// ProviderConfig converts the fetch section into provider settings.
func (c Config) ProviderConfig() provider.Config {
	f := c.Fetch.FinMind

	return provider.Config{
		FinMind: provider.FinMindConfig{
			BaseURL:           f.BaseURL,
			Token:             f.Token,
			Timeout:           f.Timeout,
			RequestsPerSecond: f.RequestsPerSecond,
			Burst:             f.Burst,
			MaxRetries:        f.MaxRetries,
			BreakerFailures:   f.BreakerFailures,
			BreakerCooldown:   f.BreakerCooldown,
		},
		Polygon: provider.PolygonConfig{APIKey: c.Fetch.Polygon.APIKey},
		DataDir: c.Data.Dir,
	}
}

// String renders the configuration as YAML with credentials masked.
func (c Config) String() string {
	masked := c
	if masked.Fetch.FinMind.Token != "" {
		masked.Fetch.FinMind.Token = "***"
	}

	if masked.Fetch.Polygon.APIKey != "" {
		masked.Fetch.Polygon.APIKey = "***"
	}

	out, err := yaml.Marshal(masked)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}

	return string(out)
}
