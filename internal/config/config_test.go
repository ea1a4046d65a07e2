package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/twstock-scanner/internal/ledger/commission_fee"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata/provider"
)

type ConfigTestSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
	suite.T().Setenv(EnvFinMindToken, "")
	suite.T().Setenv(EnvPolygonAPIKey, "")
	suite.T().Setenv(EnvLogLevel, "")
}

func (suite *ConfigTestSuite) write(name, content string) string {
	path := filepath.Join(suite.dir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o644))

	return path
}

func (suite *ConfigTestSuite) TestDefaultsAreValid() {
	cfg := Default()
	suite.NoError(cfg.Validate())

	suite.Equal(24, cfg.Indicators.MACDFast)
	suite.Equal(60, cfg.Indicators.MACDSlow)
	suite.Equal(200, cfg.Indicators.RegimeSMAPeriod)
	suite.InDelta(66.0, cfg.Strategy.RSIEntryThreshold, 1e-9)
	suite.InDelta(10.0, cfg.Stops.ATRMultiplier, 1e-9)
	suite.InDelta(-0.40, cfg.Stops.HardStopPct, 1e-9)
	suite.InDelta(5_000_000.0, cfg.Risk.InitialCapital, 1e-9)
	suite.Equal(6, cfg.Risk.MaxPositions)
	suite.Equal(int64(1000), cfg.Risk.LotSize)
	suite.Equal(commission_fee.BrokerTaiwanStandard, cfg.Costs.Broker)
	suite.Equal(350, cfg.Scan.MinHistoryBars)
	suite.Equal(730, cfg.Scan.LookbackDays)
	suite.Equal("TAIEX", cfg.Data.IndexSymbol)
}

func (suite *ConfigTestSuite) TestLoadEmptyPathUsesDefaults() {
	cfg, err := Load("")
	suite.Require().NoError(err)
	suite.Equal(Default().Risk, cfg.Risk)
}

func (suite *ConfigTestSuite) TestLoadOverridesDefaults() {
	path := suite.write("config.yaml", `
universe:
  symbols: ["2330", "2317"]
  file: ""
risk:
  max_positions: 3
  risk_per_trade: 0.01
strategy:
  use_trend_filter: true
fetch:
  provider: local
  concurrency: 8
  finmind:
    timeout: 10s
    breaker_cooldown: 2m
costs:
  broker: custom
  buy_rate: 0.001
  sell_rate: 0.001
  tax_rate: 0.001
`)

	cfg, err := Load(path)
	suite.Require().NoError(err)

	suite.Equal([]string{"2330", "2317"}, cfg.Universe.Symbols)
	suite.Equal(3, cfg.Risk.MaxPositions)
	suite.InDelta(0.01, cfg.Risk.RiskPerTrade, 1e-9)
	// untouched keys keep their defaults
	suite.Equal(int64(1000), cfg.Risk.LotSize)
	suite.True(cfg.Strategy.UseTrendFilter)
	suite.True(cfg.Strategy.UseWeeklyMACD)
	suite.Equal(provider.ProviderLocal, cfg.Fetch.Provider)
	suite.Equal(10*time.Second, cfg.Fetch.FinMind.Timeout)
	suite.Equal(2*time.Minute, cfg.Fetch.FinMind.BreakerCooldown)
	suite.Equal(commission_fee.BrokerCustom, cfg.Costs.Broker)
	suite.InDelta(0.001, cfg.Costs.TaxRate, 1e-9)
}

func (suite *ConfigTestSuite) TestValidationErrors() {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero capital", func(c *Config) { c.Risk.InitialCapital = 0 }},
		{"no positions", func(c *Config) { c.Risk.MaxPositions = 0 }},
		{"unknown provider", func(c *Config) { c.Fetch.Provider = "binance" }},
		{"positive hard stop", func(c *Config) { c.Stops.HardStopPct = 0.1 }},
		{"slow macd not slower", func(c *Config) { c.Indicators.MACDSlow = c.Indicators.MACDFast }},
		{"no universe", func(c *Config) { c.Universe.File = "" }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"polygon without key", func(c *Config) { c.Fetch.Provider = provider.ProviderPolygon }},
		{"custom broker without rates", func(c *Config) {
			c.Costs.Broker = commission_fee.BrokerCustom
			c.Costs.Rates = commission_fee.Rates{}
		}},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			cfg := Default()
			tc.mutate(&cfg)

			err := cfg.Validate()
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}

func (suite *ConfigTestSuite) TestLoadBadYAML() {
	path := suite.write("config.yaml", "risk: [unclosed")

	_, err := Load(path)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(suite.dir, "missing.yaml"))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestEnvOverrides() {
	suite.T().Setenv(EnvFinMindToken, "env-token")
	suite.T().Setenv(EnvLogLevel, "debug")

	cfg, err := Load("")
	suite.Require().NoError(err)
	suite.Equal("env-token", cfg.Fetch.FinMind.Token)
	suite.Equal("debug", cfg.Log.Level)
	suite.Equal("env-token", cfg.ProviderConfig().FinMind.Token)
}

func (suite *ConfigTestSuite) TestDotEnvNextToConfig() {
	suite.write(".env", "POLYGON_API_KEY=from-dotenv\n")
	path := suite.write("config.yaml", "fetch:\n  provider: polygon\n")

	// godotenv never overrides a variable that is already set, even to ""
	suite.Require().NoError(os.Unsetenv(EnvPolygonAPIKey))

	cfg, err := Load(path)
	suite.Require().NoError(err)
	suite.Equal("from-dotenv", cfg.Fetch.Polygon.APIKey)
}

func (suite *ConfigTestSuite) TestProviderConfig() {
	cfg := Default()
	cfg.Data.Dir = "/srv/history"

	pc := cfg.ProviderConfig()
	suite.Equal("/srv/history", pc.DataDir)
	suite.Equal(provider.DefaultFinMindBaseURL, pc.FinMind.BaseURL)
	suite.Equal(uint32(5), pc.FinMind.BreakerFailures)
}

func (suite *ConfigTestSuite) TestStringMasksSecrets() {
	cfg := Default()
	cfg.Fetch.FinMind.Token = "secret-token"

	out := cfg.String()
	suite.NotContains(out, "secret-token")
	suite.Contains(out, "***")
	suite.Contains(out, "max_positions: 6")
}

func (suite *ConfigTestSuite) TestGenerateSchema() {
	schema, err := GenerateSchema()
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &decoded))

	props, ok := decoded["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(props, "risk")
	suite.Contains(props, "stops")

	fetch := props["fetch"].(map[string]any)["properties"].(map[string]any)
	finmind := fetch["finmind"].(map[string]any)["properties"].(map[string]any)
	timeout := finmind["timeout"].(map[string]any)
	suite.Equal("string", timeout["type"])
}
