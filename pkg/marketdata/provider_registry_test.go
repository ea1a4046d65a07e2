package marketdata

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ProviderRegistryTestSuite struct {
	suite.Suite
}

func TestProviderRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(ProviderRegistryTestSuite))
}

func (suite *ProviderRegistryTestSuite) TestGetSupportedProviders() {
	suite.Equal([]string{"finmind", "local", "polygon"}, GetSupportedProviders())
}

func (suite *ProviderRegistryTestSuite) TestGetProviderInfo() {
	tests := []struct {
		name         string
		displayName  string
		requiresAuth bool
		envVar       string
	}{
		{"finmind", "FinMind", false, "FINMIND_API_TOKEN"},
		{"polygon", "Polygon.io", true, "POLYGON_API_KEY"},
		{"local", "Local history", false, ""},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			info, err := GetProviderInfo(tc.name)
			suite.NoError(err)
			suite.Equal(tc.name, info.Name)
			suite.Equal(tc.displayName, info.DisplayName)
			suite.Equal(tc.requiresAuth, info.RequiresAuth)
			suite.Equal(tc.envVar, info.EnvVar)
			suite.NotEmpty(info.Description)
		})
	}
}

func (suite *ProviderRegistryTestSuite) TestGetProviderInfo_InvalidProvider() {
	_, err := GetProviderInfo("binance")

	suite.Error(err)
	suite.Contains(err.Error(), "unsupported provider")
}
