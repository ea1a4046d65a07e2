package marketdata

import (
	"fmt"
	"sort"

	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata/provider"
)

// ProviderInfo contains metadata about a market data provider.
type ProviderInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description"`
	RequiresAuth bool   `json:"requiresAuth"`
	// EnvVar names the environment variable that carries the credential.
	EnvVar string `json:"envVar,omitempty"`
}

var providerRegistry = map[provider.ProviderType]ProviderInfo{
	provider.ProviderFinMind: {
		Name:         string(provider.ProviderFinMind),
		DisplayName:  "FinMind",
		Description:  "Taiwan stock daily prices from the FinMind open data API (TaiwanStockPrice dataset)",
		RequiresAuth: false,
		EnvVar:       "FINMIND_API_TOKEN",
	},
	provider.ProviderPolygon: {
		Name:         string(provider.ProviderPolygon),
		DisplayName:  "Polygon.io",
		Description:  "Daily aggregates from Polygon.io, useful for Taiwan ADRs listed in the US",
		RequiresAuth: true,
		EnvVar:       "POLYGON_API_KEY",
	},
	provider.ProviderLocal: {
		Name:         string(provider.ProviderLocal),
		DisplayName:  "Local history",
		Description:  "Per-symbol parquet or CSV history files in the data directory",
		RequiresAuth: false,
	},
}

// GetSupportedProviders returns the names of all supported providers, sorted.
func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	sort.Strings(providers)

	return providers
}

// GetProviderInfo returns metadata for a specific provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[provider.ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, fmt.Errorf("unsupported provider: %s", providerName)
	}

	return info, nil
}
