package marketdata

import (
	"fmt"
	"io"
	"time"

	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata/provider"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType provider.ProviderType `validate:"required,oneof=finmind polygon local"`
	DataPath     string                `validate:"required"`
	Provider     provider.Config
	// ProgressOutput receives the progress bar. Nil means stderr.
	ProgressOutput io.Writer `validate:"-"`
}

// DownloadParams holds the parameters of a history update.
type DownloadParams struct {
	Symbols []string `validate:"required,min=1,dive,required"`
	// EndDate is the last day to fetch, inclusive.
	EndDate time.Time `validate:"required"`
	// LookbackDays bounds the first download of a symbol without history.
	LookbackDays int `validate:"required,min=1"`
}

// ParseDate accepts YYYY-MM-DD or RFC3339.
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339: %w", value, err)
	}

	return t, nil
}
