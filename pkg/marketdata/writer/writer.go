package writer

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

// MarketDataWriter defines the interface for writing a symbol's daily history.
type MarketDataWriter interface {
	// Initialize sets up the writer and loads any history already at the output path.
	Initialize() error
	// LastDate returns the latest stored bar date, if any.
	LastDate() (optional.Option[time.Time], error)
	// Write stages a single bar. A bar for an already stored day replaces it.
	Write(data types.MarketData) error
	// Finalize merges the staged bars into the output file.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}
