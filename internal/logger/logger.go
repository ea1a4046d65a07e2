package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFilePrefix is the file name prefix of the daily scan logs.
const LogFilePrefix = "scan_"

// Logger wraps the zap logger with additional functionality
type Logger struct {
	*zap.Logger
}

// Options controls where and how verbosely the logger writes.
type Options struct {
	// Level is a zap level name such as "debug" or "info". Empty means info.
	Level string
	// LogDir, when set, adds a daily file scan_YYYYMMDD.log next to stdout.
	LogDir string
	// Now is used to name the daily file. Defaults to time.Now.
	Now func() time.Time
}

// NewLogger creates a new logger instance with production configuration
func NewLogger() (*Logger, error) {
	return NewLoggerWithOptions(Options{})
}

// NewLoggerWithOptions creates a production logger writing to stdout and, if
// configured, to the daily log file.
func NewLoggerWithOptions(opts Options) (*Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	level := zapcore.InfoLevel

	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}

		level = parsed
	}

	config.Level = zap.NewAtomicLevelAt(level)

	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}

		config.OutputPaths = append(config.OutputPaths, DailyLogPath(opts.LogDir, now()))
	}

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger: zapLogger,
	}, nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// DailyLogPath returns the log file path for the given day.
func DailyLogPath(dir string, day time.Time) string {
	return filepath.Join(dir, LogFilePrefix+day.Format("20060102")+".log")
}

// LatestLogFile returns the newest daily log file in dir, or "" when there is none.
func LatestLogFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}

		return "", fmt.Errorf("failed to list log directory: %w", err)
	}

	var names []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, LogFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}

		names = append(names, name)
	}

	if len(names) == 0 {
		return "", nil
	}

	// the date stamp sorts lexically
	sort.Strings(names)

	return filepath.Join(dir, names[len(names)-1]), nil
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	if l.Logger != nil {
		return l.Logger.Sync()
	}

	return nil
}
