package provider

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/twstock-scanner/internal/logger"
	"github.com/rxtech-lab/twstock-scanner/internal/types"
	"github.com/rxtech-lab/twstock-scanner/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultFinMindBaseURL = "https://api.finmindtrade.com/api/v4"
	finMindDataset        = "TaiwanStockPrice"
	finMindSuccess        = "success"
)

// FinMindConfig configures the FinMind REST client.
type FinMindConfig struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	// BreakerFailures consecutive failures open the circuit for BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// DefaultFinMindConfig returns settings that stay inside the free tier quota.
func DefaultFinMindConfig() FinMindConfig {
	return FinMindConfig{
		BaseURL:           DefaultFinMindBaseURL,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 2,
		Burst:             1,
		MaxRetries:        2,
		BreakerFailures:   5,
		BreakerCooldown:   60 * time.Second,
	}
}

type finMindResponse struct {
	Msg    string       `json:"msg"`
	Status int          `json:"status"`
	Data   []finMindRow `json:"data"`
}

type finMindRow struct {
	Date          string  `json:"date"`
	StockID       string  `json:"stock_id"`
	TradingVolume float64 `json:"Trading_Volume"`
	Open          float64 `json:"open"`
	Max           float64 `json:"max"`
	Min           float64 `json:"min"`
	Close         float64 `json:"close"`
}

// FinMindClient fetches TaiwanStockPrice bars from the FinMind data API.
// Requests are rate limited and pass through a circuit breaker so a failing
// API is not hammered once per symbol.
type FinMindClient struct {
	http    *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	token   string
	logger  *logger.Logger
}

func NewFinMindClient(config FinMindConfig, log *logger.Logger) (Source, error) {
	defaults := DefaultFinMindConfig()

	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}

	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaults.RequestsPerSecond
	}

	if config.Burst <= 0 {
		config.Burst = defaults.Burst
	}

	if config.BreakerFailures == 0 {
		config.BreakerFailures = defaults.BreakerFailures
	}

	if config.BreakerCooldown <= 0 {
		config.BreakerCooldown = defaults.BreakerCooldown
	}

	limiter := rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)

	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetRetryCount(config.MaxRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r != nil && r.Request != nil && r.Request.Context().Err() != nil {
				return false
			}

			return err != nil ||
				r.StatusCode() == http.StatusTooManyRequests ||
				r.StatusCode() >= http.StatusInternalServerError
		}).
		OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			// FetchDailyBars waits before the first attempt; retries wait here
			if req.Attempt <= 1 {
				return nil
			}

			log.Debug("Retrying finmind request", zap.Int("attempt", req.Attempt), zap.String("url", req.URL))

			return limiter.Wait(req.Context())
		})

	failures := config.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "finmind",
		Timeout: config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// a symbol without data is not an API failure
			return err == nil || errors.HasCode(err, errors.ErrCodeNoDataFound)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker changed state",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &FinMindClient{
		http:    client,
		limiter: limiter,
		breaker: breaker,
		token:   config.Token,
		logger:  log,
	}, nil
}

// FetchDailyBars implements Source.
func (c *FinMindClient) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]types.MarketData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeRateLimited, err, "rate limiter wait for %s", symbol)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, symbol, start, end)
	})
	if err != nil {
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Wrapf(errors.ErrCodeCircuitOpen, err, "finmind circuit open, skipping %s", symbol)
		}

		return nil, err
	}

	bars, _ := result.([]types.MarketData)

	return bars, nil
}

func (c *FinMindClient) fetch(ctx context.Context, symbol string, start, end time.Time) ([]types.MarketData, error) {
	params := map[string]string{
		"dataset": finMindDataset,
		"data_id": symbol,
	}

	if !start.IsZero() {
		params["start_date"] = start.Format(time.DateOnly)
	}

	if !end.IsZero() {
		params["end_date"] = end.Format(time.DateOnly)
	}

	if c.token != "" {
		params["token"] = c.token
	}

	var body finMindResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&body).
		Get("/data")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "finmind request for %s failed", symbol)
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() == http.StatusPaymentRequired:
		return nil, errors.Newf(errors.ErrCodeRateLimited, "finmind quota exceeded for %s: status %d", symbol, resp.StatusCode())
	case resp.IsError():
		return nil, errors.Newf(errors.ErrCodeMarketDataFetchFailed, "finmind returned status %d for %s", resp.StatusCode(), symbol)
	}

	if body.Msg != finMindSuccess {
		return nil, errors.Newf(errors.ErrCodeMarketDataFetchFailed, "finmind error for %s: %s", symbol, body.Msg)
	}

	if len(body.Data) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoDataFound, "finmind has no bars for %s", symbol)
	}

	bars := make([]types.MarketData, 0, len(body.Data))

	for _, row := range body.Data {
		day, err := time.Parse(time.DateOnly, row.Date)
		if err != nil {
			c.logger.Debug("Skipping FinMind row with bad date", zap.String("symbol", symbol), zap.String("date", row.Date))

			continue
		}

		bars = append(bars, types.MarketData{
			Time:   day,
			Symbol: symbol,
			Open:   row.Open,
			High:   row.Max,
			Low:    row.Min,
			Close:  row.Close,
			Volume: row.TradingVolume,
		})
	}

	return bars, nil
}
