package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/8adimka/Go_Weather_Assistant/internal/circuitbreaker"
	"github.com/8adimka/Go_Weather_Assistant/internal/errorsx"
	"github.com/8adimka/Go_Weather_Assistant/internal/geo"
	"github.com/8adimka/Go_Weather_Assistant/internal/metrics"
)

// FetchTimeout bounds one forecast request.
const FetchTimeout = 30 * time.Second

// ForecastDay is one day of a daily forecast, offset 0 being today.
type ForecastDay struct {
	Date                     string  `json:"date"`
	TempMin                  float64 `json:"temp_min"`
	TempMax                  float64 `json:"temp_max"`
	SkyCode                  string  `json:"sky_code"`
	PrecipitationProbability float64 `json:"precipitation_probability"`
	HumidityAvg              float64 `json:"humidity_avg"`
	WindAvgSpeed             float64 `json:"wind_avg_speed"`
}

// Provider fetches daily forecasts for a coordinate.
type Provider interface {
	FetchForecast(ctx context.Context, coord geo.Coordinate, days int) ([]ForecastDay, error)
}

// CaiyunClient talks to the Caiyun daily forecast API.
type CaiyunClient struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	breaker     *circuitbreaker.CircuitBreaker
	metrics     *metrics.Metrics
}

type ClientOption func(*CaiyunClient)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cc *CaiyunClient) { cc.httpClient = c }
}

// WithRateLimit caps outgoing requests per second. Zero disables the limiter.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(cc *CaiyunClient) {
		if perSecond <= 0 {
			cc.rateLimiter = nil
			return
		}
		cc.rateLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithBreaker(b *circuitbreaker.CircuitBreaker) ClientOption {
	return func(cc *CaiyunClient) { cc.breaker = b }
}

func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(cc *CaiyunClient) { cc.metrics = m }
}

func NewCaiyunClient(apiKey, baseURL string, opts ...ClientOption) *CaiyunClient {
	c := &CaiyunClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   FetchTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		rateLimiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type caiyunValue struct {
	Date  string  `json:"date"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
	Avg   float64 `json:"avg"`
	Value string  `json:"value"`
}

type caiyunResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Result *struct {
		Daily *struct {
			Status        string        `json:"status"`
			Temperature   []caiyunValue `json:"temperature"`
			Skycon        []caiyunValue `json:"skycon"`
			Precipitation []struct {
				Date        string  `json:"date"`
				Probability float64 `json:"probability"`
			} `json:"precipitation"`
			Humidity []caiyunValue `json:"humidity"`
			Wind     []struct {
				Date string `json:"date"`
				Avg  struct {
					Speed     float64 `json:"speed"`
					Direction float64 `json:"direction"`
				} `json:"avg"`
			} `json:"wind"`
		} `json:"daily"`
	} `json:"result"`
}

// FetchForecast requests ClampDays(days) days for coord. HTTP 429 yields
// ErrRateLimited; every other failure, including a timeout or a body that
// does not decode, yields ErrRetrieval. Nothing is retried.
func (c *CaiyunClient) FetchForecast(ctx context.Context, coord geo.Coordinate, days int) ([]ForecastDay, error) {
	start := time.Now()
	var out []ForecastDay
	var err error

	if c.breaker == nil {
		out, err = c.fetch(ctx, coord, days)
	} else {
		err = c.breaker.Execute(func() error {
			var ferr error
			out, ferr = c.fetch(ctx, coord, days)
			return ferr
		})
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			err = errorsx.Wrap(errorsx.ErrRetrieval, "forecast service unavailable: circuit open")
		}
	}

	c.metrics.RecordForecast(ctx, time.Since(start), err)
	return out, err
}

func (c *CaiyunClient) fetch(ctx context.Context, coord geo.Coordinate, days int) ([]ForecastDay, error) {
	steps := ClampDays(days)

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, errorsx.Wrapf(errorsx.ErrRetrieval, "forecast limiter: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/%s/%s,%s/daily?%s",
		c.baseURL,
		url.PathEscape(c.apiKey),
		geo.FormatDegrees(coord.Longitude),
		geo.FormatDegrees(coord.Latitude),
		url.Values{"dailysteps": {strconv.Itoa(steps)}}.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errorsx.Wrapf(errorsx.ErrRetrieval, "build forecast request: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errorsx.Wrapf(errorsx.ErrRetrieval, "forecast request: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errorsx.Wrap(errorsx.ErrRateLimited, "forecast API quota exceeded")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errorsx.Wrapf(errorsx.ErrRetrieval, "forecast API returned %d", resp.StatusCode)
	}

	var body caiyunResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errorsx.Wrapf(errorsx.ErrRetrieval, "decode forecast: %v", err)
	}
	if body.Status != "ok" {
		return nil, errorsx.Wrapf(errorsx.ErrRetrieval, "forecast status %q %s", body.Status, body.Error)
	}
	if body.Result == nil || body.Result.Daily == nil {
		return nil, errorsx.Wrap(errorsx.ErrRetrieval, "forecast response has no daily section")
	}

	d := body.Result.Daily
	n := minLen(len(d.Temperature), len(d.Skycon), len(d.Precipitation), len(d.Humidity), len(d.Wind))
	out := make([]ForecastDay, n)
	for i := 0; i < n; i++ {
		out[i] = ForecastDay{
			Date:                     datePart(d.Temperature[i].Date),
			TempMin:                  d.Temperature[i].Min,
			TempMax:                  d.Temperature[i].Max,
			SkyCode:                  d.Skycon[i].Value,
			PrecipitationProbability: d.Precipitation[i].Probability,
			HumidityAvg:              d.Humidity[i].Avg,
			WindAvgSpeed:             d.Wind[i].Avg.Speed,
		}
	}

	slog.DebugContext(ctx, "Fetched forecast", "coordinate", coord.String(), "requested", steps, "returned", n)
	return out, nil
}

func minLen(lengths ...int) int {
	m := lengths[0]
	for _, l := range lengths[1:] {
		if l < m {
			m = l
		}
	}
	return m
}

// datePart keeps the YYYY-MM-DD prefix of an ISO timestamp.
func datePart(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
