package geo

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
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/8adimka/Go_Weather_Assistant/internal/circuitbreaker"
	"github.com/8adimka/Go_Weather_Assistant/internal/errorsx"
)

// GeocodeTimeout bounds one remote lookup.
const GeocodeTimeout = 10 * time.Second

// Remote resolves a city that is neither in the static table nor cached.
type Remote interface {
	Geocode(ctx context.Context, city string) (Coordinate, error)
}

// AmapClient calls the AMap v3 geocoding endpoint.
type AmapClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

type AmapOption func(*AmapClient)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(c *http.Client) AmapOption {
	return func(a *AmapClient) { a.httpClient = c }
}

// WithBreaker guards remote calls with a circuit breaker.
func WithBreaker(b *circuitbreaker.CircuitBreaker) AmapOption {
	return func(a *AmapClient) { a.breaker = b }
}

func NewAmapClient(apiKey, baseURL string, opts ...AmapOption) *AmapClient {
	c := &AmapClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   GeocodeTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type amapResponse struct {
	Status   string `json:"status"`
	Count    string `json:"count"`
	Info     string `json:"info"`
	Geocodes []struct {
		FormattedAddress string `json:"formatted_address"`
		Location         string `json:"location"`
	} `json:"geocodes"`
}

// Geocode returns ErrNotFound when AMap answers without a usable result and
// ErrRetrieval for transport, status-code and decoding failures.
func (a *AmapClient) Geocode(ctx context.Context, city string) (Coordinate, error) {
	if a.breaker == nil {
		return a.geocode(ctx, city)
	}

	var coord Coordinate
	err := a.breaker.Execute(func() error {
		var err error
		coord, err = a.geocode(ctx, city)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return Coordinate{}, errorsx.Wrap(errorsx.ErrRetrieval, "amap geocoder unavailable: circuit open")
	}
	return coord, err
}

func (a *AmapClient) geocode(ctx context.Context, city string) (Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, GeocodeTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("key", a.apiKey)
	params.Set("address", city)
	params.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Coordinate{}, errorsx.Wrapf(errorsx.ErrRetrieval, "build geocode request: %v", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Coordinate{}, errorsx.Wrapf(errorsx.ErrRetrieval, "geocode %q: %v", city, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Coordinate{}, errorsx.Wrapf(errorsx.ErrRetrieval, "geocode %q: http status %d", city, resp.StatusCode)
	}

	var body amapResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Coordinate{}, errorsx.Wrapf(errorsx.ErrRetrieval, "decode geocode response for %q: %v", city, err)
	}

	if body.Status != "1" || body.Count == "0" || len(body.Geocodes) == 0 || body.Geocodes[0].Location == "" {
		slog.WarnContext(ctx, "City not found by geocoder", "city", city, "status", body.Status, "info", body.Info)
		return Coordinate{}, errorsx.Wrapf(errorsx.ErrNotFound, "%s", city)
	}

	coord, err := parseLocation(body.Geocodes[0].Location)
	if err != nil {
		return Coordinate{}, errorsx.Wrapf(errorsx.ErrRetrieval, "geocode %q: %v", city, err)
	}
	return coord, nil
}

// parseLocation reads AMap's "lon,lat" pair.
func parseLocation(s string) (Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("malformed location %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("malformed longitude in %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("malformed latitude in %q", s)
	}
	c := Coordinate{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("location %q out of range", s)
	}
	return c, nil
}
