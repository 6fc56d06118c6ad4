package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/8adimka/Go_Weather_Assistant/internal/geo"
	"github.com/8adimka/Go_Weather_Assistant/internal/redisx"
)

// Service fronts a Provider with an optional Redis cache. Only successful
// responses are cached; errors always come from the provider.
type Service struct {
	provider Provider
	cache    *redisx.Cache
}

// NewService wraps provider. A nil cache disables caching.
func NewService(provider Provider, cache *redisx.Cache) *Service {
	return &Service{provider: provider, cache: cache}
}

func (s *Service) FetchForecast(ctx context.Context, coord geo.Coordinate, days int) ([]ForecastDay, error) {
	if s.cache == nil {
		return s.provider.FetchForecast(ctx, coord, days)
	}

	steps := ClampDays(days)
	cacheKey := s.cache.Key(fmt.Sprintf("%s:%d", coord.String(), steps))

	var cached []ForecastDay
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		slog.DebugContext(ctx, "Forecast served from cache", "coordinate", coord.String(), "days", steps)
		return cached, nil
	} else if !errors.Is(err, redisx.ErrCacheMiss) {
		slog.WarnContext(ctx, "Cache error, proceeding without cache", "error", err)
	}

	forecast, err := s.provider.FetchForecast(ctx, coord, steps)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, forecast); err != nil {
		slog.WarnContext(ctx, "Failed to cache forecast", "error", err)
	}
	return forecast, nil
}
