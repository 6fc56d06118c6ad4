package weather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/8adimka/Go_Weather_Assistant/internal/errorsx"
	"github.com/8adimka/Go_Weather_Assistant/internal/geo"
	"github.com/8adimka/Go_Weather_Assistant/internal/metrics"
	"github.com/8adimka/Go_Weather_Assistant/internal/weather"
)

// DefaultDays is used by QueryFutureDays callers that omit a day count.
const DefaultDays = 3

const (
	rateLimitedText   = "API调用频率过高，请稍后再试。彩云天气API有频率限制。"
	unavailableText   = "天气服务暂时不可用，请稍后再试"
	coordUnavailable  = "地理编码服务暂时不可用，请稍后再试"
	dynamicCitiesNote = "其他城市也支持，通过高德地图API动态获取坐标。"
)

// Resolver turns a city name into a coordinate.
type Resolver interface {
	Resolve(ctx context.Context, city string) (geo.Coordinate, error)
}

// Surface exposes the weather operations the retrieval stage can call. Every
// method returns display text; collaborator errors never escape.
type Surface struct {
	resolver  Resolver
	forecasts weather.Provider
	metrics   *metrics.Metrics
}

func NewSurface(resolver Resolver, forecasts weather.Provider, m *metrics.Metrics) *Surface {
	return &Surface{resolver: resolver, forecasts: forecasts, metrics: m}
}

func cityOrDefault(city string) string {
	if strings.TrimSpace(city) == "" {
		return geo.DefaultCity
	}
	return city
}

// forecast resolves city and fetches days of forecast, coordinate first.
func (s *Surface) forecast(ctx context.Context, city string, days int) ([]weather.ForecastDay, error) {
	coord, err := s.resolver.Resolve(ctx, city)
	if err != nil {
		return nil, err
	}
	return s.forecasts.FetchForecast(ctx, coord, days)
}

// QueryToday renders the report for day offset 0.
func (s *Surface) QueryToday(ctx context.Context, city string) string {
	const tool = "query_weather_today"
	city = cityOrDefault(city)

	days, err := s.forecast(ctx, city, 1)
	if err != nil {
		s.record(ctx, tool, err)
		return fmt.Sprintf("❌ 查询%s今天天气失败: %s", city, s.reason(ctx, tool, city, err))
	}

	day, err := weather.DayAt(days, city, 0)
	if err != nil {
		s.record(ctx, tool, err)
		return noDataText(err)
	}

	s.record(ctx, tool, nil)
	return weather.FormatDailyReport(weather.NewReport(city, day))
}

// QueryTomorrow renders the report for day offset 1.
func (s *Surface) QueryTomorrow(ctx context.Context, city string) string {
	const tool = "query_weather_tomorrow"
	city = cityOrDefault(city)

	days, err := s.forecast(ctx, city, 2)
	if err != nil {
		s.record(ctx, tool, err)
		return fmt.Sprintf("❌ 查询%s明天天气失败: %s", city, s.reason(ctx, tool, city, err))
	}

	day, err := weather.DayAt(days, city, 1)
	if err != nil {
		s.record(ctx, tool, err)
		return fmt.Sprintf("❌ 获取%s明天天气数据不足", city)
	}

	s.record(ctx, tool, nil)
	return weather.FormatDailyReport(weather.NewReport(city, day))
}

// QueryFutureDays renders a one-line-per-day summary. days is clamped to
// [1, weather.MaxForecastDays].
func (s *Surface) QueryFutureDays(ctx context.Context, city string, days int) string {
	const tool = "query_weather_future_days"
	city = cityOrDefault(city)
	days = weather.ClampDays(days)

	forecast, err := s.forecast(ctx, city, days)
	if err != nil {
		s.record(ctx, tool, err)
		return fmt.Sprintf("❌ 查询%s未来%d天天气失败: %s", city, days, s.reason(ctx, tool, city, err))
	}

	s.record(ctx, tool, nil)
	return weather.FormatFutureSummary(city, days, forecast)
}

// ListSupportedCities lists the built-in cities in table order.
func (s *Surface) ListSupportedCities() string {
	return "内置城市列表：\n" + strings.Join(geo.StaticCityNames(), "、") + "\n\n" + dynamicCitiesNote
}

// GetCityCoordinates reports where city resolves to.
func (s *Surface) GetCityCoordinates(ctx context.Context, city string) string {
	const tool = "get_city_coordinates"
	city = cityOrDefault(city)

	coord, err := s.resolver.Resolve(ctx, city)
	switch {
	case err == nil:
	case errorsx.IsNotFound(err):
		s.record(ctx, tool, err)
		return fmt.Sprintf("❌ 未找到城市：%s，请检查城市名称是否正确", city)
	default:
		s.record(ctx, tool, err)
		slog.WarnContext(ctx, "Coordinate lookup failed", "city", city, "error", err)
		return fmt.Sprintf("❌ 获取%s坐标失败: %s", city, coordUnavailable)
	}

	s.record(ctx, tool, nil)
	lat := geo.FormatDegrees(coord.Latitude)
	lon := geo.FormatDegrees(coord.Longitude)
	return fmt.Sprintf("📍 %s 坐标信息：\n纬度：%s\n经度：%s\n坐标：%s,%s", city, lat, lon, lat, lon)
}

// reason turns a collaborator error into the tail of a failure line. The
// underlying error is logged, never shown, since transport errors can carry
// request URLs with credentials in them.
func (s *Surface) reason(ctx context.Context, tool, city string, err error) string {
	switch {
	case errorsx.IsRateLimited(err):
		slog.WarnContext(ctx, "Forecast rate limited", "tool", tool, "city", city)
		return rateLimitedText
	case errorsx.IsNotFound(err):
		slog.InfoContext(ctx, "City not found", "tool", tool, "city", city)
		return fmt.Sprintf("不支持的城市：%s", city)
	default:
		slog.ErrorContext(ctx, "Weather lookup failed", "tool", tool, "city", city, "error", err)
		return unavailableText
	}
}

func noDataText(err error) string {
	if re, ok := errorsx.AsRangeError(err); ok {
		return fmt.Sprintf("❌ 没有%s第%d天的天气数据", re.City, re.Offset+1)
	}
	return "❌ " + unavailableText
}

func (s *Surface) record(ctx context.Context, tool string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errorsx.IsNotFound(err):
		outcome = "not_found"
	case errorsx.IsRateLimited(err):
		outcome = "rate_limited"
	case errorsx.IsRetrieval(err):
		outcome = "retrieval_error"
	default:
		if _, ok := errorsx.AsRangeError(err); ok {
			outcome = "out_of_range"
		} else {
			outcome = "error"
		}
	}
	s.metrics.RecordToolCall(ctx, tool, outcome)
}
