package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/8adimka/Go_Weather_Assistant/internal/tools/registry"
)

const cityDescription = "城市名称，如：北京、上海、广州等"

type toolArgs struct {
	City string
	Days *dayCount
}

// dayCount accepts a JSON number or a quoted number; models send both.
type dayCount int

func (d *dayCount) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		var s string
		if json.Unmarshal(b, &s) != nil {
			return err
		}
		n = json.Number(strings.TrimSpace(s))
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("days %q: %w", n, err)
	}
	*d = dayCount(f)
	return nil
}

// parseArgs decodes each field on its own so one malformed value does not
// discard the others. Fields that fail to decode keep their defaults.
func parseArgs(ctx context.Context, tool string, raw json.RawMessage) toolArgs {
	var args toolArgs
	if len(raw) == 0 {
		return args
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		slog.WarnContext(ctx, "Ignoring malformed tool arguments", "tool", tool, "error", err)
		return args
	}

	if v, ok := fields["city"]; ok {
		if err := json.Unmarshal(v, &args.City); err != nil {
			slog.WarnContext(ctx, "Ignoring malformed city argument", "tool", tool, "error", err)
		}
	}
	if v, ok := fields["days"]; ok && string(v) != "null" {
		var d dayCount
		if err := json.Unmarshal(v, &d); err != nil {
			slog.WarnContext(ctx, "Ignoring malformed days argument", "tool", tool, "error", err)
		} else {
			args.Days = &d
		}
	}
	return args
}

func (a toolArgs) days() int {
	if a.Days == nil {
		return DefaultDays
	}
	return int(*a.Days)
}

func citySchema(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{
				"type":        "string",
				"description": description,
				"default":     "北京",
			},
		},
		"required": []string{},
	}
}

// TodayTool exposes Surface.QueryToday.
type TodayTool struct{ surface *Surface }

func (t *TodayTool) Name() string               { return "query_weather_today" }
func (t *TodayTool) Description() string        { return "查询今天的天气" }
func (t *TodayTool) Parameters() map[string]any { return citySchema(cityDescription) }

func (t *TodayTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	args := parseArgs(ctx, t.Name(), raw)
	return t.surface.QueryToday(ctx, args.City), nil
}

// TomorrowTool exposes Surface.QueryTomorrow.
type TomorrowTool struct{ surface *Surface }

func (t *TomorrowTool) Name() string               { return "query_weather_tomorrow" }
func (t *TomorrowTool) Description() string        { return "查询明天的天气" }
func (t *TomorrowTool) Parameters() map[string]any { return citySchema(cityDescription) }

func (t *TomorrowTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	args := parseArgs(ctx, t.Name(), raw)
	return t.surface.QueryTomorrow(ctx, args.City), nil
}

// FutureDaysTool exposes Surface.QueryFutureDays.
type FutureDaysTool struct{ surface *Surface }

func (t *FutureDaysTool) Name() string        { return "query_weather_future_days" }
func (t *FutureDaysTool) Description() string { return "查询未来几天的天气预报" }

func (t *FutureDaysTool) Parameters() map[string]any {
	schema := citySchema(cityDescription)
	schema["properties"].(map[string]any)["days"] = map[string]any{
		"type":        "integer",
		"description": "查询天数，范围1-15天",
		"minimum":     1,
		"maximum":     15,
		"default":     DefaultDays,
	}
	return schema
}

func (t *FutureDaysTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	args := parseArgs(ctx, t.Name(), raw)
	return t.surface.QueryFutureDays(ctx, args.City, args.days()), nil
}

// CitiesTool exposes Surface.ListSupportedCities.
type CitiesTool struct{ surface *Surface }

func (t *CitiesTool) Name() string        { return "get_supported_cities" }
func (t *CitiesTool) Description() string { return "获取支持的城市列表" }

func (t *CitiesTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []string{},
	}
}

func (t *CitiesTool) Execute(ctx context.Context, _ json.RawMessage) (string, error) {
	return t.surface.ListSupportedCities(), nil
}

// CoordinatesTool exposes Surface.GetCityCoordinates.
type CoordinatesTool struct{ surface *Surface }

func (t *CoordinatesTool) Name() string        { return "get_city_coordinates" }
func (t *CoordinatesTool) Description() string { return "获取城市坐标（支持全国所有城市）" }

func (t *CoordinatesTool) Parameters() map[string]any {
	return citySchema("城市名称，支持全国所有城市，如：北京、上海、三亚、拉萨等")
}

func (t *CoordinatesTool) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	args := parseArgs(ctx, t.Name(), raw)
	return t.surface.GetCityCoordinates(ctx, args.City), nil
}

// Tools returns the five weather tools in their canonical order.
func Tools(s *Surface) []registry.Tool {
	return []registry.Tool{
		&TodayTool{surface: s},
		&TomorrowTool{surface: s},
		&FutureDaysTool{surface: s},
		&CitiesTool{surface: s},
		&CoordinatesTool{surface: s},
	}
}

var (
	_ registry.Tool = (*TodayTool)(nil)
	_ registry.Tool = (*TomorrowTool)(nil)
	_ registry.Tool = (*FutureDaysTool)(nil)
	_ registry.Tool = (*CitiesTool)(nil)
	_ registry.Tool = (*CoordinatesTool)(nil)
)
