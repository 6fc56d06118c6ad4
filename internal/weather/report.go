package weather

import (
	"fmt"
	"strings"

	"github.com/8adimka/Go_Weather_Assistant/internal/errorsx"
)

// MaxForecastDays is the upper bound accepted by the forecast API.
const MaxForecastDays = 15

// ClampDays forces a requested day count into [1, MaxForecastDays].
func ClampDays(days int) int {
	if days < 1 {
		return 1
	}
	if days > MaxForecastDays {
		return MaxForecastDays
	}
	return days
}

var skyLabels = map[string]string{
	"CLEAR_DAY":           "晴天",
	"CLEAR_NIGHT":         "晴夜",
	"PARTLY_CLOUDY_DAY":   "多云",
	"PARTLY_CLOUDY_NIGHT": "多云",
	"CLOUDY":              "阴天",
	"LIGHT_HAZE":          "轻度雾霾",
	"MODERATE_HAZE":       "中度雾霾",
	"HEAVY_HAZE":          "重度雾霾",
	"LIGHT_RAIN":          "小雨",
	"MODERATE_RAIN":       "中雨",
	"HEAVY_RAIN":          "大雨",
	"STORM_RAIN":          "暴雨",
	"FOG":                 "雾",
	"LIGHT_SNOW":          "小雪",
	"MODERATE_SNOW":       "中雪",
	"HEAVY_SNOW":          "大雪",
	"STORM_SNOW":          "暴雪",
	"DUST":                "浮尘",
	"SAND":                "沙尘",
	"WIND":                "大风",
}

// ClassifySkyCondition maps a sky condition code to its label. Unknown codes
// are returned unchanged.
func ClassifySkyCondition(code string) string {
	if label, ok := skyLabels[code]; ok {
		return label
	}
	return code
}

var windThresholdsKmh = []float64{1, 6, 12, 20, 29, 39, 50, 62, 75, 89, 103, 118}

// WindSpeedToLevel converts an average wind speed in m/s to a Beaufort-style
// force level in [0, 12].
func WindSpeedToLevel(speedMetersPerSecond float64) int {
	return windLevelKmh(speedMetersPerSecond * 3.6)
}

func windLevelKmh(kmh float64) int {
	for level, limit := range windThresholdsKmh {
		if kmh < limit {
			return level
		}
	}
	return len(windThresholdsKmh)
}

const (
	adviceHeat       = "天气炎热，注意防暑降温"
	adviceCold       = "天气寒冷，注意保暖添衣"
	adviceSwing      = "昼夜温差大，适时增减衣物"
	adviceHeavyRain  = "降雨概率高，建议携带雨具"
	adviceMaybeRain  = "可能有降雨，备好雨伞"
	adviceVisibility = "能见度较低，出行注意安全"
	adviceOutdoor    = "天气晴朗，适合户外活动"
	adviceSlippery   = "有降雪，注意路面湿滑"
	adviceDefault    = "天气适宜，祝您生活愉快"
	adviceSeparator  = "，"
)

// ComposeAdvice applies the temperature, precipitation and condition rules in
// that order and joins every message that fires. Each group contributes at
// most one message.
func ComposeAdvice(label string, tempMax, tempMin, rainProbabilityPercent int) string {
	var tips []string

	switch {
	case tempMax >= 30:
		tips = append(tips, adviceHeat)
	case tempMin <= 5:
		tips = append(tips, adviceCold)
	case tempMax-tempMin > 15:
		tips = append(tips, adviceSwing)
	}

	switch {
	case rainProbabilityPercent > 70:
		tips = append(tips, adviceHeavyRain)
	case rainProbabilityPercent > 30:
		tips = append(tips, adviceMaybeRain)
	}

	switch {
	case hasMarker(label, "雾", "霾", "fog", "haze"):
		tips = append(tips, adviceVisibility)
	case hasMarker(label, "晴", "clear"):
		tips = append(tips, adviceOutdoor)
	case hasMarker(label, "雪", "snow"):
		tips = append(tips, adviceSlippery)
	}

	if len(tips) == 0 {
		return adviceDefault
	}
	return strings.Join(tips, adviceSeparator)
}

func hasMarker(label string, markers ...string) bool {
	lower := strings.ToLower(label)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Report holds the values rendered by FormatDailyReport.
type Report struct {
	City            string
	Date            string
	Label           string
	TempMin         int
	TempMax         int
	HumidityPercent int
	WindLevel       int
	RainPercent     int
	Advice          string
}

// NewReport derives every display value for one forecast day. Temperatures
// and percentages are truncated toward zero.
func NewReport(city string, day ForecastDay) Report {
	label := ClassifySkyCondition(day.SkyCode)
	tempMax := int(day.TempMax)
	tempMin := int(day.TempMin)
	rain := int(day.PrecipitationProbability * 100)

	return Report{
		City:            city,
		Date:            day.Date,
		Label:           label,
		TempMin:         tempMin,
		TempMax:         tempMax,
		HumidityPercent: int(day.HumidityAvg * 100),
		WindLevel:       WindSpeedToLevel(day.WindAvgSpeed),
		RainPercent:     rain,
		Advice:          ComposeAdvice(label, tempMax, tempMin, rain),
	}
}

// FormatDailyReport renders the seven-line report. Consumers match on the
// emoji markers, so the layout must not change.
func FormatDailyReport(r Report) string {
	return fmt.Sprintf("📍 %s %s\n"+
		"🌤️ 天气：%s\n"+
		"🌡️ 温度：%d°C ~ %d°C\n"+
		"💧 湿度：%d%%\n"+
		"💨 风力：%d级\n"+
		"🌧️ 降水概率：%d%%\n"+
		"💡 生活建议：%s",
		r.City, r.Date,
		r.Label,
		r.TempMin, r.TempMax,
		r.HumidityPercent,
		r.WindLevel,
		r.RainPercent,
		r.Advice,
	)
}

// DayAt returns the forecast for a day offset or a RangeError naming the city.
func DayAt(days []ForecastDay, city string, offset int) (ForecastDay, error) {
	if offset < 0 || offset >= len(days) {
		return ForecastDay{}, &errorsx.RangeError{City: city, Offset: offset}
	}
	return days[offset], nil
}

// FormatFutureSummary renders a header plus one line per available day, up to
// requested.
func FormatFutureSummary(city string, requested int, days []ForecastDay) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📍 %s 未来%d天天气预报：", city, requested)
	for i := 0; i < requested && i < len(days); i++ {
		d := days[i]
		fmt.Fprintf(&b, "\n📅 %s：%s，%d°C ~ %d°C", d.Date, ClassifySkyCondition(d.SkyCode), int(d.TempMin), int(d.TempMax))
	}
	return b.String()
}
