package geo

import (
	"strconv"
)

// Coordinate is a WGS84 point. Values are immutable once produced.
type Coordinate struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// Valid reports whether the point lies within the latitude/longitude ranges.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// String renders "lat,lon" using the shortest exact decimal form.
func (c Coordinate) String() string {
	return FormatDegrees(c.Latitude) + "," + FormatDegrees(c.Longitude)
}

// FormatDegrees prints a coordinate component without padding or exponent.
func FormatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// City is an entry of the built-in table.
type City struct {
	Name       string
	Coordinate Coordinate
}

// DefaultCity is used when a caller gives no city.
const DefaultCity = "北京"

var staticCities = []City{
	{"北京", Coordinate{39.9042, 116.4074}},
	{"上海", Coordinate{31.2304, 121.4737}},
	{"广州", Coordinate{23.1291, 113.2644}},
	{"深圳", Coordinate{22.5431, 114.0579}},
	{"杭州", Coordinate{30.2741, 120.1551}},
	{"南京", Coordinate{32.0603, 118.7969}},
	{"武汉", Coordinate{30.5928, 114.3055}},
	{"成都", Coordinate{30.5728, 104.0668}},
	{"西安", Coordinate{34.3416, 108.9398}},
	{"重庆", Coordinate{29.5630, 106.5516}},
	{"天津", Coordinate{39.3434, 117.3616}},
	{"苏州", Coordinate{31.2989, 120.5853}},
	{"青岛", Coordinate{36.0671, 120.3826}},
	{"宁波", Coordinate{29.8683, 121.5440}},
	{"无锡", Coordinate{31.5912, 120.3019}},
	{"济南", Coordinate{36.6512, 117.1201}},
	{"大连", Coordinate{38.9140, 121.6147}},
	{"沈阳", Coordinate{41.8057, 123.4315}},
	{"长春", Coordinate{43.8171, 125.3235}},
	{"哈尔滨", Coordinate{45.8038, 126.5349}},
	{"福州", Coordinate{26.0745, 119.2965}},
	{"厦门", Coordinate{24.4798, 118.0894}},
	{"昆明", Coordinate{25.0389, 102.7183}},
	{"南昌", Coordinate{28.6820, 115.8581}},
	{"合肥", Coordinate{31.8669, 117.2741}},
	{"石家庄", Coordinate{38.0428, 114.5149}},
	{"太原", Coordinate{37.8706, 112.5489}},
	{"郑州", Coordinate{34.7466, 113.6254}},
	{"长沙", Coordinate{28.2282, 112.9388}},
	{"南宁", Coordinate{22.8170, 108.3669}},
	{"海口", Coordinate{20.0444, 110.1999}},
	{"贵阳", Coordinate{26.6470, 106.6302}},
	{"兰州", Coordinate{36.0611, 103.8343}},
	{"银川", Coordinate{38.4681, 106.2731}},
	{"西宁", Coordinate{36.6171, 101.7782}},
	{"乌鲁木齐", Coordinate{43.7793, 87.6177}},
	{"拉萨", Coordinate{29.6625, 91.1110}},
}

var staticIndex = func() map[string]Coordinate {
	m := make(map[string]Coordinate, len(staticCities))
	for _, c := range staticCities {
		m[c.Name] = c.Coordinate
	}
	return m
}()

// LookupStatic does an exact-match lookup in the built-in table.
func LookupStatic(name string) (Coordinate, bool) {
	c, ok := staticIndex[name]
	return c, ok
}

// StaticCityNames returns the built-in city names in table order.
func StaticCityNames() []string {
	names := make([]string, len(staticCities))
	for i, c := range staticCities {
		names[i] = c.Name
	}
	return names
}

// StaticCities returns a copy of the built-in table.
func StaticCities() []City {
	out := make([]City, len(staticCities))
	copy(out, staticCities)
	return out
}
