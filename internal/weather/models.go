package weather

import (
	"fmt"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown      Condition = "Unknown"
	ConditionClear        Condition = "Clear"
	ConditionClouds       Condition = "Clouds"
	ConditionRain         Condition = "Rain"
	ConditionDrizzle      Condition = "Drizzle"
	ConditionSnow         Condition = "Snow"
	ConditionThunderstorm Condition = "Thunderstorm"
	ConditionMist         Condition = "Mist"
	ConditionFog          Condition = "Fog"
)

// ParseCondition maps a provider condition group to a Condition.
// Matching is exact; anything unrecognised is ConditionUnknown.
func ParseCondition(main string) Condition {
	switch c := Condition(main); c {
	case ConditionClear, ConditionClouds, ConditionRain, ConditionDrizzle,
		ConditionSnow, ConditionThunderstorm, ConditionMist, ConditionFog:
		return c
	default:
		return ConditionUnknown
	}
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// LocationQuery is a normalized lookup target: either a free-text place name
// or a coordinate pair. Exactly one of the two is set.
type LocationQuery struct {
	name   string
	coords *Coordinates
}

// ByName builds a name query. Callers normally go through FromText.
func ByName(name string) LocationQuery {
	return LocationQuery{name: name}
}

// ByCoordinates builds a coordinate query.
func ByCoordinates(c Coordinates) LocationQuery {
	return LocationQuery{coords: &c}
}

// Name returns the place name and whether this is a name query.
func (q LocationQuery) Name() (string, bool) {
	return q.name, q.coords == nil
}

// Coordinates returns the coordinate pair and whether this is a coordinate query.
func (q LocationQuery) Coordinates() (Coordinates, bool) {
	if q.coords == nil {
		return Coordinates{}, false
	}
	return *q.coords, true
}

// IsZero reports whether the query was never constructed.
func (q LocationQuery) IsZero() bool {
	return q.coords == nil && q.name == ""
}

func (q LocationQuery) String() string {
	if q.coords != nil {
		return q.coords.String()
	}
	return q.name
}

// CurrentWeather is the result of one current-conditions lookup.
type CurrentWeather struct {
	Name        string      `json:"name"`
	Country     string      `json:"country,omitempty"`
	Condition   Condition   `json:"condition"`
	Description string      `json:"description"`
	Temperature float64     `json:"temperatureC"`
	FeelsLike   float64     `json:"feelsLikeC"`
	Humidity    float64     `json:"humidityPercent"`
	WindSpeed   float64     `json:"windSpeedMs"`
	Coordinates Coordinates `json:"coords"`
}

// ForecastSample is one raw point of the provider's forecast timeline.
type ForecastSample struct {
	Timestamp   time.Time
	Condition   Condition
	Temperature float64
	Humidity    float64
}

// ForecastEntry is one calendar day's representative sample.
type ForecastEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Condition   Condition `json:"condition"`
	Temperature float64   `json:"temperatureC"`
	Humidity    float64   `json:"humidityPercent"`
}

// Forecast is a day-per-entry forecast ordered by Timestamp ascending.
// The first entry is conventionally "today".
type Forecast []ForecastEntry

// Report bundles the results of one combined fetch.
type Report struct {
	Query    LocationQuery  `json:"-"`
	Current  CurrentWeather `json:"current"`
	Forecast Forecast       `json:"forecast"`
}
