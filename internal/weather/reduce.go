package weather

import "time"

// MaxForecastDays caps the number of entries ReduceForecast returns.
const MaxForecastDays = 5

// ReduceForecast collapses a chronological sample timeline into at most one
// entry per calendar day in loc, keeping the first sample seen for each day
// and stopping after MaxForecastDays distinct days. A nil loc means time.Local.
func ReduceForecast(samples []ForecastSample, loc *time.Location) Forecast {
	if loc == nil {
		loc = time.Local
	}

	type dayKey struct {
		year  int
		month time.Month
		day   int
	}

	forecast := make(Forecast, 0, MaxForecastDays)
	seen := make(map[dayKey]struct{}, MaxForecastDays)

	for _, s := range samples {
		if len(forecast) >= MaxForecastDays {
			break
		}

		y, m, d := s.Timestamp.In(loc).Date()
		k := dayKey{y, m, d}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		forecast = append(forecast, ForecastEntry{
			Timestamp:   s.Timestamp,
			Condition:   s.Condition,
			Temperature: s.Temperature,
			Humidity:    s.Humidity,
		})
	}

	return forecast
}
