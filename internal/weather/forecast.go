package weather

import (
	"math"
	"time"

	"github.com/kjstillabower/weather-lookup-service/internal/models"
)

const (
	// MaxForecastDays caps the daily view; the provider's 3-hour grid usually touches six
	// calendar days.
	MaxForecastDays = 5
	// HourlyPoints is 24 hours at 3-hour resolution.
	HourlyPoints = 8
)

// DailySummary is one calendar day of the forecast.
type DailySummary struct {
	Date        string  `json:"date"` // 2006-01-02
	TempMin     float64 `json:"tempMin"`
	TempMax     float64 `json:"tempMax"`
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
}

// HourlyPoint is one entry of the next-24-hours view.
type HourlyPoint struct {
	Time          time.Time `json:"time"`
	Temperature   float64   `json:"temperature"`
	Condition     string    `json:"condition"`
	Icon          string    `json:"icon"`
	PrecipPercent int       `json:"precipPercent"`
}

// intervalDate is the calendar date of the record as the provider wrote it.
func intervalDate(in models.ForecastInterval) string {
	if len(in.DateText) >= 10 {
		return in.DateText[:10]
	}
	return in.Time.UTC().Format("2006-01-02")
}

// DailyForecast groups intervals by date and summarises each day, keeping the first
// MaxForecastDays days. Temperatures are converted to unit and rounded.
func DailyForecast(intervals []models.ForecastInterval, unit string) []DailySummary {
	var order []string
	groups := make(map[string][]models.ForecastInterval)
	for _, in := range intervals {
		d := intervalDate(in)
		if _, seen := groups[d]; !seen {
			order = append(order, d)
		}
		groups[d] = append(groups[d], in)
	}

	days := make([]DailySummary, 0, MaxForecastDays)
	for _, d := range order {
		if len(days) == MaxForecastDays {
			break
		}
		days = append(days, summarizeDay(d, groups[d], unit))
	}
	return days
}

func summarizeDay(date string, records []models.ForecastInterval, unit string) DailySummary {
	minT, maxT := math.Inf(1), math.Inf(-1)
	var humidity, wind float64
	counts := make(map[string]int)
	var conditions []string
	for _, r := range records {
		minT = math.Min(minT, r.Temperature)
		maxT = math.Max(maxT, r.Temperature)
		humidity += float64(r.Humidity)
		wind += r.WindSpeed
		if counts[r.Condition] == 0 {
			conditions = append(conditions, r.Condition)
		}
		counts[r.Condition]++
	}

	// Strict > keeps the first-encountered condition on ties.
	majority := conditions[0]
	for _, c := range conditions[1:] {
		if counts[c] > counts[majority] {
			majority = c
		}
	}

	mid := records[len(records)/2]
	n := float64(len(records))
	return DailySummary{
		Date:        date,
		TempMin:     math.Round(ConvertTemperature(minT, unit)),
		TempMax:     math.Round(ConvertTemperature(maxT, unit)),
		Condition:   majority,
		Description: mid.Description,
		Icon:        mid.Icon,
		Humidity:    int(math.Round(humidity / n)),
		WindSpeed:   roundTo(wind/n, 1),
	}
}

// HourlyForecast maps the first HourlyPoints intervals to display points.
func HourlyForecast(intervals []models.ForecastInterval, unit string) []HourlyPoint {
	n := len(intervals)
	if n > HourlyPoints {
		n = HourlyPoints
	}
	points := make([]HourlyPoint, 0, n)
	for _, in := range intervals[:n] {
		points = append(points, HourlyPoint{
			Time:          in.Time,
			Temperature:   math.Round(ConvertTemperature(in.Temperature, unit)),
			Condition:     in.Condition,
			Icon:          in.Icon,
			PrecipPercent: int(math.Round(in.Pop * 100)),
		})
	}
	return points
}
