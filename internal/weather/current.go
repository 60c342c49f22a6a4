package weather

import (
	"math"
	"time"

	"github.com/kjstillabower/weather-lookup-service/internal/models"
)

// CurrentView is a WeatherSnapshot converted for display.
type CurrentView struct {
	City          string    `json:"city"`
	Country       string    `json:"country"`
	Unit          string    `json:"unit"`
	UnitSymbol    string    `json:"unitSymbol"`
	Temperature   float64   `json:"temperature"`
	FeelsLike     float64   `json:"feelsLike"`
	TempMin       float64   `json:"tempMin"`
	TempMax       float64   `json:"tempMax"`
	Condition     string    `json:"condition"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	Humidity      int       `json:"humidity"`
	Pressure      int       `json:"pressure"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDirection int       `json:"windDirection"`
	Cloudiness    int       `json:"cloudiness"`
	Visibility    int       `json:"visibility"` // metres
	VisibilityKm  float64   `json:"visibilityKm"`
	Sunrise       time.Time `json:"sunrise"`
	Sunset        time.Time `json:"sunset"`
	CapturedAt    time.Time `json:"capturedAt"`
}

// FormatCurrent converts s to unit. Temperatures are rounded to whole degrees; the
// snapshot itself is left in Celsius.
func FormatCurrent(s models.WeatherSnapshot, unit string) CurrentView {
	return CurrentView{
		City:          s.City,
		Country:       s.Country,
		Unit:          unit,
		UnitSymbol:    UnitSymbol(unit),
		Temperature:   math.Round(ConvertTemperature(s.Temperature, unit)),
		FeelsLike:     math.Round(ConvertTemperature(s.FeelsLike, unit)),
		TempMin:       math.Round(ConvertTemperature(s.TempMin, unit)),
		TempMax:       math.Round(ConvertTemperature(s.TempMax, unit)),
		Condition:     s.Condition,
		Description:   s.Description,
		Icon:          s.Icon,
		Humidity:      s.Humidity,
		Pressure:      s.Pressure,
		WindSpeed:     s.WindSpeed,
		WindDirection: s.WindDirection,
		Cloudiness:    s.Cloudiness,
		Visibility:    s.Visibility,
		VisibilityKm:  roundTo(float64(s.Visibility)/1000, 1),
		Sunrise:       s.Sunrise,
		Sunset:        s.Sunset,
		CapturedAt:    s.CapturedAt,
	}
}
