// Package weather turns cached Celsius snapshots into display values: unit conversion,
// daily and hourly forecast views, and advisory alerts.
package weather

import (
	"math"
	"strings"

	"github.com/kjstillabower/weather-lookup-service/internal/models"
)

// ConvertTemperature converts a Celsius value to unit. Unknown units are treated as Celsius.
func ConvertTemperature(celsius float64, unit string) float64 {
	if unit == models.UnitFahrenheit {
		return celsius*9/5 + 32
	}
	return celsius
}

// NormalizeUnit maps user input ("F", "imperial", "Celsius") to a known unit.
// ok is false when the input is not recognised.
func NormalizeUnit(s string) (unit string, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "celsius", "metric":
		return models.UnitCelsius, true
	case "f", "fahrenheit", "imperial":
		return models.UnitFahrenheit, true
	}
	return "", false
}

// UnitSymbol is the suffix shown next to temperatures.
func UnitSymbol(unit string) string {
	if unit == models.UnitFahrenheit {
		return "°F"
	}
	return "°C"
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
