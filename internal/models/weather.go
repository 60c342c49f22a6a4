package models

import "time"

// WeatherSnapshot is the current conditions for one city as returned by the provider.
// Temperatures are always Celsius; conversion happens at the presentation boundary.
type WeatherSnapshot struct {
	City           string    `json:"city"`
	Country        string    `json:"country"`
	Latitude       float64   `json:"lat"`
	Longitude      float64   `json:"lon"`
	Temperature    float64   `json:"temperature"`
	FeelsLike      float64   `json:"feelsLike"`
	TempMin        float64   `json:"tempMin"`
	TempMax        float64   `json:"tempMax"`
	ConditionCode  int       `json:"conditionCode"`
	Condition      string    `json:"condition"`
	Description    string    `json:"description"`
	Icon           string    `json:"icon"`
	Humidity       int       `json:"humidity"`
	Pressure       int       `json:"pressure"`
	WindSpeed      float64   `json:"windSpeed"`
	WindDirection  int       `json:"windDirection"`
	Cloudiness     int       `json:"cloudiness"`
	Visibility     int       `json:"visibility"` // metres
	Sunrise        time.Time `json:"sunrise"`
	Sunset         time.Time `json:"sunset"`
	TimezoneOffset int       `json:"timezoneOffset"` // seconds east of UTC
	CapturedAt     time.Time `json:"capturedAt"`
}

// ForecastInterval is one 3-hour record of the 5 day forecast.
type ForecastInterval struct {
	Time        time.Time `json:"time"`
	DateText    string    `json:"dateText"` // provider "2006-01-02 15:04:05"
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feelsLike"`
	TempMin     float64   `json:"tempMin"`
	TempMax     float64   `json:"tempMax"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Pop         float64   `json:"pop"`
}

// ForecastSnapshot is the full 5 day / 3 hour forecast for one city.
type ForecastSnapshot struct {
	City           string             `json:"city"`
	Country        string             `json:"country"`
	TimezoneOffset int                `json:"timezoneOffset"`
	Intervals      []ForecastInterval `json:"intervals"`
	CapturedAt     time.Time          `json:"capturedAt"`
}
