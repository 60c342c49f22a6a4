package client

import (
	"time"

	"github.com/kjstillabower/weather-lookup-service/internal/models"
)

// defaultVisibility is used when the provider omits visibility (clear air, 10 km).
const defaultVisibility = 10000

type weatherCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type mainBlock struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  int     `json:"pressure"`
	Humidity  int     `json:"humidity"`
}

type windBlock struct {
	Speed float64 `json:"speed"`
	Deg   int     `json:"deg"`
}

type coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// currentResponse is the /weather payload.
type currentResponse struct {
	Coord      coord              `json:"coord"`
	Weather    []weatherCondition `json:"weather"`
	Main       mainBlock          `json:"main"`
	Visibility *int               `json:"visibility"`
	Wind       windBlock          `json:"wind"`
	Clouds     struct {
		All int `json:"all"`
	} `json:"clouds"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Timezone int    `json:"timezone"`
	Name     string `json:"name"`
}

// forecastResponse is the /forecast payload.
type forecastResponse struct {
	List []struct {
		Dt      int64              `json:"dt"`
		Main    mainBlock          `json:"main"`
		Weather []weatherCondition `json:"weather"`
		Wind    windBlock          `json:"wind"`
		Pop     float64            `json:"pop"`
		DtTxt   string             `json:"dt_txt"`
	} `json:"list"`
	City struct {
		Name     string `json:"name"`
		Country  string `json:"country"`
		Timezone int    `json:"timezone"`
	} `json:"city"`
}

func firstCondition(ws []weatherCondition) weatherCondition {
	if len(ws) == 0 {
		return weatherCondition{}
	}
	return ws[0]
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func (r currentResponse) toSnapshot(requested string, now time.Time) models.WeatherSnapshot {
	cond := firstCondition(r.Weather)
	name := r.Name
	if name == "" {
		name = requested
	}
	visibility := defaultVisibility
	if r.Visibility != nil {
		visibility = *r.Visibility
	}
	return models.WeatherSnapshot{
		City:           name,
		Country:        r.Sys.Country,
		Latitude:       r.Coord.Lat,
		Longitude:      r.Coord.Lon,
		Temperature:    r.Main.Temp,
		FeelsLike:      r.Main.FeelsLike,
		TempMin:        r.Main.TempMin,
		TempMax:        r.Main.TempMax,
		ConditionCode:  cond.ID,
		Condition:      cond.Main,
		Description:    cond.Description,
		Icon:           cond.Icon,
		Humidity:       r.Main.Humidity,
		Pressure:       r.Main.Pressure,
		WindSpeed:      r.Wind.Speed,
		WindDirection:  r.Wind.Deg,
		Cloudiness:     r.Clouds.All,
		Visibility:     visibility,
		Sunrise:        unixOrZero(r.Sys.Sunrise),
		Sunset:         unixOrZero(r.Sys.Sunset),
		TimezoneOffset: r.Timezone,
		CapturedAt:     now,
	}
}

func (r forecastResponse) toSnapshot(requested string, now time.Time) models.ForecastSnapshot {
	name := r.City.Name
	if name == "" {
		name = requested
	}
	intervals := make([]models.ForecastInterval, 0, len(r.List))
	for _, item := range r.List {
		cond := firstCondition(item.Weather)
		intervals = append(intervals, models.ForecastInterval{
			Time:        unixOrZero(item.Dt),
			DateText:    item.DtTxt,
			Temperature: item.Main.Temp,
			FeelsLike:   item.Main.FeelsLike,
			TempMin:     item.Main.TempMin,
			TempMax:     item.Main.TempMax,
			Humidity:    item.Main.Humidity,
			WindSpeed:   item.Wind.Speed,
			Condition:   cond.Main,
			Description: cond.Description,
			Icon:        cond.Icon,
			Pop:         item.Pop,
		})
	}
	return models.ForecastSnapshot{
		City:           name,
		Country:        r.City.Country,
		TimezoneOffset: r.City.Timezone,
		Intervals:      intervals,
		CapturedAt:     now,
	}
}
