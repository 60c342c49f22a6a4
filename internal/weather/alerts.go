package weather

import "fmt"

// AlertType classifies an advisory.
type AlertType string

const (
	AlertHeat       AlertType = "heat"
	AlertCold       AlertType = "cold"
	AlertWind       AlertType = "wind"
	AlertRain       AlertType = "rain"
	AlertStorm      AlertType = "storm"
	AlertVisibility AlertType = "visibility"
	AlertHumidity   AlertType = "humidity"
)

// Severity of an advisory.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Alert is derived from a snapshot on every request and never stored.
type Alert struct {
	Type     AlertType `json:"type"`
	Severity Severity  `json:"severity"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Icon     string    `json:"icon"`
}

// DeriveAlerts evaluates the advisory thresholds against a display view. Rules run in a
// fixed order (heat, cold, wind, rain, storm, visibility, humidity) and never suppress
// one another.
//
// Temperature thresholds are compared with v.Temperature as displayed, so a Fahrenheit
// view crosses them at different physical temperatures than a Celsius one.
func DeriveAlerts(v CurrentView) []Alert {
	var alerts []Alert
	sym := v.UnitSymbol

	switch {
	case v.Temperature > 35:
		alerts = append(alerts, Alert{
			Type: AlertHeat, Severity: SeverityHigh, Icon: "thermometer-high",
			Title:   "Extreme heat warning",
			Message: fmt.Sprintf("Temperature is %.0f%s. Stay hydrated and avoid the midday sun.", v.Temperature, sym),
		})
	case v.Temperature > 30:
		alerts = append(alerts, Alert{
			Type: AlertHeat, Severity: SeverityMedium, Icon: "thermometer-half",
			Title:   "Heat advisory",
			Message: fmt.Sprintf("Temperature is %.0f%s. Limit strenuous outdoor activity.", v.Temperature, sym),
		})
	}

	if v.Temperature < 10 {
		alerts = append(alerts, Alert{
			Type: AlertCold, Severity: SeverityMedium, Icon: "snowflake",
			Title:   "Cold weather advisory",
			Message: fmt.Sprintf("Temperature is %.0f%s. Dress warmly.", v.Temperature, sym),
		})
	}

	switch {
	case v.WindSpeed > 15:
		alerts = append(alerts, Alert{
			Type: AlertWind, Severity: SeverityHigh, Icon: "wind",
			Title:   "High wind warning",
			Message: fmt.Sprintf("Wind speed is %.1f m/s. Secure loose objects and avoid exposed areas.", v.WindSpeed),
		})
	case v.WindSpeed > 10:
		alerts = append(alerts, Alert{
			Type: AlertWind, Severity: SeverityMedium, Icon: "wind",
			Title:   "Wind advisory",
			Message: fmt.Sprintf("Wind speed is %.1f m/s. Expect strong gusts.", v.WindSpeed),
		})
	}

	if v.Condition == "Rain" || v.Condition == "Drizzle" {
		alerts = append(alerts, Alert{
			Type: AlertRain, Severity: SeverityMedium, Icon: "cloud-rain",
			Title:   "Rain expected",
			Message: "Carry an umbrella and allow extra travel time.",
		})
	}

	if v.Condition == "Thunderstorm" {
		alerts = append(alerts, Alert{
			Type: AlertStorm, Severity: SeverityHigh, Icon: "cloud-lightning",
			Title:   "Thunderstorm warning",
			Message: "Seek shelter indoors and stay away from open ground.",
		})
	}

	if v.Visibility < 2000 {
		alerts = append(alerts, Alert{
			Type: AlertVisibility, Severity: SeverityMedium, Icon: "fog",
			Title:   "Low visibility",
			Message: fmt.Sprintf("Visibility is %.1f km. Drive with care.", v.VisibilityKm),
		})
	}

	if v.Humidity > 85 {
		alerts = append(alerts, Alert{
			Type: AlertHumidity, Severity: SeverityLow, Icon: "droplet",
			Title:   "High humidity",
			Message: fmt.Sprintf("Humidity is %d%%.", v.Humidity),
		})
	}

	if alerts == nil {
		alerts = []Alert{}
	}
	return alerts
}
