package models

import "time"

// Temperature units accepted by the presentation layer.
const (
	UnitCelsius    = "celsius"
	UnitFahrenheit = "fahrenheit"
)

// Preferences are the per-user display settings stored inside the user record.
type Preferences struct {
	Unit        string `json:"unit"`
	DefaultCity string `json:"defaultCity"`
	ShowAlerts  bool   `json:"showAlerts"`
	SaveHistory bool   `json:"saveHistory"`
}

// DefaultPreferences returns the settings a freshly registered user starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		Unit:        UnitCelsius,
		ShowAlerts:  true,
		SaveHistory: true,
	}
}

// User is an account record. Password is kept as entered; see DESIGN.md.
type User struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	IsAdmin     bool        `json:"isAdmin"`
	CreatedAt   time.Time   `json:"createdAt"`
	LastLoginAt time.Time   `json:"lastLoginAt,omitempty"`
	Settings    Preferences `json:"settings"`
}

// PublicUser is the user record without credentials, safe to return over HTTP.
type PublicUser struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	IsAdmin     bool        `json:"isAdmin"`
	CreatedAt   time.Time   `json:"createdAt"`
	LastLoginAt time.Time   `json:"lastLoginAt,omitempty"`
	Settings    Preferences `json:"settings"`
}

// Public strips the password.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		IsAdmin:     u.IsAdmin,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
		Settings:    u.Settings,
	}
}

// Session is the active login of one user.
type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryEntry is one past city lookup.
type HistoryEntry struct {
	City       string    `json:"city"`
	Country    string    `json:"country,omitempty"`
	SearchedAt time.Time `json:"searchedAt"`
}
