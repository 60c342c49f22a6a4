// Package preferences reads and updates the typed settings embedded in each user record.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/weather-lookup-service/internal/models"
)

// ErrInvalidPreference is returned when an update carries an unacceptable value.
var ErrInvalidPreference = errors.New("invalid preference")

// Update names the settings to change. Nil fields are left as they are.
type Update struct {
	Unit        *string `json:"unit,omitempty" validate:"omitempty,oneof=celsius fahrenheit"`
	DefaultCity *string `json:"defaultCity,omitempty" validate:"omitempty,max=100"`
	ShowAlerts  *bool   `json:"showAlerts,omitempty"`
	SaveHistory *bool   `json:"saveHistory,omitempty"`
}

// Accounts is the subset of the account store the preference store needs.
type Accounts interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Modify(ctx context.Context, email string, fn func(*models.User) error) (models.User, error)
}

type Store struct {
	accounts Accounts
	validate *validator.Validate
}

func NewStore(accounts Accounts) *Store {
	return &Store{accounts: accounts, validate: validator.New()}
}

// Get returns the user's settings with defaults filled in.
func (s *Store) Get(ctx context.Context, email string) (models.Preferences, error) {
	u, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return models.Preferences{}, err
	}
	return WithDefaults(u.Settings), nil
}

// Update applies upd to the user's settings and returns the result.
func (s *Store) Update(ctx context.Context, email string, upd Update) (models.Preferences, error) {
	if upd.Unit != nil {
		unit := strings.ToLower(strings.TrimSpace(*upd.Unit))
		upd.Unit = &unit
	}
	if upd.DefaultCity != nil {
		city := strings.TrimSpace(*upd.DefaultCity)
		upd.DefaultCity = &city
	}
	if err := s.validate.Struct(upd); err != nil {
		return models.Preferences{}, fmt.Errorf("%w: %v", ErrInvalidPreference, err)
	}
	u, err := s.accounts.Modify(ctx, email, func(u *models.User) error {
		u.Settings = Apply(WithDefaults(u.Settings), upd)
		return nil
	})
	if err != nil {
		return models.Preferences{}, err
	}
	return u.Settings, nil
}

// Apply returns p with every non-nil field of upd copied in.
func Apply(p models.Preferences, upd Update) models.Preferences {
	if upd.Unit != nil {
		p.Unit = *upd.Unit
	}
	if upd.DefaultCity != nil {
		p.DefaultCity = *upd.DefaultCity
	}
	if upd.ShowAlerts != nil {
		p.ShowAlerts = *upd.ShowAlerts
	}
	if upd.SaveHistory != nil {
		p.SaveHistory = *upd.SaveHistory
	}
	return p
}

// WithDefaults fixes settings saved before a field existed or with an unknown unit.
func WithDefaults(p models.Preferences) models.Preferences {
	if p.Unit != models.UnitCelsius && p.Unit != models.UnitFahrenheit {
		p.Unit = models.DefaultPreferences().Unit
	}
	return p
}
