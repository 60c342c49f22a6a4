package preferences

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/weather-lookup-service/internal/account"
	"github.com/kjstillabower/weather-lookup-service/internal/kvstore"
	"github.com/kjstillabower/weather-lookup-service/internal/models"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func setup(t *testing.T) *Store {
	t.Helper()
	accounts := account.NewStore(kvstore.NewMemoryStore(), nil)
	_, err := accounts.Register(context.Background(), account.Registration{
		Name: "Ann", Email: "ann@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	return NewStore(accounts)
}

func TestStore_GetDefaults(t *testing.T) {
	s := setup(t)
	p, err := s.Get(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPreferences(), p)
}

func TestStore_UpdatePartial(t *testing.T) {
	ctx := context.Background()
	s := setup(t)

	p, err := s.Update(ctx, "ann@example.com", Update{Unit: strPtr(" Fahrenheit ")})
	require.NoError(t, err)
	assert.Equal(t, models.UnitFahrenheit, p.Unit)
	assert.True(t, p.ShowAlerts, "untouched fields keep their value")

	p, err = s.Update(ctx, "ann@example.com", Update{DefaultCity: strPtr("Paris"), SaveHistory: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, models.UnitFahrenheit, p.Unit, "earlier update survives")
	assert.Equal(t, "Paris", p.DefaultCity)
	assert.False(t, p.SaveHistory)

	got, err := s.Get(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestStore_UpdateRejectsUnknownUnit(t *testing.T) {
	s := setup(t)
	_, err := s.Update(context.Background(), "ann@example.com", Update{Unit: strPtr("kelvin")})
	assert.ErrorIs(t, err, ErrInvalidPreference)
}

func TestStore_UnknownUser(t *testing.T) {
	s := setup(t)
	_, err := s.Get(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, account.ErrUserNotFound)
	_, err = s.Update(context.Background(), "nobody@example.com", Update{ShowAlerts: boolPtr(false)})
	assert.ErrorIs(t, err, account.ErrUserNotFound)
}

func TestWithDefaults(t *testing.T) {
	p := WithDefaults(models.Preferences{Unit: "", DefaultCity: "Oslo"})
	assert.Equal(t, models.UnitCelsius, p.Unit)
	assert.Equal(t, "Oslo", p.DefaultCity)
}
