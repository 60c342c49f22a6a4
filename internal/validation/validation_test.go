package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"simple", "Paris", "Paris", nil},
		{"trimmed, case kept", "  New York ", "New York", nil},
		{"with country", "London, GB", "London, GB", nil},
		{"unicode", "São Paulo", "São Paulo", nil},
		{"apostrophe and period", "St. John's", "St. John's", nil},
		{"hyphen", "Winston-Salem", "Winston-Salem", nil},
		{"empty", "", "", ErrCityEmpty},
		{"whitespace", " \t ", "", ErrCityEmpty},
		{"too long", strings.Repeat("a", 101), "", ErrCityTooLong},
		{"slash", "Paris/../etc", "", ErrCityInvalidChars},
		{"angle bracket", "<script>", "", ErrCityInvalidChars},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateCity(tt.input, 1, 100)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateCity(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateCity(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateCity_TooShort(t *testing.T) {
	if _, err := ValidateCity("x", 2, 100); !errors.Is(err, ErrCityTooShort) {
		t.Errorf("error = %v, want ErrCityTooShort", err)
	}
}

func TestValidateCity_CountsRunes(t *testing.T) {
	if _, err := ValidateCity("Zürich", 1, 6); err != nil {
		t.Errorf("6-rune city rejected with max 6: %v", err)
	}
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		lat, lon string
		ok       bool
	}{
		{"51.51", "-0.13", true},
		{" 0 ", "0", true},
		{"-90", "180", true},
		{"", "10", false},
		{"10", "", false},
		{"abc", "10", false},
		{"90.1", "0", false},
		{"0", "-180.5", false},
		{"NaN", "0", false},
	}
	for _, tt := range tests {
		_, _, err := ParseCoordinates(tt.lat, tt.lon)
		if tt.ok && err != nil {
			t.Errorf("ParseCoordinates(%q, %q) error = %v, want nil", tt.lat, tt.lon, err)
		}
		if !tt.ok && !errors.Is(err, ErrCoordinatesInvalid) {
			t.Errorf("ParseCoordinates(%q, %q) error = %v, want ErrCoordinatesInvalid", tt.lat, tt.lon, err)
		}
	}
}
