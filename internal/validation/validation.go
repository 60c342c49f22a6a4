package validation

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrCityEmpty        = errors.New("city is required")
	ErrCityTooShort     = errors.New("city too short")
	ErrCityTooLong      = errors.New("city too long")
	ErrCityInvalidChars = errors.New("city contains invalid characters")

	// ErrCoordinatesInvalid is returned for missing, unparseable or out-of-range lat/lon.
	ErrCoordinatesInvalid = errors.New("invalid coordinates")
)

// ValidateCity trims the input, enforces length bounds (minLen, maxLen in runes)
// and restricts it to letters, digits, space, comma, hyphen, period and apostrophe.
// Case is preserved: cache keys use the city exactly as typed.
func ValidateCity(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrCityEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrCityTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrCityTooLong
	}
	for _, c := range r {
		if !isAllowedCityRune(c) {
			return "", ErrCityInvalidChars
		}
	}
	return s, nil
}

func isAllowedCityRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'':
		return true
	}
	return false
}

// ParseCoordinates parses lat/lon query values and checks their ranges.
func ParseCoordinates(latStr, lonStr string) (lat, lon float64, err error) {
	latStr, lonStr = strings.TrimSpace(latStr), strings.TrimSpace(lonStr)
	if latStr == "" || lonStr == "" {
		return 0, 0, ErrCoordinatesInvalid
	}
	lat, err = strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, ErrCoordinatesInvalid
	}
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, ErrCoordinatesInvalid
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || lat != lat || lon != lon {
		return 0, 0, ErrCoordinatesInvalid
	}
	return lat, lon, nil
}
