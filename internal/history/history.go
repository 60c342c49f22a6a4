// Package history keeps each user's recent city lookups, newest first.
package history

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kjstillabower/weather-lookup-service/internal/kvstore"
	"github.com/kjstillabower/weather-lookup-service/internal/models"
)

// DefaultMaxEntries is the list cap used when none is configured.
const DefaultMaxEntries = 10

const keyPrefix = "history:"

// Tracker stores one capped list per user. A city appears at most once (compared
// case-insensitively); searching it again moves it to the front.
type Tracker struct {
	mu         sync.Mutex
	kv         kvstore.Store
	maxEntries int
	now        func() time.Time
}

func NewTracker(kv kvstore.Store, maxEntries int) *Tracker {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Tracker{kv: kv, maxEntries: maxEntries, now: time.Now}
}

func key(userID string) string {
	return keyPrefix + userID
}

// List returns the user's history, newest first.
func (t *Tracker) List(ctx context.Context, userID string) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	if _, err := kvstore.GetJSON(ctx, t.kv, key(userID), &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return entries, nil
}

// Add records a lookup of city and returns the updated list.
func (t *Tracker) Add(ctx context.Context, userID, city, country string) ([]models.HistoryEntry, error) {
	city = strings.TrimSpace(city)
	t.mu.Lock()
	defer t.mu.Unlock()
	entries, err := t.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries = without(entries, city)
	entry := models.HistoryEntry{City: city, Country: country, SearchedAt: t.now().UTC()}
	entries = append([]models.HistoryEntry{entry}, entries...)
	if len(entries) > t.maxEntries {
		entries = entries[:t.maxEntries]
	}
	if err := kvstore.SetJSON(ctx, t.kv, key(userID), entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Remove drops city from the user's history. Missing cities are ignored.
func (t *Tracker) Remove(ctx context.Context, userID, city string) ([]models.HistoryEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entries, err := t.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries = without(entries, strings.TrimSpace(city))
	if err := kvstore.SetJSON(ctx, t.kv, key(userID), entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Clear deletes the user's history.
func (t *Tracker) Clear(ctx context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.kv.Remove(ctx, key(userID))
}

func without(entries []models.HistoryEntry, city string) []models.HistoryEntry {
	out := entries[:0]
	for _, e := range entries {
		if !strings.EqualFold(e.City, city) {
			out = append(out, e)
		}
	}
	return out
}

// View is a history entry decorated for display.
type View struct {
	models.HistoryEntry
	Ago string `json:"ago"`
}

// Views renders entries with a relative time such as "3 minutes ago".
func Views(entries []models.HistoryEntry, now time.Time) []View {
	out := make([]View, 0, len(entries))
	for _, e := range entries {
		out = append(out, View{
			HistoryEntry: e,
			Ago:          humanize.RelTime(e.SearchedAt, now, "ago", "from now"),
		})
	}
	return out
}
