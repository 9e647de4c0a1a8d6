// Package settings loads and saves the user-editable dashboard settings:
// the metrics API URL, its bearer token and the refresh interval.
package settings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/HatiCode/kpiboard/pkg/storage"
)

// Storage keys.
const (
	KeyAPIURL          = "apiUrl"
	KeyAPIKey          = "apiKey"
	KeyRefreshInterval = "refreshInterval"
)

// DefaultRefreshMinutes is used when no interval is stored or it is zero.
const DefaultRefreshMinutes = 5

var (
	ErrURLRequired = errors.New("settings: API URL is required")
	ErrInvalidURL  = errors.New("settings: API URL must be an absolute http or https URL")
)

// Settings is the persisted dashboard configuration.
type Settings struct {
	APIURL string `json:"apiUrl"`
	APIKey string `json:"apiKey"`
	// RefreshInterval is in minutes. Negative disables auto refresh.
	RefreshInterval int `json:"refreshInterval"`
}

// Defaults returns unconfigured settings with the default interval.
func Defaults() Settings {
	return Settings{RefreshInterval: DefaultRefreshMinutes}
}

// Configured reports whether an API URL is set.
func (s Settings) Configured() bool { return s.APIURL != "" }

// Interval returns the refresh interval as a duration, 0 when disabled.
func (s Settings) Interval() time.Duration {
	if s.RefreshInterval <= 0 {
		return 0
	}
	return time.Duration(s.RefreshInterval) * time.Minute
}

// Masked returns a copy safe to show: the key keeps only its last 4 characters.
func (s Settings) Masked() Settings {
	if n := len(s.APIKey); n > 0 {
		visible := ""
		if n > 8 {
			visible = s.APIKey[n-4:]
		}
		s.APIKey = strings.Repeat("*", 8) + visible
	}
	return s
}

// Normalize trims the fields and applies the default interval, then
// validates the URL.
func (s Settings) Normalize() (Settings, error) {
	s.APIURL = strings.TrimSpace(s.APIURL)
	s.APIKey = strings.TrimSpace(s.APIKey)
	if s.RefreshInterval == 0 {
		s.RefreshInterval = DefaultRefreshMinutes
	}

	if s.APIURL == "" {
		return s, ErrURLRequired
	}
	u, err := url.Parse(s.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return s, ErrInvalidURL
	}
	return s, nil
}

// Load reads the settings from store. Missing keys fall back to defaults.
// On a storage error the defaults are returned together with the error.
func Load(ctx context.Context, store storage.Store) (Settings, error) {
	s := Defaults()

	apiURL, _, err := store.Get(ctx, KeyAPIURL)
	if err != nil {
		return Defaults(), fmt.Errorf("load %s: %w", KeyAPIURL, err)
	}
	apiKey, _, err := store.Get(ctx, KeyAPIKey)
	if err != nil {
		return Defaults(), fmt.Errorf("load %s: %w", KeyAPIKey, err)
	}
	interval, found, err := store.Get(ctx, KeyRefreshInterval)
	if err != nil {
		return Defaults(), fmt.Errorf("load %s: %w", KeyRefreshInterval, err)
	}

	s.APIURL = apiURL
	s.APIKey = apiKey
	if found {
		if n, err := strconv.Atoi(strings.TrimSpace(interval)); err == nil && n != 0 {
			s.RefreshInterval = n
		}
	}
	return s, nil
}

// Save validates s and writes all three keys. It returns the normalized
// settings that were stored.
func Save(ctx context.Context, store storage.Store, s Settings) (Settings, error) {
	s, err := s.Normalize()
	if err != nil {
		return s, err
	}

	writes := []struct{ key, value string }{
		{KeyAPIURL, s.APIURL},
		{KeyAPIKey, s.APIKey},
		{KeyRefreshInterval, strconv.Itoa(s.RefreshInterval)},
	}
	for _, w := range writes {
		if err := store.Set(ctx, w.key, w.value); err != nil {
			return s, fmt.Errorf("save %s: %w", w.key, err)
		}
	}
	return s, nil
}
