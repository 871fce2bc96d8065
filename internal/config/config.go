// Package config loads the optional YAML settings file, a .env file and
// HABITA_* environment overrides, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/habita/internal/constants"
	"github.com/julianstephens/habita/internal/utils"
)

const envPrefix = "HABITA_"

type Config struct {
	Timezone      string              `yaml:"timezone" json:"timezone"`
	Autosave      AutosaveConfig      `yaml:"autosave" json:"autosave"`
	Notifications NotificationsConfig `yaml:"notifications" json:"notifications"`
	Sync          SyncConfig          `yaml:"sync" json:"sync"`
	API           APIConfig           `yaml:"api" json:"api"`
}

type AutosaveConfig struct {
	DebounceMs int `yaml:"debounce_ms" json:"debounce_ms"`
	MaxPending int `yaml:"max_pending" json:"max_pending"`
}

type NotificationsConfig struct {
	Enabled *bool         `yaml:"enabled" json:"enabled"`
	Tray    *bool         `yaml:"tray" json:"tray"`
	WebPush WebPushConfig `yaml:"webpush" json:"webpush"`
}

type WebPushConfig struct {
	Subject          string `yaml:"subject" json:"subject"`
	PublicKey        string `yaml:"public_key" json:"public_key"`
	PrivateKey       string `yaml:"private_key" json:"-"`
	SubscriptionFile string `yaml:"subscription_file" json:"subscription_file"`
}

type SyncConfig struct {
	URL         string `yaml:"url" json:"url"`
	KeyringUser string `yaml:"keyring_user" json:"keyring_user"`
}

type APIConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	JWTSecret string `yaml:"jwt_secret" json:"-"`
}

func boolPtr(b bool) *bool { return &b }

// ApplyDefaults fills unset fields. Timezone and autosave debounce stay empty
// so the values persisted in the store can apply.
func (c *Config) ApplyDefaults() {
	if c.Autosave.MaxPending == 0 {
		c.Autosave.MaxPending = constants.DefaultAutosaveMaxPending
	}
	if c.Notifications.Enabled == nil {
		c.Notifications.Enabled = boolPtr(true)
	}
	if c.Notifications.Tray == nil {
		c.Notifications.Tray = boolPtr(true)
	}
	if c.Sync.KeyringUser == "" {
		c.Sync.KeyringUser = constants.DefaultKeyringUser
	}
	if c.API.Addr == "" {
		c.API.Addr = "127.0.0.1:8420"
	}
}

// ApplyEnv overrides fields from HABITA_* variables.
func (c *Config) ApplyEnv() error {
	str := map[string]*string{
		"TIMEZONE":               &c.Timezone,
		"SYNC_URL":               &c.Sync.URL,
		"KEYRING_USER":           &c.Sync.KeyringUser,
		"API_ADDR":               &c.API.Addr,
		"JWT_SECRET":             &c.API.JWTSecret,
		"VAPID_SUBJECT":          &c.Notifications.WebPush.Subject,
		"VAPID_PUBLIC_KEY":       &c.Notifications.WebPush.PublicKey,
		"VAPID_PRIVATE_KEY":      &c.Notifications.WebPush.PrivateKey,
		"PUSH_SUBSCRIPTION_FILE": &c.Notifications.WebPush.SubscriptionFile,
	}
	for key, field := range str {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			*field = v
		}
	}

	ints := map[string]*int{
		"AUTOSAVE_DEBOUNCE_MS": &c.Autosave.DebounceMs,
		"AUTOSAVE_MAX_PENDING": &c.Autosave.MaxPending,
	}
	for key, field := range ints {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s must be an integer: %w", envPrefix, key, err)
			}
			*field = n
		}
	}

	bools := map[string]**bool{
		"NOTIFICATIONS": &c.Notifications.Enabled,
		"TRAY":          &c.Notifications.Tray,
	}
	for key, field := range bools {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s must be a boolean: %w", envPrefix, key, err)
			}
			*field = boolPtr(b)
		}
	}
	return nil
}

func (c Config) Validate() error {
	if c.Timezone != "" && !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	if c.Autosave.DebounceMs < 0 {
		return errors.New("autosave.debounce_ms cannot be negative")
	}
	if c.Autosave.MaxPending < 1 {
		return errors.New("autosave.max_pending must be at least 1")
	}
	return nil
}

// AutosaveDebounce returns the configured debounce, or fallback when unset.
// A non-positive fallback means the built-in default.
func (c Config) AutosaveDebounce(fallback time.Duration) time.Duration {
	if c.Autosave.DebounceMs > 0 {
		return time.Duration(c.Autosave.DebounceMs) * time.Millisecond
	}
	if fallback > 0 {
		return fallback
	}
	return constants.DefaultAutosaveDebounce
}

// TimezoneOr returns the configured timezone, or fallback when unset.
func (c Config) TimezoneOr(fallback string) string {
	if c.Timezone != "" {
		return c.Timezone
	}
	if fallback != "" {
		return fallback
	}
	return "Local"
}

func (c Config) NotificationsEnabled() bool {
	return c.Notifications.Enabled == nil || *c.Notifications.Enabled
}

func (c Config) TrayEnabled() bool {
	return c.Notifications.Tray == nil || *c.Notifications.Tray
}

// WebPushEnabled reports whether web push has everything it needs.
func (c Config) WebPushEnabled() bool {
	w := c.Notifications.WebPush
	return w.Subject != "" && w.PublicKey != "" && w.PrivateKey != "" && w.SubscriptionFile != ""
}

// Load reads envFile and path when they exist, then applies environment
// overrides and defaults. Missing files are not an error.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
	}

	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
