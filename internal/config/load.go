package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Compiled defaults match the site this monitor was originally built for.
const (
	defaultCatalogURL = "https://halfsumo.com/collections/jiu-jitsu/products.json?limit=250"
	defaultKeyword    = "belt"
	defaultSMTPHost   = "smtp.gmail.com"
	defaultSMTPPort   = 587
)

// Load reads the config file (optional; a missing file yields defaults),
// overlays recognized environment variables, fills defaults and validates.
// Environment always wins over the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		parsed, perr := parse(path, b)
		if perr != nil {
			return nil, perr
		}
		cfg = parsed
	case errors.Is(err, os.ErrNotExist):
		// env-only operation is supported
	default:
		return nil, err
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(path string, b []byte) (*Config, error) {
	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("config %s: trailing data", path)
		}
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays the recognized environment keys. Names are kept
// compatible with the GitHub Actions secrets the original deployment used.
func applyEnv(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setStr(&cfg.Store.URL, "STORE_URL")
	setStr(&cfg.Store.Key, "STORE_KEY")
	setStr(&cfg.Store.Driver, "STORE_DRIVER")
	setStr(&cfg.Store.Path, "STORE_PATH")

	setStr(&cfg.Notify.Email.Sender, "SENDER_EMAIL")
	setStr(&cfg.Notify.Email.Password, "SENDER_PASSWORD")
	setStr(&cfg.Notify.Email.Receiver, "RECEIVER_EMAIL")
	setStr(&cfg.Notify.Webhook.URL, "WEBHOOK_URL")
	setStr(&cfg.Notify.Telegram.Token, "TELEGRAM_TOKEN")

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Notify.Telegram.ChatID = id
		}
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "INFO"
	}
	if !cfg.Logging.Console && !cfg.Logging.File.Enabled {
		cfg.Logging.Console = true
	}

	if strings.TrimSpace(cfg.Store.Driver) == "" {
		if strings.TrimSpace(cfg.Store.Path) != "" {
			cfg.Store.Driver = "sqlite"
		} else {
			cfg.Store.Driver = "rest"
		}
	}

	if strings.TrimSpace(cfg.Watch.Catalog.URL) == "" {
		cfg.Watch.Catalog.URL = defaultCatalogURL
	}
	if strings.TrimSpace(cfg.Watch.Catalog.Keyword) == "" {
		cfg.Watch.Catalog.Keyword = defaultKeyword
	}
	for i := range cfg.Watch.Variants {
		v := &cfg.Watch.Variants[i]
		if strings.TrimSpace(v.Key) == "" {
			v.Key = slug(v.ProductName) + "/" + slug(v.VariantLabel)
		}
	}

	if strings.TrimSpace(cfg.Notify.Email.Host) == "" {
		cfg.Notify.Email.Host = defaultSMTPHost
	}
	if cfg.Notify.Email.Port == 0 {
		cfg.Notify.Email.Port = defaultSMTPPort
	}
	if cfg.Notify.RatePerSec <= 0 {
		cfg.Notify.RatePerSec = 1
	}
}

// Validate checks the startup-fatal conditions. Channel credentials are
// deliberately not validated here; an absent credential disables a channel.
func Validate(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Driver)) {
	case "rest":
		if strings.TrimSpace(cfg.Store.URL) == "" {
			return errors.New("store.url is required for the rest driver (or set STORE_URL)")
		}
		if strings.TrimSpace(cfg.Store.Key) == "" {
			return ErrMissingStoreCredential
		}
	case "sqlite", "sqlite3":
		if strings.TrimSpace(cfg.Store.Path) == "" {
			return errors.New("store.path is required for the sqlite driver (or set STORE_PATH)")
		}
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	for i, v := range cfg.Watch.Variants {
		if strings.TrimSpace(v.PageURL) == "" {
			return fmt.Errorf("watch.variants[%d]: page_url is required", i)
		}
		if strings.TrimSpace(v.VariantLabel) == "" {
			return fmt.Errorf("watch.variants[%d]: variant_label is required", i)
		}
		if _, err := ParseDurationField(fmt.Sprintf("watch.variants[%d].timeout", i), v.Timeout); err != nil {
			return err
		}
	}
	if _, err := ParseDurationField("watch.catalog.timeout", cfg.Watch.Catalog.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("store.busy_timeout", cfg.Store.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("store.timeout", cfg.Store.Timeout); err != nil {
		return err
	}
	return nil
}

// FirstSight reports the effective alert-on-first-sight policy for a
// variant watch (default true: the historical behavior is to alert when the
// first-ever observation is already in stock).
func (v VariantWatch) FirstSight() bool {
	if v.AlertOnFirstSight == nil {
		return true
	}
	return *v.AlertOnFirstSight
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
