package config

import "errors"

// ErrMissingStoreCredential is the only fatal misconfiguration: without a
// store credential no cycle may run. Every notification channel credential
// is optional and merely disables its channel.
var ErrMissingStoreCredential = errors.New("store credential is required (set store.key or STORE_KEY)")

type Config struct {
	Logging LoggingConfig `json:"logging"`
	Store   StoreConfig   `json:"store"`
	Watch   WatchConfig   `json:"watch"`
	Notify  NotifyConfig  `json:"notify"`

	// Schedule is a cron spec (5-field or @every form). Empty means the
	// process runs exactly one cycle and exits; an external scheduler is
	// then responsible for periodic invocation and for never overlapping
	// runs.
	Schedule string `json:"schedule,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StoreConfig selects the persistence backend.
//
// Driver values:
//   - "rest": PostgREST-style HTTP store (endpoint + service credential)
//   - "sqlite": local SQLite database file
//
// If Driver is empty, "sqlite" is inferred when Path is set, otherwise
// "rest" (the hosted store this system historically ran against).
type StoreConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	URL         string `json:"url,omitempty"`
	Key         string `json:"key,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	Timeout     string `json:"timeout,omitempty"`      // Go duration string (rest)
}

type WatchConfig struct {
	Catalog  CatalogWatch   `json:"catalog"`
	Variants []VariantWatch `json:"variants,omitempty"`
}

// CatalogWatch configures the JSON catalog source. The adapter returns
// everything it parses; Keyword is applied by the detector.
type CatalogWatch struct {
	URL     string `json:"url"`
	Keyword string `json:"keyword"`
	Timeout string `json:"timeout,omitempty"` // Go duration string
}

// VariantWatch configures one scraped (product, variant) availability check.
type VariantWatch struct {
	PageURL      string `json:"page_url"`
	ProductName  string `json:"product_name"`
	VariantLabel string `json:"variant_label"`

	// Key is the persisted variant id. Defaults to a slug of
	// product_name/variant_label when omitted.
	Key string `json:"key,omitempty"`

	// AlertOnFirstSight controls whether a first-ever in-stock observation
	// (no persisted baseline) fires an alert. Defaults to true.
	AlertOnFirstSight *bool `json:"alert_on_first_sight,omitempty"`

	Timeout string `json:"timeout,omitempty"` // Go duration string
}

type NotifyConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`

	Email    EmailConfig    `json:"email"`
	Webhook  WebhookConfig  `json:"webhook"`
	Telegram TelegramConfig `json:"telegram"`
}

// EmailConfig configures SMTP submission. The channel is enabled only when
// Sender, Password and Receiver are all present.
type EmailConfig struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Sender   string `json:"sender,omitempty"`
	Password string `json:"password,omitempty"`
	Receiver string `json:"receiver,omitempty"`
}

// WebhookConfig configures the JSON webhook channel (Discord-compatible
// embed payload). Enabled when URL is present.
type WebhookConfig struct {
	URL string `json:"url,omitempty"`
}

// TelegramConfig configures the Telegram channel. Enabled when both Token
// and ChatID are present.
type TelegramConfig struct {
	Token  string `json:"token,omitempty"`
	ChatID int64  `json:"chat_id,omitempty"`
}
