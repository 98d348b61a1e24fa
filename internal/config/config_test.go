package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
store:
  path: ./state.db
watch:
  catalog:
    url: https://shop.example/products.json
    keyword: gi
  variants:
    - page_url: https://shop.example/products/gi
      product_name: Competition Gi
      variant_label: A2
schedule: "*/30 * * * *"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Fatalf("driver inference: got %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.Watch.Catalog.Keyword != "gi" {
		t.Fatalf("keyword = %q", cfg.Watch.Catalog.Keyword)
	}
	if cfg.Schedule != "*/30 * * * *" {
		t.Fatalf("schedule = %q", cfg.Schedule)
	}
	if got := cfg.Watch.Variants[0].Key; got != "competition-gi/a2" {
		t.Fatalf("derived key = %q", got)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "store:\n  path: ./x.db\n  nope: true\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("STORE_URL", "https://db.example")
	t.Setenv("STORE_KEY", "service-key")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != "rest" {
		t.Fatalf("driver = %q, want rest", cfg.Store.Driver)
	}
	if cfg.Watch.Catalog.URL != defaultCatalogURL {
		t.Fatalf("catalog url = %q", cfg.Watch.Catalog.URL)
	}
	if cfg.Watch.Catalog.Keyword != defaultKeyword {
		t.Fatalf("keyword = %q", cfg.Watch.Catalog.Keyword)
	}
	if cfg.Notify.Email.Host != defaultSMTPHost || cfg.Notify.Email.Port != defaultSMTPPort {
		t.Fatalf("smtp defaults = %s:%d", cfg.Notify.Email.Host, cfg.Notify.Email.Port)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "store:\n  url: https://file.example\n  key: file-key\n")
	t.Setenv("STORE_URL", "https://env.example")
	t.Setenv("STORE_KEY", "env-key")
	t.Setenv("TELEGRAM_CHAT_ID", "123456")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.URL != "https://env.example" || cfg.Store.Key != "env-key" {
		t.Fatalf("env overlay lost: %+v", cfg.Store)
	}
	if cfg.Notify.Telegram.ChatID != 123456 {
		t.Fatalf("chat id = %d", cfg.Notify.Telegram.ChatID)
	}
}

func TestMissingStoreCredentialIsFatal(t *testing.T) {
	path := writeConfig(t, "store:\n  url: https://db.example\n")
	_, err := Load(path)
	if !errors.Is(err, ErrMissingStoreCredential) {
		t.Fatalf("err = %v, want ErrMissingStoreCredential", err)
	}
}

func TestValidateVariantRequirements(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "./x.db"
	cfg.Watch.Variants = []VariantWatch{{ProductName: "Gi"}}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing page_url")
	}
	cfg.Watch.Variants[0].PageURL = "https://shop.example/products/gi"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing variant_label")
	}
	cfg.Watch.Variants[0].VariantLabel = "A2"
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsBadDurations(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "./x.db"
	cfg.Store.BusyTimeout = "not-a-duration"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestFirstSightDefault(t *testing.T) {
	t.Parallel()
	var v VariantWatch
	if !v.FirstSight() {
		t.Fatal("default must be alert-on-first-sight")
	}
	off := false
	v.AlertOnFirstSight = &off
	if v.FirstSight() {
		t.Fatal("explicit false ignored")
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()
	cases := []struct{ in, want string }{
		{"Competition Gi", "competition-gi"},
		{"  A2  ", "a2"},
		{"Belt (Black/Red)", "belt-black-red"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := slug(tc.in); got != tc.want {
			t.Errorf("slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
