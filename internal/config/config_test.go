package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataPath != "data/domain-price-history.json" {
		t.Errorf("unexpected data path %q", cfg.DataPath)
	}
	if cfg.Fetch.Driver != "chrome" || cfg.Fetch.PriceSelector != ".domain-price" {
		t.Errorf("unexpected fetch defaults: %+v", cfg.Fetch)
	}
	if cfg.Fetch.NavigationTimeout != 60*time.Second || cfg.Fetch.SelectorTimeout != 30*time.Second {
		t.Errorf("unexpected timeouts: %+v", cfg.Fetch)
	}
	if !cfg.Push.Enabled || cfg.Push.Sound != "pushover" || cfg.Push.FailurePolicy != "abort" {
		t.Errorf("unexpected push defaults: %+v", cfg.Push)
	}
	if cfg.Email.Enabled || cfg.Email.Subject != "Domain Price Alert: " || cfg.Email.SMTPPort != 587 {
		t.Errorf("unexpected email defaults: %+v", cfg.Email)
	}
	if cfg.Schedule.Cron != "0 0 9 * * *" {
		t.Errorf("unexpected cron %q", cfg.Schedule.Cron)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
domains: [example.com, example.org]
data_path: /tmp/history.json
fetch:
  driver: mock
  attempt_timeout: 45s
  mock_prices:
    example.com: "$9.99"
push:
  provider: telegram
  priority: -1
  telegram:
    chat_id: "100"
email:
  enabled: true
  subject: "Alert: "
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")
	t.Setenv("EMAIL_FROM", "me@example.com")
	t.Setenv("EMAIL_TO", "you@example.com")
	t.Setenv("EMAIL_PASSWORD", "secret")
	t.Setenv("PRICEWATCH_DOMAINS", "a.test, b.test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(cfg.Domains) != 2 || cfg.Domains[0] != "a.test" || cfg.Domains[1] != "b.test" {
		t.Errorf("expected env domains, got %v", cfg.Domains)
	}
	if cfg.Fetch.AttemptTimeout != 45*time.Second {
		t.Errorf("unexpected attempt timeout %v", cfg.Fetch.AttemptTimeout)
	}
	if cfg.Fetch.MockPrices["example.com"] != "$9.99" {
		t.Errorf("unexpected mock prices %v", cfg.Fetch.MockPrices)
	}
	if cfg.Push.Telegram.BotToken != "bot-token" || cfg.Push.Priority != -1 {
		t.Errorf("unexpected push config %+v", cfg.Push)
	}
	if cfg.Email.Subject != "Alert: " || cfg.Email.SMTPHost != "smtp.gmail.com" {
		t.Errorf("unexpected email config %+v", cfg.Email)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		cfg.Domains = []string{"example.com"}
		cfg.Push.User = "u"
		cfg.Push.Token = "t"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"no domains", func(c *Config) { c.Domains = nil }, false},
		{"empty domain", func(c *Config) { c.Domains = []string{""} }, false},
		{"duplicates allowed", func(c *Config) { c.Domains = []string{"a.test", "a.test"} }, true},
		{"missing pushover creds", func(c *Config) { c.Push.Token = "" }, false},
		{"push disabled", func(c *Config) { c.Push.Enabled = false; c.Push.Token = "" }, true},
		{"bad provider", func(c *Config) { c.Push.Provider = "sms" }, false},
		{"priority out of range", func(c *Config) { c.Push.Priority = 2 }, false},
		{"bad policy", func(c *Config) { c.Push.FailurePolicy = "ignore" }, false},
		{"email missing password", func(c *Config) {
			c.Email.Enabled = true
			c.Email.From = "a@b"
			c.Email.To = "c@d"
		}, false},
		{"bad driver", func(c *Config) { c.Fetch.Driver = "firefox" }, false},
		{"template without placeholder", func(c *Config) { c.Fetch.URLTemplate = "https://example.com" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Error("expected validation error")
				} else if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}
