package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"logging": {"level": "debug", "console": true, "file": {"enabled": false, "path": ""}},
		"batch": {"path": "contacts.csv"},
		"dispatch": {"default_country_code": "+49", "delay_between": "1s", "max_retries": 3},
		"executor": {"backend": "script"}
	}`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Dispatch.DefaultCountryCode != "+49" || cfg.Dispatch.MaxRetries != 3 {
		t.Fatalf("dispatch = %+v", cfg.Dispatch)
	}
	if cfg.Batch.Path != "contacts.csv" {
		t.Fatalf("batch = %+v", cfg.Batch)
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: info
  console: true
batch:
  path: contacts.xlsx
  sheet: Contacts
dispatch:
  delay_between: 500ms
executor:
  backend: gateway
  gateway:
    base_url: http://localhost:9000
    rate_per_min: 10
storage:
  driver: file
  path: ./store
`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Batch.Sheet != "Contacts" {
		t.Fatalf("sheet = %q", cfg.Batch.Sheet)
	}
	if cfg.Executor.Gateway == nil || cfg.Executor.Gateway.RatePerMin != 10 {
		t.Fatalf("gateway = %+v", cfg.Executor.Gateway)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "file" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"executor": {"backend": "script"}, "typo_field": 1}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"executor": {"backend": "script"}}{"more": true}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()
	cfg := &Config{Executor: ExecutorConfig{Backend: "script"}}
	ApplyDefaults(cfg)
	if cfg.Dispatch.DefaultCountryCode != DefaultCountryCode {
		t.Fatalf("country code = %q", cfg.Dispatch.DefaultCountryCode)
	}
	if cfg.Dispatch.DelayBetween != DefaultDelayBetween || cfg.Dispatch.MaxRetries != DefaultMaxRetries {
		t.Fatalf("dispatch defaults = %+v", cfg.Dispatch)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid script", mutate: func(c *Config) {}},
		{name: "missing backend", mutate: func(c *Config) { c.Executor.Backend = "" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Executor.Backend = "carrier-pigeon" }, wantErr: true},
		{name: "gateway without base_url", mutate: func(c *Config) {
			c.Executor.Backend = "gateway"
			c.Executor.Gateway = &GatewayConfig{}
		}, wantErr: true},
		{name: "bad country code", mutate: func(c *Config) { c.Dispatch.DefaultCountryCode = "20" }, wantErr: true},
		{name: "bad duration", mutate: func(c *Config) { c.Dispatch.DelayBetween = "two seconds" }, wantErr: true},
		{name: "trigger without spec", mutate: func(c *Config) { c.Trigger = &TriggerConfig{Enabled: true} }, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Executor: ExecutorConfig{Backend: "script"}}
			ApplyDefaults(cfg)
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", "  "); err != nil || d != 0 {
		t.Fatalf("empty = (%v, %v)", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatal("negative duration accepted")
	}
	if d, err := ParseDurationField("x", "1m30s"); err != nil || d != 90*time.Second {
		t.Fatalf("parse = (%v, %v)", d, err)
	}
}

func TestLoadRunsValidator(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"executor": {"backend": "script"}}`)

	m := NewManager(path)
	m.SetValidator(func(c *Config) error {
		ApplyDefaults(c)
		return Validate(c)
	})
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Dispatch.DefaultCountryCode != DefaultCountryCode {
		t.Fatalf("country code = %q, want %q", cfg.Dispatch.DefaultCountryCode, DefaultCountryCode)
	}
	if cfg.Dispatch.DelayBetween != DefaultDelayBetween || cfg.Dispatch.MaxRetries != DefaultMaxRetries {
		t.Fatalf("dispatch defaults not applied: %+v", cfg.Dispatch)
	}
	if got := m.Get(); got == nil || got.Dispatch.DefaultCountryCode != DefaultCountryCode {
		t.Fatal("committed config missing defaults")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"dispatch": {"default_country_code": "20"},
		"executor": {"backend": "script"}
	}`)

	m := NewManager(path)
	m.SetValidator(func(c *Config) error {
		ApplyDefaults(c)
		return Validate(c)
	})
	if _, err := m.Load(); err == nil {
		t.Fatal("Load accepted a country code without '+'")
	}
	if m.Get() != nil {
		t.Fatal("rejected config was committed")
	}
}
