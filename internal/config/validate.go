package config

import (
	"fmt"
	"strings"
)

// Defaults mirror the tool's historical config.ini values.
const (
	DefaultCountryCode  = "+20"
	DefaultDelayBetween = "2s"
	DefaultWaitTimeout  = "20s"
	DefaultMaxRetries   = 2
	DefaultRetryBase    = "1s"
	DefaultHTTPAddr     = "127.0.0.1:8080"
)

// ApplyDefaults fills omitted fields in place.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	d := &cfg.Dispatch
	if d.DefaultCountryCode == "" {
		d.DefaultCountryCode = DefaultCountryCode
	}
	if d.DelayBetween == "" {
		d.DelayBetween = DefaultDelayBetween
	}
	if d.MaxRetries <= 0 {
		d.MaxRetries = DefaultMaxRetries
	}
	if d.RetryBase == "" {
		d.RetryBase = DefaultRetryBase
	}
	if cfg.Executor.Backend == "gateway" && cfg.Executor.Gateway != nil && cfg.Executor.Gateway.WaitTimeout == "" {
		cfg.Executor.Gateway.WaitTimeout = DefaultWaitTimeout
	}
	if cfg.HTTP != nil && cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = DefaultHTTPAddr
	}
}

// Validate rejects configs that cannot produce a working run.
// Failures here are fatal before a run starts.
func Validate(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Executor.Backend)) {
	case "gateway":
		if cfg.Executor.Gateway == nil || strings.TrimSpace(cfg.Executor.Gateway.BaseURL) == "" {
			return fmt.Errorf("executor.gateway.base_url is required for the gateway backend")
		}
	case "script", "dry-run":
	case "":
		return fmt.Errorf("executor.backend is required")
	default:
		return fmt.Errorf("unknown executor.backend %q", cfg.Executor.Backend)
	}

	if !strings.HasPrefix(cfg.Dispatch.DefaultCountryCode, "+") {
		return fmt.Errorf("dispatch.default_country_code must start with '+'")
	}

	for _, f := range []struct{ path, raw string }{
		{"dispatch.delay_between", cfg.Dispatch.DelayBetween},
		{"dispatch.retry_base", cfg.Dispatch.RetryBase},
		{"dispatch.retry_max_delay", cfg.Dispatch.RetryMaxDelay},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	if cfg.Executor.Gateway != nil {
		if _, err := ParseDurationField("executor.gateway.wait_timeout", cfg.Executor.Gateway.WaitTimeout); err != nil {
			return err
		}
	}
	if cfg.Executor.Script != nil {
		if _, err := ParseDurationField("executor.script.send_delay", cfg.Executor.Script.SendDelay); err != nil {
			return err
		}
	}
	if cfg.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			return err
		}
	}

	if cfg.Trigger != nil && cfg.Trigger.Enabled && strings.TrimSpace(cfg.Trigger.Spec) == "" {
		return fmt.Errorf("trigger.spec is required when the trigger is enabled")
	}
	return nil
}
