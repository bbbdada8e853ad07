package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateStore(cfg, ve)
	validateCycle(cfg, ve)
	validateDisplay(cfg, ve)
	validateSuggest(cfg, ve)
	validateTitle(cfg, ve)
	validateGateway(cfg, ve)
	validateAutostart(cfg, ve)
	validateLogger(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateStore(cfg *Config, ve *ValidationError) {
	switch cfg.Store.Backend {
	case "file", "sqlite":
	default:
		ve.Add("store.backend %q is invalid (want: file, sqlite)", cfg.Store.Backend)
	}
	if cfg.Store.DataDir == "" {
		ve.Add("store.data_dir must not be empty")
	}
}

func validateCycle(cfg *Config, ve *ValidationError) {
	if cfg.Cycle.StartupDelay < 0 {
		ve.Add("cycle.startup_delay must be >= 0")
	}
	if cfg.Cycle.MinInterval <= 0 {
		ve.Add("cycle.min_interval must be > 0")
	}
}

func validateDisplay(cfg *Config, ve *ValidationError) {
	switch cfg.Display.Backend {
	case "chromedp":
		if cfg.Display.Timeout <= 0 {
			ve.Add("display.timeout must be > 0")
		}
		if cfg.Display.WindowWidth <= 0 || cfg.Display.WindowHeight <= 0 {
			ve.Add("display.window_width and display.window_height must be > 0")
		}
		if cfg.Display.RemoteURL != "" {
			if u, err := url.Parse(cfg.Display.RemoteURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "http") {
				ve.Add("display.remote_url %q must be a ws://, wss:// or http:// URL", cfg.Display.RemoteURL)
			}
		}
	case "frame":
		if !cfg.Gateway.Enabled {
			ve.Add("display.backend \"frame\" requires gateway.enabled")
		}
	case "none":
	default:
		ve.Add("display.backend %q is invalid (want: chromedp, frame, none)", cfg.Display.Backend)
	}
}

func validateSuggest(cfg *Config, ve *ValidationError) {
	if !cfg.Suggest.Enabled {
		return
	}
	p := cfg.LLM.Provider
	if p.BaseURL == "" {
		ve.Add("llm.provider.base_url is required when suggest is enabled")
	}
	if p.Model == "" {
		ve.Add("llm.provider.model is required when suggest is enabled")
	}
	if p.RespTimeout <= 0 {
		ve.Add("llm.provider.resp_timeout must be > 0")
	}
	if cfg.Suggest.MaxSuggestions <= 0 {
		ve.Add("suggest.max_suggestions must be > 0")
	}
	if cfg.LLM.CircuitBreaker.Enabled && cfg.LLM.CircuitBreaker.MaxFailures == 0 {
		ve.Add("llm.circuit_breaker.max_failures must be > 0 when the breaker is enabled")
	}
}

func validateTitle(cfg *Config, ve *ValidationError) {
	switch cfg.Title.Mode {
	case "off":
		return
	case "proxy":
		if cfg.Title.ProxyURL == "" {
			ve.Add("title.proxy_url is required in proxy mode")
		}
	case "direct":
	default:
		ve.Add("title.mode %q is invalid (want: proxy, direct, off)", cfg.Title.Mode)
		return
	}
	if cfg.Title.Timeout <= 0 {
		ve.Add("title.timeout must be > 0")
	}
	if cfg.Title.RatePerSecond <= 0 {
		ve.Add("title.rate_per_second must be > 0")
	}
	if cfg.Title.Burst <= 0 {
		ve.Add("title.burst must be > 0")
	}
}

func validateGateway(cfg *Config, ve *ValidationError) {
	if !cfg.Gateway.Enabled {
		return
	}
	if cfg.Gateway.Addr == "" {
		ve.Add("gateway.addr is required when gateway is enabled")
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Gateway.Addr); err != nil {
		ve.Add("gateway.addr %q is not a valid host:port", cfg.Gateway.Addr)
	}
	if cfg.Gateway.RateLimit.RequestsPerMin < 0 || cfg.Gateway.RateLimit.Burst < 0 {
		ve.Add("gateway.rate_limit values must be >= 0")
	}
	for i, t := range cfg.Gateway.Auth.Tokens {
		if t.Token == "" {
			ve.Add("gateway.auth.tokens[%d].token must not be empty", i)
		}
	}
}

func validateAutostart(cfg *Config, ve *ValidationError) {
	if !cfg.Autostart.Enabled {
		return
	}
	if cfg.Autostart.Start == "" && cfg.Autostart.Stop == "" {
		ve.Add("autostart requires a start or stop schedule")
	}
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
	switch cfg.Logger.Format {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
}
