package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every FieldError found while validating a
// Config, so a caller sees every problem at once instead of one-at-a-time.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

var validProxyKinds = map[string]bool{"residential": true, "datacenter": true, "socks5": true}
var validRatePatterns = map[string]bool{"steady": true, "burst": true, "gradual_ramp": true, "random": true, "adaptive": true}
var validBehaviorProfiles = map[string]bool{"fast": true, "normal": true, "slow": true}
var validLanguages = map[string]bool{"en": true, "es": true}

// Validate checks every field in cfg against the recognized options and
// their constraints. It returns a ValidationError collecting every problem
// found, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError

	for i, p := range cfg.ProxyPool.Providers {
		if p.Endpoint == "" {
			errs = append(errs, FieldError{fmt.Sprintf("proxy.providers[%d].endpoint", i), "endpoint is required"})
		}
		if p.Kind != "" && !validProxyKinds[p.Kind] {
			errs = append(errs, FieldError{fmt.Sprintf("proxy.providers[%d].kind", i), "kind must be residential, datacenter, or socks5"})
		}
	}
	if cfg.ProxyPool.Rotation.RequestsPerHandle < 0 {
		errs = append(errs, FieldError{"proxy.rotation.requests_per_handle", "must be >= 0"})
	}

	if cfg.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, FieldError{"rate.requests_per_minute", "must be >= 0"})
	}
	if cfg.RateLimit.BurstAllowance < 0 {
		errs = append(errs, FieldError{"rate.burst_allowance", "must be >= 0"})
	}
	if cfg.RateLimit.Pattern != "" && !validRatePatterns[cfg.RateLimit.Pattern] {
		errs = append(errs, FieldError{"rate.pattern", "must be one of steady, burst, gradual_ramp, random, adaptive"})
	}

	if cfg.Behavior.Profile != "" && !validBehaviorProfiles[cfg.Behavior.Profile] {
		errs = append(errs, FieldError{"behavior.profile", "must be one of fast, normal, slow"})
	}

	if cfg.Retry.MaxAttempts < 0 {
		errs = append(errs, FieldError{"retry.max_attempts", "must be >= 0"})
	}
	if cfg.Retry.BackoffBaseMs < 0 {
		errs = append(errs, FieldError{"retry.backoff_base_ms", "must be >= 0"})
	}

	if cfg.Cache.TTLSeconds < 0 {
		errs = append(errs, FieldError{"cache.ttl_seconds", "must be >= 0"})
	}
	if cfg.Cache.MaxEntries < 0 {
		errs = append(errs, FieldError{"cache.max_entries", "must be >= 0"})
	}

	if cfg.Search.DefaultConfidenceThreshold < 0 || cfg.Search.DefaultConfidenceThreshold > 1 {
		errs = append(errs, FieldError{"search.default_confidence_threshold", "must be in [0,1]"})
	}

	if cfg.HTTP.TimeoutSeconds < 0 {
		errs = append(errs, FieldError{"http.timeout_seconds", "must be >= 0"})
	}

	if cfg.Language.Default != "" && !validLanguages[cfg.Language.Default] {
		errs = append(errs, FieldError{"language.default", "must be en or es"})
	}

	if cfg.Upstream.BaseURL != "" {
		u, err := url.Parse(cfg.Upstream.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{"upstream.base_url", "must be an absolute URL"})
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
