package config

// Default values for configuration fields. rate.requests_per_minute
// defaults to a conservative 20: high enough that a single interactive
// search never queues, low enough to stay unremarkable to the upstream.
const (
	DefaultProxyPoolEnabled          = false
	DefaultRotationRequestsPerHandle = 10
	DefaultRotationWindowSeconds     = 300

	DefaultRequestsPerMinute = 20.0
	DefaultBurstAllowance    = 5
	DefaultRatePattern       = "steady"

	DefaultBehaviorProfile = "normal"

	DefaultRetryMaxAttempts   = 3
	DefaultRetryBackoffBaseMs = 500

	DefaultCacheEnabled    = true
	DefaultCacheTTLSeconds = 300
	DefaultCacheMaxEntries = 1000
	DefaultCacheDirectory  = "./cache"

	DefaultSearchConfidenceThreshold = 0.7
	DefaultSearchFuzzy               = false

	DefaultHTTPTimeoutSeconds = 30

	DefaultLanguage = "en"

	DefaultUpstreamBaseURL  = "https://locator.ice.gov"
	DefaultUpstreamFormPath = "/search"
)

// DefaultUserAgents seeds http.user_agents[] when the loaded configuration
// doesn't specify any, so the obfuscator always has a non-empty rotation
// list to draw from.
func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
}

// Default returns a fully-populated Config using the constants above,
// including the boolean defaults (cache enabled, proxy pool disabled) that
// ApplyDefaults cannot safely infer from a partially-loaded YAML document
// (a Go bool's zero value is indistinguishable from an explicit "false").
func Default() *Config {
	cfg := &Config{}
	cfg.Cache.Enabled = true
	cfg.ProxyPool.Enabled = DefaultProxyPoolEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields in cfg with their documented
// defaults. Loaded YAML values always win; this only backfills what the
// file omitted. Boolean fields are never touched here: a YAML document
// that explicitly sets `cache.enabled: false` must not be overwritten, and
// since Go's zero value for bool is also false, ApplyDefaults cannot tell
// the two apart. Load backfills cache.enabled itself from the raw YAML
// document when the key is absent, and Default() covers the no-file case.
func ApplyDefaults(cfg *Config) {
	if cfg.ProxyPool.Rotation.RequestsPerHandle == 0 {
		cfg.ProxyPool.Rotation.RequestsPerHandle = DefaultRotationRequestsPerHandle
	}
	if cfg.ProxyPool.Rotation.WindowSeconds == 0 {
		cfg.ProxyPool.Rotation.WindowSeconds = DefaultRotationWindowSeconds
	}

	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.RateLimit.BurstAllowance == 0 {
		cfg.RateLimit.BurstAllowance = DefaultBurstAllowance
	}
	if cfg.RateLimit.Pattern == "" {
		cfg.RateLimit.Pattern = DefaultRatePattern
	}

	if cfg.Behavior.Profile == "" {
		cfg.Behavior.Profile = DefaultBehaviorProfile
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = DefaultRetryMaxAttempts
	}
	if cfg.Retry.BackoffBaseMs == 0 {
		cfg.Retry.BackoffBaseMs = DefaultRetryBackoffBaseMs
	}

	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = DefaultCacheTTLSeconds
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Cache.Directory == "" {
		cfg.Cache.Directory = DefaultCacheDirectory
	}

	if cfg.Search.DefaultConfidenceThreshold == 0 {
		cfg.Search.DefaultConfidenceThreshold = DefaultSearchConfidenceThreshold
	}

	if cfg.HTTP.TimeoutSeconds == 0 {
		cfg.HTTP.TimeoutSeconds = DefaultHTTPTimeoutSeconds
	}
	if len(cfg.HTTP.UserAgents) == 0 {
		cfg.HTTP.UserAgents = DefaultUserAgents()
	}

	if cfg.Language.Default == "" {
		cfg.Language.Default = DefaultLanguage
	}

	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Upstream.FormPath == "" {
		cfg.Upstream.FormPath = DefaultUpstreamFormPath
	}
}
