// Package config defines the single closed configuration structure for the
// search core. Every recognized option is a named field; loading a YAML
// document with a key outside this set is a load-time error.
package config

// Config is the root configuration structure.
type Config struct {
	ProxyPool ProxyPoolConfig `yaml:"proxy"`
	RateLimit RateLimitConfig `yaml:"rate"`
	Behavior  BehaviorConfig  `yaml:"behavior"`
	Retry     RetryConfig     `yaml:"retry"`
	Cache     CacheConfig     `yaml:"cache"`
	Search    SearchConfig    `yaml:"search"`
	HTTP      HTTPConfig      `yaml:"http"`
	Language  LanguageConfig  `yaml:"language"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
}

// UpstreamConfig points the pipeline at the detainee-lookup site it scrapes.
// Kept separate from HTTPConfig since BaseURL/FormPath describe the target,
// not the client's own transport behavior.
type UpstreamConfig struct {
	BaseURL     string   `yaml:"base_url"`
	FormPath    string   `yaml:"form_path"`
	ActionHints []string `yaml:"action_hints"`
}

// ProxyPoolConfig configures the Proxy Pool Manager.
type ProxyPoolConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Providers []ProxyProvider `yaml:"providers"`
	Rotation  RotationConfig  `yaml:"rotation"`
}

// ProxyProvider describes one configured proxy provider/endpoint.
type ProxyProvider struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Kind     string `yaml:"kind"` // residential | datacenter | socks5
	Region   string `yaml:"region"`
}

// RotationConfig configures forced proxy rotation. WindowSeconds is a
// plain second count, matching the option name; conversion to a Duration
// happens where the pool is wired.
type RotationConfig struct {
	RequestsPerHandle int `yaml:"requests_per_handle"`
	WindowSeconds     int `yaml:"window_seconds"`
}

// RateLimitConfig configures the Traffic Distributor.
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	BurstAllowance    int     `yaml:"burst_allowance"`
	Pattern           string  `yaml:"pattern"` // steady|burst|gradual_ramp|random|adaptive
}

// BehaviorConfig configures the Behavior Simulator.
type BehaviorConfig struct {
	Profile string `yaml:"profile"` // fast|normal|slow
}

// RetryConfig configures the Search Orchestrator's retry loop.
// BackoffBaseMs is a millisecond count, matching the option name.
type RetryConfig struct {
	MaxAttempts   int `yaml:"max_attempts"`
	BackoffBaseMs int `yaml:"backoff_base_ms"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	MaxEntries int    `yaml:"max_entries"`
	Directory  string `yaml:"directory"`
}

// SearchConfig configures orchestrator-level search defaults.
type SearchConfig struct {
	DefaultConfidenceThreshold float64 `yaml:"default_confidence_threshold"`
	DefaultFuzzy               bool    `yaml:"default_fuzzy"`
}

// HTTPConfig configures the outbound HTTP client. TimeoutSeconds is a
// plain second count, matching the option name.
type HTTPConfig struct {
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	UserAgents     []string `yaml:"user_agents"`
}

// LanguageConfig configures the default upstream/output language.
type LanguageConfig struct {
	Default string `yaml:"default"`
}

// MetricsConfig configures the Prometheus metrics collector and its /metrics
// HTTP handler.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`

	// SearchDurationBuckets overrides the histogram buckets (in seconds) used
	// for search duration; zero value falls back to a default spread.
	SearchDurationBuckets []float64 `yaml:"search_duration_buckets"`
}
