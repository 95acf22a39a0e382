package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a YAML configuration file at path, applies
// documented defaults to any field the file omits, and validates the
// result. An option key outside the enumerated set is a load-time error
// (yaml.Decoder's KnownFields strict mode).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	applyBoolDefaultsFromRaw(cfg, data)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyBoolDefaultsFromRaw backfills cache.enabled when the document omits
// it entirely, by checking for the key's literal presence in the raw YAML
// rather than trusting the zero value (see ApplyDefaults's doc comment).
func applyBoolDefaultsFromRaw(cfg *Config, raw []byte) {
	var probe map[string]any
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return
	}
	cacheSection, _ := probe["cache"].(map[string]any)
	if _, present := cacheSection["enabled"]; !present {
		cfg.Cache.Enabled = true
	}
	proxySection, _ := probe["proxy"].(map[string]any)
	if _, present := proxySection["enabled"]; !present {
		cfg.ProxyPool.Enabled = DefaultProxyPoolEnabled
	}
}
