// Package config implements the recognized configuration options as a
// single closed Go struct, loaded from YAML.
package config
