/*
Package secrets provides a pluggable framework for loading secrets from
multiple sources.

# Overview

The secrets package lets the search core load credentials — proxy provider
usernames and passwords, chiefly — from environment variables or files
rather than storing them in plaintext configuration. Secrets are cached in
memory with a TTL to reduce backend calls.

# Secret Providers

The package supports multiple secret providers that can be chained together
with priority-based fallback. Each provider implements the SecretProvider
interface:

  - Environment Variable Provider: load secrets from environment variables
  - File-Based Provider: load secrets from individual files (Kubernetes-style)

# Basic Usage

Create a secret manager with multiple providers:

	import (
		"context"
		"time"
		"github.com/icelocator/locator-core/pkg/security/secrets"
	)

	envProvider := secrets.NewEnvProvider("ICELOCATOR_")
	fileProvider, _ := secrets.NewFileProvider("/var/secrets", true)

	manager := secrets.NewManager(
		[]secrets.SecretProvider{envProvider, fileProvider},
		secrets.CacheConfig{Enabled: true, TTL: 5 * time.Minute, MaxSize: 1000},
	)

	password, err := manager.GetSecret(context.Background(), "proxy-password")

# Secret References

The manager can resolve secret references in configuration strings using
the ${secret:name} syntax — this is how internal/app resolves a configured
proxy provider's username/password before seeding the pool:

	configValue := "${secret:proxy-password}"
	resolved, err := manager.ResolveReferences(context.Background(), configValue)

# Environment Variable Provider

The environment variable provider loads secrets from environment variables
with an optional prefix:

	provider := secrets.NewEnvProvider("ICELOCATOR_")

	// Secret name "proxy-password" maps to env var "ICELOCATOR_PROXY_PASSWORD"
	value, err := provider.GetSecret(ctx, "proxy-password")

Environment variable naming:
  - Secret name: "proxy-password"
  - Env var name: "ICELOCATOR_PROXY_PASSWORD"
  - Conversion: uppercase, replace hyphens with underscores, add prefix

# File-Based Provider

The file-based provider loads secrets from individual files in a directory:

	provider, err := secrets.NewFileProvider("/var/secrets", true)
	if err != nil {
		log.Fatal(err)
	}
	defer provider.Close()

	value, err := provider.GetSecret(ctx, "proxy-password")

File-based features:
  - File permissions validation (0600 or 0400 only)
  - Optional file watching for auto-reload
  - Kubernetes-style secret mounting support
  - Automatic cache invalidation on file changes

# Secret Caching

Secrets are cached in memory to reduce backend calls:

	cacheConfig := secrets.CacheConfig{
		Enabled: true,
		TTL:     5 * time.Minute,
		MaxSize: 1000,
	}

Cache features:
  - Eviction of the earliest-expiring entry when MaxSize is reached
  - TTL-based expiration
  - Automatic invalidation on provider refresh
  - Thread-safe access

# Provider Priority

When multiple providers are configured, they are tried in order; the first
provider that supports the secret and successfully returns a value wins.

# Secret Rotation

Providers that implement RefreshableProvider can reload secrets without
restart:

	err := manager.Refresh(context.Background())

File-based providers automatically refresh when files change if watching is
enabled.

# Security Considerations

Secret values are protected:
  - Never logged (secret names are redacted in logs)
  - Never included in error messages
  - File permissions validated (0600 or 0400 only)
  - Cached with TTL to minimize exposure window
  - Cleared from cache on refresh

# Configuration Example

Proxy providers reference secrets directly in config.yaml:

	proxy:
	  providers:
	    - endpoint: "proxy1.example.net:8080"
	      username: "${secret:proxy-username}"
	      password: "${secret:proxy-password}"
	      kind: "residential"
*/
package secrets
