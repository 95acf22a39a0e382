// Package app wires the search core's components into one owned value per
// process: proxy pool, anti-detection coordinator, request pipeline,
// result cache, and the orchestrator composing them. It is the single
// place that reads config.Config and builds concrete collaborators, so
// cmd/icelocator's subcommands never construct these by hand.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/icelocator/locator-core/internal/antidetect"
	"github.com/icelocator/locator-core/internal/antidetect/behavior"
	"github.com/icelocator/locator-core/internal/antidetect/obfuscate"
	"github.com/icelocator/locator-core/internal/antidetect/traffic"
	"github.com/icelocator/locator-core/internal/cache"
	"github.com/icelocator/locator-core/internal/cache/retention"
	"github.com/icelocator/locator-core/internal/orchestrator"
	"github.com/icelocator/locator-core/internal/pipeline"
	"github.com/icelocator/locator-core/internal/proxypool"
	"github.com/icelocator/locator-core/internal/proxypool/store"
	"github.com/icelocator/locator-core/pkg/config"
	"github.com/icelocator/locator-core/pkg/model"
	"github.com/icelocator/locator-core/pkg/security/secrets"
	"github.com/icelocator/locator-core/pkg/telemetry/health"
	"github.com/icelocator/locator-core/pkg/telemetry/metrics"
)

// App is the fully-wired process: the orchestrator plus the ambient
// collaborators (metrics, health) that sit alongside it but aren't on the
// search hot path.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Cache        *cache.Cache
	Pool         *proxypool.Manager
	Metrics      *metrics.Collector
	Health       *health.Checker
	Registry     *prometheus.Registry

	retention *retention.Scheduler
	log       *slog.Logger
}

// New builds an App from a loaded Config. Callers own the returned App's
// lifetime and must call Close when done (it stops the retention scheduler
// and releases the cache's index handle; the proxy store opened here is
// not closed by it).
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&cfg.Metrics, registry)

	proxyStore, err := store.Open(storeFilePath(cfg))
	if err != nil {
		return nil, fmt.Errorf("app: open proxy store: %w", err)
	}

	pool := proxypool.New(proxypool.RotationPolicy{
		RequestsPerHandle: cfg.ProxyPool.Rotation.RequestsPerHandle,
		Window:            time.Duration(cfg.ProxyPool.Rotation.WindowSeconds) * time.Second,
	}, proxyStore, log.With("component", "proxypool"))
	pool.SetMetrics(collector)

	providers, err := resolveProviders(context.Background(), cfg.ProxyPool.Providers)
	if err != nil {
		return nil, fmt.Errorf("app: resolve proxy provider credentials: %w", err)
	}
	pool.Seed(providers)

	obfuscator := obfuscate.New(cfg.HTTP.UserAgents, time.Now().UnixNano())
	simulator := behavior.New(time.Now().UnixNano())
	distributor := traffic.New(traffic.Config{
		Pattern:           traffic.Pattern(cfg.RateLimit.Pattern),
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		BurstAllowance:    cfg.RateLimit.BurstAllowance,
	})

	coordinator := antidetect.New(pool, obfuscator, simulator, distributor, cfg.Behavior.Profile, cfg.ProxyPool.Enabled, log.With("component", "antidetect"))

	pipe := pipeline.New(pipeline.Config{
		BaseURL:     cfg.Upstream.BaseURL,
		FormPath:    cfg.Upstream.FormPath,
		ActionHints: cfg.Upstream.ActionHints,
		Timeout:     time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
	})

	resultCache, err := cache.Open(cfg.Cache, log.With("component", "cache"))
	if err != nil {
		return nil, fmt.Errorf("app: open cache: %w", err)
	}

	orchCfg := orchestrator.FromConfig(cfg.Retry, cfg.Search)
	orch := orchestrator.New(pipe, coordinator, pool, resultCache, orchCfg, log.With("component", "orchestrator"))
	orch.SetMetrics(collector)

	checker := health.New(10 * time.Second)
	checker.RegisterCheck("proxy_pool", func(ctx context.Context) error {
		stats := pool.Stats()
		collector.UpdateProxyPoolHealth("all", stats.Active, stats.Quarantined)
		if cfg.ProxyPool.Enabled && stats.Active == 0 {
			return fmt.Errorf("no active proxy handles")
		}
		return nil
	})
	checker.RegisterCheck("cache", func(ctx context.Context) error {
		collector.UpdateCacheSize(resultCache.Stats().EntryCount)
		return nil
	})

	var sched *retention.Scheduler
	if cfg.Cache.Enabled {
		sched, err = retention.New("@every 5m", resultCache, log.With("component", "retention"))
		if err != nil {
			return nil, fmt.Errorf("app: schedule cache retention: %w", err)
		}
	}

	return &App{
		Orchestrator: orch,
		Cache:        resultCache,
		Pool:         pool,
		Metrics:      collector,
		Health:       checker,
		Registry:     registry,
		retention:    sched,
		log:          log,
	}, nil
}

// Start begins background work (the retention scheduler). Search and the
// other orchestrator entry points don't require Start to have been called.
func (a *App) Start() {
	if a.retention != nil {
		a.retention.Start()
	}
}

// Close stops the retention scheduler and closes the cache. It does not
// close the proxy store that New opened.
func (a *App) Close() error {
	if a.retention != nil {
		a.retention.Stop()
	}
	return a.Cache.Close()
}

func storeFilePath(cfg *config.Config) string {
	dir := cfg.Cache.Directory
	if dir == "" {
		dir = "cache"
	}
	return dir + "/proxypool.sqlite"
}

// resolveProviders converts configured proxy provider descriptors into
// proxypool.Provider values, resolving any "${secret:name}" reference in
// Username/Password through the env-backed secrets manager. A mounted
// secrets directory can be added via ICELOCATOR_SECRETS_DIR.
func resolveProviders(ctx context.Context, configured []config.ProxyProvider) ([]proxypool.Provider, error) {
	if len(configured) == 0 {
		return nil, nil
	}

	secretProviders := []secrets.SecretProvider{secrets.NewEnvProvider("ICELOCATOR_")}
	if dir := os.Getenv("ICELOCATOR_SECRETS_DIR"); dir != "" {
		if fp, err := secrets.NewFileProvider(dir, false); err == nil {
			secretProviders = append(secretProviders, fp)
		}
	}
	mgr := secrets.NewManager(secretProviders, secrets.CacheConfig{Enabled: true, TTL: 5 * time.Minute, MaxSize: 64})

	out := make([]proxypool.Provider, 0, len(configured))
	for _, p := range configured {
		username, err := mgr.ResolveReferences(ctx, p.Username)
		if err != nil {
			return nil, err
		}
		password, err := mgr.ResolveReferences(ctx, p.Password)
		if err != nil {
			return nil, err
		}
		out = append(out, proxypool.Provider{
			Endpoint: p.Endpoint,
			Username: username,
			Password: password,
			Kind:     proxyKind(p.Kind),
			Region:   p.Region,
		})
	}
	return out, nil
}

// proxyKind maps the configured string kind to model.ProxyKind, defaulting
// to datacenter when unset (config.Validate already rejects anything else).
func proxyKind(kind string) model.ProxyKind {
	switch model.ProxyKind(kind) {
	case model.ProxyResidential:
		return model.ProxyResidential
	case model.ProxySOCKS5:
		return model.ProxySOCKS5
	default:
		return model.ProxyDatacenter
	}
}
