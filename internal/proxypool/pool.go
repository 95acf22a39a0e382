package proxypool

import (
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/icelocator/locator-core/internal/proxypool/store"
	"github.com/icelocator/locator-core/internal/proxypool/strategies"
	"github.com/icelocator/locator-core/pkg/model"
	"github.com/icelocator/locator-core/pkg/telemetry/metrics"
)

// Manager owns the proxy pool's active and quarantined sets. It is safe
// for concurrent use: Acquire/Release/ReportBlock/Refresh each take the
// pool mutex for the minimal critical section and never block on network
// I/O while holding it (Refresh does no provider probing at all).
type Manager struct {
	mu sync.Mutex

	active      map[string]*model.ProxyHandle
	quarantined map[string]*model.ProxyHandle

	strategy strategies.Strategy
	rotation RotationPolicy

	store   *store.Store
	metrics *metrics.Collector

	rng *rand.Rand

	log *slog.Logger
}

// New builds a pool manager. store may be nil to run without persistence
// (tests, or proxy.enabled=false deployments).
func New(rotation RotationPolicy, st *store.Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{
		active:      make(map[string]*model.ProxyHandle),
		quarantined: make(map[string]*model.ProxyHandle),
		strategy:    strategies.NewWeightedScoreStrategy(),
		rotation:    rotation,
		store:       st,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		log:         log,
	}
	if st != nil {
		if handles, err := st.LoadAll(); err == nil {
			for _, h := range handles {
				if h.Quarantined {
					m.quarantined[h.ID] = h
				} else {
					m.active[h.ID] = h
				}
			}
		}
	}
	return m
}

// SetMetrics attaches a metrics collector for block/quarantine telemetry.
// Optional; the pool records nothing when none is attached.
func (m *Manager) SetMetrics(c *metrics.Collector) {
	m.metrics = c
}

// Seed registers a set of freshly configured providers as active handles.
// Used at startup from config.ProxyPoolConfig.Providers.
func (m *Manager) Seed(providers []Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range providers {
		id := handleID(p, i)
		if _, exists := m.active[id]; exists {
			continue
		}
		if _, exists := m.quarantined[id]; exists {
			continue
		}
		m.active[id] = &model.ProxyHandle{
			ID:         id,
			Endpoint:   p.Endpoint,
			Username:   p.Username,
			Password:   p.Password,
			Kind:       p.Kind,
			Region:     p.Region,
			Reputation: 0.5,
		}
	}
}

func handleID(p Provider, i int) string {
	return string(p.Kind) + ":" + p.Region + ":" + p.Endpoint
}

// Acquire returns a healthy handle selected by weighted random sampling
// across the top-K scored candidates, or ErrPoolEmpty if none qualify.
func (m *Manager) Acquire(pref KindPreference) (*model.ProxyHandle, error) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recheckQuarantineLocked(now)
	m.rotateLocked(now)

	candidates := make([]*model.ProxyHandle, 0, len(m.active))
	for _, h := range m.active {
		if pref != AnyKind && string(h.Kind) != string(pref) {
			continue
		}
		candidates = append(candidates, h)
	}
	if len(candidates) == 0 {
		return nil, ErrPoolEmpty
	}

	type scored struct {
		h     *model.ProxyHandle
		score float64
	}
	scoredList := make([]scored, 0, len(candidates))
	for _, h := range candidates {
		scoredList = append(scoredList, scored{h, m.strategy.Score(h, now)})
	}
	sort.Slice(scoredList, func(i, j int) bool {
		if scoredList[i].score != scoredList[j].score {
			return scoredList[i].score > scoredList[j].score
		}
		if scoredList[i].h.ConsecutiveFailures != scoredList[j].h.ConsecutiveFailures {
			return scoredList[i].h.ConsecutiveFailures < scoredList[j].h.ConsecutiveFailures
		}
		return scoredList[i].h.RequestsSinceRotation < scoredList[j].h.RequestsSinceRotation
	})

	k := topKCandidates
	if k > len(scoredList) {
		k = len(scoredList)
	}
	top := scoredList[:k]

	total := 0.0
	for _, c := range top {
		total += c.score + 0.001 // avoid an all-zero weight set
	}
	pick := m.rng.Float64() * total
	var chosen *model.ProxyHandle
	acc := 0.0
	for _, c := range top {
		acc += c.score + 0.001
		if pick <= acc {
			chosen = c.h
			break
		}
	}
	if chosen == nil {
		chosen = top[0].h
	}

	chosen.LastUsedAt = now
	chosen.RequestsSinceRotation++
	m.persistLocked(chosen)

	borrowed := *chosen
	return &borrowed, nil
}

// Release returns a borrowed handle to the pool with an outcome,
// updating its rolling statistics and quarantining it if warranted.
func (m *Manager) Release(borrowed *model.ProxyHandle, outcome model.ProxyOutcome) {
	if borrowed == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.active[borrowed.ID]
	if !ok {
		h, ok = m.quarantined[borrowed.ID]
		if !ok {
			return
		}
	}

	switch outcome {
	case model.OutcomeSuccess:
		h.SuccessCount++
		h.ConsecutiveFailures = 0
	case model.OutcomeFailure:
		h.FailureCount++
		h.ConsecutiveFailures++
	case model.OutcomeBlocked:
		h.FailureCount++
		h.ConsecutiveFailures++
		m.quarantineLocked(h, true)
		m.persistLocked(h)
		return
	}

	if h.ShouldQuarantine() {
		m.quarantineLocked(h, false)
	}
	m.persistLocked(h)
}

// ReportBlock forces immediate quarantine with backoff doubling regardless
// of prior consecutive-failure count, then triggers a refresh signal by
// leaving the quarantined entry eligible for the next recheck window.
func (m *Manager) ReportBlock(borrowed *model.ProxyHandle) {
	if borrowed == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.active[borrowed.ID]
	if !ok {
		h, ok = m.quarantined[borrowed.ID]
		if !ok {
			return
		}
	}
	m.quarantineLocked(h, true)
	m.persistLocked(h)
}

// Refresh ingests newly configured providers and clears quarantine entries
// whose backoff window has elapsed so they re-enter the active set as
// candidates for the next health probe cycle.
func (m *Manager) Refresh(providers []Provider) {
	m.Seed(providers)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recheckQuarantineLocked(time.Now())
}

func (m *Manager) recheckQuarantineLocked(now time.Time) {
	for id, h := range m.quarantined {
		if h.QuarantineExpired(now) {
			h.Quarantined = false
			h.ConsecutiveFailures = 0
			delete(m.quarantined, id)
			m.active[id] = h
			m.log.Debug("proxy handle cleared from quarantine", "proxy_id", id)
		}
	}
}

func (m *Manager) rotateLocked(now time.Time) {
	for id, h := range m.active {
		overRequests := m.rotation.RequestsPerHandle > 0 && h.RequestsSinceRotation >= m.rotation.RequestsPerHandle
		overWindow := m.rotation.Window > 0 && !h.LastUsedAt.IsZero() && now.Sub(h.LastUsedAt) >= m.rotation.Window
		if overRequests || overWindow {
			h.RequestsSinceRotation = 0
			m.log.Debug("proxy handle rotated", "proxy_id", id)
		}
	}
}

func (m *Manager) quarantineLocked(h *model.ProxyHandle, forced bool) {
	wasQuarantined := h.Quarantined
	h.Quarantined = true
	h.QuarantinedAt = time.Now()
	if forced && m.metrics != nil {
		m.metrics.RecordProxyBlock(string(h.Kind))
	}

	switch {
	case forced && wasQuarantined:
		h.QuarantineDuration *= 2
	case forced:
		h.QuarantineDuration = quarantineBaseBackoff * 2
	case h.QuarantineDuration == 0:
		h.QuarantineDuration = quarantineBaseBackoff
	default:
		h.QuarantineDuration *= 2
	}
	if h.QuarantineDuration > quarantineMaxBackoff {
		h.QuarantineDuration = quarantineMaxBackoff
	}

	delete(m.active, h.ID)
	m.quarantined[h.ID] = h
	m.log.Warn("proxy handle quarantined", "proxy_id", h.ID, "backoff", h.QuarantineDuration)
}

func (m *Manager) persistLocked(h *model.ProxyHandle) {
	if m.store == nil {
		return
	}
	if err := m.store.Upsert(h); err != nil {
		m.log.Warn("failed to persist proxy handle", "proxy_id", h.ID, "error", err)
	}
}

// Stats reports the current active/quarantined counts, used by the app's
// proxy_pool health check.
type Stats struct {
	Active      int
	Quarantined int
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Active: len(m.active), Quarantined: len(m.quarantined)}
}
