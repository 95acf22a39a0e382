// Package proxypool implements the Proxy Pool Manager: a process-owned set
// of proxy endpoints, ranked by a composite health score, handed out as
// scoped borrows and reclaimed with an outcome, with consecutive-failure
// quarantine and doubling backoff.
package proxypool

import (
	"errors"
	"time"

	"github.com/icelocator/locator-core/pkg/model"
)

// ErrPoolEmpty is returned by Acquire when no healthy handle is available
// after a refresh attempt. It is the concrete cause behind
// apierrors.KindNoProxyAvailable.
var ErrPoolEmpty = errors.New("proxypool: no healthy proxy available")

// KindPreference narrows Acquire's candidate set to one proxy kind, or
// AnyKind to consider the whole active set.
type KindPreference string

const (
	AnyKind           KindPreference = ""
	PreferResidential KindPreference = KindPreference(model.ProxyResidential)
	PreferDatacenter  KindPreference = KindPreference(model.ProxyDatacenter)
	PreferSOCKS5      KindPreference = KindPreference(model.ProxySOCKS5)
)

// Provider describes one configured proxy endpoint, the unit Refresh
// ingests from config.ProxyPoolConfig.Providers.
type Provider struct {
	Endpoint string
	Username string
	Password string
	Kind     model.ProxyKind
	Region   string
}

// RotationPolicy configures rotation thresholds, checked lazily on each
// Acquire: once a handle has served RequestsPerHandle requests since its
// last rotation, or Window has passed since its last use, its
// RequestsSinceRotation counter is reset to zero. The handle is not
// retired; it stays in the active set and remains selectable.
type RotationPolicy struct {
	RequestsPerHandle int
	Window            time.Duration
}

// quarantineBaseBackoff and quarantineMaxBackoff bound the doubling
// backoff window (start 60s, doubling up to 30m).
const (
	quarantineBaseBackoff = 60 * time.Second
	quarantineMaxBackoff  = 30 * time.Minute
)

// topKCandidates bounds the weighted-random selection pool so a single
// highest-score handle doesn't become a deterministic hot path.
const topKCandidates = 5
