package proxypool

import (
	"testing"
	"time"

	"github.com/icelocator/locator-core/pkg/model"
)

func newTestManager() *Manager {
	return New(RotationPolicy{RequestsPerHandle: 10, Window: 5 * time.Minute}, nil, nil)
}

func TestAcquireEmptyPool(t *testing.T) {
	m := newTestManager()
	if _, err := m.Acquire(AnyKind); err != ErrPoolEmpty {
		t.Fatalf("got %v, want ErrPoolEmpty", err)
	}
}

func TestAcquireReturnsSeededHandle(t *testing.T) {
	m := newTestManager()
	m.Seed([]Provider{{Endpoint: "proxy.example:8080", Kind: model.ProxyDatacenter}})

	h, err := m.Acquire(AnyKind)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if h.Endpoint != "proxy.example:8080" {
		t.Fatalf("got endpoint %q, want proxy.example:8080", h.Endpoint)
	}
}

func TestQuarantineAfterThreeConsecutiveFailures(t *testing.T) {
	m := newTestManager()
	m.Seed([]Provider{{Endpoint: "p1", Kind: model.ProxyDatacenter}})

	h, _ := m.Acquire(AnyKind)
	for i := 0; i < 3; i++ {
		m.Release(h, model.OutcomeFailure)
		h, _ = m.Acquire(AnyKind)
		if h == nil {
			break
		}
	}

	if _, err := m.Acquire(AnyKind); err != ErrPoolEmpty {
		t.Fatalf("expected pool empty after 3 consecutive failures, got %v", err)
	}

	m.mu.Lock()
	_, quarantined := m.quarantined["datacenter::p1"]
	m.mu.Unlock()
	if !quarantined {
		t.Fatalf("expected handle to be quarantined")
	}
}

func TestReportBlockForcesImmediateQuarantine(t *testing.T) {
	m := newTestManager()
	m.Seed([]Provider{{Endpoint: "p1", Kind: model.ProxyResidential}})

	h, err := m.Acquire(AnyKind)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	m.ReportBlock(h)

	if _, err := m.Acquire(AnyKind); err != ErrPoolEmpty {
		t.Fatalf("expected pool empty after report_block, got %v", err)
	}
}

func TestQuarantineClearsAfterBackoffWindow(t *testing.T) {
	m := newTestManager()
	m.Seed([]Provider{{Endpoint: "p1", Kind: model.ProxyDatacenter}})

	h, _ := m.Acquire(AnyKind)
	m.ReportBlock(h)

	m.mu.Lock()
	qh := m.quarantined["datacenter::p1"]
	qh.QuarantinedAt = time.Now().Add(-qh.QuarantineDuration - time.Second)
	m.mu.Unlock()

	if _, err := m.Acquire(AnyKind); err != nil {
		t.Fatalf("expected handle to clear quarantine after backoff, got %v", err)
	}
}

func TestKindPreferenceFiltersCandidates(t *testing.T) {
	m := newTestManager()
	m.Seed([]Provider{
		{Endpoint: "dc1", Kind: model.ProxyDatacenter},
		{Endpoint: "res1", Kind: model.ProxyResidential},
	})

	h, err := m.Acquire(PreferResidential)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if h.Kind != model.ProxyResidential {
		t.Fatalf("got kind %v, want residential", h.Kind)
	}
}
