// Package browserfallback declares the opaque plug-in interface used when
// the anti-detection coordinator escalates a session to threat-level red:
// the orchestrator may hand control to a browser-automation rescue
// strategy instead of continuing the pure-HTTP pipeline. No implementation
// lives in this repository; the per-aspect fingerprint-evasion machinery
// (WebGL, canvas, fonts, audio, plugins, timezone) that would back a
// concrete implementation is out of scope here.
package browserfallback

import (
	"context"

	"github.com/icelocator/locator-core/pkg/model"
)

// Fallback is implemented by an out-of-tree browser-automation rescue
// strategy. The orchestrator treats it as a small, stable interface and
// never depends on a concrete implementation.
type Fallback interface {
	Search(ctx context.Context, session *model.SessionState, query model.SearchQuery) (model.SearchResult, error)
}

// None is a Fallback that always declines, used when no browser-automation
// strategy is configured; the orchestrator surfaces the session's original
// blocked/captcha error in that case rather than silently succeeding.
type None struct{}

func (None) Search(ctx context.Context, session *model.SessionState, query model.SearchQuery) (model.SearchResult, error) {
	return model.SearchResult{}, errNotConfigured
}

var errNotConfigured = &notConfiguredError{}

type notConfiguredError struct{}

func (*notConfiguredError) Error() string {
	return "browserfallback: no browser-automation fallback configured"
}
