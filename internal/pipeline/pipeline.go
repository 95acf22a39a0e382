// Package pipeline implements the Session & Request Pipeline: per-search
// HTTP state built around a state machine (Init -> FormFetched ->
// FormParsed -> Submitted -> {Results, NotFound, Blocked, Captcha}), using
// a fresh *http.Client per request bound to the session's cookie jar. The
// pipeline makes one HTTP call per method; retries and backoff are driven
// by the caller.
package pipeline

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/icelocator/locator-core/pkg/apierrors"
	"github.com/icelocator/locator-core/pkg/model"
)

// Config configures the pipeline's HTTP behavior, sourced from
// config.HTTPConfig plus the upstream's base URL.
type Config struct {
	BaseURL      string
	FormPath     string
	ActionHints  []string
	Timeout      time.Duration
}

// Pipeline drives one search attempt's HTTP interactions. A fresh Pipeline
// is not required per attempt; it is stateless beyond Config, so one
// instance can be shared across sessions (the per-search mutable state
// lives entirely in model.SessionState).
type Pipeline struct {
	cfg Config
}

func New(cfg Config) *Pipeline {
	if cfg.FormPath == "" {
		cfg.FormPath = "/search"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Pipeline{cfg: cfg}
}

// clientFor builds a per-request *http.Client bound to the session's
// cookie jar (state persists across the fetch/submit pair within one
// session) and routed through the given proxy handle, or direct if nil.
func (p *Pipeline) clientFor(session *model.SessionState, handle *model.ProxyHandle) (*http.Client, error) {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		ForceAttemptHTTP2:   true,
	}

	if handle != nil {
		switch handle.Kind {
		case model.ProxySOCKS5:
			auth := &proxy.Auth{User: handle.Username, Password: handle.Password}
			if handle.Username == "" {
				auth = nil
			}
			dialer, err := proxy.SOCKS5("tcp", handle.Endpoint, auth, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("pipeline: socks5 dialer: %w", err)
			}
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		default:
			proxyURL := &url.URL{Scheme: "http", Host: handle.Endpoint}
			if handle.Username != "" {
				proxyURL.User = url.UserPassword(handle.Username, handle.Password)
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &http.Client{
		Transport: transport,
		Jar:       session.Jar,
		Timeout:   p.cfg.Timeout,
	}, nil
}

// FetchRequest carries everything the coordinator's Prepare computed for
// one HTTP call.
type FetchRequest struct {
	Proxy   *model.ProxyHandle
	Headers map[string][]string
}

// FetchForm performs the GET step, parses the returned form, and binds
// the detected CSRF token to the session. On a token-extraction failure
// the caller is expected to retry (bounded) by calling FetchForm again.
func (p *Pipeline) FetchForm(ctx context.Context, session *model.SessionState, req FetchRequest) (*ParsedForm, model.ResponseClass, error) {
	client, err := p.clientFor(session, req.Proxy)
	if err != nil {
		return nil, model.ClassUnknown, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+p.cfg.FormPath, nil)
	if err != nil {
		return nil, model.ClassUnknown, err
	}
	applyHeaders(httpReq, req.Headers)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, model.ClassUnknown, apierrors.Wrap(apierrors.KindUpstreamTimeout, "", err)
	}
	defer resp.Body.Close()

	body, err := ReadBody(resp.Body)
	if err != nil {
		return nil, model.ClassUnknown, err
	}

	class := ClassifyResponse(resp.StatusCode, body)
	session.RequestCount++
	if class == model.ClassBlocked || class == model.ClassCaptcha || class == model.ClassRateLimited {
		session.State = stateFor(class)
		return nil, class, nil
	}

	form, err := ParseSearchForm(strings.NewReader(body), p.cfg.ActionHints)
	if err != nil {
		return nil, model.ClassUnknown, apierrors.Wrap(apierrors.KindParseFailure, "", err)
	}
	if form.CSRFToken != "" {
		session.CSRFToken = form.CSRFToken
		session.CSRFExpiresAt = time.Now().Add(10 * time.Minute)
	}
	session.State = model.StateFormFetched
	return form, model.ClassUnknown, nil
}

// SubmitForm performs the POST step: every preserved hidden field plus
// user-visible fields populated from the query, using the field names the
// parsed form actually carries (never hardcoded).
func (p *Pipeline) SubmitForm(ctx context.Context, session *model.SessionState, form *ParsedForm, fields map[string]string, req FetchRequest) (string, model.ResponseClass, int, error) {
	client, err := p.clientFor(session, req.Proxy)
	if err != nil {
		return "", model.ClassUnknown, 0, err
	}

	values := url.Values{}
	for k, v := range form.Hidden {
		values.Set(k, v)
	}
	for k, v := range fields {
		values.Set(k, v)
	}

	action := form.Action
	if action == "" {
		action = p.cfg.FormPath
	}
	if !strings.HasPrefix(action, "http") {
		action = p.cfg.BaseURL + action
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(values.Encode()))
	if err != nil {
		return "", model.ClassUnknown, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	applyHeaders(httpReq, req.Headers)
	httpReq.Header.Set("Origin", p.cfg.BaseURL)
	httpReq.Header.Set("Referer", p.cfg.BaseURL+p.cfg.FormPath)

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", model.ClassUnknown, 0, apierrors.Wrap(apierrors.KindUpstreamTimeout, "", err)
	}
	defer resp.Body.Close()

	body, err := ReadBody(resp.Body)
	if err != nil {
		return "", model.ClassUnknown, resp.StatusCode, err
	}

	session.RequestCount++
	class := ClassifyResponse(resp.StatusCode, body)
	session.State = stateFor(class)
	return body, class, resp.StatusCode, nil
}

func stateFor(class model.ResponseClass) model.PipelineState {
	switch class {
	case model.ClassResults:
		return model.StateResults
	case model.ClassNotFound:
		return model.StateNotFoundState
	case model.ClassBlocked, model.ClassRateLimited:
		return model.StateBlocked
	case model.ClassCaptcha:
		return model.StateCaptcha
	default:
		return model.StateSubmitted
	}
}

func applyHeaders(req *http.Request, headers map[string][]string) {
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}
