// Package orchestrator implements the Search Orchestrator: the top-level
// driver that validates a query, consults the cache, drives the session
// pipeline through the anti-detection coordinator with a bounded retry
// budget, ranks raw results, and assembles the final SearchResult.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/icelocator/locator-core/internal/antidetect"
	"github.com/icelocator/locator-core/internal/antidetect/traffic"
	"github.com/icelocator/locator-core/internal/cache"
	"github.com/icelocator/locator-core/internal/fuzzy"
	"github.com/icelocator/locator-core/internal/pipeline"
	"github.com/icelocator/locator-core/internal/pipeline/browserfallback"
	"github.com/icelocator/locator-core/internal/proxypool"
	"github.com/icelocator/locator-core/pkg/apierrors"
	"github.com/icelocator/locator-core/pkg/config"
	"github.com/icelocator/locator-core/pkg/model"
	"github.com/icelocator/locator-core/pkg/telemetry/logging"
	"github.com/icelocator/locator-core/pkg/telemetry/metrics"
)

// Config configures the orchestrator's retry budget and search defaults,
// sourced from config.RetryConfig and config.SearchConfig.
type Config struct {
	MaxAttempts      int
	BackoffBase      time.Duration
	PerSearchTimeout time.Duration

	DefaultConfidenceThreshold float64
	DefaultFuzzy               bool
}

// FromConfig derives an orchestrator Config from the process configuration,
// applying the documented defaults for anything left at its zero value.
func FromConfig(retry config.RetryConfig, search config.SearchConfig) Config {
	cfg := Config{
		MaxAttempts:                retry.MaxAttempts,
		BackoffBase:                time.Duration(retry.BackoffBaseMs) * time.Millisecond,
		PerSearchTimeout:           120 * time.Second,
		DefaultConfidenceThreshold: search.DefaultConfidenceThreshold,
		DefaultFuzzy:               search.DefaultFuzzy,
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.DefaultConfidenceThreshold <= 0 {
		cfg.DefaultConfidenceThreshold = 0.7
	}
	return cfg
}

// Orchestrator is the process-owned driver composing the pipeline, the
// anti-detection coordinator, the proxy pool, and the result cache.
type Orchestrator struct {
	pipeline    *pipeline.Pipeline
	coordinator *antidetect.Coordinator
	pool        *proxypool.Manager
	cache       *cache.Cache

	cfg      Config
	metrics  *metrics.Collector
	fallback browserfallback.Fallback
	redactor *logging.Redactor

	rngMu sync.Mutex
	rng   *rand.Rand

	log *slog.Logger
}

// New builds an Orchestrator from its four composed collaborators.
func New(p *pipeline.Pipeline, coordinator *antidetect.Coordinator, pool *proxypool.Manager, c *cache.Cache, cfg Config, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		pipeline:    p,
		coordinator: coordinator,
		pool:        pool,
		cache:       c,
		cfg:         cfg,
		fallback:    browserfallback.None{},
		redactor:    logging.NewRedactor(nil),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		log:         log,
	}
}

// SetMetrics attaches a metrics collector. Safe to skip entirely; the
// orchestrator records nothing when none is attached.
func (o *Orchestrator) SetMetrics(c *metrics.Collector) {
	o.metrics = c
}

// SetFallback replaces the browser-automation rescue strategy attempted
// when a search exhausts its retry budget against a blocking upstream.
// Defaults to browserfallback.None.
func (o *Orchestrator) SetFallback(f browserfallback.Fallback) {
	if f != nil {
		o.fallback = f
	}
}

// Search drives one query to completion: validate, cache lookup, session
// acquire, bounded retry loop through the pipeline, fuzzy ranking, cache
// write, and release. It always releases the session and any held proxy
// before returning, on every exit path including cancellation.
func (o *Orchestrator) Search(ctx context.Context, query model.SearchQuery) (model.SearchResult, error) {
	correlationID := uuid.NewString()
	start := time.Now()

	if err := query.Validate(); err != nil {
		return model.SearchResult{}, o.redacted(apierrors.New(apierrors.KindValidation, correlationID, err.Error()), query)
	}

	normalized := query.Normalize()
	if normalized.ConfidenceThreshold == 0 {
		normalized.ConfidenceThreshold = o.cfg.DefaultConfidenceThreshold
	}
	if !normalized.Fuzzy && o.cfg.DefaultFuzzy {
		normalized.Fuzzy = true
	}

	fingerprint := cache.Fingerprint(normalized)
	if hit, ok := o.cache.Get(fingerprint); ok {
		hit.Metadata.Cached = true
		if o.metrics != nil {
			o.metrics.RecordCacheHit()
		}
		o.log.Debug("search cache hit", "correlation_id", correlationID, "fingerprint", fingerprint)
		return hit, nil
	}
	if o.metrics != nil {
		o.metrics.RecordCacheMiss()
	}

	searchCtx, cancel := context.WithTimeout(ctx, o.perSearchTimeout())
	defer cancel()

	session, err := model.NewSessionState(correlationID)
	if err != nil {
		return model.SearchResult{}, apierrors.Wrap(apierrors.KindInternal, correlationID, err)
	}
	o.coordinator.InitSession(session)
	defer o.coordinator.ReleaseSession(session.ID)

	run := &attemptRun{
		o:             o,
		session:       session,
		correlationID: correlationID,
		query:         normalized,
		lastThreat:    session.ThreatLevel,
	}
	defer run.releaseProxy()

	result, retryErr := run.execute(searchCtx)
	if retryErr != nil {
		if o.metrics != nil {
			o.metrics.RecordSearch(metricKind(normalized.Kind), string(model.StatusError), time.Since(start), run.retryCount)
		}
		return model.SearchResult{}, o.redacted(retryErr, normalized)
	}

	result.Metadata.Timestamp = start
	result.Metadata.ProcessingDuration = time.Since(start)
	result.Metadata.Language = normalized.Language
	result.Metadata.RetryCount = run.retryCount
	result.Metadata.ThreatTransitions = run.threatTransitions
	result.Metadata.TotalCandidates = len(result.Records)
	if run.session.Proxy != nil {
		result.Metadata.FinalProxyKind = string(run.session.Proxy.Kind)
	}

	if normalized.Fuzzy && len(result.Records) > 0 {
		ranked := fuzzy.Rank(normalized, result.Records, fuzzy.Options{
			Language:            normalized.Language,
			ConfidenceThreshold: normalized.ConfidenceThreshold,
			DateToleranceDays:   normalized.DateToleranceDays,
		})
		result.Records = make([]model.Record, len(ranked))
		for i, r := range ranked {
			result.Records[i] = r.Record
		}
		if len(result.Records) == 0 && result.Status == model.StatusFound {
			result.Status = model.StatusNotFound
		}
	}

	if result.Status != model.StatusError {
		if err := o.cache.Put(fingerprint, result); err != nil {
			o.log.Warn("search result cache write failed", "correlation_id", correlationID, "error", err)
		}
	}

	if o.metrics != nil {
		o.metrics.RecordSearch(metricKind(normalized.Kind), string(result.Status), time.Since(start), run.retryCount)
	}
	return result, nil
}

func (o *Orchestrator) perSearchTimeout() time.Duration {
	if o.cfg.PerSearchTimeout <= 0 {
		return 120 * time.Second
	}
	return o.cfg.PerSearchTimeout
}

// redacted attaches a PII-safe summary of the offending query to a
// surfaced error, so callers and logs never see the raw identifying fields.
func (o *Orchestrator) redacted(err error, query model.SearchQuery) error {
	apiErr, ok := apierrors.As(err)
	if !ok {
		return err
	}
	apiErr.RedactedQuery = o.redactQuery(query)
	return apiErr
}

func (o *Orchestrator) redactQuery(q model.SearchQuery) string {
	switch q.Kind {
	case model.QueryByName:
		return fmt.Sprintf("kind=%s name=%s dob=%s country=%s", q.Kind,
			o.redactor.RedactString(q.FirstName+" "+q.LastName),
			o.redactor.RedactString(q.DateOfBirth.Format("2006-01-02")),
			q.CountryOfBirth)
	case model.QueryByAlienNumber:
		return fmt.Sprintf("kind=%s alien_number=%s", q.Kind, logging.RedactAlienNumber(q.AlienNumber))
	case model.QueryByFacility:
		return fmt.Sprintf("kind=%s facility=%s city=%s state=%s", q.Kind, q.FacilityName, q.City, q.State)
	default:
		return fmt.Sprintf("kind=%s query=%s", q.Kind, o.redactor.RedactString(q.RawQuery))
	}
}

// metricKind maps a QueryKind onto the snake_case label vocabulary the
// metrics collector documents.
func metricKind(k model.QueryKind) string {
	switch k {
	case model.QueryByName:
		return "by_name"
	case model.QueryByAlienNumber:
		return "by_alien_number"
	case model.QueryByFacility:
		return "by_facility"
	default:
		return "natural"
	}
}

// attemptRun carries the mutable state of one Search call's retry loop, to
// keep Search itself a linear read of the algorithm.
type attemptRun struct {
	o             *Orchestrator
	session       *model.SessionState
	correlationID string
	query         model.SearchQuery

	retryCount        int
	threatTransitions []string
	lastThreat        model.ThreatLevel
	poolRefreshed     bool
	finalOutcome      model.ProxyOutcome
}

func (r *attemptRun) execute(ctx context.Context) (model.SearchResult, error) {
	r.finalOutcome = model.OutcomeSuccess

	for attempt := 0; attempt < r.o.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := r.o.sleepBackoff(ctx, attempt); err != nil {
				r.finalOutcome = model.OutcomeFailure
				return model.SearchResult{}, apierrors.Wrap(apierrors.KindCancelled, r.correlationID, err)
			}
		}

		form, class, err := r.fetchForm(ctx)
		if err != nil {
			retry, result, fatalErr := r.handlePipelineError(err, attempt)
			if fatalErr != nil {
				return model.SearchResult{}, fatalErr
			}
			if retry {
				continue
			}
			return result, nil
		}
		if class == model.ClassBlocked || class == model.ClassCaptcha {
			retry, result, fatalErr := r.handleBlockedOrCaptcha(ctx, class)
			if fatalErr != nil {
				return model.SearchResult{}, fatalErr
			}
			if retry {
				continue
			}
			return result, nil
		}
		if class == model.ClassRateLimited {
			retry, result, fatalErr := r.handleRateLimited()
			if fatalErr != nil {
				return model.SearchResult{}, fatalErr
			}
			if retry {
				continue
			}
			return result, nil
		}

		body, submitClass, statusCode, err := r.submitForm(ctx, form)
		if err != nil {
			retry, result, fatalErr := r.handlePipelineError(err, attempt)
			if fatalErr != nil {
				return model.SearchResult{}, fatalErr
			}
			if retry {
				continue
			}
			return result, nil
		}

		switch submitClass {
		case model.ClassBlocked, model.ClassCaptcha:
			retry, result, fatalErr := r.handleBlockedOrCaptcha(ctx, submitClass)
			if fatalErr != nil {
				return model.SearchResult{}, fatalErr
			}
			if retry {
				continue
			}
			return result, nil
		case model.ClassRateLimited:
			retry, result, fatalErr := r.handleRateLimited()
			if fatalErr != nil {
				return model.SearchResult{}, fatalErr
			}
			if retry {
				continue
			}
			return result, nil
		case model.ClassResults:
			r.o.coordinator.Observe(r.session, antidetect.ResponseClassification{StatusCode: statusCode, Class: submitClass})
			r.recordThreatTransition()
			records, parseErr := pipeline.ExtractResults(body)
			if parseErr != nil {
				retry, result, fatalErr := r.handlePipelineError(apierrors.Wrap(apierrors.KindParseFailure, r.correlationID, parseErr), attempt)
				if fatalErr != nil {
					return model.SearchResult{}, fatalErr
				}
				if retry {
					continue
				}
				return result, nil
			}
			return model.SearchResult{Status: model.StatusFound, Records: records}, nil
		case model.ClassNotFound:
			r.o.coordinator.Observe(r.session, antidetect.ResponseClassification{StatusCode: statusCode, Class: submitClass})
			r.recordThreatTransition()
			return model.SearchResult{Status: model.StatusNotFound}, nil
		default:
			r.o.coordinator.Observe(r.session, antidetect.ResponseClassification{StatusCode: statusCode, Class: submitClass})
			r.recordThreatTransition()
			r.retryCount++
			continue
		}
	}

	r.finalOutcome = model.OutcomeFailure
	if result, ok := r.tryFallback(ctx); ok {
		return result, nil
	}
	return model.SearchResult{}, apierrors.New(apierrors.KindBlocked, r.correlationID, "exhausted retry budget without a definitive response")
}

func (r *attemptRun) fetchForm(ctx context.Context) (*pipeline.ParsedForm, model.ResponseClass, error) {
	prepared, err := r.prepare(ctx, antidetect.KindFormFetch)
	if err != nil {
		return nil, model.ClassUnknown, err
	}
	if err := r.sleep(ctx, prepared.PreDelay); err != nil {
		return nil, model.ClassUnknown, err
	}
	return r.o.pipeline.FetchForm(ctx, r.session, pipeline.FetchRequest{Proxy: prepared.Proxy, Headers: prepared.Headers})
}

func (r *attemptRun) submitForm(ctx context.Context, form *pipeline.ParsedForm) (string, model.ResponseClass, int, error) {
	fields, err := buildFormFields(form, r.query)
	if err != nil {
		return "", model.ClassUnknown, 0, apierrors.Wrap(apierrors.KindValidation, r.correlationID, err)
	}

	prepared, err := r.prepare(ctx, antidetect.KindFormSubmit)
	if err != nil {
		return "", model.ClassUnknown, 0, err
	}
	if err := r.sleep(ctx, prepared.PreDelay); err != nil {
		return "", model.ClassUnknown, 0, err
	}
	return r.o.pipeline.SubmitForm(ctx, r.session, form, fields, pipeline.FetchRequest{Proxy: prepared.Proxy, Headers: prepared.Headers})
}

// prepare asks the coordinator for the next request's policy, swapping in
// the newly borrowed proxy (if any) and returning the previous one to the
// pool with a success outcome, since nothing adverse has been observed
// about it yet.
func (r *attemptRun) prepare(ctx context.Context, kind antidetect.RequestKind) (antidetect.Prepared, error) {
	prepared, err := r.o.coordinator.Prepare(ctx, r.session, kind, traffic.PriorityNormal)
	if err != nil {
		return antidetect.Prepared{}, err
	}
	r.swapProxy(prepared.Proxy)
	return prepared, nil
}

func (r *attemptRun) swapProxy(next *model.ProxyHandle) {
	if r.session.Proxy != nil && next != nil && r.session.Proxy.ID != next.ID {
		r.o.pool.Release(r.session.Proxy, model.OutcomeSuccess)
	}
	if next != nil {
		r.session.Proxy = next
	}
}

func (r *attemptRun) releaseProxy() {
	if r.session.Proxy == nil {
		return
	}
	r.o.pool.Release(r.session.Proxy, r.finalOutcome)
	r.session.Proxy = nil
}

func (r *attemptRun) recordThreatTransition() {
	if r.session.ThreatLevel != r.lastThreat {
		r.threatTransitions = append(r.threatTransitions, fmt.Sprintf("%s->%s", r.lastThreat, r.session.ThreatLevel))
		if r.o.metrics != nil {
			r.o.metrics.RecordThreatTransition(r.lastThreat.String(), r.session.ThreatLevel.String())
			r.o.metrics.UpdateThreatLevel(int(r.session.ThreatLevel))
		}
		r.lastThreat = r.session.ThreatLevel
	}
}

// tryFallback hands the session to the configured browser-automation
// rescue strategy once the pure-HTTP pipeline has exhausted its budget
// against a blocking upstream. The default None fallback declines, in
// which case the caller surfaces the original blocked error.
func (r *attemptRun) tryFallback(ctx context.Context) (model.SearchResult, bool) {
	if r.session.ThreatLevel < model.ThreatOrange {
		return model.SearchResult{}, false
	}
	result, err := r.o.fallback.Search(ctx, r.session, r.query)
	if err != nil {
		return model.SearchResult{}, false
	}
	r.o.log.Info("browser fallback rescued a blocked search", "correlation_id", r.correlationID)
	return result, true
}

// handleBlockedOrCaptcha folds the coordinator observation, threat-level
// bookkeeping, and retry-budget consumption for a blocked/captcha
// classification. It returns retry=true when the caller should loop again,
// or a final (possibly error'd) result otherwise.
func (r *attemptRun) handleBlockedOrCaptcha(ctx context.Context, class model.ResponseClass) (bool, model.SearchResult, error) {
	r.o.coordinator.Observe(r.session, antidetect.ResponseClassification{Class: class})
	r.recordThreatTransition()
	r.retryCount++

	if class == model.ClassCaptcha {
		r.finalOutcome = model.OutcomeFailure
		return false, model.SearchResult{}, apierrors.New(apierrors.KindCaptchaRequired, r.correlationID, "upstream presented a CAPTCHA challenge")
	}

	if r.retryCount >= r.o.cfg.MaxAttempts {
		r.finalOutcome = model.OutcomeFailure
		if result, ok := r.tryFallback(ctx); ok {
			return false, result, nil
		}
		return false, model.SearchResult{}, apierrors.New(apierrors.KindBlocked, r.correlationID, "upstream blocked the request after exhausting the retry budget")
	}
	return true, model.SearchResult{}, nil
}

// handleRateLimited absorbs an upstream 429 within the retry budget: the
// coordinator observes it (threat floor, distributor slowdown) but the
// proxy is never quarantined, and exhaustion surfaces as the retryable
// rate_limited kind rather than blocked.
func (r *attemptRun) handleRateLimited() (bool, model.SearchResult, error) {
	r.o.coordinator.Observe(r.session, antidetect.ResponseClassification{Class: model.ClassRateLimited})
	r.recordThreatTransition()
	r.retryCount++

	if r.retryCount >= r.o.cfg.MaxAttempts {
		r.finalOutcome = model.OutcomeFailure
		return false, model.SearchResult{}, apierrors.New(apierrors.KindRateLimited, r.correlationID, "upstream rate-limited the request after exhausting the retry budget")
	}
	return true, model.SearchResult{}, nil
}

// handlePipelineError classifies a lower-level pipeline error: a
// no-healthy-proxy condition is retried once after requesting a pool
// refresh, a cancellation propagates immediately, and anything else
// consumes one unit of retry budget as long as its kind is retryable.
func (r *attemptRun) handlePipelineError(err error, attempt int) (bool, model.SearchResult, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		r.finalOutcome = model.OutcomeFailure
		return false, model.SearchResult{}, apierrors.Wrap(apierrors.KindCancelled, r.correlationID, err)
	}

	if errors.Is(err, proxypool.ErrPoolEmpty) {
		if !r.poolRefreshed {
			r.poolRefreshed = true
			r.o.pool.Refresh(nil)
			r.retryCount++
			return true, model.SearchResult{}, nil
		}
		r.finalOutcome = model.OutcomeFailure
		return false, model.SearchResult{}, apierrors.Wrap(apierrors.KindNoProxyAvailable, r.correlationID, err)
	}

	if apiErr, ok := apierrors.As(err); ok {
		if !apiErr.Kind.Retryable() || attempt == r.o.cfg.MaxAttempts-1 {
			r.finalOutcome = model.OutcomeFailure
			return false, model.SearchResult{}, apiErr
		}
		r.retryCount++
		return true, model.SearchResult{}, nil
	}

	if attempt == r.o.cfg.MaxAttempts-1 {
		r.finalOutcome = model.OutcomeFailure
		return false, model.SearchResult{}, apierrors.Wrap(apierrors.KindInternal, r.correlationID, err)
	}
	r.retryCount++
	return true, model.SearchResult{}, nil
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *attemptRun) sleep(ctx context.Context, d time.Duration) error {
	return r.o.sleep(ctx, d)
}

func (o *Orchestrator) sleepBackoff(ctx context.Context, attempt int) error {
	base := o.cfg.BackoffBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	backoff := base * time.Duration(uint64(1)<<uint(attempt))
	jitter := time.Duration(o.randFloat() * float64(backoff) * 0.5)
	return o.sleep(ctx, backoff+jitter)
}

func (o *Orchestrator) randFloat() float64 {
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	return o.rng.Float64()
}

// buildFormFields maps the query's identifying fields onto whatever
// visible input names the upstream form actually carries, so a renamed
// upstream field never requires a code change here. Country is resolved
// against the form's option list before any HTTP submit happens; an
// unmatched country is a validation error, not an upstream round trip.
func buildFormFields(form *pipeline.ParsedForm, q model.SearchQuery) (map[string]string, error) {
	fields := make(map[string]string)
	names := form.FieldNames

	switch q.Kind {
	case model.QueryByName:
		setIfNamed(fields, names.FirstName, q.FirstName)
		setIfNamed(fields, names.LastName, q.LastName)
		setIfNamed(fields, names.MiddleName, q.MiddleName)
		if !q.DateOfBirth.IsZero() {
			setIfNamed(fields, names.DateOfBirth, q.DateOfBirth.Format("2006-01-02"))
		}
		if q.CountryOfBirth != "" && names.CountryOfBirth != "" {
			value, err := form.ResolveCountry(q.CountryOfBirth)
			if err != nil {
				return nil, err
			}
			fields[names.CountryOfBirth] = value
		}
	case model.QueryByAlienNumber:
		setIfNamed(fields, names.AlienNumber, q.NormalizedAlienNumber())
	case model.QueryByFacility:
		setIfNamed(fields, names.FacilityName, q.FacilityName)
		setIfNamed(fields, names.City, q.City)
		setIfNamed(fields, names.State, q.State)
		setIfNamed(fields, names.ZipCode, q.ZipCode)
		setIfNamed(fields, names.FacilityType, q.FacilityType)
		if names.ActiveOnly != "" && q.ActiveOnly {
			fields[names.ActiveOnly] = "on"
		}
	}

	if names.Submit != "" {
		fields[names.Submit] = "Search"
	}
	return fields, nil
}

func setIfNamed(fields map[string]string, name, value string) {
	if name == "" || value == "" {
		return
	}
	fields[name] = value
}
