package transport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/icelocator/locator-core/internal/app"
	"github.com/icelocator/locator-core/pkg/telemetry/logging"
)

// NewHTTPHandler builds the optional HTTP surface over a Dispatcher: one
// POST endpoint per operation, plus /healthz, /readyz, and /metrics.
func NewHTTPHandler(a *app.App, d *Dispatcher, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	for _, op := range []string{OpSearchByName, OpSearchByAlienNumber, OpSearchByFacility, OpBulkSearch, OpParseNaturalQuery} {
		mux.Handle("/v1/"+op, operationHandler(d, op, log))
	}

	mux.Handle("/healthz", a.Health.LivenessHandler())
	mux.Handle("/readyz", a.Health.ReadinessHandler())
	if a.Metrics != nil {
		mux.Handle("/metrics", a.Metrics.Handler())
	} else {
		mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	}

	return withRecovery(withRequestID(withTimeout(mux, 30*time.Second)), log)
}

func operationHandler(d *Dispatcher, operation string, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorEnvelope{Error: ErrorDTO{Kind: "validation", Message: "failed to read request body"}})
			return
		}

		result, errEnv := d.Dispatch(r.Context(), operation, body)
		if errEnv != nil {
			log.WarnContext(r.Context(), "operation failed", "operation", operation, "kind", errEnv.Error.Kind)
			writeJSON(w, statusForKind(errEnv.Error.Kind), *errEnv)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func statusForKind(kind string) int {
	switch kind {
	case "validation":
		return http.StatusBadRequest
	case "rate_limited":
		return http.StatusTooManyRequests
	case "blocked", "captcha_required":
		return http.StatusForbidden
	case "upstream_timeout":
		return http.StatusGatewayTimeout
	case "no_proxy_available":
		return http.StatusServiceUnavailable
	case "cancelled":
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := logging.WithCorrelationID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func withTimeout(next http.Handler, d time.Duration) http.Handler {
	return http.TimeoutHandler(next, d, `{"error":{"kind":"upstream_timeout","message":"request timed out"}}`)
}

func withRecovery(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.ErrorContext(r.Context(), "panic recovered in handler", "panic", rec, "path", r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, ErrorEnvelope{Error: ErrorDTO{Kind: "internal", Message: "internal error"}})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
