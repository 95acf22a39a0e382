package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/icelocator/locator-core/internal/app"
	"github.com/icelocator/locator-core/internal/orchestrator"
	"github.com/icelocator/locator-core/pkg/apierrors"
	"github.com/icelocator/locator-core/pkg/model"
)

// Dispatcher resolves an operation name plus raw JSON params to the
// corresponding orchestrator call and returns a wire-ready result. It is
// the single chokepoint both the stdio and HTTP framings call through, so
// the two transports can never drift in behavior.
type Dispatcher struct {
	app *app.App
}

// NewDispatcher builds a Dispatcher over a fully-wired App.
func NewDispatcher(a *app.App) *Dispatcher {
	return &Dispatcher{app: a}
}

// Operations recognized on the tool-invocation surface.
const (
	OpSearchByName        = "search_by_name"
	OpSearchByAlienNumber = "search_by_alien_number"
	OpSearchByFacility    = "search_by_facility"
	OpBulkSearch          = "bulk_search"
	OpParseNaturalQuery   = "parse_natural_query"
)

// Dispatch decodes params for the named operation, invokes the
// orchestrator, and returns either a result value (ResponseEnvelope for
// the single-search operations, BulkResponseEnvelope for bulk_search) or
// an ErrorEnvelope. Exactly one return value is non-nil.
func (d *Dispatcher) Dispatch(ctx context.Context, operation string, params json.RawMessage) (any, *ErrorEnvelope) {
	switch operation {
	case OpSearchByName:
		var req SearchByNameRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, decodeErrorEnvelope(err)
		}
		query, err := req.ToQuery()
		if err != nil {
			return nil, validationErrorEnvelope(err)
		}
		return d.search(ctx, query)

	case OpSearchByAlienNumber:
		var req SearchByAlienNumberRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, decodeErrorEnvelope(err)
		}
		query, err := req.ToQuery()
		if err != nil {
			return nil, validationErrorEnvelope(err)
		}
		return d.search(ctx, query)

	case OpSearchByFacility:
		var req SearchByFacilityRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, decodeErrorEnvelope(err)
		}
		query, err := req.ToQuery()
		if err != nil {
			return nil, validationErrorEnvelope(err)
		}
		return d.search(ctx, query)

	case OpBulkSearch:
		return d.bulkSearch(ctx, params)

	case OpParseNaturalQuery:
		var req ParseNaturalQueryRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, decodeErrorEnvelope(err)
		}
		return d.parseNaturalQuery(ctx, req)

	default:
		return nil, ptr(ToErrorEnvelope(apierrors.New(apierrors.KindValidation, "", fmt.Sprintf("unknown operation %q", operation))))
	}
}

func (d *Dispatcher) search(ctx context.Context, query model.SearchQuery) (any, *ErrorEnvelope) {
	result, err := d.app.Orchestrator.Search(ctx, query)
	if err != nil {
		return nil, ptr(ToErrorEnvelope(err))
	}
	resp := ToResponseEnvelope(result)
	return resp, nil
}

// BulkResponseEnvelope wraps bulk_search's per-slot results; each slot is
// either a ResponseEnvelope or an ErrorEnvelope, never both, in input
// order regardless of completion order.
type BulkResponseEnvelope struct {
	Results []BulkSlot `json:"results"`
}

// BulkSlot is one output slot of a bulk_search call.
type BulkSlot struct {
	Response *ResponseEnvelope `json:"response,omitempty"`
	Error    *ErrorDTO         `json:"error,omitempty"`
}

func (d *Dispatcher) bulkSearch(ctx context.Context, params json.RawMessage) (any, *ErrorEnvelope) {
	var req BulkSearchRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, decodeErrorEnvelope(err)
	}
	if len(req.Searches) == 0 || len(req.Searches) > 10 {
		return nil, ptr(ToErrorEnvelope(apierrors.New(apierrors.KindValidation, "", "bulk_search requires between 1 and 10 searches")))
	}

	queries := make([]model.SearchQuery, len(req.Searches))
	decodeErrs := make([]error, len(req.Searches))
	for i, raw := range req.Searches {
		q, err := DecodeBulkItem(raw)
		queries[i] = q
		decodeErrs[i] = err
	}

	maxConcurrent := req.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	items := d.app.Orchestrator.BulkSearch(ctx, queries, maxConcurrent, req.StopOnError)

	slots := make([]BulkSlot, len(items))
	for i, item := range items {
		if decodeErrs[i] != nil {
			errEnv := ToErrorEnvelope(apierrors.Wrap(apierrors.KindValidation, "", decodeErrs[i]))
			slots[i] = BulkSlot{Error: &errEnv.Error}
			continue
		}
		if item.Err != nil {
			errEnv := ToErrorEnvelope(item.Err)
			slots[i] = BulkSlot{Error: &errEnv.Error}
			continue
		}
		resp := ToResponseEnvelope(item.Result)
		slots[i] = BulkSlot{Response: &resp}
	}
	return BulkResponseEnvelope{Results: slots}, nil
}

func (d *Dispatcher) parseNaturalQuery(ctx context.Context, req ParseNaturalQueryRequest) (any, *ErrorEnvelope) {
	lang := languageOrDefault(req.Language)
	query, err := orchestrator.ParseNaturalQuery(req.Query, lang)
	if err != nil {
		return nil, validationErrorEnvelope(err)
	}
	if req.ConfidenceThreshold > 0 {
		query.ConfidenceThreshold = req.ConfidenceThreshold
	}
	query.Fuzzy = true

	if !req.AutoExecute {
		// Parsed-only response: report what was extracted without
		// touching the network.
		resp := ResponseEnvelope{
			Status: "parsed",
			SearchMetadata: MetadataDTO{
				Language:           string(query.Language),
				CorrectionsApplied: []string{fmt.Sprintf("parsed query kind=%s", query.Kind)},
			},
		}
		return resp, nil
	}

	return d.search(ctx, query)
}

func decodeErrorEnvelope(err error) *ErrorEnvelope {
	return ptr(ToErrorEnvelope(apierrors.Wrap(apierrors.KindValidation, "", err)))
}

func validationErrorEnvelope(err error) *ErrorEnvelope {
	return ptr(ToErrorEnvelope(apierrors.Wrap(apierrors.KindValidation, "", err)))
}

func ptr[T any](v T) *T { return &v }
