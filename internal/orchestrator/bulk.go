package orchestrator

import (
	"context"
	"sync"

	"github.com/icelocator/locator-core/pkg/apierrors"
	"github.com/icelocator/locator-core/pkg/model"
)

// BulkItem is one slot of a BulkSearch call's output: exactly one of Result
// or Err is populated, never both.
type BulkItem struct {
	Result model.SearchResult
	Err    error
}

// BulkSearch schedules up to maxConcurrent parallel Search runs, one per
// query, preserving input order in the returned slice regardless of
// completion order. A failing item never aborts its siblings unless
// stopOnError is set, in which case queries not yet dispatched at the time
// of the first failure are left unscheduled and reported with a cancelled
// error; queries already admitted run to completion.
//
// maxConcurrent is clamped to [1,5] per the bulk_search operation's input
// range; it bounds local dispatch only; the shared traffic distributor still
// governs admission for every individual Search call.
func (o *Orchestrator) BulkSearch(ctx context.Context, queries []model.SearchQuery, maxConcurrent int, stopOnError bool) []BulkItem {
	items := make([]BulkItem, len(queries))
	if len(queries) == 0 {
		return items
	}

	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if maxConcurrent > 5 {
		maxConcurrent = 5
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	var stopMu sync.Mutex
	stopped := false

	for i, q := range queries {
		stopMu.Lock()
		halt := stopped
		stopMu.Unlock()
		if halt {
			items[i] = BulkItem{Err: apierrors.New(apierrors.KindCancelled, "", "skipped: an earlier bulk item failed and stop_on_error is set")}
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			items[i] = BulkItem{Err: apierrors.Wrap(apierrors.KindCancelled, "", ctx.Err())}
			continue
		}

		stopMu.Lock()
		halt = stopped
		stopMu.Unlock()
		if halt {
			<-sem
			items[i] = BulkItem{Err: apierrors.New(apierrors.KindCancelled, "", "skipped: an earlier bulk item failed and stop_on_error is set")}
			continue
		}

		wg.Add(1)
		go func(idx int, query model.SearchQuery) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := o.Search(ctx, query)
			items[idx] = BulkItem{Result: result, Err: err}

			if err != nil && stopOnError {
				stopMu.Lock()
				stopped = true
				stopMu.Unlock()
			}
		}(i, q)
	}

	wg.Wait()

	if o.metrics != nil {
		failed := 0
		for _, item := range items {
			if item.Err != nil {
				failed++
			}
		}
		o.metrics.RecordBulkSearch(len(items), failed)
	}
	return items
}
