// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest implements the traversal engine: a range-aware
// downloader that bisects year ranges until each sub-query fits under the
// API's 10,000-hit ceiling, and a paginator that walks continuation URLs
// for each bounded sub-query, persisting every page as it arrives.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pdiddy/inspire-harvester/internal/inspire"
	"github.com/pdiddy/inspire-harvester/pkg/types"
)

// Sentinel errors for traversal-level invariant violations.
var (
	// ErrRangeUnsplittable reports a single-year range whose hit count
	// still meets the ceiling. The halving recursion cannot progress
	// past a zero-width interval.
	ErrRangeUnsplittable = errors.New("single-year range still exceeds the hit ceiling")

	// ErrCursorRepeat reports a continuation URL seen twice within one
	// pagination walk. The server guarantees forward-only cursors, so a
	// repeat is a protocol violation that would otherwise loop forever.
	ErrCursorRepeat = errors.New("continuation URL repeated")
)

// Fetcher issues one bounded query and returns the parsed page. The
// inspire.Client satisfies this; tests substitute scripted fetchers.
type Fetcher interface {
	Fetch(ctx context.Context, params url.Values) (*types.PageResponse, error)
}

// Harvester runs the traversal. It is strictly sequential: one request in
// flight at a time, depth-first over split ranges, every backoff blocking
// the caller. Writes go through Store as pages arrive, so documents
// persisted before a fatal error survive it.
type Harvester struct {
	// Recorder, when non-nil, receives terminal range probes.
	Recorder ProbeRecorder

	// Mark holds fields stamped onto every document before insertion,
	// e.g. {"is_parent_document": true} for corpus-level records.
	Mark map[string]any

	fetcher Fetcher
	store   Store
	logger  zerolog.Logger
}

// New builds a Harvester over an injected fetcher and store.
func New(fetcher Fetcher, store Store) *Harvester {
	return &Harvester{
		fetcher: fetcher,
		store:   store,
		logger:  log.With().Str("component", "harvester").Logger(),
	}
}

// Download collects every document the query matches across its full year
// range, persisting pages along the way, and returns the ordered external
// ids of all documents seen. Any fatal fetch or write error propagates up
// through the whole recursion; already-persisted pages stay in the store
// and a re-run skips them as duplicates.
func (h *Harvester) Download(ctx context.Context, q Query) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	return h.download(ctx, q, q.Earliest)
}

// download is the recursive core. Each call strictly narrows the interval,
// bounding the depth by log2 of the initial range width, with the
// zero-width case guarded explicitly.
func (h *Harvester) download(ctx context.Context, q Query, iv Interval) ([]string, error) {
	total, err := h.probe(ctx, q, iv)
	if err != nil {
		return nil, err
	}

	logger := h.logger.With().Stringer("range", iv).Int("total", total).Logger()

	switch {
	case total == 0:
		logger.Debug().Msg("no hits in range")
		h.record(ctx, q, iv, 0, 0)
		return nil, nil

	case total < types.HitCeiling:
		ids, err := h.fetchRange(ctx, q, iv)
		if err != nil {
			return nil, err
		}
		logger.Info().Int("downloaded", len(ids)).Msg("range complete")
		h.record(ctx, q, iv, total, len(ids))
		return ids, nil

	case iv.Width() == 0:
		return nil, fmt.Errorf("%w: %d hits in %s", ErrRangeUnsplittable, total, iv)

	default:
		lower, upper := iv.Split()
		logger.Info().
			Stringer("lower", lower).
			Stringer("upper", upper).
			Msg("range at hit ceiling, splitting")
		left, err := h.download(ctx, q, lower)
		if err != nil {
			return nil, err
		}
		right, err := h.download(ctx, q, upper)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	}
}

// probe issues the count-only query for iv and returns its total hits.
func (h *Harvester) probe(ctx context.Context, q Query, iv Interval) (int, error) {
	page, err := h.fetcher.Fetch(ctx, q.probeValues(iv))
	if err != nil {
		return 0, fmt.Errorf("probing range %s: %w", iv, err)
	}
	return page.Total, nil
}

// fetchRange downloads a range already confirmed to fit under the ceiling:
// one full first-page fetch, then pagination.
func (h *Harvester) fetchRange(ctx context.Context, q Query, iv Interval) ([]string, error) {
	first, err := h.fetcher.Fetch(ctx, q.Values(iv))
	if err != nil {
		return nil, fmt.Errorf("fetching range %s: %w", iv, err)
	}
	return h.paginate(ctx, q, first)
}

// paginate persists the first page, then follows links.next until no
// continuation remains, persisting each page before requesting the next.
// The continuation URL must advance monotonically; a repeat aborts the
// walk instead of looping.
func (h *Harvester) paginate(ctx context.Context, q Query, first *types.PageResponse) ([]string, error) {
	var ids []string
	seen := make(map[string]struct{})

	page := first
	for {
		pageIDs, err := h.persist(ctx, page.Hits)
		if err != nil {
			return nil, err
		}
		ids = append(ids, pageIDs...)
		h.logger.Debug().
			Int("collected", len(ids)).
			Int("total", page.Total).
			Msg("page persisted")

		if page.Next == "" {
			return ids, nil
		}
		if _, dup := seen[page.Next]; dup {
			return nil, fmt.Errorf("%w: %s", ErrCursorRepeat, page.Next)
		}
		seen[page.Next] = struct{}{}

		params, err := inspire.ParseNextURL(page.Next)
		if err != nil {
			return nil, err
		}
		// The continuation carries the server's cursor; size and
		// projection are re-applied from our own query.
		params.Set("size", strconv.Itoa(q.Size))
		params.Set("fields", strings.Join(q.Fields, ","))

		page, err = h.fetcher.Fetch(ctx, params)
		if err != nil {
			return nil, err
		}
	}
}

// persist stamps the Mark fields onto each document, batch-inserts the
// page, and returns the external ids of every document on it, inserted or
// already present.
func (h *Harvester) persist(ctx context.Context, docs []types.Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		for k, v := range h.Mark {
			doc[k] = v
		}
		if id := doc.ID(); id != "" {
			ids = append(ids, id)
		}
	}

	inserted, duplicates, err := h.store.InsertDocuments(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("persisting page: %w", err)
	}
	if len(duplicates) > 0 {
		h.logger.Debug().
			Int("inserted", inserted).
			Int("duplicates", len(duplicates)).
			Msg("page contained already-stored documents")
	}
	return ids, nil
}

// record reports a terminal probe to the recorder, if any. Failures are
// logged and swallowed: the journal is diagnostics, not state.
func (h *Harvester) record(ctx context.Context, q Query, iv Interval, total, downloaded int) {
	if h.Recorder == nil {
		return
	}
	probe := RangeProbe{Query: q.Q, Range: iv, Total: total, Downloaded: downloaded}
	if err := h.Recorder.RecordProbe(ctx, probe); err != nil {
		h.logger.Warn().Err(err).Stringer("range", iv).Msg("journal write failed")
	}
}
