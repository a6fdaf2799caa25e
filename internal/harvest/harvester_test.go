// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/inspire-harvester/pkg/types"
)

// fakeAPI simulates the literature API over an in-memory corpus keyed by
// publication year. Pagination uses an "offset" parameter carried in the
// continuation URL, mirroring how the real API embeds its cursor in
// links.next.
type fakeAPI struct {
	years map[int][]types.Document

	calls       int
	probes      []string // earliest_date of size=1 requests
	fullFetches []string // earliest_date of full page requests

	failProbe string // earliest_date whose probe returns an error
}

func (f *fakeAPI) Fetch(_ context.Context, params url.Values) (*types.PageResponse, error) {
	f.calls++

	iv, err := ParseInterval(params.Get("earliest_date"))
	if err != nil {
		return nil, err
	}
	size, err := strconv.Atoi(params.Get("size"))
	if err != nil {
		return nil, err
	}
	offset := 0
	if raw := params.Get("offset"); raw != "" {
		offset, _ = strconv.Atoi(raw)
	}

	if size == 1 && offset == 0 {
		f.probes = append(f.probes, iv.String())
		if iv.String() == f.failProbe {
			return nil, fmt.Errorf("probe of %s exploded", iv)
		}
	} else if offset == 0 {
		f.fullFetches = append(f.fullFetches, iv.String())
	}

	docs := f.docsIn(iv)
	total := len(docs)

	end := offset + size
	if end > total {
		end = total
	}
	var hits []types.Document
	if offset < total {
		for _, doc := range docs[offset:end] {
			// Copy so Mark stamping never mutates the corpus.
			clone := types.Document{}
			for k, v := range doc {
				clone[k] = v
			}
			hits = append(hits, clone)
		}
	}

	next := ""
	if end < total {
		nextParams := url.Values{}
		for k := range params {
			nextParams.Set(k, params.Get(k))
		}
		nextParams.Set("offset", strconv.Itoa(end))
		next = "https://api.test/literature?" + nextParams.Encode()
	}

	return &types.PageResponse{Total: total, Hits: hits, Next: next}, nil
}

func (f *fakeAPI) docsIn(iv Interval) []types.Document {
	var docs []types.Document
	for year := iv.Lo; year <= iv.Hi; year++ {
		docs = append(docs, f.years[year]...)
	}
	return docs
}

// seedYears spreads n documents evenly across the years of iv.
func seedYears(iv Interval, n int) map[int][]types.Document {
	years := make(map[int][]types.Document)
	span := iv.Width() + 1
	for i := 0; i < n; i++ {
		year := iv.Lo + i%span
		id := fmt.Sprintf("%d-%06d", year, i)
		years[year] = append(years[year], types.Document{"_id": id, "year": year})
	}
	return years
}

// fakeStore is an in-memory Store with idempotent inserts.
type fakeStore struct {
	docs     map[string]types.Document
	inserted int
	dups     []string
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]types.Document)}
}

func (s *fakeStore) InsertDocuments(_ context.Context, docs []types.Document) (int, []string, error) {
	if s.failWith != nil {
		return 0, nil, s.failWith
	}
	var dups []string
	inserted := 0
	for _, doc := range docs {
		id := doc.ID()
		if _, ok := s.docs[id]; ok {
			dups = append(dups, id)
			continue
		}
		s.docs[id] = doc
		inserted++
	}
	s.inserted += inserted
	s.dups = append(s.dups, dups...)
	return inserted, dups, nil
}

func testQuery(iv Interval) Query {
	return Query{
		Q:        "cn cms or cn atlas",
		Sort:     SortMostRecent,
		Size:     100,
		Fields:   []string{"titles", "references"},
		Earliest: iv,
	}
}

func TestDownload_EmptyRange(t *testing.T) {
	api := &fakeAPI{years: map[int][]types.Document{}}
	st := newFakeStore()
	h := New(api, st)

	ids, err := h.Download(context.Background(), testQuery(Interval{Lo: 2000, Hi: 2021}))
	require.NoError(t, err)

	assert.Empty(t, ids)
	assert.Empty(t, st.docs)
	// One probe, nothing else.
	assert.Equal(t, 1, api.calls)
}

func TestDownload_BelowCeiling_NoSplit(t *testing.T) {
	iv := Interval{Lo: 2000, Hi: 2021}
	api := &fakeAPI{years: seedYears(iv, 9999)}
	st := newFakeStore()
	h := New(api, st)

	ids, err := h.Download(context.Background(), testQuery(iv))
	require.NoError(t, err)

	assert.Len(t, ids, 9999)
	assert.Len(t, st.docs, 9999)

	// 9999 hits sit just under the ceiling: one probe, one paginated
	// walk over the unsplit range, no narrowed sub-ranges.
	assert.Equal(t, []string{"2000--2021"}, api.probes)
	assert.Equal(t, []string{"2000--2021"}, api.fullFetches)
}

func TestDownload_AtCeiling_SplitsOnce(t *testing.T) {
	iv := Interval{Lo: 2000, Hi: 2021}
	api := &fakeAPI{years: seedYears(iv, 15000)}
	st := newFakeStore()
	h := New(api, st)

	ids, err := h.Download(context.Background(), testQuery(iv))
	require.NoError(t, err)

	// The full range is re-probed as [2000,2010] and [2011,2021]; each
	// half fits under the ceiling and is paginated independently.
	assert.Equal(t, []string{"2000--2021", "2000--2010", "2011--2021"}, api.probes)
	assert.ElementsMatch(t, []string{"2000--2010", "2011--2021"}, api.fullFetches)

	// The concatenated ids cover the whole corpus with no duplicates
	// across sub-ranges.
	assert.Len(t, ids, 15000)
	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, 15000)
	assert.Len(t, st.docs, 15000)
}

func TestDownload_SplitMatchesExhaustivePagination(t *testing.T) {
	// Union property: the ids downloaded across all leaf ranges equal
	// the set an exhaustive walk of the unsplit range would return.
	iv := Interval{Lo: 1990, Hi: 2021}
	api := &fakeAPI{years: seedYears(iv, 30000)}
	st := newFakeStore()
	h := New(api, st)

	ids, err := h.Download(context.Background(), testQuery(iv))
	require.NoError(t, err)

	var want []string
	for _, doc := range api.docsIn(iv) {
		want = append(want, doc.ID())
	}
	sort.Strings(want)

	got := append([]string(nil), ids...)
	sort.Strings(got)
	assert.Equal(t, want, got)
}

func TestDownload_SingleYearAtCeiling_Fails(t *testing.T) {
	api := &fakeAPI{years: seedYears(Interval{Lo: 2005, Hi: 2005}, 12000)}
	st := newFakeStore()
	h := New(api, st)

	_, err := h.Download(context.Background(), testQuery(Interval{Lo: 2005, Hi: 2005}))
	assert.ErrorIs(t, err, ErrRangeUnsplittable)
	assert.Empty(t, st.docs)
}

func TestDownload_ProbeFailurePropagates(t *testing.T) {
	iv := Interval{Lo: 2000, Hi: 2021}
	api := &fakeAPI{
		years:     seedYears(iv, 15000),
		failProbe: "2011--2021",
	}
	st := newFakeStore()
	h := New(api, st)

	_, err := h.Download(context.Background(), testQuery(iv))
	require.Error(t, err)
	assert.ErrorContains(t, err, "probing range 2011--2021")

	// Pages persisted before the failure stay in the store.
	assert.NotEmpty(t, st.docs)
}

func TestDownload_WriteFailureAborts(t *testing.T) {
	iv := Interval{Lo: 2000, Hi: 2001}
	api := &fakeAPI{years: seedYears(iv, 50)}
	st := newFakeStore()
	st.failWith = fmt.Errorf("disk on fire")
	h := New(api, st)

	_, err := h.Download(context.Background(), testQuery(iv))
	assert.ErrorContains(t, err, "persisting page")
}

func TestDownload_InvalidQuery(t *testing.T) {
	h := New(&fakeAPI{}, newFakeStore())

	q := testQuery(Interval{Lo: 2000, Hi: 2021})
	q.Size = types.MaxPageSize + 1

	_, err := h.Download(context.Background(), q)
	assert.ErrorContains(t, err, "invalid query")
}

func TestDownload_DuplicatesReportedNotRaised(t *testing.T) {
	iv := Interval{Lo: 2000, Hi: 2001}
	api := &fakeAPI{years: seedYears(iv, 40)}
	st := newFakeStore()

	// Pre-seed half the corpus, as a previous interrupted run would.
	for _, doc := range api.docsIn(iv)[:20] {
		st.docs[doc.ID()] = doc
	}

	h := New(api, st)
	ids, err := h.Download(context.Background(), testQuery(iv))
	require.NoError(t, err)

	// Every document id is reported, inserted or already seen.
	assert.Len(t, ids, 40)
	assert.Equal(t, 20, st.inserted)
	assert.Len(t, st.dups, 20)
	assert.Len(t, st.docs, 40)
}

func TestDownload_MarkStampedOntoDocuments(t *testing.T) {
	iv := Interval{Lo: 2000, Hi: 2000}
	api := &fakeAPI{years: seedYears(iv, 5)}
	st := newFakeStore()

	h := New(api, st)
	h.Mark = map[string]any{"is_parent_document": true}

	_, err := h.Download(context.Background(), testQuery(iv))
	require.NoError(t, err)

	for id, doc := range st.docs {
		assert.Equal(t, true, doc["is_parent_document"], "document %s not marked", id)
	}
}

func TestDownload_Pagination_FollowsAllPages(t *testing.T) {
	iv := Interval{Lo: 2010, Hi: 2010}
	api := &fakeAPI{years: seedYears(iv, 250)}
	st := newFakeStore()
	h := New(api, st)

	q := testQuery(iv)
	q.Size = 100

	ids, err := h.Download(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, ids, 250)
	// Probe + first page + two continuations.
	assert.Equal(t, 4, api.calls)
}

// scriptedFetcher returns canned pages in order, ignoring parameters.
type scriptedFetcher struct {
	pages []*types.PageResponse
	calls int
}

func (s *scriptedFetcher) Fetch(context.Context, url.Values) (*types.PageResponse, error) {
	i := s.calls
	if i >= len(s.pages) {
		i = len(s.pages) - 1
	}
	s.calls++
	return s.pages[i], nil
}

func TestDownload_CursorRepeatIsFatal(t *testing.T) {
	repeat := "https://api.test/literature?q=x&offset=100"
	fetcher := &scriptedFetcher{pages: []*types.PageResponse{
		{Total: 300}, // probe
		{Total: 300, Hits: []types.Document{{"_id": "1"}}, Next: repeat},
		{Total: 300, Hits: []types.Document{{"_id": "2"}}, Next: repeat},
	}}
	st := newFakeStore()
	h := New(fetcher, st)

	_, err := h.Download(context.Background(), testQuery(Interval{Lo: 2000, Hi: 2021}))
	assert.ErrorIs(t, err, ErrCursorRepeat)

	// Both pages before the repeat detection were persisted.
	assert.Len(t, st.docs, 2)
}

func TestDownload_NoContinuation_SingleFetch(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []*types.PageResponse{
		{Total: 2}, // probe
		{Total: 2, Hits: []types.Document{{"_id": "1"}, {"_id": "2"}}},
		{Total: 2}, // must never be requested
	}}
	st := newFakeStore()
	h := New(fetcher, st)

	ids, err := h.Download(context.Background(), testQuery(Interval{Lo: 2000, Hi: 2021}))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, ids)
	// Probe plus exactly one page fetch.
	assert.Equal(t, 2, fetcher.calls, "paginator fetched past the last page")
}
