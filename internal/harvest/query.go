// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/inspire-harvester/pkg/types"
)

// Sort orders accepted by the literature API.
const (
	SortMostRecent = "mostrecent"
	SortMostCited  = "mostcited"
)

// probeFields is the minimal projection used for count-only probes. One
// cheap field keeps the probe response tiny; only hits.total matters.
const probeFields = "control_number"

// Query holds the parameters of one bounded search. The search expression
// is treated as opaque; the traversal engine only manipulates the
// earliest_date range.
type Query struct {
	// Q is the search expression, e.g. "refersto recid 451647".
	Q string

	// Sort is SortMostRecent or SortMostCited.
	Sort string

	// Size is the requested page size (<= types.MaxPageSize).
	Size int

	// Fields is the metadata projection requested per record.
	Fields []string

	// Earliest bounds the publication year range.
	Earliest Interval
}

// Validate checks the invariants the API enforces with errors we would
// rather catch before the first request.
func (q Query) Validate() error {
	if q.Q == "" {
		return fmt.Errorf("query expression is empty")
	}
	if q.Sort != SortMostRecent && q.Sort != SortMostCited {
		return fmt.Errorf("invalid sort %q: want %q or %q", q.Sort, SortMostRecent, SortMostCited)
	}
	if q.Size <= 0 || q.Size > types.MaxPageSize {
		return fmt.Errorf("page size %d out of range [1, %d]", q.Size, types.MaxPageSize)
	}
	if !q.Earliest.Valid() {
		return fmt.Errorf("invalid year range %s: lower bound above upper", q.Earliest)
	}
	return nil
}

// Values builds the parameter set for a full page fetch restricted to iv.
func (q Query) Values(iv Interval) url.Values {
	return url.Values{
		"q":             {q.Q},
		"sort":          {q.Sort},
		"size":          {strconv.Itoa(q.Size)},
		"page":          {"1"},
		"fields":        {strings.Join(q.Fields, ",")},
		"earliest_date": {iv.String()},
	}
}

// probeValues builds the parameter set for a count-only probe of iv:
// page size 1 and a minimal projection.
func (q Query) probeValues(iv Interval) url.Values {
	return url.Values{
		"q":             {q.Q},
		"sort":          {q.Sort},
		"size":          {"1"},
		"page":          {"1"},
		"fields":        {probeFields},
		"earliest_date": {iv.String()},
	}
}
