// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"

	"github.com/pdiddy/inspire-harvester/pkg/types"
)

// Store is the document sink the traversal writes into. Implementations
// must batch-insert with unordered semantics: one duplicate must not block
// insertion of the rest of the batch. Duplicate external ids are reported,
// not raised; any other per-document failure is an error for the whole
// batch. A uniqueness constraint on the identifier field is a
// precondition owned by the store bootstrap.
type Store interface {
	InsertDocuments(ctx context.Context, docs []types.Document) (inserted int, duplicates []string, err error)
}

// RangeProbe records the outcome of one terminal count probe: the range,
// its total hit count, and how many documents the traversal collected for
// it. Probes that triggered a split are not terminal and are not recorded.
type RangeProbe struct {
	Query      string
	Range      Interval
	Total      int
	Downloaded int
}

// ProbeRecorder receives terminal range probes for diagnostics. Recording
// is best-effort: the traversal never consults recorded probes and a
// recording failure must not abort it.
type ProbeRecorder interface {
	RecordProbe(ctx context.Context, probe RangeProbe) error
}
