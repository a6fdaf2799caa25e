// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inspire

import "errors"

// Sentinel errors surfaced by the fetcher. Callers distinguish
// configuration mistakes (not retryable, not recoverable by re-running)
// from unknown upstream failures.
var (
	// ErrPageSizeExceeded reports an HTTP 400 caused by a page size
	// above the server maximum. This is a caller bug: retrying the same
	// request cannot succeed.
	ErrPageSizeExceeded = errors.New("requested page size exceeds the API maximum")

	// ErrUnexpectedStatus reports any HTTP status the retry policy does
	// not cover. The traversal must abort; no page write has happened
	// for the failing request.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status from API")
)
