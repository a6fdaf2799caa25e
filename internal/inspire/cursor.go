// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inspire

import (
	"fmt"
	"net/url"
)

// ParseNextURL extracts the query parameters from a continuation URL
// provided in a page's links.next field. The returned values form the
// parameter set for the next page request; callers re-apply their own
// size and field projection before reuse. Pure function.
func ParseNextURL(next string) (url.Values, error) {
	u, err := url.Parse(next)
	if err != nil {
		return nil, fmt.Errorf("parsing continuation URL %q: %w", next, err)
	}
	params, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("parsing continuation query %q: %w", u.RawQuery, err)
	}
	return params, nil
}
