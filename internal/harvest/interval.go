// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"strconv"
	"strings"
)

// Interval is a closed year range [Lo, Hi], both endpoints inclusive.
// Intervals exist only transiently during the range-splitting recursion;
// they are never persisted.
type Interval struct {
	Lo int
	Hi int
}

// Valid reports whether the interval is well-formed (Lo <= Hi).
func (iv Interval) Valid() bool {
	return iv.Lo <= iv.Hi
}

// Width returns Hi - Lo. A single year has width zero.
func (iv Interval) Width() int {
	return iv.Hi - iv.Lo
}

// Split bisects the interval into [Lo, Lo+w] and [Lo+w+1, Hi] where
// w = (Hi-Lo)/2. For Width() > 0 the halves are non-empty, disjoint,
// contiguous, and cover the input exactly. A zero-width interval cannot
// progress: the caller must guard against it before splitting.
func (iv Interval) Split() (Interval, Interval) {
	w := (iv.Hi - iv.Lo) / 2
	return Interval{Lo: iv.Lo, Hi: iv.Lo + w}, Interval{Lo: iv.Lo + w + 1, Hi: iv.Hi}
}

// String renders the API wire form for the earliest_date parameter,
// e.g. "2000--2021".
func (iv Interval) String() string {
	return fmt.Sprintf("%d--%d", iv.Lo, iv.Hi)
}

// ParseInterval reads the "YYYY--YYYY" wire form back into an Interval.
func ParseInterval(s string) (Interval, error) {
	lo, hi, ok := strings.Cut(s, "--")
	if !ok {
		return Interval{}, fmt.Errorf("invalid year range %q: want \"YYYY--YYYY\"", s)
	}
	loYear, err := strconv.Atoi(lo)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid year range %q: %w", s, err)
	}
	hiYear, err := strconv.Atoi(hi)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid year range %q: %w", s, err)
	}
	iv := Interval{Lo: loYear, Hi: hiYear}
	if !iv.Valid() {
		return Interval{}, fmt.Errorf("invalid year range %q: lower bound above upper", s)
	}
	return iv, nil
}
