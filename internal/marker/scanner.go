// ABOUTME: Streaming scanner that separates visible text from in-band control markers.
// ABOUTME: Markers split across fragment boundaries are carried forward, never leaked.

package marker

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrEmptyTable indicates the marker table contains no literals.
var ErrEmptyTable = errors.New("marker table is empty")

// Marker is one control tag from the configured vocabulary. Identity is the
// literal itself; markers carry no payload.
type Marker struct {
	Name    string
	Literal string
}

// Set is an immutable, validated marker vocabulary. Scanning is a pure
// function of the inputs; a single Set is safe for concurrent use across
// any number of streams.
type Set struct {
	markers []Marker // sorted by literal length, longest first
	maxLen  int
}

// NewSet validates the marker table and builds a Set.
// The table must be non-empty, every literal non-empty, and no two literals
// identical. One literal may be a strict prefix of another; the longer
// literal wins at a shared start position.
func NewSet(markers []Marker) (*Set, error) {
	if len(markers) == 0 {
		return nil, ErrEmptyTable
	}

	seen := make(map[string]string, len(markers))
	sorted := make([]Marker, len(markers))
	copy(sorted, markers)

	maxLen := 0
	for _, m := range sorted {
		if m.Literal == "" {
			return nil, fmt.Errorf("marker %q has an empty literal", m.Name)
		}
		if prev, dup := seen[m.Literal]; dup {
			return nil, fmt.Errorf("markers %q and %q share the literal %q", prev, m.Name, m.Literal)
		}
		seen[m.Literal] = m.Name
		if len(m.Literal) > maxLen {
			maxLen = len(m.Literal)
		}
	}

	// Longest-first so a shared start position resolves to the longer literal.
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Literal) > len(sorted[j].Literal)
	})

	return &Set{markers: sorted, maxLen: maxLen}, nil
}

// Markers returns the vocabulary in longest-literal-first order.
func (s *Set) Markers() []Marker {
	out := make([]Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

// Scan consumes one raw fragment plus the carry-over from the previous call
// of the same stream (empty on the first call). It returns the text that is
// definitely visible, every fully matched marker in encounter order, and the
// new carry: a trailing strict prefix of some literal that may complete once
// more text arrives. The carry never exceeds the longest literal.
func (s *Set) Scan(fragment, carry string) (visible string, found []Marker, newCarry string) {
	combined := carry + fragment

	var b strings.Builder
	i := 0
	for i < len(combined) {
		if m, ok := s.matchAt(combined, i); ok {
			found = append(found, m)
			i += len(m.Literal)
			continue
		}
		if s.partialAt(combined, i) {
			// The tail could still become a marker: withhold it.
			return b.String(), found, combined[i:]
		}
		b.WriteByte(combined[i])
		i++
	}
	return b.String(), found, ""
}

// Flush releases a carry left over at end of stream. A carry that never
// completed a marker was genuine content that merely resembled one, so it is
// returned verbatim as visible text.
func (s *Set) Flush(carry string) string {
	return carry
}

// matchAt reports the marker whose literal fully matches at position i.
// markers are ordered longest-first, so the longest literal wins.
func (s *Set) matchAt(text string, i int) (Marker, bool) {
	for _, m := range s.markers {
		if strings.HasPrefix(text[i:], m.Literal) {
			return m, true
		}
	}
	return Marker{}, false
}

// partialAt reports whether the tail starting at i is a strict, non-empty
// prefix of some literal. Only meaningful when the tail runs to the end of
// the scanned text.
func (s *Set) partialAt(text string, i int) bool {
	tail := text[i:]
	if len(tail) >= s.maxLen {
		return false
	}
	for _, m := range s.markers {
		if len(tail) < len(m.Literal) && strings.HasPrefix(m.Literal, tail) {
			return true
		}
	}
	return false
}
