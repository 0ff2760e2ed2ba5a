package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTrackingPrefix is the prefix used when none is configured
const DefaultTrackingPrefix = "PPS"

const minSequenceDigits = 3

// TrackingIDGenerator issues tracking IDs of the form <PREFIX><YEAR><SEQ>
type TrackingIDGenerator struct {
	prefix string
	now    Clock
}

// NewTrackingIDGenerator creates a generator for prefix
func NewTrackingIDGenerator(prefix string, clock Clock) *TrackingIDGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultTrackingPrefix
	}
	if clock == nil {
		clock = SystemClock
	}
	return &TrackingIDGenerator{prefix: prefix, now: clock}
}

// Next returns the ID following the highest sequence already issued for the
// current year among existing.
func (g *TrackingIDGenerator) Next(existing []string) string {
	year := g.now().Year()

	highest := 0
	for _, id := range existing {
		prefix, y, seq, err := ParseTrackingID(id)
		if err != nil || prefix != g.prefix || y != year {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}
	return fmt.Sprintf("%s%d%0*d", g.prefix, year, minSequenceDigits, highest+1)
}

// ParseTrackingID splits a tracking ID into prefix, year and sequence
func ParseTrackingID(id string) (prefix string, year int, seq int, err error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	i := strings.IndexFunc(id, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 || len(id)-i < 4+minSequenceDigits {
		return "", 0, 0, fmt.Errorf("malformed tracking id %q", id)
	}
	prefix = id[:i]
	if year, err = strconv.Atoi(id[i : i+4]); err != nil {
		return "", 0, 0, fmt.Errorf("malformed tracking id %q: %w", id, err)
	}
	if seq, err = strconv.Atoi(id[i+4:]); err != nil {
		return "", 0, 0, fmt.Errorf("malformed tracking id %q: %w", id, err)
	}
	return prefix, year, seq, nil
}

// NormaliseTrackingID is the canonical lookup form of a tracking ID
func NormaliseTrackingID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
