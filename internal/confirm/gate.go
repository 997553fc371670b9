// Package confirm gates destructive actions behind an explicit confirmation token.
package confirm

import (
	"strings"

	"owasp-controls-demo/backend/internal/decision"
)

// DefaultMarker is the confirmation literal used when none is configured.
const DefaultMarker = "yes"

// Gate is stateless: every request is checked on its own, with no issued tokens and no replay window.
type Gate struct {
	marker string
}

// NewGate returns a Gate that accepts marker. An empty marker falls back to DefaultMarker.
func NewGate(marker string) Gate {
	marker = normalize(marker)
	if marker == "" {
		marker = DefaultMarker
	}
	return Gate{marker: marker}
}

// Marker returns the normalized marker.
func (g Gate) Marker() string { return g.marker }

// Require allows iff token matches the marker, ignoring surrounding space and case.
func (g Gate) Require(token string) error {
	if g.marker == "" || normalize(token) != g.marker {
		return decision.ErrConfirmationRequired
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
