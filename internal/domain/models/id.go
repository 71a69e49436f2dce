package models

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a prefixed opaque identifier, e.g. "trip_9f8a...".
// The prefix makes IDs self-describing in logs and audit trails.
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
