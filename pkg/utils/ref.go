package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewSaleRef generates a globally unique sale reference. Refs are
// client-generated, never reused, and double as the server-side idempotency
// key, so collisions across devices must be impossible.
func NewSaleRef() string {
	return uuid.New().String()
}

// NewRequestID generates an id for local API request tracing.
func NewRequestID() string {
	return uuid.New().String()
}

// ShortRef returns the leading segment of a ref for log output.
func ShortRef(ref string) string {
	if i := strings.IndexByte(ref, '-'); i > 0 {
		return ref[:i]
	}
	if len(ref) > 8 {
		return ref[:8]
	}
	return ref
}
