// Package metadata resolves the RFC3339 timestamp strings carried on session
// records into wall-clock times for sorting and display.
//
// The backend serializes created_at/updated_at as strings and omits them for
// records it has never stored (local drafts). Resolution rules:
//
//   - created_at fills both Created and Updated as initial values
//   - updated_at overrides Updated when present
//   - unparseable or missing fields stay zero; WithFallback substitutes a
//     caller-supplied time for anything still zero
package metadata

import (
	"time"

	"sessionbridge/store"
)

// Times holds the resolved timestamps for a record.
type Times struct {
	Created time.Time
	Updated time.Time
}

// IsZero returns true if both timestamps are zero.
func (t Times) IsZero() bool {
	return t.Created.IsZero() && t.Updated.IsZero()
}

// WithFallback substitutes fallback for any timestamp that is zero.
func (t Times) WithFallback(fallback time.Time) Times {
	if t.Created.IsZero() {
		t.Created = fallback
	}
	if t.Updated.IsZero() {
		t.Updated = fallback
	}
	return t
}

// Resolve parses createdAt and updatedAt (RFC3339) into Times.
func Resolve(createdAt, updatedAt string) Times {
	var ts Times
	if createdAt != "" {
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			ts.Created = t
			ts.Updated = t
		}
	}
	if updatedAt != "" {
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			ts.Updated = t
		}
	}
	return ts
}

// ForSession resolves the timestamps on a session header.
func ForSession(s store.Session) Times {
	return Resolve(s.CreatedAt, s.UpdatedAt)
}
