// Package contentstore defines the ContentStore collaborator: a
// durable mapping from opaque cache-entry id to completion text.
package contentstore

import "context"

// Store is the ContentStore collaborator contract. Put is assumed
// durable before its acknowledgment returns; Get may lag behind a very
// recent Put (eventual consistency is acceptable).
type Store interface {
	// Get returns the text under id, or ok=false if no record exists.
	Get(ctx context.Context, id string) (text string, ok bool, err error)

	// Put writes text under id, creating or overwriting the record.
	Put(ctx context.Context, id string, text string) error
}
