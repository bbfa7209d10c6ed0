// Package cacheerr names the gateway's error kinds as sentinels so
// callers can branch on disposition with errors.Is/errors.As instead
// of matching strings.
package cacheerr

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbedUnavailable is returned when the Embedder cannot reach its
	// transport. Disposition: fail the request 502, never call upstream.
	ErrEmbedUnavailable = errors.New("EMBED_UNAVAILABLE")

	// ErrIndexUnavailable is returned when VectorIndex.Query or Insert
	// cannot reach its backend. Disposition: fail the request 502.
	ErrIndexUnavailable = errors.New("INDEX_UNAVAILABLE")

	// ErrStoreUnavailable is returned when ContentStore.Get or Put cannot
	// reach its backend. On Get this degrades to a miss; on Put it
	// silently discards the background write.
	ErrStoreUnavailable = errors.New("STORE_UNAVAILABLE")

	// ErrParseFailed marks a ChunkParser decode failure. The background
	// write is discarded; the foreground response is unaffected.
	ErrParseFailed = errors.New("PARSE_FAILED")

	// ErrCaptureOverflow marks a StreamTee capture that exceeded its
	// byte cap. The background write is discarded; Live is unaffected.
	ErrCaptureOverflow = errors.New("CAPTURE_OVERFLOW")

	// ErrUpstream5xx marks an upstream 5xx or transport failure.
	// Disposition: 502 to the client, no cache write.
	ErrUpstream5xx = errors.New("UPSTREAM_5XX")
)

// UpstreamStatusError carries a non-2xx upstream response verbatim so the
// gateway can forward status and body unchanged.
type UpstreamStatusError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// Is4xx reports whether the upstream failure should be forwarded as-is.
func (e *UpstreamStatusError) Is4xx() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
