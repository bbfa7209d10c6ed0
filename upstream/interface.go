// Package upstream defines the UpstreamClient collaborator: issuing
// streaming and non-streaming chat completions against the provider.
package upstream

import (
	"context"
	"io"

	"semcache/chatapi"
)

// CompletionResult is the outcome of a non-streaming Complete call.
type CompletionResult struct {
	// RawBody is the exact upstream response body, relayed to the
	// client verbatim on a miss.
	RawBody []byte
	// Content is the extracted message content, used for the
	// background cache write.
	Content string
}

// Client is the UpstreamClient collaborator contract. Both methods
// strip noCache from the request before issuing it upstream and forward
// server-side credentials rather than any client-supplied Authorization
// header.
type Client interface {
	// Complete issues a non-streaming completion.
	Complete(ctx context.Context, req chatapi.ChatRequest) (*CompletionResult, error)

	// CompleteStream issues a streaming completion and returns the raw
	// SSE-framed body for the caller to tee and relay. The caller owns
	// closing the returned stream.
	CompleteStream(ctx context.Context, req chatapi.ChatRequest) (io.ReadCloser, error)
}
