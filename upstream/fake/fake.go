// Package fake provides an upstream.Client test double that serves
// canned streaming and non-streaming responses without a network call.
package fake

import (
	"context"
	"io"
	"strings"

	"semcache/chatapi"
	"semcache/upstream"
)

// Client returns whatever StreamBody/NonStreamingResult is configured,
// regardless of the request passed in.
type Client struct {
	StreamBody string
	Result     *upstream.CompletionResult
	Err        error
}

// Complete implements upstream.Client. Like a real HTTP client, it
// refuses to proceed with an already-canceled context.
func (c *Client) Complete(ctx context.Context, req chatapi.ChatRequest) (*upstream.CompletionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Result, nil
}

// CompleteStream implements upstream.Client. Like a real HTTP client,
// it refuses to proceed with an already-canceled context.
func (c *Client) CompleteStream(ctx context.Context, req chatapi.ChatRequest) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Err != nil {
		return nil, c.Err
	}
	return io.NopCloser(strings.NewReader(c.StreamBody)), nil
}
