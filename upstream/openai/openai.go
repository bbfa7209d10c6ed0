// Package openai implements upstream.Client against an
// OpenAI-compatible chat-completion endpoint. Parsing the stream inline
// into a channel of chunks would force a re-marshal on relay and risks
// double-escaping already-escaped upstream JSON text, so this Client
// instead hands back the raw body unparsed: the caller's
// streamtee/chunkparser pair relays bytes verbatim and parses the
// capture independently.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"

	"semcache/chatapi"
	"semcache/internal/cacheerr"
	"semcache/upstream"
)

// Client implements upstream.Client over HTTP.
type Client struct {
	endpoint   string
	apiKeyEnv  string
	httpClient *http.Client
}

// New builds a Client. apiKeyEnvName names the environment variable the
// bearer token is read from.
func New(endpoint, apiKeyEnvName string) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKeyEnv:  apiKeyEnvName,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) buildRequest(ctx context.Context, req chatapi.ChatRequest, stream bool) (*http.Request, error) {
	messages := make([]message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = message{Role: m.Role, Content: m.Content}
	}
	body, err := json.Marshal(chatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("fail to marshal upstream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fail to build upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+os.Getenv(c.apiKeyEnv))
	return httpReq, nil
}

// classifyStatus turns a non-2xx upstream response into the right
// sentinel, draining and returning the body for 4xx passthrough.
func classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &cacheerr.UpstreamStatusError{StatusCode: resp.StatusCode, Body: body}
	}
	return fmt.Errorf("%w: upstream returned %d: %s", cacheerr.ErrUpstream5xx, resp.StatusCode, body)
}

// Complete implements upstream.Client.
func (c *Client) Complete(ctx context.Context, req chatapi.ChatRequest) (*upstream.CompletionResult, error) {
	httpReq, err := c.buildRequest(ctx, req, false)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cacheerr.ErrUpstream5xx, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: fail to read upstream body: %s", cacheerr.ErrUpstream5xx, err)
	}

	var parsed chatCompletionResponse
	content := ""
	if err := json.Unmarshal(rawBody, &parsed); err == nil && len(parsed.Choices) > 0 {
		content = parsed.Choices[0].Message.Content
	}

	return &upstream.CompletionResult{RawBody: rawBody, Content: content}, nil
}

// CompleteStream implements upstream.Client.
func (c *Client) CompleteStream(ctx context.Context, req chatapi.ChatRequest) (io.ReadCloser, error) {
	httpReq, err := c.buildRequest(ctx, req, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cacheerr.ErrUpstream5xx, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}
	return resp.Body, nil
}
