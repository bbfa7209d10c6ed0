// Package openai implements embedding.Embedder against an
// OpenAI-compatible embeddings endpoint.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/goccy/go-json"

	"semcache/internal/cacheerr"
)

// Client implements embedding.Embedder over HTTP.
type Client struct {
	endpoint   string
	model      string
	apiKeyEnv  string
	dimensions int
	httpClient *http.Client
}

// New builds a Client. apiKeyEnvName names the environment variable the
// bearer token is read from; it is read fresh on every request, not
// cached at construction time.
func New(endpoint, model, apiKeyEnvName string, dimensions int) *Client {
	return &Client{
		endpoint:   endpoint,
		model:      model,
		apiKeyEnv:  apiKeyEnvName,
		dimensions: dimensions,
		httpClient: &http.Client{},
	}
}

// Embed implements embedding.Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(embeddingRequest{
		Model:          c.model,
		Input:          text,
		EncodingFormat: "float",
		Dimensions:     c.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("fail to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: fail to build request: %s", cacheerr.ErrEmbedUnavailable, err)
	}
	apiKey := os.Getenv(c.apiKeyEnv)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cacheerr.ErrEmbedUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: fail to read response: %s", cacheerr.ErrEmbedUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: embedding endpoint returned %d: %s", cacheerr.ErrEmbedUnavailable, resp.StatusCode, body)
	}

	var respBody embeddingResponse
	if err := json.Unmarshal(body, &respBody); err != nil {
		return nil, fmt.Errorf("%w: fail to unmarshal response: %s", cacheerr.ErrEmbedUnavailable, err)
	}
	if len(respBody.Data) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response data", cacheerr.ErrEmbedUnavailable)
	}
	return respBody.Data[0].Embedding, nil
}
