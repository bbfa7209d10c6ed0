package openai

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semcache/chatapi"
	"semcache/internal/cacheerr"
)

func TestCompleteNonStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"hi there"}}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "TEST_KEY")
	req := chatapi.ChatRequest{Model: "gpt-4o-mini", Messages: []chatapi.Message{{Role: "user", Content: "hi"}}}

	result, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "hi there", result.Content)
	assert.Contains(t, string(result.RawBody), "hi there")
}

func TestComplete4xxForwardedVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer server.Close()

	client := New(server.URL, "TEST_KEY")
	_, err := client.Complete(context.Background(), chatapi.ChatRequest{Model: "gpt-4o-mini"})
	require.Error(t, err)

	var statusErr *cacheerr.UpstreamStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, statusErr.Is4xx())
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, string(statusErr.Body), "bad request")
}

func TestComplete5xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, "TEST_KEY")
	_, err := client.Complete(context.Background(), chatapi.ChatRequest{Model: "gpt-4o-mini"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, cacheerr.ErrUpstream5xx))
}

func TestCompleteStreamReturnsRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	client := New(server.URL, "TEST_KEY")
	body, err := client.CompleteStream(context.Background(), chatapi.ChatRequest{Model: "gpt-4o-mini", Stream: true})
	require.NoError(t, err)
	defer body.Close()

	reader := bufio.NewReader(body)
	all, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Contains(t, string(all), "data: [DONE]")
}
