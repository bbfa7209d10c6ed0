package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semcache/backgroundwriter"
	contentfake "semcache/contentstore/fake"
	embeddingfake "semcache/embedding/fake"
	"semcache/internal/config"
	"semcache/internal/logging"
	"semcache/internal/cacheerr"
	upstreamfake "semcache/upstream/fake"
	vectorfake "semcache/vectorindex/fake"
)

func newTestGateway(t *testing.T, upstreamClient *upstreamfake.Client) (*Gateway, *embeddingfake.Embedder, *vectorfake.Index, *contentfake.Store) {
	embedder := embeddingfake.New()
	index := vectorfake.New()
	store := contentfake.New()
	log := logging.NewAtLevel(logging.LevelDebug)
	writer := backgroundwriter.New(store, index, 2, 16, 2*time.Second, log)
	t.Cleanup(writer.Shutdown)

	gw := &Gateway{
		cfg:      config.Config{DefaultModel: "gpt-4o-mini", MatchThreshold: 0.9, CaptureMaxBytes: 1 << 20, BackgroundDeadline: 2 * time.Second},
		log:      log,
		embedder: embedder,
		index:    index,
		store:    store,
		upstream: upstreamClient,
		writer:   writer,
	}
	return gw, embedder, index, store
}

func TestColdStreamingMissWritesOneEntry(t *testing.T) {
	upstreamClient := &upstreamfake.Client{
		StreamBody: "data: {\"choices\":[{\"delta\":{\"content\":\"Roses \"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"are red\"}}]}\n\n" +
			"data: [DONE]\n\n",
	}
	gw, _, index, store := newTestGateway(t, upstreamClient)

	body := strings.NewReader(`{"stream":true,"messages":[{"role":"user","content":"Write a haiku about the sunset."}]}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/completions", body)
	rec := httptest.NewRecorder()

	gw.CompletionHandle(rec, req)

	assert.Contains(t, rec.Body.String(), "Roses ")
	assert.True(t, strings.HasSuffix(rec.Body.String(), "data: [DONE]\n\n"))

	require.Eventually(t, func() bool {
		result, err := index.Query(context.Background(), gw.embedder.(*embeddingfake.Embedder).Default, 1, "gpt-4o-mini")
		return err == nil && result.Count == 1
	}, time.Second, 10*time.Millisecond)

	result, _ := index.Query(context.Background(), gw.embedder.(*embeddingfake.Embedder).Default, 1, "gpt-4o-mini")
	text, ok, err := store.Get(context.Background(), result.Matches[0].ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Roses are red", text)
}

func TestStreamingHitNeverCallsUpstream(t *testing.T) {
	upstreamClient := &upstreamfake.Client{Err: assertNeverCalledErr{}}
	gw, embedder, index, store := newTestGateway(t, upstreamClient)

	seedVector := []float32{1, 0, 0}
	embedder.Set("user: Hello world", seedVector)
	index.Seed("entry-1", seedVector, "gpt-4o-mini")
	require.NoError(t, store.Put(context.Background(), "entry-1", "Hello world"))

	body := strings.NewReader(`{"stream":true,"messages":[{"role":"user","content":"Hello world"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/completions", body)
	rec := httptest.NewRecorder()

	gw.CompletionHandle(rec, req)

	out := rec.Body.String()
	assert.Contains(t, out, `"content":"Hello "`)
	assert.Contains(t, out, `"content":"world"`)
	assert.True(t, strings.HasSuffix(out, "data: [DONE]\n\n"))
}

func TestNoCacheBypassInsertsSecondEntry(t *testing.T) {
	upstreamClient := &upstreamfake.Client{
		StreamBody: "data: {\"choices\":[{\"delta\":{\"content\":\"fresh answer\"}}]}\n\ndata: [DONE]\n\n",
	}
	gw, embedder, index, store := newTestGateway(t, upstreamClient)

	seedVector := []float32{1, 0, 0}
	embedder.Set("user: Hello world", seedVector)
	index.Seed("entry-1", seedVector, "gpt-4o-mini")
	require.NoError(t, store.Put(context.Background(), "entry-1", "Hello world"))

	body := strings.NewReader(`{"stream":true,"noCache":true,"messages":[{"role":"user","content":"Hello world"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/completions", body)
	rec := httptest.NewRecorder()

	gw.CompletionHandle(rec, req)
	assert.Contains(t, rec.Body.String(), "fresh answer")

	require.Eventually(t, func() bool {
		result, err := index.Query(context.Background(), seedVector, 10, "gpt-4o-mini")
		return err == nil && result.Count == 2
	}, time.Second, 10*time.Millisecond)
}

func TestStreamingMissSurvivesClientDisconnect(t *testing.T) {
	upstreamClient := &upstreamfake.Client{
		StreamBody: "data: {\"choices\":[{\"delta\":{\"content\":\"Roses \"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"are red, \"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"violets are blue\"}}]}\n\n" +
			"data: [DONE]\n\n",
	}
	gw, embedder, index, store := newTestGateway(t, upstreamClient)

	// The request context is already canceled before the handler even
	// runs, simulating a client that disconnected immediately. If the
	// upstream fetch were opened with this context (instead of one
	// detached from it), upstreamfake.Client would refuse the call and
	// the background write would never happen at all.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := strings.NewReader(`{"stream":true,"messages":[{"role":"user","content":"Write a poem about flowers."}]}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/completions", body).WithContext(ctx)
	rec := httptest.NewRecorder()

	gw.CompletionHandle(rec, req)

	require.Eventually(t, func() bool {
		result, err := index.Query(context.Background(), embedder.Default, 1, "gpt-4o-mini")
		return err == nil && result.Count == 1
	}, time.Second, 10*time.Millisecond)

	result, _ := index.Query(context.Background(), embedder.Default, 1, "gpt-4o-mini")
	text, ok, err := store.Get(context.Background(), result.Matches[0].ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Roses are red, violets are blue", text,
		"background write must capture the full upstream stream even after the client disconnected")
}

func TestNonStreamingMissForwards4xxVerbatim(t *testing.T) {
	upstreamClient := &upstreamfake.Client{Err: &cacheerr.UpstreamStatusError{StatusCode: 422, Body: []byte(`{"error":"bad field"}`)}}
	gw, _, _, _ := newTestGateway(t, upstreamClient)

	body := strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/completions", body)
	rec := httptest.NewRecorder()

	gw.CompletionHandle(rec, req)
	assert.Equal(t, 422, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad field")
}

type assertNeverCalledErr struct{}

func (assertNeverCalledErr) Error() string { return "upstream must not be called on a cache hit" }
