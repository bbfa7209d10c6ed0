package responder

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semcache/chatapi"
)

func TestWriteNonStreamingHit(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNonStreamingHit(rec, "the answer", "gpt-4o-mini")

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "the answer")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp chatapi.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, err := time.Parse(time.RFC3339, resp.Created)
	assert.NoError(t, err, "created must be an ISO-8601 string, not a unix timestamp")
}

func TestWriteNonStreamingMissRelaysVerbatim(t *testing.T) {
	rec := httptest.NewRecorder()
	raw := []byte(`{"choices":[{"message":{"content":"line1\nline2"}}]}`)
	WriteNonStreamingMiss(rec, 200, raw)

	assert.Equal(t, raw, rec.Body.Bytes(), "must not re-marshal and must not double-escape")
}

func TestWriteStreamingHitTokenizesByWhitespace(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteStreamingHit(rec, "Hello world", "gpt-4o-mini")
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, `"content":"Hello "`)
	assert.Contains(t, body, `"content":"world"`)
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))

	firstLine, _, _ := strings.Cut(body, "\n\n")
	payload := strings.TrimPrefix(firstLine, "data: ")
	var chunk chatapi.StreamChunk
	require.NoError(t, json.Unmarshal([]byte(payload), &chunk))
	_, err = time.Parse(time.RFC3339, chunk.Created)
	assert.NoError(t, err, "created must be an ISO-8601 string, not a unix timestamp")
}

func TestRelayStreamingMissCopiesBytesUnchanged(t *testing.T) {
	rec := httptest.NewRecorder()
	src := io.NopCloser(strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\ndata: [DONE]\n\n"))

	err := RelayStreamingMiss(context.Background(), rec, src)
	require.NoError(t, err)
	assert.Equal(t, "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\ndata: [DONE]\n\n", rec.Body.String())
}
