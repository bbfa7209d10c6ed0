// Package responder emits the provider-shaped HTTP response for every
// HIT/MISS x streaming/non-streaming combination: byte-verbatim relay
// on MISS, synthesized-from-cache chunks on HIT, both with the same SSE
// headers and a flush after every write.
package responder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/goccy/go-json"

	"semcache/chatapi"
)

var tokenPattern = regexp.MustCompile(`\S+\s*`)

// WriteCORSPreflight answers a browser CORS preflight OPTIONS request.
func WriteCORSPreflight(w http.ResponseWriter, r *http.Request) {
	requestedHeaders := r.Header.Get("Access-Control-Request-Headers")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	if requestedHeaders != "" {
		w.Header().Set("Access-Control-Allow-Headers", requestedHeaders)
	} else {
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	}
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusNoContent)
}

// WriteJSONError writes a small JSON error body with the given status.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	body, _ := json.Marshal(map[string]string{"error": message})
	w.Write(body)
}

// WriteNonStreamingHit emits a hit's cached content as a single
// chat-completion JSON document.
func WriteNonStreamingHit(w http.ResponseWriter, content, model string) {
	resp := chatapi.ChatResponse{
		ID:      "chatcmpl-cached-" + fmt.Sprintf("%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().UTC().Format(time.RFC3339),
		Model:   model,
		Choices: []chatapi.Choice{
			{Index: 0, Message: chatapi.Message{Role: "assistant", Content: content}, FinishReason: "stop"},
		},
	}
	body, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// WriteNonStreamingMiss relays the upstream response body verbatim.
// rawBody is never re-marshaled, so already-escaped JSON text inside it
// is never double-escaped.
func WriteNonStreamingMiss(w http.ResponseWriter, status int, rawBody []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	w.Write(rawBody)
}

func setStreamingHeaders(w http.ResponseWriter) (http.Flusher, error) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Transfer-Encoding", "chunked")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil, errors.New("response writer does not support flushing")
	}
	return flusher, nil
}

// WriteStreamingHit synthesizes an SSE sequence from cached content,
// tokenized by \S+\s* (contiguous non-whitespace plus trailing
// whitespace). This does not attempt to reproduce the upstream
// tokenizer's exact boundaries; it is an accepted approximation.
func WriteStreamingHit(w http.ResponseWriter, content, model string) error {
	flusher, err := setStreamingHeaders(w)
	if err != nil {
		return err
	}

	chatID := fmt.Sprintf("chatcmpl-cached-%d", time.Now().UnixNano())
	created := time.Now().UTC().Format(time.RFC3339)

	for _, token := range tokenPattern.FindAllString(content, -1) {
		if err := writeDeltaChunk(w, chatID, created, model, token); err != nil {
			return err
		}
		flusher.Flush()
	}

	if err := writeFinishChunk(w, chatID, created, model); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func writeDeltaChunk(w io.Writer, id, created, model, content string) error {
	chunk := chatapi.StreamChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []chatapi.StreamChoice{
			{Index: 0, Delta: chatapi.Delta{Content: content}, FinishReason: nil},
		},
	}
	body, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", body)
	return err
}

func writeFinishChunk(w io.Writer, id, created, model string) error {
	stop := "stop"
	chunk := chatapi.StreamChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []chatapi.StreamChoice{
			{Index: 0, Delta: chatapi.Delta{}, FinishReason: &stop},
		},
	}
	body, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", body)
	return err
}

// RelayStreamingMiss sets SSE headers then copies bytes from live to w
// verbatim, flushing after every read, until live ends or ctx is
// cancelled. Because it never decodes and re-encodes the upstream
// frames, it cannot introduce re-escaping and trivially preserves wire
// fidelity.
func RelayStreamingMiss(ctx context.Context, w http.ResponseWriter, live io.Reader) error {
	flusher, err := setStreamingHeaders(w)
	if err != nil {
		return err
	}

	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := live.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return err
			}
			flusher.Flush()
		}
		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}
			return readErr
		}
	}
}
