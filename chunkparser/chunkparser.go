// Package chunkparser decodes the Server-Sent Events framing used by
// chat-completion streaming responses and extracts the ordered content
// deltas out of a fully captured byte buffer. It operates on a capture
// taken wholesale rather than scanning a live stream line-by-line, the
// way blueberrycongee-llmux/internal/streaming/forwarder.go's
// OpenAIParser does for the live path — BackgroundWriter only ever
// hands this package a stream that has already finished.
package chunkparser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"semcache/internal/cacheerr"
)

var eventSeparator = regexp.MustCompile(`\r\n\r\n|\r\r|\n\n`)

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ExtractContent decodes the SSE events in data and returns the ordered
// concatenation of every delta.content string up to (and excluding) the
// terminal [DONE] sentinel, or through the first chunk whose
// finish_reason is "stop", or up to the end of data if neither
// appears. A chunk with no content field contributes the empty string.
// Malformed JSON in a data field aborts with ErrParseFailed.
func ExtractContent(data []byte) (string, error) {
	var content strings.Builder

	for _, event := range splitEvents(data) {
		payload := dataField(event)
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("%w: malformed data frame: %s", cacheerr.ErrParseFailed, err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		content.WriteString(chunk.Choices[0].Delta.Content)
		if chunk.Choices[0].FinishReason == "stop" {
			break
		}
	}

	return content.String(), nil
}

// splitEvents breaks a raw SSE byte stream into individual events.
func splitEvents(data []byte) []string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	return eventSeparator.Split(string(trimmed), -1)
}

// dataField extracts and joins the data: lines of one SSE event,
// ignoring comment lines and non-data fields, stripping exactly one
// leading space after the colon per the SSE spec.
func dataField(event string) string {
	lines := strings.Split(strings.ReplaceAll(event, "\r\n", "\n"), "\n")
	var parts []string
	for _, line := range lines {
		line = strings.ReplaceAll(line, "\r", "")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		rest, ok := cutPrefix(line, "data:")
		if !ok {
			continue
		}
		rest = strings.TrimPrefix(rest, " ")
		parts = append(parts, rest)
	}
	return strings.Join(parts, "\n")
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
