// Package cachedecision orchestrates Embedder, VectorIndex, and
// ContentStore into a single HIT/MISS/degrade rule: threshold
// comparison, noCache bypass, and orphan-vector degrade.
package cachedecision

import (
	"context"
	"errors"
	"fmt"

	"semcache/chatapi"
	"semcache/contentstore"
	"semcache/embedding"
	"semcache/internal/cacheerr"
	"semcache/internal/logging"
	"semcache/vectorindex"
)

// Result is the outcome of Decide.
type Result struct {
	// Hit is true iff a usable cached answer was found.
	Hit bool
	// Content is the cached answer text. Only meaningful when Hit.
	Content string
	// Vector is the embedding computed for this request. Always
	// populated (even on a hit) so a degrade path can reuse it.
	Vector []float32
	// OrphanID is set when a vector matched but its content was
	// missing: the background writer should repair by overwriting this
	// id instead of minting a new one.
	OrphanID string
}

// Decide implements the CacheDecision.Handle rule from the component
// design: MISS if the index is empty, the top score is below
// threshold, or noCache is set; otherwise HIT, unless the matching
// content record is missing, in which case it degrades to MISS while
// remembering the orphaned id.
func Decide(ctx context.Context, embedder embedding.Embedder, index vectorindex.Index, store contentstore.Store, messages []chatapi.Message, model string, noCache bool, matchThreshold float32, log *logging.Logger) (Result, error) {
	prompt := chatapi.FlattenPrompt(messages)

	vector, err := embedder.Embed(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("embed prompt: %w", err)
	}

	if noCache {
		return Result{Vector: vector}, nil
	}

	query, err := index.Query(ctx, vector, 1, model)
	if err != nil {
		return Result{}, fmt.Errorf("query vector index: %w", err)
	}
	if query.Count == 0 {
		return Result{Vector: vector}, nil
	}

	top := query.Matches[0]
	if top.Score < matchThreshold {
		return Result{Vector: vector}, nil
	}

	content, found, err := store.Get(ctx, top.ID)
	if err != nil {
		if errors.Is(err, cacheerr.ErrStoreUnavailable) {
			log.Warn("content store unavailable on Get, treating as miss: %s", err)
			return Result{Vector: vector}, nil
		}
		return Result{}, fmt.Errorf("get content: %w", err)
	}
	if !found {
		log.Warn("orphan vector %s: no content record, degrading to miss", top.ID)
		return Result{Vector: vector, OrphanID: top.ID}, nil
	}

	return Result{Hit: true, Content: content, Vector: vector}, nil
}
