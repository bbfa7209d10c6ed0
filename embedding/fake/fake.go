// Package fake provides a deterministic embedding.Embedder test double:
// text maps to a vector supplied by the test rather than a real model.
package fake

import (
	"context"
	"sync"
)

// Embedder returns a preconfigured vector for each known text and a
// default vector otherwise.
type Embedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	Default []float32
}

// New returns an Embedder with no preconfigured vectors.
func New() *Embedder {
	return &Embedder{vectors: make(map[string][]float32)}
}

// Set registers the vector to return for exactly this text.
func (e *Embedder) Set(text string, vector []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[text] = vector
}

// Embed implements embedding.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return e.Default, nil
}
