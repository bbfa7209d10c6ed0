// Package embedding defines the Embedder collaborator: turning a
// flattened prompt into a fixed-width vector.
package embedding

import "context"

// Embedder turns text into a fixed-dimension real vector. Implementations
// are expected to be deterministic modulo the underlying model identifier.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
