// Package fake provides an in-memory vectorindex.Index test double.
// The retrieval pack ships no embeddable Qdrant client, so every
// package that needs a VectorIndex collaborator in its tests depends
// on this brute-force cosine implementation instead.
package fake

import (
	"context"
	"math"
	"sort"
	"sync"

	"semcache/vectorindex"
)

type point struct {
	id     string
	vector []float32
	model  string
}

// Index is a brute-force in-memory vectorindex.Index.
type Index struct {
	mu     sync.Mutex
	points []point
}

// New returns an empty Index.
func New() *Index {
	return &Index{}
}

// Query implements vectorindex.Index.
func (idx *Index) Query(ctx context.Context, v []float32, topK int, model string) (vectorindex.QueryResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var scored []vectorindex.Match
	for _, p := range idx.points {
		if p.model != model {
			continue
		}
		scored = append(scored, vectorindex.Match{ID: p.id, Score: cosine(v, p.vector)})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return vectorindex.QueryResult{Count: len(scored), Matches: scored}, nil
}

// Insert implements vectorindex.Index.
func (idx *Index) Insert(ctx context.Context, id string, v []float32, model string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, p := range idx.points {
		if p.id == id {
			idx.points[i] = point{id: id, vector: v, model: model}
			return nil
		}
	}
	idx.points = append(idx.points, point{id: id, vector: v, model: model})
	return nil
}

// Seed inserts a point directly, bypassing the usual Insert path, for
// test setup that needs to seed the index before exercising Decide.
func (idx *Index) Seed(id string, v []float32, model string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.points = append(idx.points, point{id: id, vector: v, model: model})
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
