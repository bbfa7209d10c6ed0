// Package qdrant implements vectorindex.Index on top of Qdrant.
// The payload here carries only the model label needed for Query's
// per-model filter; the completion text itself lives in contentstore,
// not in the vector's payload, since the vector and content records are
// two halves of a CacheEntry that must be able to independently miss.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"semcache/internal/cacheerr"
	"semcache/vectorindex"
)

// Index implements vectorindex.Index using a Qdrant collection.
type Index struct {
	client         *qdrant.Client
	collectionName string
	dimensions     int
}

// New connects to Qdrant and ensures the collection exists, creating it
// with cosine distance if absent.
func New(host string, port int, collectionName string, dimensions int) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("fail to create qdrant client: %w", err)
	}

	idx := &Index{
		client:         client,
		collectionName: collectionName,
		dimensions:     dimensions,
	}
	if err := idx.ensureCollection(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) ensureCollection() error {
	exists, err := idx.client.CollectionExists(context.Background(), idx.collectionName)
	if err != nil {
		return fmt.Errorf("fail to check collection %s: %w", idx.collectionName, err)
	}
	if exists {
		return nil
	}
	err = idx.client.CreateCollection(context.Background(), &qdrant.CreateCollection{
		CollectionName: idx.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(idx.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("fail to create collection %s: %w", idx.collectionName, err)
	}
	return nil
}

// Query implements vectorindex.Index.
func (idx *Index) Query(ctx context.Context, v []float32, topK int, model string) (vectorindex.QueryResult, error) {
	result, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.collectionName,
		Query:          qdrant.NewQueryDense(v),
		Limit:          qdrant.PtrOf(uint64(topK)),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("model", model),
			},
		},
		WithPayload: qdrant.NewWithPayload(false),
	})
	if err != nil {
		return vectorindex.QueryResult{}, fmt.Errorf("%w: fail to query qdrant: %s", cacheerr.ErrIndexUnavailable, err)
	}

	matches := make([]vectorindex.Match, 0, len(result))
	for _, point := range result {
		matches = append(matches, vectorindex.Match{
			ID:    pointIDString(point.Id),
			Score: point.Score,
		})
	}
	return vectorindex.QueryResult{Count: len(matches), Matches: matches}, nil
}

// Insert implements vectorindex.Index.
func (idx *Index) Insert(ctx context.Context, id string, v []float32, model string) error {
	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.collectionName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectorsDense(v),
				Payload: qdrant.NewValueMap(map[string]any{
					"model": model,
				}),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: fail to upsert point: %s", cacheerr.ErrIndexUnavailable, err)
	}
	return nil
}

func pointIDString(id *qdrant.PointId) string {
	if uuidVal := id.GetUuid(); uuidVal != "" {
		return uuidVal
	}
	return fmt.Sprintf("%d", id.GetNum())
}
