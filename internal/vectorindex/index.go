// Package vectorindex stores embedded document chunks and answers top-k similarity queries.
package vectorindex

import (
	"context"
	"errors"
	"sort"
)

// ErrEmbedding marks failures of the embedding provider, as opposed to storage failures.
var ErrEmbedding = errors.New("embedding failed")

// Chunk is one retrieved passage. ID is assigned by the backing store and breaks score ties.
type Chunk struct {
	ID         int64   `json:"id"`
	DocumentID uint    `json:"document_id"`
	Position   int     `json:"position"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

type Index interface {
	// Index embeds chunks and stores them under documentID, in order.
	Index(ctx context.Context, documentID uint, chunks []string) error
	// Delete removes every chunk of documentID. Deleting an unknown id is not an error.
	Delete(ctx context.Context, documentID uint) error
	Search(ctx context.Context, query string, k int) ([]Chunk, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedAll(ctx context.Context, texts []string) ([][]float32, error)
}

// rank orders by descending score, then ascending id, and keeps the first k.
func rank(chunks []Chunk, k int) []Chunk {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].ID < chunks[j].ID
	})
	if k >= 0 && len(chunks) > k {
		chunks = chunks[:k]
	}
	return chunks
}
