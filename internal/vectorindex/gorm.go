package vectorindex

import (
	"context"
	"fmt"
	"math"

	"animalcare-rag/internal/model"
	"animalcare-rag/internal/repository"
)

// GormIndex keeps embeddings in the record store and scores them by cosine similarity in memory.
type GormIndex struct {
	chunks   *repository.ChunkRepository
	embedder Embedder
}

func NewGormIndex(chunks *repository.ChunkRepository, embedder Embedder) *GormIndex {
	return &GormIndex{chunks: chunks, embedder: embedder}
}

func (g *GormIndex) Index(ctx context.Context, documentID uint, chunks []string) error {
	if len(chunks) == 0 {
		return nil
	}
	vectors, err := g.embedder.EmbedAll(ctx, chunks)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(vectors), len(chunks))
	}

	rows := make([]model.DocumentChunk, len(chunks))
	for i, content := range chunks {
		rows[i] = model.DocumentChunk{
			DocumentID: documentID,
			Position:   i,
			Content:    content,
		}
		rows[i].SetEmbedding(vectors[i])
	}
	return g.chunks.CreateBatch(ctx, rows)
}

func (g *GormIndex) Delete(ctx context.Context, documentID uint) error {
	return g.chunks.DeleteByDocumentID(ctx, documentID)
}

func (g *GormIndex) Search(ctx context.Context, query string, k int) ([]Chunk, error) {
	if k <= 0 {
		return nil, nil
	}
	queryVec, err := g.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	rows, err := g.chunks.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	scored := make([]Chunk, 0, len(rows))
	for i := range rows {
		vec := rows[i].EmbeddingVector()
		if len(vec) != len(queryVec) {
			continue
		}
		scored = append(scored, Chunk{
			ID:         int64(rows[i].ID),
			DocumentID: rows[i].DocumentID,
			Position:   rows[i].Position,
			Content:    rows[i].Content,
			Score:      cosine(queryVec, vec),
		})
	}
	return rank(scored, k), nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
