package vectorindex

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

// MilvusIndex stores chunks in a Milvus collection created by platform/milvus.EnsureCollection.
type MilvusIndex struct {
	client     *milvusclient.Client
	collection string
	embedder   Embedder
}

func NewMilvusIndex(client *milvusclient.Client, collection string, embedder Embedder) *MilvusIndex {
	return &MilvusIndex{client: client, collection: collection, embedder: embedder}
}

func (m *MilvusIndex) Index(ctx context.Context, documentID uint, chunks []string) error {
	if len(chunks) == 0 {
		return nil
	}
	vectors, err := m.embedder.EmbedAll(ctx, chunks)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(vectors), len(chunks))
	}

	docIDs := make([]int64, len(chunks))
	positions := make([]int64, len(chunks))
	for i := range chunks {
		docIDs[i] = int64(documentID)
		positions[i] = int64(i)
	}

	_, err = m.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(m.collection,
		column.NewColumnFloatVector("embedding", len(vectors[0]), vectors),
		column.NewColumnInt64("document_id", docIDs),
		column.NewColumnInt64("position", positions),
		column.NewColumnVarChar("content", chunks),
	))
	if err != nil {
		return fmt.Errorf("insert milvus chunks failed: %w", err)
	}

	task, err := m.client.Flush(ctx, milvusclient.NewFlushOption(m.collection))
	if err != nil {
		return fmt.Errorf("flush milvus collection failed: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("wait milvus flush failed: %w", err)
	}
	return nil
}

func (m *MilvusIndex) Delete(ctx context.Context, documentID uint) error {
	expr := fmt.Sprintf("document_id == %d", documentID)
	if _, err := m.client.Delete(ctx, milvusclient.NewDeleteOption(m.collection).WithExpr(expr)); err != nil {
		return fmt.Errorf("delete milvus chunks failed: %w", err)
	}
	return nil
}

func (m *MilvusIndex) Search(ctx context.Context, query string, k int) ([]Chunk, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	results, err := m.client.Search(ctx, milvusclient.NewSearchOption(
		m.collection,
		k,
		[]entity.Vector{entity.FloatVector(vec)},
	).WithANNSField("embedding").
		WithSearchParam("nprobe", "16").
		WithOutputFields("document_id", "position", "content"))
	if err != nil {
		return nil, fmt.Errorf("search milvus failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	rs := results[0]
	chunks := make([]Chunk, rs.ResultCount)
	if ids, ok := rs.IDs.(*column.ColumnInt64); ok {
		for i := range chunks {
			chunks[i].ID = ids.Data()[i]
		}
	}
	for i := range chunks {
		chunks[i].Score = rs.Scores[i]
	}
	for _, field := range rs.Fields {
		switch col := field.(type) {
		case *column.ColumnInt64:
			for i := range chunks {
				switch col.Name() {
				case "document_id":
					chunks[i].DocumentID = uint(col.Data()[i])
				case "position":
					chunks[i].Position = int(col.Data()[i])
				}
			}
		case *column.ColumnVarChar:
			if col.Name() == "content" {
				for i := range chunks {
					chunks[i].Content = col.Data()[i]
				}
			}
		}
	}
	return rank(chunks, k), nil
}
