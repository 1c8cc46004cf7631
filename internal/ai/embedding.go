package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type EmbeddingConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	BatchSize int
}

// EmbedBatch returns one embedding per input text, in input order.
func (c *Client) EmbedBatch(ctx context.Context, cfg EmbeddingConfig, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("embedding input %d is empty", i)
		}
	}

	resp, err := c.provider(cfg.BaseURL, cfg.APIKey).CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(cfg.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	result := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(texts) || result[idx] != nil {
			idx = i
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", idx)
		}
		result[idx] = d.Embedding
	}
	return result, nil
}

// Embedder binds a client to one embedding model.
type Embedder struct {
	client *Client
	cfg    EmbeddingConfig
}

func NewEmbedder(client *Client, cfg EmbeddingConfig) *Embedder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &Embedder{client: client, cfg: cfg}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.client.EmbedBatch(ctx, e.cfg, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedAll embeds texts in batches of at most BatchSize inputs.
func (e *Embedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.cfg.BatchSize {
		end := min(i+e.cfg.BatchSize, len(texts))
		batch, err := e.client.EmbedBatch(ctx, e.cfg, texts[i:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}
