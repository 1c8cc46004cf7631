package app

import (
	"context"
	"strings"

	"animalcare-rag/internal/ai"
	"animalcare-rag/internal/model"
	"animalcare-rag/internal/vectorindex"
)

const defaultRetrievalK = 15

type Completer interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

// HistoryAwareRetriever rewrites follow-up questions into standalone queries before searching.
type HistoryAwareRetriever struct {
	llm    Completer
	index  vectorindex.Index
	llmCfg ai.ChatConfig
	k      int
}

func NewHistoryAwareRetriever(llm Completer, index vectorindex.Index, llmCfg ai.ChatConfig, k int) *HistoryAwareRetriever {
	if k <= 0 {
		k = defaultRetrievalK
	}
	return &HistoryAwareRetriever{llm: llm, index: index, llmCfg: llmCfg, k: k}
}

// RewriteAndRetrieve returns at most k chunks and the query that was searched.
// With no history the question is searched verbatim and the model is not called.
func (r *HistoryAwareRetriever) RewriteAndRetrieve(
	ctx context.Context,
	question string,
	history []model.ChatTurn,
	modelName model.ModelName,
) ([]vectorindex.Chunk, string, error) {
	query := question
	if len(history) > 0 {
		messages := make([]ai.ChatMessage, 0, 2*len(history)+2)
		messages = append(messages, ai.ChatMessage{Role: ai.RoleSystem, Content: contextualizePrompt})
		messages = append(messages, historyMessages(history)...)
		messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: question})

		cfg := r.llmCfg
		cfg.Model = string(modelName)
		rewritten, err := r.llm.Complete(ctx, cfg, messages)
		if err != nil {
			return nil, "", classify(ErrProvider, err)
		}
		if rewritten = strings.TrimSpace(rewritten); rewritten != "" {
			query = rewritten
		}
	}

	chunks, err := r.index.Search(ctx, query, r.k)
	if err != nil {
		return nil, query, classify(ErrIndex, err)
	}
	return chunks, query, nil
}

// historyMessages replays each turn as a user message followed by the assistant's answer.
func historyMessages(history []model.ChatTurn) []ai.ChatMessage {
	out := make([]ai.ChatMessage, 0, 2*len(history))
	for _, turn := range history {
		out = append(out,
			ai.ChatMessage{Role: ai.RoleUser, Content: turn.Question},
			ai.ChatMessage{Role: ai.RoleAssistant, Content: turn.Answer},
		)
	}
	return out
}
