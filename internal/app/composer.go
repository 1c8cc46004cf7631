package app

import (
	"context"
	"strings"

	"animalcare-rag/internal/ai"
	"animalcare-rag/internal/model"
	"animalcare-rag/internal/vectorindex"
)

// AnswerComposer makes the single answering call. Its output is returned as-is.
type AnswerComposer struct {
	llm    Completer
	llmCfg ai.ChatConfig
	prompt string
}

// ComposerOptions overrides the instruction template sent as the first system message.
// An empty Prompt keeps the built-in animal care instructions.
type ComposerOptions struct {
	Prompt string
}

func NewAnswerComposer(llm Completer, llmCfg ai.ChatConfig, opts ComposerOptions) *AnswerComposer {
	prompt := opts.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = answerPrompt
	}
	return &AnswerComposer{llm: llm, llmCfg: llmCfg, prompt: prompt}
}

func (c *AnswerComposer) Compose(
	ctx context.Context,
	question string,
	history []model.ChatTurn,
	chunks []vectorindex.Chunk,
	modelName model.ModelName,
) (string, error) {
	messages := make([]ai.ChatMessage, 0, 2*len(history)+3)
	messages = append(messages,
		ai.ChatMessage{Role: ai.RoleSystem, Content: c.prompt},
		ai.ChatMessage{Role: ai.RoleSystem, Content: contextPrefix + joinChunks(chunks)},
	)
	messages = append(messages, historyMessages(history)...)
	messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: question})

	cfg := c.llmCfg
	cfg.Model = string(modelName)
	answer, err := c.llm.Complete(ctx, cfg, messages)
	if err != nil {
		return "", classify(ErrProvider, err)
	}
	return answer, nil
}

func joinChunks(chunks []vectorindex.Chunk) string {
	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = ch.Content
	}
	return strings.Join(parts, "\n\n")
}
