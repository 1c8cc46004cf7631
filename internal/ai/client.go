package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

var errEmptyChoices = errors.New("empty llm choices")

// Client talks to any OpenAI-compatible provider. One go-openai client is kept per
// base URL and key pair.
type Client struct {
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*openai.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		clients:    make(map[string]*openai.Client),
	}
}

func (c *Client) provider(baseURL, apiKey string) *openai.Client {
	baseURL = strings.TrimRight(baseURL, "/")
	key := baseURL + "\x00" + apiKey

	c.mu.Lock()
	defer c.mu.Unlock()
	if cli, ok := c.clients[key]; ok {
		return cli
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = c.httpClient
	cli := openai.NewClientWithConfig(cfg)
	c.clients[key] = cli
	return cli
}

// Complete sends one non-streaming chat completion and returns the first choice.
func (c *Client) Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    cfg.Model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.provider(cfg.BaseURL, cfg.APIKey).CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyChoices
	}
	return resp.Choices[0].Message.Content, nil
}
