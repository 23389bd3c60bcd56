package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"healthsense/config"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIClient talks to any OpenAI-compatible chat completion API.
// Groq hosts the default generation model behind the same wire format.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// FromConfig builds a chat client for the configured provider.
func FromConfig(cfg config.LLMConfig) (*OpenAIClient, error) {
	var clientCfg openai.ClientConfig

	switch cfg.Provider {
	case "groq":
		apiKey, err := requireKey(cfg.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		clientCfg = openai.DefaultConfig(apiKey)
		clientCfg.BaseURL = groqBaseURL
	case "openai":
		apiKey, err := requireKey(cfg.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		clientCfg = openai.DefaultConfig(apiKey)
	case "local":
		clientCfg = openai.DefaultConfig("ollama")
		clientCfg.BaseURL = "http://localhost:11434/v1"
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}

	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func requireKey(envVar string) (string, error) {
	apiKey := os.Getenv(envVar)
	if apiKey == "" {
		return "", fmt.Errorf("API key not found in environment variable: %s", envVar)
	}
	return apiKey, nil
}

// GenerateWithSystem sends a system prompt and user prompt as a single-turn
// chat completion.
func (c *OpenAIClient) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.client == nil {
		return "", errors.New("llm client not initialized")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) ModelName() string {
	return c.model
}
