package explain

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIConfig configures the Gemini backend
type GenAIConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens"`
	Temperature     float32 `mapstructure:"temperature"`
}

// DefaultGenAIConfig returns the production generation settings
func DefaultGenAIConfig() GenAIConfig {
	return GenAIConfig{
		Model:           "gemini-2.0-flash",
		MaxOutputTokens: 200,
		Temperature:     0.3,
	}
}

// GenAIBackend generates explanations with a Gemini model
type GenAIBackend struct {
	client *genai.Client
	config GenAIConfig
}

// NewGenAIBackend creates a Gemini backend from the config
func NewGenAIBackend(ctx context.Context, config GenAIConfig) (*GenAIBackend, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("NewGenAIBackend: api key is required")
	}
	if config.Model == "" {
		config.Model = DefaultGenAIConfig().Model
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGenAIBackend: create genai client: %w", err)
	}

	return &GenAIBackend{client: client, config: config}, nil
}

// Generate implements Backend
func (b *GenAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.config.Model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(b.config.Temperature),
		MaxOutputTokens:   b.config.MaxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}

	return resp.Text(), nil
}
