// Package openai generates quiz questions with the OpenAI chat completions API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"quizloop-service/internal/domain"
	"quizloop-service/internal/generation"
)

const temperature = 0.5

// Generator implements app.QuestionGenerator on OpenAI.
type Generator struct {
	client *openai.Client
	model  string
}

// NewGenerator creates a generator. An empty key is reported as domain.ErrGeneratorNotConfigured.
func NewGenerator(apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, domain.ErrGeneratorNotConfigured
	}
	return NewGeneratorWithConfig(openai.DefaultConfig(apiKey), model), nil
}

// NewGeneratorWithConfig accepts a prepared client config, e.g. with a custom BaseURL.
func NewGeneratorWithConfig(cfg openai.ClientConfig, model string) *Generator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Generator{client: openai.NewClientWithConfig(cfg), model: model}
}

// Generate asks for a JSON object holding a questions array; JSON mode cannot return a bare array.
func (g *Generator) Generate(ctx context.Context, transcript string, count int) (domain.GenerationResult, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: `Reply only with a JSON object of the form {"questions": [...]}.`,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: generation.Prompt(transcript, count),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: temperature,
	})
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("%w: openai: %v", domain.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return domain.GenerationResult{}, fmt.Errorf("%w: openai returned no choices", domain.ErrGeneration)
	}
	return generation.ParseQuestions(unwrap(resp.Choices[0].Message.Content))
}

// unwrap returns the questions array from {"questions": [...]}, or the content as-is.
func unwrap(content string) []byte {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "{") {
		return []byte(content)
	}
	var envelope struct {
		Questions json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil || len(envelope.Questions) == 0 {
		return []byte(content)
	}
	return envelope.Questions
}
