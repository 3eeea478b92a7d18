// Package gemini generates quiz questions with the Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"quizloop-service/internal/domain"
	"quizloop-service/internal/generation"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

const temperature = 0.5

// Generator implements app.QuestionGenerator on the Gemini API.
type Generator struct {
	client *genai.Client
	model  string
}

// NewGenerator creates a generator using an API key. An empty key is reported as
// domain.ErrGeneratorNotConfigured.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	return NewGeneratorWithOptions(ctx, apiKey, model, genai.HTTPOptions{})
}

// NewGeneratorWithOptions lets tests point the client at a fake endpoint.
func NewGeneratorWithOptions(ctx context.Context, apiKey, model string, httpOptions genai.HTTPOptions) (*Generator, error) {
	if apiKey == "" {
		return nil, domain.ErrGeneratorNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Generator{client: client, model: model}, nil
}

// Generate requests count questions constrained by a JSON response schema.
func (g *Generator) Generate(ctx context.Context, transcript string, count int) (domain.GenerationResult, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(generation.Prompt(transcript, count)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   questionSchema(),
		Temperature:      genai.Ptr[float32](temperature),
	})
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("%w: gemini: %v", domain.ErrGeneration, err)
	}
	return generation.ParseQuestions([]byte(resp.Text()))
}

func questionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"question_text": {
					Type:        genai.TypeString,
					Description: "The question text",
				},
				"options": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "Exactly four answer options",
				},
				"correct_answer": {
					Type:        genai.TypeInteger,
					Description: "1-based number of the correct option, from 1 to 4",
				},
			},
			Required: []string{"question_text", "options", "correct_answer"},
		},
	}
}
