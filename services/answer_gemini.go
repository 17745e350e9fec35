package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiAnswerer generates answers through the Gemini API. Alternative to the
// OpenAI deployment; same prompt, same contract.
type GeminiAnswerer struct {
	client *genai.Client
	model  string
}

func NewGeminiAnswerer(client *genai.Client, model string) *GeminiAnswerer {
	return &GeminiAnswerer{client: client, model: model}
}

func (a *GeminiAnswerer) Model() string { return a.model }

func (a *GeminiAnswerer) Generate(ctx context.Context, system, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](answerTemperature),
		TopP:            genai.Ptr[float32](answerTopP),
		MaxOutputTokens: answerMaxTokens,
	}
	if contents := genai.Text(system); len(contents) > 0 {
		config.SystemInstruction = contents[0]
	}

	result, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", ErrGeneration)
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: candidate carried no text", ErrGeneration)
	}
	return sb.String(), nil
}
