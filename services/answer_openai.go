package services

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// OpenAIAnswerer generates answers through a hosted chat-completion
// deployment, sharing the client used for embeddings.
type OpenAIAnswerer struct {
	client     openai.Client
	deployment string
}

func NewOpenAIAnswerer(client openai.Client, deployment string) *OpenAIAnswerer {
	return &OpenAIAnswerer{client: client, deployment: deployment}
}

func (a *OpenAIAnswerer) Model() string { return a.deployment }

// Generate sends the system and user messages with fixed sampling parameters
// and returns the first completion's text.
func (a *OpenAIAnswerer) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.deployment),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		MaxTokens:        openai.Int(answerMaxTokens),
		Temperature:      openai.Float(answerTemperature),
		TopP:             openai.Float(answerTopP),
		FrequencyPenalty: openai.Float(0),
		PresencePenalty:  openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: no completion returned", ErrGeneration)
	}
	return resp.Choices[0].Message.Content, nil
}
