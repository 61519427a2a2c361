package generator

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator implements TextGenerator against the OpenAI chat
// completion API.
type OpenAIGenerator struct {
	client  *openai.Client
	timeout time.Duration
}

// NewOpenAIGenerator creates a generator with a per-call timeout applied on
// top of whatever deadline the caller's context already carries.
func NewOpenAIGenerator(apiKey string, timeout time.Duration) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:  openai.NewClient(apiKey),
		timeout: timeout,
	}
}

// GenerateText sends one chat completion request and returns the content of
// the first choice.
func (g *OpenAIGenerator) GenerateText(ctx context.Context, prompt, model, systemInstruction string, maxOutputTokens int, structured bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if structured {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &GenerationError{Message: "OpenAI API call failed", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Message: "OpenAI returned no choices"}
	}

	return resp.Choices[0].Message.Content, nil
}
