package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Generator implements generation.Generator using the OpenAI chat
// completions API. The openai-go client applies its own retry policy
// for transient failures.
type Generator struct {
	client *openai.Client
	model  string
}

// New creates a new Generator.
func New(opts ...option.RequestOption) *Generator {
	client := openai.NewClient(opts...)
	return &Generator{
		client: &client,
		model:  openai.ChatModelGPT4o,
	}
}

// SetModel sets the model to use.
func (g *Generator) SetModel(model string) {
	g.model = model
}

// Generate sends the prompt as a single user message and returns the
// completion text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: g.model,
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}
