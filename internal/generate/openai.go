package generate

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/paperbase/paperbase/internal/models"
)

const systemPrompt = "You are an assistant that answers questions strictly from the provided document excerpts. " +
	"Cite the document name and page when possible. If the excerpts do not contain the answer, say so."

// OpenAIGenerator produces answers via an OpenAI-compatible chat completion
// endpoint (a local Ollama instance by default).
type OpenAIGenerator struct {
	client           *openai.Client
	model            string
	maxContextChunks int
}

// OpenAIConfig holds answer generation settings.
type OpenAIConfig struct {
	BaseURL          string
	APIKey           string
	Model            string
	MaxContextChunks int
}

// NewOpenAIGenerator creates a generator against an OpenAI-compatible endpoint.
func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		client:           openai.NewClientWithConfig(clientCfg),
		model:            cfg.Model,
		maxContextChunks: cfg.MaxContextChunks,
	}
}

// GenerateAnswer builds a prompt from the retrieved chunks and asks the model.
func (g *OpenAIGenerator) GenerateAnswer(ctx context.Context, query string, results []models.QueryResult) (string, error) {
	if g.maxContextChunks > 0 && len(results) > g.maxContextChunks {
		results = results[:g.maxContextChunks]
	}
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(query, results)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response for model %s", g.model)
	}
	return resp.Choices[0].Message.Content, nil
}

// buildPrompt lays out the context as numbered excerpts with their source,
// followed by the question. With no context the model is told there were no
// matching excerpts instead of being handed an empty block.
func buildPrompt(query string, results []models.QueryResult) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	if len(results) == 0 {
		b.WriteString("(no matching excerpts found)\n")
	}
	for i, r := range results {
		fmt.Fprintf(&b, "[Excerpt %d: %s, page %d]\n%s\n\n",
			i+1, r.Metadata.DocName, r.Metadata.PageNumber, r.Text)
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
