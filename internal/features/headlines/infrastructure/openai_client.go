package infrastructure

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// openAIChatClient is the go-openai implementation of ChatClient.
type openAIChatClient struct {
	client *openai.Client
}

// NewOpenAIChatClient creates a chat client for the given API key. The
// key comes from the startup configuration, never from ambient
// environment reads inside the pipeline.
func NewOpenAIChatClient(apiKey string) (ChatClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is not configured")
	}
	return &openAIChatClient{client: openai.NewClient(apiKey)}, nil
}

// Complete runs one chat completion against the OpenAI API.
func (c *openAIChatClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	userMessage := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.ImageBase64 != "" {
		userMessage.MultiContent = []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: req.UserPrompt,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: "data:image/jpeg;base64," + req.ImageBase64,
				},
			},
		}
	} else {
		userMessage.Content = req.UserPrompt
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			userMessage,
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
