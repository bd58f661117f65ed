package infrastructure

import "context"

// ChatRequest is a single chat-completion call. ImageBase64, when set,
// is attached to the user message as an inline JPEG data URL so the
// model can analyze the slide visually.
type ChatRequest struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	UserPrompt   string
	ImageBase64  string
}

// ChatClient is the model-invocation client the pipeline talks to.
type ChatClient interface {
	// Complete runs one chat completion and returns the trimmed
	// assistant message.
	Complete(ctx context.Context, req ChatRequest) (string, error)
}
