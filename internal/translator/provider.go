package translator

import "context"

// Request is a single completion call made to a language-model provider.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
	// JSON asks the provider to constrain output to a JSON object.
	JSON bool
}

// Usage holds billed token counts.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

func (u *Usage) Add(o Usage) {
	u.PromptTokens += o.PromptTokens
	u.CompletionTokens += o.CompletionTokens
}

// Completion is the raw reply of a provider.
type Completion struct {
	Text  string
	Usage Usage
}

// Provider submits text and returns generated text plus token usage.
// Implementations classify failures with apperrors kinds.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}
