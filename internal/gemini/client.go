package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/oukeidos/jsontp/internal/apperrors"
	"github.com/oukeidos/jsontp/internal/translator"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash"

// Client handles communication with the Gemini API.
type Client struct {
	client    *genai.Client
	modelName string
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey string, modelName string) (*Client, error) {
	// Note: We avoid using option.WithHTTPClient because it interferes with the genai library's
	// internal header injection for API keys, causing 403 errors.
	// Timeouts are enforced through the context of each call instead.
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Client{
		client:    client,
		modelName: modelName,
	}, nil
}

// Close closes the underlying genai client.
func (c *Client) Close() error {
	return c.client.Close()
}

// GetModelID returns the configured model identifier.
func (c *Client) GetModelID() string {
	return c.modelName
}

// Ensure Client implements translator.Provider
var _ translator.Provider = (*Client)(nil)

// Complete sends one generation request. A model handle is built per call so
// the system instruction of one request never leaks into another.
func (c *Client) Complete(ctx context.Context, req translator.Request) (*translator.Completion, error) {
	model := c.newModel(req)

	resp, err := model.GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	text, err := extractResponseText(resp)
	if err != nil {
		return nil, apperrors.Malformed(err)
	}

	comp := &translator.Completion{Text: text}
	if resp.UsageMetadata != nil {
		comp.Usage = translator.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return comp, nil
}

func (c *Client) newModel(req translator.Request) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.modelName)
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	return model
}

var errTruncated = errors.New("gemini response was cut off by the output token limit")

func extractResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("no response received from Gemini")
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			continue
		}
		if candidate.FinishReason == genai.FinishReasonMaxTokens {
			return "", errTruncated
		}
		var combined string
		for _, part := range candidate.Content.Parts {
			text, ok := part.(genai.Text)
			if !ok {
				continue
			}
			combined += string(text)
		}
		if combined != "" {
			return combined, nil
		}
	}
	return "", fmt.Errorf("no text parts found in Gemini response")
}
