package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oukeidos/jsontp/internal/apperrors"
	"github.com/oukeidos/jsontp/internal/httpclient"
	"github.com/oukeidos/jsontp/internal/translator"
	goopenai "github.com/sashabaranov/go-openai"
)

const DefaultModel = goopenai.GPT4oMini

// Client sends chat completion requests to the OpenAI API.
type Client struct {
	api   *goopenai.Client
	model string
}

// NewClient creates a client for model. An empty baseURL selects the public
// OpenAI endpoint; any compatible endpoint may be given instead.
func NewClient(apiKey, model, baseURL string) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.HTTPClient = httpclient.GetDefaultClient()
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		api:   goopenai.NewClientWithConfig(cfg),
		model: model,
	}
}

// GetModelID returns the configured model identifier.
func (c *Client) GetModelID() string {
	return c.model
}

var _ translator.Provider = (*Client)(nil)

func (c *Client) Complete(ctx context.Context, req translator.Request) (*translator.Completion, error) {
	chatReq := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: req.System},
			{Role: goopenai.ChatMessageRoleUser, Content: req.User},
		},
	}
	if req.JSON {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	slog.Debug("OpenAI API Response", "usage_total", resp.Usage.TotalTokens, "response_id", resp.ID)

	if len(resp.Choices) == 0 {
		return nil, apperrors.New(apperrors.KindMalformed, "OpenAI returned no choices.", fmt.Errorf("empty choices in response %s", resp.ID))
	}
	choice := resp.Choices[0]
	if choice.FinishReason == goopenai.FinishReasonLength {
		return nil, apperrors.New(
			apperrors.KindMalformed,
			"OpenAI response was cut off by the output token limit.",
			fmt.Errorf("finish_reason=length"),
		)
	}

	return &translator.Completion{
		Text: choice.Message.Content,
		Usage: translator.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// ListModels returns the model identifiers visible to the API key.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func classifyOpenAIError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		code := fmt.Sprint(apiErr.Code)
		cause := fmt.Errorf("openai status=%d type=%s code=%s: %w", apiErr.HTTPStatusCode, apiErr.Type, code, err)
		return classifyStatus(apiErr.HTTPStatusCode, code+" "+apiErr.Type+" "+apiErr.Message, cause)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		cause := fmt.Errorf("openai status=%d: %w", reqErr.HTTPStatusCode, err)
		return classifyStatus(reqErr.HTTPStatusCode, "", cause)
	}

	return apperrors.New(
		apperrors.KindNetwork,
		"OpenAI request failed due to a temporary network/runtime error.",
		fmt.Errorf("request failed: %w", err),
	)
}

func classifyStatus(statusCode int, details string, cause error) error {
	switch statusCode {
	case http.StatusTooManyRequests:
		if strings.Contains(strings.ToLower(details), "insufficient_quota") {
			return apperrors.New(
				apperrors.KindAuth,
				"OpenAI API quota exhausted (429): please check your plan and billing details.",
				cause,
			)
		}
		return apperrors.New(
			apperrors.KindRateLimit,
			"OpenAI API rate limit exceeded (429): please try again later.",
			cause,
		)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.New(
			apperrors.KindAuth,
			fmt.Sprintf("OpenAI API authentication/authorization failed (%d): please verify your API key and permissions.", statusCode),
			cause,
		)
	case http.StatusNotFound:
		if isOpenAIModelNotFound(details) {
			return apperrors.New(
				apperrors.KindBadRequest,
				"The model does not exist or you do not have access to it.",
				cause,
			)
		}
		return apperrors.New(
			apperrors.KindBadRequest,
			"OpenAI resource not found (404).",
			cause,
		)
	case http.StatusRequestTimeout:
		return apperrors.New(
			apperrors.KindNetwork,
			"OpenAI request timed out (408): please try again later.",
			cause,
		)
	default:
		if statusCode >= 500 || statusCode == 0 {
			return apperrors.New(
				apperrors.KindNetwork,
				fmt.Sprintf("OpenAI server error (%d): please try again later.", statusCode),
				cause,
			)
		}
		return apperrors.New(
			apperrors.KindBadRequest,
			fmt.Sprintf("OpenAI API error (%d).", statusCode),
			cause,
		)
	}
}

func isOpenAIModelNotFound(details string) bool {
	needle := strings.ToLower(details)
	if strings.Contains(needle, "model_not_found") {
		return true
	}
	return strings.Contains(needle, "does not exist or you do not have access to it")
}
