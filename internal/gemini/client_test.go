package gemini

import (
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/oukeidos/jsontp/internal/translator"
)

func TestExtractResponseText(t *testing.T) {
	t.Run("NilResponse", func(t *testing.T) {
		_, err := extractResponseText(nil)
		if err == nil || err.Error() != "no response received from Gemini" {
			t.Fatalf("expected nil response error, got: %v", err)
		}
	})

	t.Run("EmptyCandidates", func(t *testing.T) {
		_, err := extractResponseText(&genai.GenerateContentResponse{})
		if err == nil || err.Error() != "no candidates returned from Gemini" {
			t.Fatalf("expected empty candidates error, got: %v", err)
		}
	})

	t.Run("NoParts", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: nil}},
			},
		}
		_, err := extractResponseText(resp)
		if err == nil || err.Error() != "no text parts found in Gemini response" {
			t.Fatalf("expected no text parts error, got: %v", err)
		}
	})

	t.Run("NonTextParts", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{
					genai.Blob{MIMEType: "application/octet-stream", Data: []byte{0x01}},
				}}},
			},
		}
		_, err := extractResponseText(resp)
		if err == nil || err.Error() != "no text parts found in Gemini response" {
			t.Fatalf("expected no text parts error, got: %v", err)
		}
	})

	t.Run("MultiPartText", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{
					genai.Text("one"),
					genai.Text("two"),
				}}},
			},
		}
		text, err := extractResponseText(resp)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text != "onetwo" {
			t.Fatalf("expected concatenated text, got: %q", text)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{
					FinishReason: genai.FinishReasonMaxTokens,
					Content:      &genai.Content{Parts: []genai.Part{genai.Text(`{"transl`)}},
				},
			},
		}
		_, err := extractResponseText(resp)
		if !errors.Is(err, errTruncated) {
			t.Fatalf("expected truncation error, got: %v", err)
		}
	})
}

func TestNewModel_AppliesRequest(t *testing.T) {
	c := &Client{client: &genai.Client{}, modelName: "gemini-test"}
	model := c.newModel(translator.Request{System: "sys", JSON: true, Temperature: 0.3, MaxTokens: 500})
	if model.ResponseMIMEType != "application/json" {
		t.Errorf("expected JSON MIME type, got %q", model.ResponseMIMEType)
	}
	if model.Temperature == nil || *model.Temperature != 0.3 {
		t.Errorf("temperature not applied: %v", model.Temperature)
	}
	if model.MaxOutputTokens == nil || *model.MaxOutputTokens != 500 {
		t.Errorf("max output tokens not applied: %v", model.MaxOutputTokens)
	}
	if model.SystemInstruction == nil || len(model.SystemInstruction.Parts) != 1 {
		t.Fatalf("system instruction not applied")
	}
	if text, ok := model.SystemInstruction.Parts[0].(genai.Text); !ok || string(text) != "sys" {
		t.Errorf("unexpected system instruction %v", model.SystemInstruction.Parts[0])
	}
}
