package translator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/oukeidos/jsontp/internal/batcher"
	"github.com/oukeidos/jsontp/internal/language"
)

// GetSystemPrompt builds the instructions sent with every batch.
func GetSystemPrompt(source, target language.Language, extra string) string {
	sourceName := source.Name
	if sourceName == "" {
		sourceName = "the source language"
	}
	prompt := fmt.Sprintf(`You are a professional translator specializing in the localization of software user interfaces.
Translate the provided %s strings into %s.

1. Input Structure:
- The input is a JSON object with an 'items' array.
- Each item has an 'id', a 'key' and a 'text'. The 'key' is the location of the string in the resource file and is context only. Translate only 'text'.

2. Output Structure:
- The output MUST be a JSON object with a 'translations' field, containing an array of objects.
- Each object in the array must have:
  - 'id': The ID from the input item.
  - 'text': The %s translation.
- Return exactly one translation for every input item.
- Respond ONLY with the JSON object.

3. Rules:
- Use natural, idiomatic phrasing suitable for user interfaces, notifications and documentation.
- Follow the grammar, punctuation and spelling conventions of %s.
- Keep placeholders ({variable}, [name], %%s), HTML tags, URLs and tokens like __P0__ exactly as they appear.
- Do not add explanations or notes.`,
		sourceName, target.Name, target.Name, target.Name)

	if extra != "" {
		prompt += "\n\nAdditional instructions:\n" + extra
	}
	return prompt
}

type requestItem struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Text string `json:"text"`
}

type requestPayload struct {
	Items []requestItem `json:"items"`
}

// buildUserPayload encodes the batch with ids counting from 1. texts holds the
// (possibly protected) text for each pair.
func buildUserPayload(b batcher.Batch, texts []string) (string, error) {
	payload := requestPayload{Items: make([]requestItem, len(b.Pairs))}
	for i, p := range b.Pairs {
		payload.Items[i] = requestItem{
			ID:   strconv.Itoa(i + 1),
			Key:  p.Path.String(),
			Text: texts[i],
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
