package translator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// responseItem accepts ids encoded as strings or numbers.
type responseItem struct {
	ID   flexID `json:"id"`
	Text string `json:"text"`
}

type responseData struct {
	Translations *[]responseItem `json:"translations"`
}

type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// stripCodeFences removes a surrounding Markdown code fence, if present.
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// parseResponse decodes the model reply into id/text items. The expected
// shape is {"translations":[...]}; a bare array or a flat {"id":"text"}
// object is also accepted.
func parseResponse(content string) ([]responseItem, error) {
	text := stripCodeFences(content)
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	if strings.HasPrefix(text, "[") {
		var items []responseItem
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return items, nil
	}

	var data responseData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		var flat map[string]string
		if err2 := json.Unmarshal([]byte(text), &flat); err2 == nil {
			return flatItems(flat), nil
		}
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if data.Translations != nil {
		return *data.Translations, nil
	}

	var flat map[string]string
	if err := json.Unmarshal([]byte(text), &flat); err != nil {
		return nil, fmt.Errorf("response has no 'translations' field")
	}
	return flatItems(flat), nil
}

func flatItems(flat map[string]string) []responseItem {
	items := make([]responseItem, 0, len(flat))
	for id, text := range flat {
		items = append(items, responseItem{ID: flexID(strings.TrimSpace(id)), Text: text})
	}
	return items
}

// matchResults pairs reply items with request positions and rejects any
// reply that cannot be paired unambiguously. sources holds the text sent for
// each position.
func matchResults(sources []string, items []responseItem) ([]string, error) {
	byID := make(map[string]string, len(items))
	for _, it := range items {
		n, err := strconv.Atoi(string(it.ID))
		if err != nil || n < 1 || n > len(sources) {
			return nil, fmt.Errorf("unexpected translation ID from model: %q", string(it.ID))
		}
		id := strconv.Itoa(n)
		if _, exists := byID[id]; exists {
			return nil, fmt.Errorf("duplicate translation ID detected in model output: %s", id)
		}
		byID[id] = it.Text
	}

	if len(byID) != len(sources) {
		return nil, fmt.Errorf("translation count mismatch: expected %d, got %d", len(sources), len(byID))
	}

	out := make([]string, len(sources))
	for i, src := range sources {
		id := strconv.Itoa(i + 1)
		text, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("missing translation for item ID %s", id)
		}
		if strings.TrimSpace(text) == "" && strings.TrimSpace(src) != "" {
			return nil, fmt.Errorf("empty translation for item ID %s", id)
		}
		out[i] = text
	}
	return out, nil
}
