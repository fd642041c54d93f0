package translator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/oukeidos/jsontp/internal/batcher"
	"github.com/oukeidos/jsontp/internal/jsondoc"
	"github.com/oukeidos/jsontp/internal/language"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```  ", `{"a":1}`},
		{"  \n```json\n[1]", `[1]`},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.in); got != tt.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchResults_NormalizesIDs(t *testing.T) {
	items := []responseItem{{ID: "02", Text: "B"}, {ID: "1", Text: "A"}}
	got, err := matchResults([]string{"a", "b"}, items)
	if err != nil {
		t.Fatalf("matchResults failed: %v", err)
	}
	if got[0] != "A" || got[1] != "B" {
		t.Fatalf("unexpected order: %v", got)
	}

	items = []responseItem{{ID: "1", Text: "A"}, {ID: "01", Text: "B"}}
	if _, err := matchResults([]string{"a", "b"}, items); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestBuildUserPayload(t *testing.T) {
	b := batcher.Batch{Pairs: []batcher.Pair{
		{Path: jsondoc.KeyPath{"menu", "save"}, Text: "Save"},
		{Path: jsondoc.KeyPath{"html"}, Text: "<b>x</b>"},
	}}
	payload, err := buildUserPayload(b, []string{"Save", "__P0__x__P1__"})
	if err != nil {
		t.Fatalf("buildUserPayload failed: %v", err)
	}
	want := `{"items":[{"id":"1","key":"menu.save","text":"Save"},{"id":"2","key":"html","text":"__P0__x__P1__"}]}`
	if payload != want {
		t.Fatalf("payload = %s\nwant %s", payload, want)
	}
	if !json.Valid([]byte(payload)) {
		t.Fatal("payload is not valid JSON")
	}
}

func TestGetSystemPrompt(t *testing.T) {
	en, _ := language.GetLanguage("en")
	prompt := GetSystemPrompt(en, french(), "Use the informal register.")
	for _, want := range []string{"English", "French", "'translations'", "__P0__", "informal register"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	auto := GetSystemPrompt(language.Language{}, french(), "")
	if !strings.Contains(auto, "the source language") {
		t.Error("prompt without source language should ask the model to detect it")
	}
}
