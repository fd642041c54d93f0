package glossary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncodeDecode_NormalizesCodes(t *testing.T) {
	in := []Term{{Source: "Save", Target: "保存"}}
	data, err := Encode(in, "en", "zh")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(string(data), `"zh-Hans"`) {
		t.Fatalf("expected zh-Hans key in output, got: %s", string(data))
	}
	out, err := Decode(data, "en", "zh")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(out) != 1 || out[0].Source != "Save" || out[0].Target != "保存" {
		t.Fatalf("unexpected terms: %+v", out)
	}
}

func TestDecode_Errors(t *testing.T) {
	if _, err := Decode([]byte(`[{"en":"Save"}]`), "en", "fr"); err == nil {
		t.Fatal("expected error for missing target key")
	}
	if _, err := Decode([]byte(`[]`), "", "fr"); err == nil {
		t.Fatal("expected error without source language")
	}
	if _, err := Decode([]byte(`{`), "en", "fr"); err == nil {
		t.Fatal("expected JSON error")
	}
	terms, err := Decode([]byte(`[{"en":" ","fr":"x"},{"en":"Open","fr":"Ouvrir","de":"Öffnen"}]`), "en", "fr")
	if err != nil || len(terms) != 1 {
		t.Fatalf("expected blank entry dropped, got %+v, %v", terms, err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	if err := os.WriteFile(path, []byte(`[{"en":"Save","fr":"Enregistrer"}]`), 0600); err != nil {
		t.Fatal(err)
	}
	terms, err := Load(path, "en", "fr")
	if err != nil || len(terms) != 1 {
		t.Fatalf("Load = %+v, %v", terms, err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json"), "en", "fr"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestInstructions(t *testing.T) {
	if got := Instructions("Be brief.", nil); got != "Be brief." {
		t.Fatalf("no terms should keep instructions, got %q", got)
	}
	got := Instructions("Be brief.", []Term{{"Save", "Enregistrer"}, {"Save as", "Enregistrer sous"}})
	if !strings.HasPrefix(got, "Be brief.\n\n") {
		t.Fatalf("instructions should come first: %q", got)
	}
	if strings.Index(got, `"Save as"`) > strings.Index(got, `"Save" ->`) {
		t.Fatalf("longer terms should be listed first: %q", got)
	}
}
