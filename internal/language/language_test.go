package language

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		in       string
		wantCode string
		wantOK   bool
	}{
		{"fr", "fr", true},
		{"FR", "fr", true},
		{"German", "de", true},
		{"  japanese ", "ja", true},
		{"zh", "zh-Hans", true},
		{"klingon", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Resolve(tt.in)
		if ok != tt.wantOK || got.Code != tt.wantCode {
			t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.in, got.Code, ok, tt.wantCode, tt.wantOK)
		}
	}
}

func TestGetSupportedLanguagesSorted(t *testing.T) {
	entries := GetSupportedLanguages()
	if len(entries) != len(Languages) {
		t.Fatalf("expected %d entries, got %d", len(Languages), len(entries))
	}
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if prev.Name > cur.Name || (prev.Name == cur.Name && prev.ID > cur.ID) {
			t.Fatalf("entries not sorted at %d: %s/%s before %s/%s", i, prev.Name, prev.ID, cur.Name, cur.ID)
		}
	}
}

func TestLanguageIsZero(t *testing.T) {
	if !(Language{}).IsZero() {
		t.Fatal("zero language should report IsZero")
	}
	en, _ := GetLanguage("en")
	if en.IsZero() {
		t.Fatal("English should not report IsZero")
	}
}
