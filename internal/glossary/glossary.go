// Package glossary reads fixed term translations and renders them as prompt
// instructions. A glossary file is a JSON array of objects keyed by language
// code, for example [{"en": "Save", "fr": "Enregistrer"}].
package glossary

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/oukeidos/jsontp/internal/language"
)

// MaxTerms caps the entries rendered into a prompt.
const MaxTerms = 200

// Term is one fixed translation.
type Term struct {
	Source string
	Target string
}

func normalizeCode(code string) (string, error) {
	lang, ok := language.Resolve(code)
	if !ok {
		return "", fmt.Errorf("unsupported language: %s", code)
	}
	return lang.Code, nil
}

func schemaKeys(sourceCode, targetCode string) (string, string, error) {
	if strings.TrimSpace(sourceCode) == "" {
		return "", "", fmt.Errorf("a glossary requires an explicit source language")
	}
	src, err := normalizeCode(sourceCode)
	if err != nil {
		return "", "", err
	}
	tgt, err := normalizeCode(targetCode)
	if err != nil {
		return "", "", err
	}
	return src, tgt, nil
}

// Encode renders terms in the file format.
func Encode(terms []Term, sourceCode, targetCode string) ([]byte, error) {
	sourceKey, targetKey, err := schemaKeys(sourceCode, targetCode)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, map[string]string{
			sourceKey: t.Source,
			targetKey: t.Target,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// Decode parses a glossary for the given language pair. Entries may carry
// other languages; blank entries are dropped.
func Decode(data []byte, sourceCode, targetCode string) ([]Term, error) {
	sourceKey, targetKey, err := schemaKeys(sourceCode, targetCode)
	if err != nil {
		return nil, err
	}
	var raw []map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	terms := make([]Term, 0, len(raw))
	for i, entry := range raw {
		srcVal, ok := entry[sourceKey]
		if !ok {
			return nil, fmt.Errorf("entry %d: missing source field %q", i+1, sourceKey)
		}
		tgtVal, ok := entry[targetKey]
		if !ok {
			return nil, fmt.Errorf("entry %d: missing target field %q", i+1, targetKey)
		}
		srcVal, tgtVal = strings.TrimSpace(srcVal), strings.TrimSpace(tgtVal)
		if srcVal == "" || tgtVal == "" {
			continue
		}
		terms = append(terms, Term{Source: srcVal, Target: tgtVal})
	}
	return terms, nil
}

// Load reads and decodes a glossary file.
func Load(path, sourceCode, targetCode string) ([]Term, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read glossary file %s: %w", path, err)
	}
	terms, err := Decode(data, sourceCode, targetCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse glossary file %s: %w", path, err)
	}
	return terms, nil
}

// Instructions merges extra with a rendered term list. Longer source terms
// come first; at most MaxTerms are listed.
func Instructions(extra string, terms []Term) string {
	if len(terms) == 0 {
		return extra
	}
	sorted := append([]Term(nil), terms...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Source) > len(sorted[j].Source)
	})
	if len(sorted) > MaxTerms {
		sorted = sorted[:MaxTerms]
	}

	var b strings.Builder
	if extra = strings.TrimSpace(extra); extra != "" {
		b.WriteString(extra)
		b.WriteString("\n\n")
	}
	b.WriteString("Always use these fixed translations:\n")
	for _, t := range sorted {
		fmt.Fprintf(&b, "- %q -> %q\n", t.Source, t.Target)
	}
	return strings.TrimRight(b.String(), "\n")
}
