// Package placeholder shields substrings that must survive translation
// verbatim, such as format verbs, markup and URLs.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"
)

// patterns are applied in order; earlier patterns win on overlap.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`\{[^}]+\}`),
	regexp.MustCompile(`\[[^\]]+\]`),
	regexp.MustCompile(`%\w`),
	regexp.MustCompile(`<[^>]+>`),
	regexp.MustCompile(`https?://[^\s"']+`),
	regexp.MustCompile(`@\w+`),
	regexp.MustCompile(`#\w+`),
	regexp.MustCompile(`:[a-zA-Z0-9_]+:`),
	regexp.MustCompile(`\b[A-Z]{2,5}\b`),
}

var tokenPattern = regexp.MustCompile(`__P\d+__`)

// Protected is a text with its shielded substrings replaced by tokens.
type Protected struct {
	Text   string
	tokens []string
	values []string
}

// Protect replaces every protected substring of text with a token of the
// form __P0__, __P1__, ... Identical substrings share a token.
func Protect(text string) Protected {
	p := Protected{Text: text}
	if tokenPattern.MatchString(text) {
		// Text that already looks tokenized is sent unchanged.
		return p
	}
	seen := make(map[string]string)
	for _, re := range patterns {
		p.Text = re.ReplaceAllStringFunc(p.Text, func(match string) string {
			if tokenPattern.MatchString(match) {
				return match
			}
			if tok, ok := seen[match]; ok {
				return tok
			}
			tok := fmt.Sprintf("__P%d__", len(p.tokens))
			seen[match] = tok
			p.tokens = append(p.tokens, tok)
			p.values = append(p.values, match)
			return tok
		})
	}
	return p
}

// Len returns the number of distinct protected substrings.
func (p Protected) Len() int {
	return len(p.tokens)
}

// Restore substitutes the original substrings back into a translation.
func (p Protected) Restore(translated string) string {
	if len(p.tokens) == 0 {
		return translated
	}
	args := make([]string, 0, 2*len(p.tokens))
	for i, tok := range p.tokens {
		args = append(args, tok, p.values[i])
	}
	return strings.NewReplacer(args...).Replace(translated)
}

// Missing lists the tokens absent from a translation.
func (p Protected) Missing(translated string) []string {
	var missing []string
	for _, tok := range p.tokens {
		if !strings.Contains(translated, tok) {
			missing = append(missing, tok)
		}
	}
	return missing
}
