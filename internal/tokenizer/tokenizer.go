package tokenizer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// removed lists the runes dropped before splitting. The apostrophes are removed
// rather than split on, so contractions collapse into one token.
var removed = strings.NewReplacer(
	"'", "",
	"’", "",
	",", "",
	".", "",
	"?", "",
	":", "",
	";", "",
	"!", "",
	"—", "",
)

// Tokenize lowercases a line, strips punctuation and splits on whitespace.
func Tokenize(line string) []string {
	// Casers carry state, so one is built per call to stay goroutine safe.
	lower := cases.Lower(language.Und).String(line)
	return strings.Fields(removed.Replace(lower))
}

// Vocabulary returns the distinct tokens of the given lines in first-seen order.
func Vocabulary(lines ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ls := range lines {
		for _, line := range ls {
			for _, tok := range Tokenize(line) {
				if _, ok := seen[tok]; ok {
					continue
				}
				seen[tok] = struct{}{}
				out = append(out, tok)
			}
		}
	}
	return out
}
