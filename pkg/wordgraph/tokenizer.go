package wordgraph

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
)

// Tokenizer turns raw generations into normalized word tokens.
//
// A word is lower-cased and stripped of every rune that is neither a Unicode
// letter nor a digit. Words shorter than the configured minimum length (in
// runes) and stop words are dropped. Tokenize never fails.
type Tokenizer struct {
	minLength int
	stopWords map[string]struct{}
}

// NewTokenizer creates a tokenizer. Stop words are normalized the same way
// tokens are, so "The" and "the," in the list both exclude "the".
func NewTokenizer(minLength int, stopWords []string) *Tokenizer {
	stop := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		n := normalizeWord(w)
		if n == "" {
			continue
		}
		stop[n] = struct{}{}
	}
	return &Tokenizer{
		minLength: minLength,
		stopWords: stop,
	}
}

// Tokenize splits text on whitespace and returns the surviving tokens in
// their original order.
func (t *Tokenizer) Tokenize(text string) []common.Token {
	fields := strings.Fields(text)
	tokens := make([]common.Token, 0, len(fields))
	for i, field := range fields {
		word := normalizeWord(field)
		if utf8.RuneCountInString(word) < t.minLength {
			continue
		}
		if t.IsStopWord(word) {
			continue
		}
		tokens = append(tokens, common.Token{Word: word, Position: i})
	}
	return tokens
}

// IsStopWord reports whether the normalized word is excluded.
func (t *Tokenizer) IsStopWord(word string) bool {
	_, ok := t.stopWords[word]
	return ok
}

func normalizeWord(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
