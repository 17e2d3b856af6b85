package wordgraph

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
)

// Frequencies maps every distinct token of a corpus to its statistics.
type Frequencies map[string]*common.WordStat

// Words returns all words in ascending order.
func (f Frequencies) Words() []string {
	words := make([]string, 0, len(f))
	for w := range f {
		words = append(words, w)
	}
	slices.Sort(words)
	return words
}

// TotalWords returns the number of tokens counted across the corpus.
func (f Frequencies) TotalWords() int {
	total := 0
	for _, s := range f {
		total += s.Count
	}
	return total
}

// Counts returns the plain word to count table.
func (f Frequencies) Counts() map[string]int {
	counts := make(map[string]int, len(f))
	for w, s := range f {
		counts[w] = s.Count
	}
	return counts
}

// CountFrequencies tokenizes every generation of the corpus and aggregates
// per-word statistics in a single pass.
//
// A nil corpus or a generation that is not valid UTF-8 is rejected with
// ErrInvalidInput. An empty corpus yields empty frequencies.
func (b *Builder) CountFrequencies(corpus common.Corpus) (Frequencies, error) {
	freq, _, err := b.countFrequencies(corpus)
	return freq, err
}

func (b *Builder) countFrequencies(corpus common.Corpus) (Frequencies, [][]common.Token, error) {
	if err := validateCorpus(corpus); err != nil {
		return nil, nil, err
	}

	freq := make(Frequencies)
	sequences := make([][]common.Token, len(corpus))

	for i, text := range corpus {
		tokens := b.tokenizer.Tokenize(text)
		sequences[i] = tokens

		for _, tok := range tokens {
			stat, ok := freq[tok.Word]
			if !ok {
				stat = &common.WordStat{
					Word:        tok.Word,
					SentenceIDs: []int{},
					Positions:   []int{},
				}
				freq[tok.Word] = stat
			}

			stat.Count++
			// Generations are visited in order, so the last id is the only
			// candidate for a duplicate.
			if n := len(stat.SentenceIDs); n == 0 || stat.SentenceIDs[n-1] != i {
				stat.SentenceIDs = append(stat.SentenceIDs, i)
			}
			stat.Positions = append(stat.Positions, tok.Position)
		}
	}

	return freq, sequences, nil
}

func validateCorpus(corpus common.Corpus) error {
	if corpus == nil {
		return fmt.Errorf("%w: corpus is nil", ErrInvalidInput)
	}
	for i, text := range corpus {
		if !utf8.ValidString(text) {
			return fmt.Errorf("%w: generation %d is not valid UTF-8", ErrInvalidInput, i)
		}
	}
	return nil
}
