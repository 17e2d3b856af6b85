package wordgraph

import (
	"slices"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
)

// BuildEdges returns one edge for every unordered pair of retained words that
// share at least one generation. The weight is the number of shared
// generations.
//
// Words missing from stats are ignored and duplicates in retained are
// collapsed. The result is sorted by (Source, Target) with Source < Target.
//
// The pair enumeration is quadratic in the number of retained words. That is
// fine for the tens to low hundreds of words left after frequency filtering
// but it is the first thing to break for large vocabularies; callers that
// lower the minimum frequency on big corpora pay for it here.
func BuildEdges(stats Frequencies, retained []string) []common.CoOccurrenceEdge {
	words := make([]string, 0, len(retained))
	for _, w := range retained {
		if _, ok := stats[w]; ok {
			words = append(words, w)
		}
	}
	slices.Sort(words)
	words = slices.Compact(words)

	edges := []common.CoOccurrenceEdge{}
	for i := 0; i < len(words); i++ {
		a := stats[words[i]]
		for j := i + 1; j < len(words); j++ {
			b := stats[words[j]]
			weight := intersectionSize(a.SentenceIDs, b.SentenceIDs)
			if weight == 0 {
				continue
			}
			edges = append(edges, common.CoOccurrenceEdge{
				Source: a.Word,
				Target: b.Word,
				Weight: weight,
			})
		}
	}

	return edges
}

// intersectionSize counts common values of two ascending, duplicate free
// slices.
func intersectionSize(a, b []int) int {
	n := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			n++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return n
}
