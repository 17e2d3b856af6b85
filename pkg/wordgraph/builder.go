package wordgraph

import (
	"fmt"
	"slices"
	"time"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
)

// Builder turns a corpus of generations into a WordGraph. It is immutable
// after construction and safe for concurrent use; every call works on its
// own frequency table.
//
// A Builder should be created using NewBuilder.
type Builder struct {
	cfg       Config
	tokenizer *Tokenizer
}

// NewBuilder validates cfg and returns a Builder for it.
//
// Example:
//
//	b, err := wordgraph.NewBuilder(wordgraph.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	res, err := b.Build(common.Corpus{"dogs chase cats", "cats chase dogs"}, 2)
func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Builder{
		cfg:       cfg,
		tokenizer: NewTokenizer(cfg.MinTokenLength, cfg.StopWords),
	}, nil
}

// Config returns the configuration the builder was created with.
func (b *Builder) Config() Config {
	return b.cfg
}

// Tokenize exposes the builder's tokenizer.
func (b *Builder) Tokenize(text string) []common.Token {
	return b.tokenizer.Tokenize(text)
}

// Timings are wall clock measurements of one Build call.
type Timings struct {
	Tokenize time.Duration `json:"tokenize"`
	Edges    time.Duration `json:"edges"`
	Total    time.Duration `json:"total"`
}

// Result is the output of Build.
type Result struct {
	Graph   common.WordGraph `json:"graph"`
	Timings Timings          `json:"timings"`
}

// Assemble selects every word with at least minFrequency occurrences, sizes
// the resulting nodes and connects them with co-occurrence edges.
//
// Nothing meeting the threshold is not an error: the returned graph is then
// empty. A minFrequency below 1 is rejected with ErrInvalidConfig.
func (b *Builder) Assemble(stats Frequencies, minFrequency int) (common.WordGraph, error) {
	if minFrequency < 1 {
		return common.WordGraph{}, fmt.Errorf("%w: min frequency must be >= 1, got %d", ErrInvalidConfig, minFrequency)
	}

	retained := retainedWords(stats, minFrequency)

	nodes := make([]common.GraphNode, 0, len(retained))
	for _, w := range retained {
		stat := stats[w]
		rx, ry := b.cfg.NodeSize.Radii(stat.Count)
		nodes = append(nodes, common.GraphNode{
			WordStat: common.WordStat{
				Word:        stat.Word,
				Count:       stat.Count,
				SentenceIDs: slices.Clone(stat.SentenceIDs),
				Positions:   slices.Clone(stat.Positions),
			},
			RadiusX:  rx,
			RadiusY:  ry,
			Children: []string{},
			Parents:  []string{},
		})
	}

	return common.WordGraph{
		Nodes: nodes,
		Edges: BuildEdges(stats, retained),
	}, nil
}

// Build runs the whole pipeline for one corpus: tokenization, frequency
// counting, assembly, sequence annotation and corpus statistics.
func (b *Builder) Build(corpus common.Corpus, minFrequency int) (*Result, error) {
	start := time.Now()

	stats, sequences, err := b.countFrequencies(corpus)
	if err != nil {
		return nil, err
	}
	tokenizeDone := time.Now()

	graph, err := b.Assemble(stats, minFrequency)
	if err != nil {
		return nil, err
	}
	edgesDone := time.Now()

	annotateSequences(&graph, sequences)
	graph.Stats = corpusStats(stats, len(corpus))

	res := &Result{
		Graph: graph,
		Timings: Timings{
			Tokenize: tokenizeDone.Sub(start),
			Edges:    edgesDone.Sub(tokenizeDone),
			Total:    time.Since(start),
		},
	}

	logger.Debug(
		"[Graph] Built word graph",
		"generations", len(corpus),
		"unique_words", len(stats),
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
		"min_frequency", minFrequency,
		"duration", res.Timings.Total,
	)

	return res, nil
}

func retainedWords(stats Frequencies, minFrequency int) []string {
	retained := make([]string, 0, len(stats))
	for w, s := range stats {
		if s.Count >= minFrequency {
			retained = append(retained, w)
		}
	}
	slices.Sort(retained)
	return retained
}

func corpusStats(stats Frequencies, generations int) common.GraphStats {
	total := stats.TotalWords()
	s := common.GraphStats{
		Generations: generations,
		TotalWords:  total,
		UniqueWords: len(stats),
	}
	if generations > 0 {
		s.AverageWordsPerGeneration = float64(total) / float64(generations)
	}
	return s
}
