package common

import "time"

// Corpus is an ordered collection of generations sampled for the same prompt.
// The index of a generation inside the corpus is its sentence id and is used
// as the canonical reference throughout the graph.
type Corpus []string

// Token is a normalized word taken from a single generation.
//
// Position is the index of the whitespace separated word the token was
// derived from, so it still points at the right spot in the raw text even
// after stop words and short words were dropped.
type Token struct {
	Word     string `json:"word"`
	Position int    `json:"position"`
}

// WordStat collects everything the pipeline knows about one distinct word of
// a corpus.
//
//   - Count: total occurrences across all generations
//   - SentenceIDs: ascending, unique indices of the generations containing the word
//   - Positions: intra-text positions in corpus order, for display only
type WordStat struct {
	Word        string `json:"word"`
	Count       int    `json:"count"`
	SentenceIDs []int  `json:"sentenceIds"`
	Positions   []int  `json:"positions"`
}

// CoOccurrenceEdge connects two distinct words that appear together in at
// least one generation. Source is always lexicographically smaller than
// Target, so an unordered pair has exactly one representation.
type CoOccurrenceEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// GraphNode is a word that passed the minimum frequency filter, decorated
// with the attributes a renderer needs to size and connect it.
//
// Children and Parents describe the order in which retained words follow each
// other inside the generations. IsRoot marks a word that starts at least one
// generation, IsEnd one that closes at least one.
type GraphNode struct {
	WordStat

	RadiusX float64 `json:"radiusX"`
	RadiusY float64 `json:"radiusY"`

	Children []string `json:"children"`
	Parents  []string `json:"parents"`
	IsRoot   bool     `json:"isRoot"`
	IsEnd    bool     `json:"isEnd"`
}

// GraphStats summarizes the unfiltered corpus a graph was built from.
type GraphStats struct {
	Generations               int     `json:"generations"`
	TotalWords                int     `json:"totalWords"`
	UniqueWords               int     `json:"uniqueWords"`
	AverageWordsPerGeneration float64 `json:"averageWordsPerGeneration"`
}

// WordGraph is the complete, internally consistent snapshot handed to a
// renderer. Nodes are sorted by word and edges by (Source, Target); every
// edge references two existing nodes.
type WordGraph struct {
	Nodes []GraphNode        `json:"nodes"`
	Edges []CoOccurrenceEdge `json:"edges"`
	Stats GraphStats         `json:"stats"`
}

// Node returns the node for word, if the word was retained.
func (g WordGraph) Node(word string) (GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.Word == word {
			return n, true
		}
	}
	return GraphNode{}, false
}

// IsEmpty reports whether the graph has no nodes.
func (g WordGraph) IsEmpty() bool {
	return len(g.Nodes) == 0
}

// AdjacencyMatrix is the matrix view of a WordGraph. Weights[i][j] is the
// co-occurrence weight between Words[i] and Words[j]; the matrix is symmetric
// with a zero diagonal.
type AdjacencyMatrix struct {
	Words   []string `json:"words"`
	Weights [][]int  `json:"weights"`
}

// Dataset is a prompt together with the generations sampled for it. Datasets
// are the cached input of the visualization; graphs are always derived from
// them on demand.
type Dataset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Prompt      string    `json:"prompt"`
	Model       string    `json:"model,omitempty"`
	Generations Corpus    `json:"generations"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Snapshot describes a graph that was precomputed by the worker and stored in
// object storage.
type Snapshot struct {
	ID           string    `json:"id"`
	DatasetID    string    `json:"datasetId"`
	MinFrequency int       `json:"minFrequency"`
	ObjectKey    string    `json:"objectKey"`
	NodeCount    int       `json:"nodeCount"`
	EdgeCount    int       `json:"edgeCount"`
	DurationMs   int64     `json:"durationMs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DatasetSummary is a dataset without its generations, as returned by
// listings.
type DatasetSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Prompt      string    `json:"prompt"`
	Model       string    `json:"model,omitempty"`
	Generations int       `json:"generations"`
	CreatedAt   time.Time `json:"createdAt"`
}
