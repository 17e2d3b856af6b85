package wordgraph

import (
	"slices"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
)

// annotateSequences links retained words in the order they follow each other
// inside the generations. Filtered words are skipped, so "dogs really chase"
// with "really" filtered out yields dogs -> chase.
func annotateSequences(graph *common.WordGraph, sequences [][]common.Token) {
	if len(graph.Nodes) == 0 {
		return
	}

	index := make(map[string]int, len(graph.Nodes))
	for i, n := range graph.Nodes {
		index[n.Word] = i
	}

	for _, tokens := range sequences {
		prev := -1
		for _, tok := range tokens {
			cur, ok := index[tok.Word]
			if !ok {
				continue
			}
			if prev == -1 {
				graph.Nodes[cur].IsRoot = true
			} else if prev != cur {
				graph.Nodes[prev].Children = appendUnique(graph.Nodes[prev].Children, graph.Nodes[cur].Word)
				graph.Nodes[cur].Parents = appendUnique(graph.Nodes[cur].Parents, graph.Nodes[prev].Word)
			}
			prev = cur
		}
		if prev != -1 {
			graph.Nodes[prev].IsEnd = true
		}
	}

	for i := range graph.Nodes {
		slices.Sort(graph.Nodes[i].Children)
		slices.Sort(graph.Nodes[i].Parents)
	}
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

// Matrix returns the adjacency matrix view of graph, with rows and columns in
// node order.
func Matrix(graph common.WordGraph) common.AdjacencyMatrix {
	n := len(graph.Nodes)
	m := common.AdjacencyMatrix{
		Words:   make([]string, n),
		Weights: make([][]int, n),
	}

	index := make(map[string]int, n)
	for i, node := range graph.Nodes {
		m.Words[i] = node.Word
		m.Weights[i] = make([]int, n)
		index[node.Word] = i
	}

	for _, e := range graph.Edges {
		i, okS := index[e.Source]
		j, okT := index[e.Target]
		if !okS || !okT {
			continue
		}
		m.Weights[i][j] = e.Weight
		m.Weights[j][i] = e.Weight
	}

	return m
}
