package main

import (
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/wordgraph"
)

type Config struct {
	InPath       string
	OutPath      string
	MinFrequency int
	View         string
	StripMarkup  bool
	Pretty       bool
	Debug        bool
}

func (c Config) Validate() error {
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.MinFrequency < 1 {
		return errors.New("min-frequency must be >= 1")
	}
	if c.View != "graph" && c.View != "matrix" {
		return fmt.Errorf("view must be graph or matrix, got %q", c.View)
	}
	return nil
}

// defaultConfig takes the threshold default from the graph configuration,
// so GRAPH_MIN_FREQUENCY applies unless -min-frequency is given.
func defaultConfig(graph wordgraph.Config) Config {
	return Config{
		MinFrequency: graph.MinFrequency,
		View:         "graph",
	}
}
