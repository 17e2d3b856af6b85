// Command wordgraph builds the co-occurrence graph of a dataset file and
// writes it as JSON.
//
//	wordgraph -in dataset.json -min-frequency 3 -out graph.json -pretty
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/consistency-vis/backend/internal/util"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader"
	loaderio "github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader/io"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger/console"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/wordgraph"
)

func main() {
	util.LoadEnv()

	graphConfig, err := util.GraphConfigFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:], graphConfig)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug || util.GetEnvBool("DEBUG", false),
		Output: os.Stderr,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := io.Writer(os.Stdout)
	if cfg.OutPath != "" {
		f, err := os.Create(cfg.OutPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if err := run(ctx, cfg, graphConfig, out); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string, graph wordgraph.Config) (Config, error) {
	cfg := defaultConfig(graph)

	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InPath, "in", cfg.InPath, "Dataset JSON file (object with generations or a bare array)")
	fs.StringVar(&cfg.OutPath, "out", cfg.OutPath, "Output file, stdout when empty")
	fs.IntVar(&cfg.MinFrequency, "min-frequency", cfg.MinFrequency, "Minimum occurrences for a word to become a node")
	fs.StringVar(&cfg.View, "view", cfg.View, "Output view: graph or matrix")
	fs.BoolVar(&cfg.StripMarkup, "strip-markup", false, "Remove HTML markup from generations before tokenizing")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print the output JSON")
	fs.BoolVar(&cfg.Debug, "debug", false, "Log pipeline timings to stderr")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg Config, graphConfig wordgraph.Config, out io.Writer) error {
	builder, err := wordgraph.NewBuilder(graphConfig)
	if err != nil {
		return err
	}

	ds, err := loaderio.NewIODatasetLoader("").Load(ctx, cfg.InPath)
	if err != nil {
		return err
	}
	if cfg.StripMarkup {
		loader.StripDatasetMarkup(&ds)
	}

	res, err := builder.Build(ds.Generations, cfg.MinFrequency)
	if err != nil {
		return err
	}
	if res.Graph.IsEmpty() {
		logger.Warn("[Graph] No word reaches the frequency threshold", "dataset", ds.Name, "min_frequency", cfg.MinFrequency)
	}
	logger.Debug("[Graph] Built graph",
		"dataset", ds.Name,
		"nodes", len(res.Graph.Nodes),
		"edges", len(res.Graph.Edges),
		"tokenize", res.Timings.Tokenize,
		"edges_duration", res.Timings.Edges,
		"total", res.Timings.Total,
	)

	if cfg.View == "matrix" {
		enc := json.NewEncoder(out)
		if cfg.Pretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(wordgraph.Matrix(res.Graph))
	}
	return wordgraph.JSONRenderer{W: out, Indent: cfg.Pretty}.Render(ctx, res.Graph)
}
