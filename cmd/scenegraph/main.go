package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/LdDl/scene-graph-go/config"
	"github.com/LdDl/scene-graph-go/pipeline"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const usage = `usage: scenegraph <command> [flags]

commands:
  run     build scene graphs, events, entity graph and memory for an input file
  query   query spatial memory of a finished run
`

func main() {
	// .env is optional
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(os.Args[2:])
	case "query":
		err = queryCommand(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", slog.String("command", os.Args[1]), slog.Any("error", err))
		os.Exit(1)
	}
}

// loadConfig reads config file when given and applies output override
func loadConfig(path, outputDir string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.JSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("SCENEGRAPH_CONFIG"), "YAML config file (env SCENEGRAPH_CONFIG)")
	outputDir := fs.String("output", os.Getenv("SCENEGRAPH_OUTPUT"), "output directory (env SCENEGRAPH_OUTPUT)")
	inputPath := fs.String("input", "", "input JSON file with detections and reconstruction")
	runID := fs.String("run-id", "", "run identifier, random when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inputPath == "" {
		fs.Usage()
		return errors.New("-input is required")
	}

	cfg, err := loadConfig(*configPath, *outputDir)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	in, err := pipeline.LoadInput(*inputPath)
	if err != nil {
		return err
	}
	metrics, err := pipeline.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := pipeline.NewRunner(cfg, metrics, logger).Run(ctx, *runID, *in)
	if err != nil {
		return err
	}
	fmt.Println(result.Events.Digest(cfg.Events.DigestMaxEvents))
	fmt.Printf("\nrun %s written to %s\n", result.RunID, result.OutputDir)
	return nil
}

func queryCommand(args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("SCENEGRAPH_CONFIG"), "YAML config file (env SCENEGRAPH_CONFIG)")
	outputDir := fs.String("output", os.Getenv("SCENEGRAPH_OUTPUT"), "output directory (env SCENEGRAPH_OUTPUT)")
	runID := fs.String("run-id", "", "run to query")
	queryType := fs.String("type", string(pipeline.QueryLabel), "label, depth_range or proximity")
	label := fs.String("label", "", "label substring (label, depth_range)")
	labelA := fs.String("label-a", "", "first label (proximity)")
	labelB := fs.String("label-b", "", "second label (proximity)")
	minDepth := fs.Float64("min-depth", pipeline.DefaultMinDepth, "minimum depth in meters (depth_range)")
	maxDepth := fs.Float64("max-depth", pipeline.DefaultMaxDepth, "maximum depth in meters (depth_range)")
	maxDistance := fs.Float64("max-distance", pipeline.DefaultMaxDistance, "maximum distance in meters (proximity)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		fs.Usage()
		return errors.New("-run-id is required")
	}

	cfg, err := loadConfig(*configPath, *outputDir)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	q := pipeline.Query{
		Type:   pipeline.QueryType(*queryType),
		Label:  *label,
		LabelA: *labelA,
		LabelB: *labelB,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-depth":
			q.MinDepth = minDepth
		case "max-depth":
			q.MaxDepth = maxDepth
		case "max-distance":
			q.MaxDistance = maxDistance
		}
	})

	store, err := pipeline.NewRunner(cfg, nil, logger).OpenStore(*runID)
	if err != nil {
		return err
	}
	result, err := pipeline.ExecuteQuery(store, q)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
