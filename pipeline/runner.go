package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LdDl/scene-graph-go/config"
	"github.com/LdDl/scene-graph-go/events"
	"github.com/LdDl/scene-graph-go/graph"
	"github.com/LdDl/scene-graph-go/memory"
	"github.com/LdDl/scene-graph-go/scene"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Per-run artifact names
const (
	SceneGraphsFile = "scene_graphs.json"
	EventsFile      = "events.json"
	GraphFile       = "graph_data.json"
	DigestFile      = "digest.txt"
	MemoryDir       = "memory_store"
)

// Stage names used in logs and metrics
const (
	stageScene  = "scene"
	stageGraph  = "graph"
	stageEvents = "events"
	stageMemory = "memory"
)

// Result is everything produced by one run
type Result struct {
	RunID             string
	OutputDir         string
	Frames            []scene.Frame
	Events            *events.Result
	Graph             *graph.Graph
	Store             *memory.Store
	InterestingFrames []int
}

// Runner executes scene graph builder, entity graph, event engine and memory store over one input.
// Every run gets fresh component state, runs may execute concurrently on one Runner.
type Runner struct {
	cfg     *config.Config
	metrics *Metrics
	logger  *slog.Logger
}

// NewRunner creates new instance of Runner. Nil metrics are replaced by unregistered collectors.
func NewRunner(cfg *config.Config, metrics *Metrics, logger *slog.Logger) *Runner {
	if metrics == nil {
		metrics, _ = NewMetrics(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// RunDir returns output directory of run
func (runner *Runner) RunDir(runID string) string {
	return filepath.Join(runner.cfg.Output.Dir, runID)
}

// Run processes input and writes artifacts under <output dir>/<runID>. Empty runID gets a random one.
// Context is checked between stages.
func (runner *Runner) Run(ctx context.Context, runID string, in scene.Input) (*Result, error) {
	if runID == "" {
		runID = uuid.New().String()
	}
	if strings.ContainsAny(runID, `/\`) {
		return nil, errors.Errorf("invalid run id '%s' (contains path separator)", runID)
	}
	logger := runner.logger.With(slog.String("run_id", runID))
	result := &Result{
		RunID:     runID,
		OutputDir: runner.RunDir(runID),
	}
	if err := os.MkdirAll(result.OutputDir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "Can't create run directory '%s'", result.OutputDir)
	}

	// scene graphs
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := time.Now()
	builder := scene.NewBuilder(runner.cfg.Scene, runner.cfg.Taxonomy)
	builder.SetLogger(logger)
	frames, err := builder.Build(in)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build scene graphs")
	}
	result.Frames = frames
	if err := writeJSON(filepath.Join(result.OutputDir, SceneGraphsFile), frames); err != nil {
		return nil, err
	}
	runner.metrics.frames.Add(float64(len(frames)))
	runner.metrics.observeStage(stageScene, started)

	// entity graph
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started = time.Now()
	g := graph.New()
	g.SetLogger(logger)
	if err := g.AddFrames(frames); err != nil {
		return nil, errors.Wrap(err, "Can't build entity graph")
	}
	if err := g.SaveJSON(filepath.Join(result.OutputDir, GraphFile), runner.cfg.Graph.VisualizationFrames); err != nil {
		return nil, err
	}
	result.Graph = g
	result.InterestingFrames = g.InterestingFrames(runner.cfg.Graph.TopK)
	runner.metrics.observeStage(stageGraph, started)

	// events
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started = time.Now()
	engine := events.NewEngine(runner.cfg.Events, runner.cfg.Taxonomy)
	engine.SetLogger(logger)
	var smoothed []scene.Vec3
	if in.Reconstruction != nil {
		smoothed = in.Reconstruction.SmoothedTrajectory
	}
	eventResult, err := engine.Run(frames, smoothed)
	if err != nil {
		return nil, errors.Wrap(err, "Can't extract events")
	}
	result.Events = eventResult
	if err := writeJSON(filepath.Join(result.OutputDir, EventsFile), eventResult); err != nil {
		return nil, err
	}
	digest := eventResult.Digest(runner.cfg.Events.DigestMaxEvents) + "\n=== SCENE ===\n" + g.Digest(runner.cfg.Graph.DigestFrames)
	if err := os.WriteFile(filepath.Join(result.OutputDir, DigestFile), []byte(digest), 0o644); err != nil {
		return nil, errors.Wrap(err, "Can't write digest")
	}
	for evtType, count := range eventResult.CountByType() {
		runner.metrics.events.WithLabelValues(string(evtType)).Add(float64(count))
	}
	runner.metrics.observeStage(stageEvents, started)

	// spatial memory
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started = time.Now()
	store, err := memory.Create(filepath.Join(result.OutputDir, MemoryDir), runner.cfg.Memory)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create memory store")
	}
	store.SetLogger(logger)
	entries, err := store.Ingest(frames, runID)
	if err != nil {
		return nil, errors.Wrap(err, "Can't ingest frames into memory")
	}
	if err := store.Save(); err != nil {
		return nil, errors.Wrap(err, "Can't save memory store")
	}
	result.Store = store
	runner.metrics.memoryEntries.Add(float64(len(entries)))
	runner.metrics.observeStage(stageMemory, started)

	logger.Info("run finished",
		slog.String("output", result.OutputDir),
		slog.Int("frames", len(frames)),
		slog.Int("events", len(eventResult.Events)),
		slog.Any("interesting_frames", result.InterestingFrames),
	)
	return result, nil
}

// OpenStore reopens memory store of a finished run
func (runner *Runner) OpenStore(runID string) (*memory.Store, error) {
	store, err := memory.Open(filepath.Join(runner.RunDir(runID), MemoryDir), runner.cfg.Memory)
	if err != nil {
		return nil, err
	}
	store.SetLogger(runner.logger)
	return store, nil
}

// LoadInput reads run input from JSON file
func LoadInput(path string) (*scene.Input, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read input '%s'", path)
	}
	in := scene.Input{}
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, errors.Wrapf(err, "Can't decode input '%s'", path)
	}
	return &in, nil
}

func writeJSON(path string, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "Can't encode '%s'", filepath.Base(path))
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return errors.Wrapf(err, "Can't write '%s'", path)
	}
	return nil
}
