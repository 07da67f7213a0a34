package events

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/LdDl/scene-graph-go/scene"

	"github.com/pkg/errors"
)

// Engine walks scene graph frames in order and derives events, activities and statistics.
type Engine struct {
	cfg      Config
	taxonomy scene.Taxonomy
	logger   *slog.Logger
}

// NewDefaultEngine creates engine with default thresholds and taxonomy
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultConfig(), scene.DefaultTaxonomy())
}

// NewEngine creates new instance of Engine
func NewEngine(cfg Config, taxonomy scene.Taxonomy) *Engine {
	return &Engine{
		cfg:      cfg,
		taxonomy: taxonomy,
		logger:   slog.Default(),
	}
}

// SetLogger replaces engine's logger
func (engine *Engine) SetLogger(logger *slog.Logger) {
	engine.logger = logger
}

// runState is per-run mutable state. Engine itself stays reusable.
type runState struct {
	events     []Event
	activities []FrameActivity
	ppeFrames  []PPEFrame
	trail      []TrailPoint

	prevHands   scene.HandState
	prevNear    map[scene.ObjectID]struct{}
	idleCounter int
	// labels of every object seen so far, putdown events refer to objects not present in the current frame
	labels map[scene.ObjectID]string
}

// Run derives events from frames. Optional smoothed trajectory (exactly one position per frame) replaces raw camera positions,
// a trajectory of any other length is ignored.
// Nil frames means scene graphs were never built.
func (engine *Engine) Run(frames []scene.Frame, smoothed []scene.Vec3) (*Result, error) {
	if frames == nil {
		return nil, scene.ErrNoFrames
	}
	if smoothed != nil && len(smoothed) != len(frames) {
		engine.logger.Warn("smoothed trajectory ignored, length differs from frames",
			slog.Int("smoothed", len(smoothed)),
			slog.Int("frames", len(frames)),
		)
		smoothed = nil
	}
	state := &runState{
		events:     make([]Event, 0),
		activities: make([]FrameActivity, 0, len(frames)),
		ppeFrames:  make([]PPEFrame, 0, len(frames)),
		trail:      make([]TrailPoint, 0, len(frames)),
		prevHands:  scene.HandState{},
		prevNear:   make(map[scene.ObjectID]struct{}),
		labels:     make(map[scene.ObjectID]string),
	}
	for i := range frames {
		engine.processFrame(state, &frames[i], i, smoothed)
	}

	frameDt := estimateFrameDt(frames, engine.cfg.DefaultFrameDt)
	if smoothed == nil && engine.cfg.Trail.Smooth && len(state.trail) > 1 {
		if err := engine.smoothTrail(state.trail, frameDt); err != nil {
			return nil, errors.Wrap(err, "Can't smooth camera trail")
		}
	}

	state.events = append(state.events, engine.detectIdlePeriods(state.activities, frameDt)...)
	state.events = append(state.events, engine.detectRelocations(state.trail)...)
	sort.SliceStable(state.events, func(i, j int) bool {
		return state.events[i].Timestamp < state.events[j].Timestamp
	})

	timeline := engine.buildTimeline(state.activities)
	stats := computeStats(frames, state.activities, state.events, state.trail)
	result := &Result{
		Events:     state.events,
		Timeline:   timeline,
		Activities: state.activities,
		Stats:      stats,
		PPE:        engine.summarizePPE(state.ppeFrames),
	}
	result.Performance = engine.analyzePerformance(result, state.trail)

	engine.logger.Info("events extracted",
		slog.Int("frames", len(frames)),
		slog.Int("events", len(result.Events)),
		slog.Float64("production_pct", stats.ProductionPct),
		slog.Float64("distance_m", stats.DistanceTraveledM),
		slog.Float64("overall_score", result.Performance.Efficiency.OverallScore),
	)
	return result, nil
}

func (engine *Engine) processFrame(state *runState, frame *scene.Frame, position int, smoothed []scene.Vec3) {
	categories := make(map[scene.ObjectID]scene.Category, len(frame.Objects))
	for _, obj := range frame.Objects {
		categories[obj.ID] = engine.taxonomy.Classify(obj.Label)
		state.labels[obj.ID] = obj.Label
	}

	state.ppeFrames = append(state.ppeFrames, engine.framePPE(frame, categories))
	engine.detectHandEvents(state, frame)
	currentNear := engine.detectProximityEvents(state, frame, categories)

	interaction := frame.HandState.Holding() || len(currentNear) > 0
	if !interaction {
		for _, rel := range frame.Relations {
			if rel.Kind != scene.RelationVeryNear && rel.Kind != scene.RelationContacting {
				continue
			}
			if categories[rel.Source] == scene.CategoryWorker || categories[rel.Target] == scene.CategoryWorker {
				interaction = true
				break
			}
		}
	}
	var activity Activity
	if interaction {
		state.idleCounter = 0
		if len(currentNear) > 0 {
			activity = ActivityProduction
		} else {
			activity = ActivityPrep
		}
	} else {
		state.idleCounter++
		if state.idleCounter > engine.cfg.IdleDowntimeFrames {
			activity = ActivityDowntime
		} else {
			activity = ActivityStandby
		}
	}
	state.activities = append(state.activities, FrameActivity{
		FrameIndex:   frame.FrameIndex,
		Timestamp:    frame.Timestamp,
		TimestampStr: frame.TimestampStr,
		Activity:     activity,
	})

	var cameraPos scene.Vec3
	var hasPos bool
	if position < len(smoothed) {
		cameraPos, hasPos = smoothed[position], true
	} else {
		cameraPos, hasPos = frame.CameraPosition()
	}
	if hasPos {
		state.trail = append(state.trail, TrailPoint{
			FrameIndex:   frame.FrameIndex,
			Timestamp:    frame.Timestamp,
			TimestampStr: frame.TimestampStr,
			Position:     cameraPos,
		})
	}
}

func (engine *Engine) newEvent(evtType EventType, frame *scene.Frame, description string) Event {
	return Event{
		Type:         evtType,
		FrameIndex:   frame.FrameIndex,
		Timestamp:    frame.Timestamp,
		TimestampStr: frame.TimestampStr,
		Description:  description,
	}
}

func (engine *Engine) detectHandEvents(state *runState, frame *scene.Frame) {
	for _, hand := range frame.HandState.Hands() {
		held := frame.HandState[hand]
		prev, ok := state.prevHands[hand]
		if !ok {
			prev = scene.HandFree
		}
		switch {
		case held != scene.HandFree && prev == scene.HandFree:
			label := state.labels[held]
			evt := engine.newEvent(EventToolPickup, frame, fmt.Sprintf("Picked up %s", label))
			evt.Hand, evt.Object, evt.ObjectLabel = hand, held, label
			state.events = append(state.events, evt)
		case held == scene.HandFree && prev != scene.HandFree:
			label := state.labels[prev]
			evt := engine.newEvent(EventToolPutdown, frame, fmt.Sprintf("Put down %s", label))
			evt.Hand, evt.Object, evt.ObjectLabel = hand, prev, label
			state.events = append(state.events, evt)
		}
	}
	next := make(scene.HandState, len(frame.HandState))
	for hand, held := range frame.HandState {
		next[hand] = held
	}
	state.prevHands = next
}

// detectProximityEvents emits tool_proximity and block_interaction events and returns blocks currently near a worker (in relation order)
func (engine *Engine) detectProximityEvents(state *runState, frame *scene.Frame, categories map[scene.ObjectID]scene.Category) []scene.ObjectID {
	currentNear := make([]scene.ObjectID, 0)
	nearSet := make(map[scene.ObjectID]struct{})
	for _, rel := range frame.Relations {
		if rel.Kind != scene.RelationVeryNear && rel.Kind != scene.RelationNear {
			continue
		}
		srcCat, tgtCat := categories[rel.Source], categories[rel.Target]

		var block scene.ObjectID
		if srcCat == scene.CategoryWorker && tgtCat == scene.CategoryBlock {
			block = rel.Target
		} else if srcCat == scene.CategoryBlock && tgtCat == scene.CategoryWorker {
			block = rel.Source
		}
		if block != "" {
			if _, ok := nearSet[block]; !ok {
				nearSet[block] = struct{}{}
				currentNear = append(currentNear, block)
			}
		}

		var worker, tool scene.ObjectID
		if srcCat == scene.CategoryWorker && tgtCat == scene.CategoryTool {
			worker, tool = rel.Source, rel.Target
		} else if srcCat == scene.CategoryTool && tgtCat == scene.CategoryWorker {
			worker, tool = rel.Target, rel.Source
		}
		if tool != "" && rel.DistanceM != nil {
			dist := *rel.DistanceM
			if dist > 0 && dist < engine.cfg.ToolProximity {
				evt := engine.newEvent(EventToolProximity, frame, fmt.Sprintf("Worker near %s (%.2fm)", state.labels[tool], dist))
				evt.Worker, evt.Tool, evt.DistanceM = worker, tool, dist
				state.events = append(state.events, evt)
			}
		}
	}
	for _, block := range currentNear {
		if _, ok := state.prevNear[block]; ok {
			continue
		}
		label := state.labels[block]
		evt := engine.newEvent(EventBlockInteraction, frame, fmt.Sprintf("Interacting with %s", label))
		evt.Block, evt.BlockLabel = block, label
		state.events = append(state.events, evt)
	}
	state.prevNear = nearSet
	return currentNear
}

func (engine *Engine) framePPE(frame *scene.Frame, categories map[scene.ObjectID]scene.Category) PPEFrame {
	ppe := PPEFrame{
		FrameIndex: frame.FrameIndex,
		Timestamp:  frame.Timestamp,
		Items:      make([]string, 0),
	}
	seen := make(map[string]struct{})
	for _, obj := range frame.Objects {
		if categories[obj.ID] != scene.CategoryPPE {
			continue
		}
		lowered := strings.ToLower(obj.Label)
		if _, ok := seen[lowered]; ok {
			continue
		}
		seen[lowered] = struct{}{}
		ppe.Items = append(ppe.Items, lowered)
		cfg := engine.cfg.PPE
		if matchesAny(lowered, cfg.VestKeywords, nil) {
			ppe.Vest = true
		}
		if matchesAny(lowered, cfg.HelmetKeywords, cfg.HelmetLabels) {
			ppe.Helmet = true
		}
		if matchesAny(lowered, cfg.GloveKeywords, cfg.GloveLabels) {
			ppe.Gloves = true
		}
	}
	sort.Strings(ppe.Items)
	return ppe
}

func matchesAny(lowered string, keywords []string, labels []string) bool {
	for _, label := range labels {
		if lowered == strings.ToLower(label) {
			return true
		}
	}
	for _, keyword := range keywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func (engine *Engine) smoothTrail(trail []TrailPoint, frameDt float64) error {
	raw := make([]scene.Vec3, len(trail))
	for i := range trail {
		raw[i] = trail[i].Position
	}
	filtered, err := SmoothTrajectory(raw, frameDt, engine.cfg.Trail.ProcessNoise, engine.cfg.Trail.MeasurementNoise)
	if err != nil {
		return err
	}
	for i := range trail {
		trail[i].Position = filtered[i]
	}
	return nil
}

// estimateFrameDt returns median interval between the first frames
func estimateFrameDt(frames []scene.Frame, fallback float64) float64 {
	diffs := make([]float64, 0, 10)
	for i := 1; i < len(frames) && i <= 10; i++ {
		if dt := frames[i].Timestamp - frames[i-1].Timestamp; dt > 0 {
			diffs = append(diffs, dt)
		}
	}
	if len(diffs) == 0 {
		return fallback
	}
	return scene.Median(diffs)
}
