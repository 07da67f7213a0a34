package events

import (
	"strings"
	"testing"

	"github.com/LdDl/scene-graph-go/scene"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameStep = 0.5

func object(label string, trackID int) scene.SpatialObject {
	return scene.SpatialObject{
		ID:      scene.NewObjectID(label, trackID),
		TrackID: trackID,
		Label:   label,
		BBox:    [4]float64{0, 0, 10, 10},
	}
}

func relation(source scene.ObjectID, kind scene.RelationKind, target scene.ObjectID, distance float64) scene.SpatialRelation {
	return scene.SpatialRelation{Source: source, Kind: kind, Target: target, DistanceM: &distance}
}

func frameAt(i int, objects []scene.SpatialObject, relations []scene.SpatialRelation, hands scene.HandState) scene.Frame {
	ts := float64(i) * frameStep
	if hands == nil {
		hands = scene.HandState{}
	}
	if relations == nil {
		relations = []scene.SpatialRelation{}
	}
	return scene.Frame{
		FrameIndex:    i,
		OriginalFrame: i,
		Timestamp:     ts,
		TimestampStr:  scene.FormatTimestamp(ts),
		NumObjects:    len(objects),
		Objects:       objects,
		Relations:     relations,
		HandState:     hands,
	}
}

func eventsOf(result *Result, evtType EventType) []Event {
	out := make([]Event, 0)
	for _, evt := range result.Events {
		if evt.Type == evtType {
			out = append(out, evt)
		}
	}
	return out
}

func TestRunNilFrames(t *testing.T) {
	_, err := NewDefaultEngine().Run(nil, nil)
	assert.ErrorIs(t, err, scene.ErrNoFrames)
}

func TestRunEmptyFrames(t *testing.T) {
	result, err := NewDefaultEngine().Run([]scene.Frame{}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Events)
	assert.Empty(t, result.Timeline)
	assert.Zero(t, result.Stats.TotalFrames)
	assert.Zero(t, result.Stats.TotalTimeSec)
	assert.Zero(t, result.PPE.VestVisiblePct)
}

func TestRunToolPickupOnce(t *testing.T) {
	hand := object("hand", 1)
	trowel := object("trowel", 2)
	objects := []scene.SpatialObject{hand, trowel}
	frames := []scene.Frame{
		frameAt(0, objects, nil, scene.HandState{hand.ID: scene.HandFree}),
		frameAt(1, objects, nil, scene.HandState{hand.ID: trowel.ID}),
		frameAt(2, objects, nil, scene.HandState{hand.ID: trowel.ID}),
	}
	result, err := NewDefaultEngine().Run(frames, nil)
	require.NoError(t, err)

	pickups := eventsOf(result, EventToolPickup)
	require.Len(t, pickups, 1)
	assert.Equal(t, 1, pickups[0].FrameIndex)
	assert.Equal(t, hand.ID, pickups[0].Hand)
	assert.Equal(t, trowel.ID, pickups[0].Object)
	assert.Equal(t, "trowel", pickups[0].ObjectLabel)
	assert.Equal(t, 1, result.Stats.ToolPickups)
	assert.Equal(t, 1, result.Stats.UniqueObjectsInteracted)

	assert.Equal(t, ActivityStandby, result.Activities[0].Activity)
	assert.Equal(t, ActivityPrep, result.Activities[1].Activity)
	assert.Equal(t, ActivityPrep, result.Activities[2].Activity)

	digest := result.Digest(50)
	assert.Contains(t, digest, "=== KEY EVENTS (1) ===")
	assert.Contains(t, digest, "Picked up trowel")
}

func TestRunToolPickupNeedsFreeHandBetween(t *testing.T) {
	hand := object("hand", 1)
	trowel := object("trowel", 2)
	objects := []scene.SpatialObject{hand, trowel}
	frames := []scene.Frame{
		frameAt(0, objects, nil, scene.HandState{hand.ID: trowel.ID}),
		frameAt(1, objects, nil, scene.HandState{hand.ID: trowel.ID}),
		frameAt(2, objects, nil, scene.HandState{hand.ID: scene.HandFree}),
		frameAt(3, objects, nil, scene.HandState{hand.ID: trowel.ID}),
	}
	result, err := NewDefaultEngine().Run(frames, nil)
	require.NoError(t, err)

	pickups := eventsOf(result, EventToolPickup)
	require.Len(t, pickups, 2)
	assert.Equal(t, 0, pickups[0].FrameIndex)
	assert.Equal(t, 3, pickups[1].FrameIndex)
	putdowns := eventsOf(result, EventToolPutdown)
	require.Len(t, putdowns, 1)
	assert.Equal(t, 2, putdowns[0].FrameIndex)
	assert.Equal(t, "trowel", putdowns[0].ObjectLabel)
}

func TestRunHandEventsFromBuiltFrames(t *testing.T) {
	hand := scene.Detection{TrackID: 1, Label: "hand", BBox: [4]float64{100, 100, 140, 140}}
	held := scene.Detection{TrackID: 2, Label: "trowel", BBox: [4]float64{110, 110, 150, 150}}
	aside := scene.Detection{TrackID: 2, Label: "trowel", BBox: [4]float64{400, 400, 440, 440}}
	// hand at 2m, trowel 0.3m from it while held and 2m away when put aside
	points := []scene.Correspondence{
		{Pixel: [2]float64{105, 105}, Point: scene.Vec3{0, 0, 2}},
		{Pixel: [2]float64{145, 145}, Point: scene.Vec3{0.3, 0, 2}},
		{Pixel: [2]float64{420, 420}, Point: scene.Vec3{2, 0, 2}},
	}
	recon := &scene.Reconstruction{
		Cameras: map[string]scene.Camera{},
		Points:  map[string][]scene.Correspondence{},
	}
	for i := 0; i < 4; i++ {
		name := scene.NewDefaultBuilder().FrameName(i)
		recon.Cameras[name] = scene.Camera{Center: &scene.Vec3{}}
		recon.Points[name] = points
	}
	in := scene.Input{
		Detections: [][]scene.Detection{
			{hand, held},
			{hand, held},
			{hand, aside},
			{hand, held},
		},
		Reconstruction: recon,
		Timestamps:     []float64{0, 0.5, 1.0, 1.5},
		ImageWidth:     640,
		ImageHeight:    480,
	}
	frames, err := scene.NewDefaultBuilder().Build(in)
	require.NoError(t, err)
	require.Len(t, frames, 4)
	handID := scene.NewObjectID("hand", 1)
	trowelID := scene.NewObjectID("trowel", 2)
	assert.Equal(t, trowelID, frames[0].HandState[handID])
	assert.Equal(t, scene.HandFree, frames[2].HandState[handID])

	result, err := NewDefaultEngine().Run(frames, nil)
	require.NoError(t, err)
	pickups := eventsOf(result, EventToolPickup)
	require.Len(t, pickups, 2)
	assert.Equal(t, 0, pickups[0].FrameIndex)
	assert.Equal(t, 3, pickups[1].FrameIndex)
	assert.Equal(t, trowelID, pickups[1].Object)
	require.Len(t, eventsOf(result, EventToolPutdown), 1)
	assert.Equal(t, 2, result.Stats.ToolPickups)
}

func TestRunToolPutdownResolvesLabel(t *testing.T) {
	hand := object("hand", 1)
	trowel := object("trowel", 2)
	frames := []scene.Frame{
		frameAt(0, []scene.SpatialObject{hand, trowel}, nil, scene.HandState{hand.ID: trowel.ID}),
		frameAt(1, []scene.SpatialObject{hand}, nil, scene.HandState{hand.ID: scene.HandFree}),
	}
	result, err := NewDefaultEngine().Run(frames, nil)
	require.NoError(t, err)
	putdowns := eventsOf(result, EventToolPutdown)
	require.Len(t, putdowns, 1)
	assert.Equal(t, trowel.ID, putdowns[0].Object)
	assert.Equal(t, "trowel", putdowns[0].ObjectLabel)
	assert.Len(t, eventsOf(result, EventToolPickup), 1)
}

func TestRunIdlePeriod(t *testing.T) {
	frames := make([]scene.Frame, 20)
	for i := range frames {
		frames[i] = frameAt(i, []scene.SpatialObject{}, nil, nil)
	}
	result, err := NewDefaultEngine().Run(frames, nil)
	require.NoError(t, err)

	idle := eventsOf(result, EventIdlePeriod)
	require.Len(t, idle, 1)
	assert.Equal(t, 20, idle[0].DurationFrames)
	assert.Equal(t, 0, idle[0].FrameIndex)
	assert.Equal(t, 19, idle[0].EndFrame)

	require.Len(t, result.Timeline, 2)
	assert.Equal(t, ActivityStandby, result.Timeline[0].Activity)
	assert.Equal(t, 5, result.Timeline[0].NumFrames)
	assert.Equal(t, ActivityDowntime, result.Timeline[1].Activity)
	assert.Equal(t, 15, result.Timeline[1].NumFrames)

	total := 0.0
	for _, seg := range result.Timeline {
		total += seg.DurationSec
	}
	assert.InDelta(t, result.Stats.TotalTimeSec, total, 1e-6)
	assert.InDelta(t, 9.5, result.Stats.TotalTimeSec, 1e-9)
	assert.InDelta(t, 25.0, result.Stats.StandbyPct, 1e-9)
	assert.InDelta(t, 75.0, result.Stats.DowntimePct, 1e-9)

	found := false
	for _, suggestion := range result.Performance.Suggestions {
		if suggestion.Category == "downtime" && suggestion.Severity == SeverityHigh {
			found = true
		}
	}
	assert.True(t, found, "expected high severity downtime suggestion, got %v", result.Performance.Suggestions)
}

func TestRunShortIdleIsNotReported(t *testing.T) {
	frames := make([]scene.Frame, 7)
	for i := range frames {
		frames[i] = frameAt(i, []scene.SpatialObject{}, nil, nil)
	}
	result, err := NewDefaultEngine().Run(frames, nil)
	require.NoError(t, err)
	assert.Empty(t, eventsOf(result, EventIdlePeriod))
}

func TestRunRelocation(t *testing.T) {
	frames := make([]scene.Frame, 16)
	for i := range frames {
		frames[i] = frameAt(i, []scene.SpatialObject{}, nil, nil)
		frames[i].Camera = &scene.CameraPose{Position: scene.Vec3{float64(i) * 0.2, 0, 0}}
	}
	result, err := NewDefaultEngine().Run(frames, nil)
	require.NoError(t, err)

	relocations := eventsOf(result, EventRelocation)
	require.Len(t, relocations, 1)
	assert.InDelta(t, 3.0, relocations[0].DistanceM, 1e-6)
	assert.Equal(t, 0, relocations[0].FrameIndex)
	assert.Equal(t, 15, relocations[0].EndFrame)
	require.NotNil(t, relocations[0].ToPosition)
	assert.InDelta(t, 3.0, relocations[0].ToPosition[0], 1e-6)
	assert.InDelta(t, 3.0, result.Stats.DistanceTraveledM, 1e-6)
	assert.Equal(t, 1, result.Stats.Relocations)
}

func TestRunSmoothedTrajectoryOverridesCamera(t *testing.T) {
	frames := make([]scene.Frame, 16)
	smoothed := make([]scene.Vec3, 16)
	for i := range frames {
		frames[i] = frameAt(i, []scene.SpatialObject{}, nil, nil)
		frames[i].Camera = &scene.CameraPose{Position: scene.Vec3{float64(i) * 0.2, 0, 0}}
	}
	result, err := NewDefaultEngine().Run(frames, smoothed)
	require.NoError(t, err)
	assert.Empty(t, eventsOf(result, EventRelocation))
	assert.Zero(t, result.Stats.DistanceTraveledM)
}

func TestRunSmoothedTrajectoryOfWrongLengthIgnored(t *testing.T) {
	frames := make([]scene.Frame, 16)
	for i := range frames {
		frames[i] = frameAt(i, []scene.SpatialObject{}, nil, nil)
		frames[i].Camera = &scene.CameraPose{Position: scene.Vec3{float64(i) * 0.2, 0, 0}}
	}
	// covers only the first half, raw camera positions are used for every frame
	result, err := NewDefaultEngine().Run(frames, make([]scene.Vec3, 8))
	require.NoError(t, err)
	require.Len(t, eventsOf(result, EventRelocation), 1)
	assert.InDelta(t, 3.0, result.Stats.DistanceTraveledM, 1e-6)
}

func TestEstimateFrameDt(t *testing.T) {
	frames := []scene.Frame{
		frameAt(0, nil, nil, nil),
		frameAt(1, nil, nil, nil),
		frameAt(2, nil, nil, nil),
	}
	frames[1].Timestamp = 0.5
	frames[2].Timestamp = 1.5
	// even number of intervals averages the middle pair
	assert.InDelta(t, 0.75, estimateFrameDt(frames, 0.67), 1e-9)
	frames[2].Timestamp = 1.0
	assert.InDelta(t, 0.5, estimateFrameDt(frames, 0.67), 1e-9)
	assert.Equal(t, 0.67, estimateFrameDt(frames[:1], 0.67))
}

func TestRunBlockInteractionAndProduction(t *testing.T) {
	worker := object("worker", 1)
	block := object("concrete block", 2)
	objects := []scene.SpatialObject{worker, block}
	near := []scene.SpatialRelation{relation(worker.ID, scene.RelationNear, block.ID, 1.5)}
	far := []scene.SpatialRelation{relation(worker.ID, scene.RelationFar, block.ID, 4.0)}
	frames := []scene.Frame{
		frameAt(0, objects, near, nil),
		frameAt(1, objects, near, nil),
		frameAt(2, objects, far, nil),
		frameAt(3, objects, near, nil),
	}
	result, err := NewDefaultEngine().Run(frames, nil)
	require.NoError(t, err)

	interactions := eventsOf(result, EventBlockInteraction)
	require.Len(t, interactions, 2)
	assert.Equal(t, 0, interactions[0].FrameIndex)
	assert.Equal(t, 3, interactions[1].FrameIndex)
	assert.Equal(t, "concrete block", interactions[1].BlockLabel)

	expected := []Activity{ActivityProduction, ActivityProduction, ActivityStandby, ActivityProduction}
	for i, act := range result.Activities {
		assert.Equal(t, expected[i], act.Activity, "frame %d", i)
	}
	assert.InDelta(t, 75.0, result.Stats.ProductionPct, 1e-9)
}

func TestRunToolProximity(t *testing.T) {
	worker := object("worker", 1)
	trowel := object("trowel", 2)
	objects := []scene.SpatialObject{worker, trowel}
	frames := []scene.Frame{
		frameAt(0, objects, []scene.SpatialRelation{relation(trowel.ID, scene.RelationVeryNear, worker.ID, 0.3)}, nil),
		frameAt(1, objects, []scene.SpatialRelation{relation(worker.ID, scene.RelationVeryNear, trowel.ID, 0)}, nil),
		frameAt(2, objects, []scene.SpatialRelation{relation(worker.ID, scene.RelationVeryNear, trowel.ID, 0.7)}, nil),
	}
	result, err := NewDefaultEngine().Run(frames, nil)
	require.NoError(t, err)
	proximity := eventsOf(result, EventToolProximity)
	require.Len(t, proximity, 1)
	assert.Equal(t, worker.ID, proximity[0].Worker)
	assert.Equal(t, trowel.ID, proximity[0].Tool)
	assert.InDelta(t, 0.3, proximity[0].DistanceM, 1e-9)
	// very_near to a worker counts as interaction
	for _, act := range result.Activities {
		assert.Equal(t, ActivityPrep, act.Activity)
	}
	assert.NotContains(t, result.Digest(0), "Worker near")
}

func TestRunPerformanceScores(t *testing.T) {
	worker := object("worker", 1)
	block := object("brick", 2)
	objects := []scene.SpatialObject{worker, block}
	near := []scene.SpatialRelation{relation(block.ID, scene.RelationVeryNear, worker.ID, 0.8)}
	frames := make([]scene.Frame, 10)
	for i := range frames {
		frames[i] = frameAt(i, objects, near, nil)
	}
	result, err := NewDefaultEngine().Run(frames, nil)
	require.NoError(t, err)

	perf := result.Performance
	assert.Equal(t, 1, perf.Quantity.BlockInteractions)
	assert.InDelta(t, 100.0, perf.Efficiency.ProductionScore, 1e-9)
	assert.InDelta(t, 100.0, perf.Efficiency.MovementScore, 1e-9)
	assert.InDelta(t, 100.0, perf.Efficiency.ContinuityScore, 1e-9)
	assert.InDelta(t, 100.0, perf.Efficiency.OverallScore, 1e-9)
	assert.Equal(t, 1, perf.Continuity.ProductionRuns)
	assert.Equal(t, 10, perf.Continuity.LongestRunFrames)
	require.Len(t, perf.Suggestions, 1)
	assert.Equal(t, SeverityLow, perf.Suggestions[0].Severity)
	assert.True(t, strings.Contains(perf.Suggestions[0].Message, "efficiently"))
}

func TestRunPPEReport(t *testing.T) {
	vest := object("safety vest", 1)
	hat := object("hard hat", 2)
	frames := []scene.Frame{
		frameAt(0, []scene.SpatialObject{vest, hat}, nil, nil),
		frameAt(1, []scene.SpatialObject{}, nil, nil),
		frameAt(2, []scene.SpatialObject{}, nil, nil),
	}
	result, err := NewDefaultEngine().Run(frames, nil)
	require.NoError(t, err)

	ppe := result.PPE
	require.Len(t, ppe.Frames, 3)
	assert.True(t, ppe.Frames[0].Vest)
	assert.True(t, ppe.Frames[0].Helmet)
	assert.False(t, ppe.Frames[0].Gloves)
	assert.Equal(t, []string{"hard hat", "safety vest"}, ppe.AllItems)
	assert.InDelta(t, 33.3, ppe.VestVisiblePct, 1e-9)
	require.Len(t, ppe.Concerns, 1)
	assert.Contains(t, ppe.Concerns[0], "vest")
}

func TestSmoothTrajectory(t *testing.T) {
	still := []scene.Vec3{{1, 2, 3}, {1, 2.5, 3}, {1, 3, 3}}
	smoothed, err := SmoothTrajectory(still, 0.5, 0.5, 0.1)
	require.NoError(t, err)
	require.Len(t, smoothed, len(still))
	for i := range still {
		assert.InDelta(t, still[i][0], smoothed[i][0], 1e-9)
		assert.Equal(t, still[i][1], smoothed[i][1])
		assert.InDelta(t, still[i][2], smoothed[i][2], 1e-9)
	}

	empty, err := SmoothTrajectory(nil, 0.5, 0.5, 0.1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
