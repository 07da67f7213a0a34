package memory

import (
	"math"
	"testing"

	"github.com/LdDl/scene-graph-go/scene"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func placedObject(label string, trackID int, position scene.Vec3) scene.SpatialObject {
	return scene.SpatialObject{
		ID:         scene.NewObjectID(label, trackID),
		TrackID:    trackID,
		Label:      label,
		Confidence: 0.9,
		BBox:       [4]float64{0, 0, 10, 10},
		DepthM:     position.DistanceTo(scene.Vec3{}),
		Position:   position,
	}
}

func testFrames() []scene.Frame {
	camera := &scene.CameraPose{Position: scene.Vec3{0, 0, 0}}
	return []scene.Frame{
		{
			FrameIndex: 0, OriginalFrame: 0, Timestamp: 0, TimestampStr: "00:00.00", Camera: camera,
			Objects: []scene.SpatialObject{
				placedObject("worker", 1, scene.Vec3{0, 0, 2}),
				placedObject("concrete block", 2, scene.Vec3{1, 0, 2}),
			},
		},
		{
			FrameIndex: 1, OriginalFrame: 5, Timestamp: 0.5, TimestampStr: "00:00.50",
			Objects: []scene.SpatialObject{
				placedObject("worker", 1, scene.Vec3{0, 0, 2}),
				placedObject("concrete block", 2, scene.Vec3{3, 0, 2}),
				placedObject("trowel", 3, scene.Vec3{0, 1, 6}),
			},
		},
		{
			FrameIndex: 2, OriginalFrame: 10, Timestamp: 1.0, TimestampStr: "00:01.00",
			Objects: []scene.SpatialObject{
				placedObject("worker", 1, scene.Vec3{0, 0, 8}),
				{ID: scene.NewObjectID("concrete block", 4), TrackID: 4, Label: "concrete block", Confidence: 1.0},
			},
		},
	}
}

func newTestStore(t *testing.T, kind IndexKind) *Store {
	t.Helper()
	store, err := Create(t.TempDir(), Config{Index: kind})
	require.NoError(t, err)
	frames := testFrames()
	for i := range frames {
		frames[i].NumObjects = len(frames[i].Objects)
	}
	entries, err := store.Ingest(frames, "site_a")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	return store
}

func frameIndices(entries []Entry) []int {
	out := make([]int, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.FrameIndex)
	}
	return out
}

func TestStoreSaveAndOpen(t *testing.T) {
	store := newTestStore(t, IndexDense)
	require.NoError(t, store.Save())

	reopened, err := Open(store.Dir(), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.Len())
	stats, err := reopened.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entries)
	assert.Greater(t, stats.SizeKB, 0.0)

	entries, err := reopened.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "site_a", entries[0].Source)
	require.NotNil(t, entries[0].Camera.WorldPosition)
	assert.Nil(t, entries[1].Camera.WorldPosition)
	assert.Equal(t, 1, entries[1].Summary.Labels["trowel"])
	assert.Equal(t, 3, entries[1].Summary.NumObjects)

	matches, err := reopened.SimilarToFrame(testFrames()[1], 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 5, matches[0].Entry.FrameIndex)
	assert.InDelta(t, 0.0, matches[0].Distance, 1e-9)
}

func TestOpenMissingStore(t *testing.T) {
	_, err := Open(t.TempDir(), DefaultConfig())
	require.Error(t, err)
	assert.Equal(t, ErrStoreNotFound, errors.Cause(err))
}

func TestCreateSupersedesPreviousRun(t *testing.T) {
	store := newTestStore(t, IndexFlat)
	again, err := Create(store.Dir(), DefaultConfig())
	require.NoError(t, err)
	entries, err := again.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, again.Len())
}

func TestIngestNilFrames(t *testing.T) {
	store, err := Create(t.TempDir(), DefaultConfig())
	require.NoError(t, err)
	_, err = store.Ingest(nil, "site_a")
	assert.ErrorIs(t, err, scene.ErrNoFrames)
}

func TestIngestFailureKeepsLogAligned(t *testing.T) {
	store := newTestStore(t, IndexFlat)

	bad := make([]scene.Frame, 40)
	for i := range bad {
		bad[i] = scene.Frame{
			FrameIndex: i, OriginalFrame: 200 + i,
			Objects: []scene.SpatialObject{placedObject("worker", 1, scene.Vec3{0, 0, 2})},
		}
	}
	bad[39].Objects[0].DepthM = math.NaN()
	_, err := store.Ingest(bad, "bad")
	require.Error(t, err)
	assert.Equal(t, 3, store.Len())
	entries, err := store.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	crane := scene.Frame{
		FrameIndex: 0, OriginalFrame: 110,
		Objects: []scene.SpatialObject{placedObject("crane", 9, scene.Vec3{5, 0, 9})},
	}
	_, err = store.Ingest([]scene.Frame{crane}, "good")
	require.NoError(t, err)
	assert.Equal(t, 4, store.Len())

	matches, err := store.SimilarToFrame(crane, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 110, matches[0].Entry.FrameIndex)
	assert.Equal(t, "good", matches[0].Entry.Source)
	assert.InDelta(t, 0, matches[0].Distance, 1e-9)
}

func TestQueryLabel(t *testing.T) {
	store := newTestStore(t, IndexFlat)
	entries, err := store.QueryLabel("TROWEL")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, frameIndices(entries))

	entries, err = store.QueryLabel("block")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5, 10}, frameIndices(entries))
}

func TestQueryDepthRange(t *testing.T) {
	store := newTestStore(t, IndexFlat)
	entries, err := store.QueryDepthRange(1.5, 2.5, "worker")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5}, frameIndices(entries))

	// block without geometry in the last frame never matches
	entries, err = store.QueryDepthRange(0, 100, "block")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5}, frameIndices(entries))

	entries, err = store.QueryDepthRange(7, 9, "")
	require.NoError(t, err)
	assert.Equal(t, []int{10}, frameIndices(entries))
}

func TestQueryProximitySymmetric(t *testing.T) {
	store := newTestStore(t, IndexFlat)
	forward, err := store.QueryProximity("worker", "block", 2.0)
	require.NoError(t, err)
	backward, err := store.QueryProximity("block", "WORKER", 2.0)
	require.NoError(t, err)

	require.Len(t, forward, 1)
	require.Len(t, backward, 1)
	assert.Equal(t, 0, forward[0].FrameIndex)
	assert.Equal(t, forward[0].FrameIndex, backward[0].FrameIndex)
	assert.InDelta(t, 1.0, forward[0].DistanceM, 1e-9)
	assert.Equal(t, forward[0].DistanceM, backward[0].DistanceM)

	wide, err := store.QueryProximity("worker", "block", 3.0)
	require.NoError(t, err)
	assert.Len(t, wide, 2)

	// a detection is never paired with itself
	self, err := store.QueryProximity("worker", "worker", 10.0)
	require.NoError(t, err)
	assert.Empty(t, self)
}

func TestEmbed(t *testing.T) {
	objects := []scene.SpatialObject{
		{Label: "worker", Confidence: 1.0, DepthM: 3.0, Position: scene.Vec3{0, 0, 3}},
		{Label: "brick", Confidence: 0.5, DepthM: 12.0, Position: scene.Vec3{0, 0, 12}},
		{Label: "trowel", Confidence: 0.7},
	}
	vec := Embed(objects)
	require.Len(t, vec, EmbedDim)
	assert.InDelta(t, 1.0, floats.Norm(vec, 2), 1e-9)
	for i := 0; i < depthBins; i++ {
		if i == 4 || i == 15 {
			assert.Greater(t, vec[i], 0.0, "bin %d", i)
		} else {
			assert.Zero(t, vec[i], "bin %d", i)
		}
	}
	labelSum := floats.Sum(vec[labelOffset : labelOffset+labelBuckets])
	assert.Greater(t, labelSum, 0.0)
	// mean z is 7.5, std z is 4.5
	assert.InDelta(t, vec[meanOffset+2]/vec[stdOffset+2], 7.5/4.5, 1e-9)

	assert.Equal(t, Embed(objects), vec)
	empty := Embed(nil)
	assert.Zero(t, floats.Norm(empty, 2))
}

func TestIndexImplementationsAgree(t *testing.T) {
	flat, err := NewIndex(IndexFlat, 4)
	require.NoError(t, err)
	dense, err := NewIndex(IndexDense, 4)
	require.NoError(t, err)
	vectors := make([][]float64, 0, 20)
	for i := 0; i < 20; i++ {
		x := float64(i)
		vectors = append(vectors, []float64{math.Sin(x), math.Cos(x), x / 20, math.Sin(2 * x)})
	}
	require.NoError(t, flat.Add(vectors...))
	require.NoError(t, dense.Add(vectors...))
	query := []float64{0.3, -0.2, 0.5, 0.1}
	flatMatches, err := flat.Search(query, 5)
	require.NoError(t, err)
	denseMatches, err := dense.Search(query, 5)
	require.NoError(t, err)
	require.Len(t, flatMatches, 5)
	require.Len(t, denseMatches, 5)
	for i := range flatMatches {
		assert.Equal(t, flatMatches[i].Position, denseMatches[i].Position)
		assert.InDelta(t, flatMatches[i].Distance, denseMatches[i].Distance, 1e-9)
	}

	_, err = flat.Search([]float64{1}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = NewIndex("hnsw", 4)
	assert.ErrorIs(t, err, ErrUnknownIndex)
}

func TestIndexSnapshot(t *testing.T) {
	idx, err := NewIndex(IndexDense, 3)
	require.NoError(t, err)
	require.NoError(t, idx.Add([]float64{1, 2, 3}, []float64{4, 5, 6}))
	path := t.TempDir() + "/index.bin"
	require.NoError(t, SaveIndex(path, idx))
	restored, err := LoadIndex(path)
	require.NoError(t, err)
	assert.Equal(t, IndexDense, restored.Kind())
	assert.Equal(t, idx.Vectors(), restored.Vectors())
}
