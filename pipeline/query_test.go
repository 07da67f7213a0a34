package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float64Ptr(value float64) *float64 {
	return &value
}

func TestQueryValidate(t *testing.T) {
	valid := []Query{
		{Type: QueryLabel, Label: "block"},
		{Type: QueryDepthRange},
		{Type: QueryDepthRange, MinDepth: float64Ptr(1), MaxDepth: float64Ptr(1)},
		{Type: QueryProximity, LabelA: "worker", LabelB: "block"},
	}
	for _, q := range valid {
		assert.NoError(t, q.Validate(), q.Type)
	}

	invalid := []Query{
		{Type: "nearest"},
		{Type: QueryLabel, Label: "  "},
		{Type: QueryDepthRange, MinDepth: float64Ptr(-1)},
		{Type: QueryDepthRange, MinDepth: float64Ptr(5), MaxDepth: float64Ptr(2)},
		{Type: QueryProximity, LabelA: "worker"},
		{Type: QueryProximity, LabelA: "worker", LabelB: "block", MaxDistance: float64Ptr(0)},
	}
	for _, q := range invalid {
		assert.ErrorIs(t, q.Validate(), ErrInvalidQuery, q.Type)
	}
}

func TestExecuteQuery(t *testing.T) {
	runner, _ := newTestRunner(t)
	result, err := runner.Run(context.Background(), "query", testInput())
	require.NoError(t, err)
	store := result.Store

	answer, err := ExecuteQuery(store, Query{Type: QueryLabel, Label: "Concrete"})
	require.NoError(t, err)
	assert.Equal(t, 2, answer.Count)
	assert.Len(t, answer.Entries, 2)

	// block sits ~2.55m from the camera
	answer, err = ExecuteQuery(store, Query{Type: QueryDepthRange, MinDepth: float64Ptr(2.4), MaxDepth: float64Ptr(2.6), Label: "block"})
	require.NoError(t, err)
	assert.Equal(t, 2, answer.Count)

	answer, err = ExecuteQuery(store, Query{Type: QueryDepthRange, MinDepth: float64Ptr(3), Label: "block"})
	require.NoError(t, err)
	assert.Zero(t, answer.Count)

	answer, err = ExecuteQuery(store, Query{Type: QueryProximity, LabelA: "worker", LabelB: "block"})
	require.NoError(t, err)
	require.Equal(t, 2, answer.Count)
	assert.InDelta(t, 0.707, answer.Matches[0].DistanceM, 1e-9)

	answer, err = ExecuteQuery(store, Query{Type: QueryProximity, LabelA: "worker", LabelB: "block", MaxDistance: float64Ptr(0.5)})
	require.NoError(t, err)
	assert.Zero(t, answer.Count)

	_, err = ExecuteQuery(store, Query{Type: QueryLabel})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
