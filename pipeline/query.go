package pipeline

import (
	"strings"

	"github.com/LdDl/scene-graph-go/memory"

	"github.com/pkg/errors"
)

// ErrInvalidQuery is returned for memory queries violating their preconditions
var ErrInvalidQuery = errors.New("invalid memory query")

// QueryType is kind of memory query
type QueryType string

const (
	QueryLabel      = QueryType("label")
	QueryDepthRange = QueryType("depth_range")
	QueryProximity  = QueryType("proximity")
)

// Query defaults
const (
	DefaultMinDepth    = 0.0
	DefaultMaxDepth    = 100.0
	DefaultMaxDistance = 2.0
)

// Query is structured memory query
type Query struct {
	Type        QueryType `json:"type"`
	Label       string    `json:"label,omitempty"`
	LabelA      string    `json:"label_a,omitempty"`
	LabelB      string    `json:"label_b,omitempty"`
	MinDepth    *float64  `json:"min_depth,omitempty"`
	MaxDepth    *float64  `json:"max_depth,omitempty"`
	MaxDistance *float64  `json:"max_distance,omitempty"`
}

// Validate checks query preconditions
func (q *Query) Validate() error {
	switch q.Type {
	case QueryLabel:
		if strings.TrimSpace(q.Label) == "" {
			return errors.Wrap(ErrInvalidQuery, "label query requires label")
		}
	case QueryDepthRange:
		minDepth, maxDepth := q.depthRange()
		if minDepth < 0 || maxDepth < minDepth {
			return errors.Wrapf(ErrInvalidQuery, "depth range [%g, %g]", minDepth, maxDepth)
		}
	case QueryProximity:
		if strings.TrimSpace(q.LabelA) == "" || strings.TrimSpace(q.LabelB) == "" {
			return errors.Wrap(ErrInvalidQuery, "proximity query requires label_a and label_b")
		}
		if q.maxDistance() <= 0 {
			return errors.Wrapf(ErrInvalidQuery, "max distance %g", q.maxDistance())
		}
	default:
		return errors.Wrapf(ErrInvalidQuery, "unknown type '%s'", q.Type)
	}
	return nil
}

func (q *Query) depthRange() (float64, float64) {
	minDepth, maxDepth := DefaultMinDepth, DefaultMaxDepth
	if q.MinDepth != nil {
		minDepth = *q.MinDepth
	}
	if q.MaxDepth != nil {
		maxDepth = *q.MaxDepth
	}
	return minDepth, maxDepth
}

func (q *Query) maxDistance() float64 {
	if q.MaxDistance != nil {
		return *q.MaxDistance
	}
	return DefaultMaxDistance
}

// QueryResult is memory query answer
type QueryResult struct {
	Query   Query                   `json:"query"`
	Count   int                     `json:"count"`
	Entries []memory.Entry          `json:"entries,omitempty"`
	Matches []memory.ProximityMatch `json:"matches,omitempty"`
}

// ExecuteQuery validates query and runs it against store
func ExecuteQuery(store *memory.Store, q Query) (*QueryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	result := &QueryResult{Query: q}
	var err error
	switch q.Type {
	case QueryLabel:
		result.Entries, err = store.QueryLabel(q.Label)
		result.Count = len(result.Entries)
	case QueryDepthRange:
		minDepth, maxDepth := q.depthRange()
		result.Entries, err = store.QueryDepthRange(minDepth, maxDepth, q.Label)
		result.Count = len(result.Entries)
	case QueryProximity:
		result.Matches, err = store.QueryProximity(q.LabelA, q.LabelB, q.maxDistance())
		result.Count = len(result.Matches)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Can't execute %s query", q.Type)
	}
	return result, nil
}
