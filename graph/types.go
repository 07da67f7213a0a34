package graph

import (
	"fmt"
	"strings"

	"github.com/LdDl/scene-graph-go/scene"
)

// NodeKind is type of graph node
type NodeKind uint16

const (
	NodeFrame = NodeKind(iota + 1)
	NodeObject
	NodeObservation
)

func (kind NodeKind) String() string {
	switch kind {
	case NodeFrame:
		return "frame"
	case NodeObject:
		return "tracked_object"
	case NodeObservation:
		return "observation"
	default:
		return "unknown"
	}
}

// Relation is edge label
type Relation string

const (
	RelationNext       = Relation("NEXT")
	RelationObservedAs = Relation("OBSERVED_AS")
	RelationInFrame    = Relation("IN_FRAME")
	RelationHolds      = Relation("HOLDS")
)

// SpatialRelation converts scene relation kind to edge label
func SpatialRelation(kind scene.RelationKind) Relation {
	return Relation(strings.ToUpper(string(kind)))
}

// IsStructural reports whether relation links different node kinds (time, ownership, containment)
func (rel Relation) IsStructural() bool {
	return rel == RelationNext || rel == RelationObservedAs || rel == RelationInFrame
}

// IsSalient reports whether relation counts towards frame interest
func (rel Relation) IsSalient() bool {
	switch rel {
	case SpatialRelation(scene.RelationVeryNear), SpatialRelation(scene.RelationNear), SpatialRelation(scene.RelationContacting), RelationHolds:
		return true
	default:
		return false
	}
}

// NodeRef is typed reference into one of graph arenas
type NodeRef struct {
	Kind  NodeKind
	Index int
}

// FrameNode is one input frame
type FrameNode struct {
	FrameIndex     int
	Timestamp      float64
	TimestampStr   string
	CameraPosition *scene.Vec3
	NumObjects     int
	// arena indices of observations made in this frame
	Observations []int
}

// ObjectNode is persistent tracked object
type ObjectNode struct {
	ID         scene.ObjectID
	Label      string
	FirstSeen  float64
	LastSeen   float64
	FirstFrame int
	LastFrame  int
	// arena indices of observations, in insertion (time) order
	Observations []int
}

// ObservationNode is one frame's measurements of a tracked object
type ObservationNode struct {
	// back-references
	Object int
	Frame  int

	ObjectID   scene.ObjectID
	Label      string
	DepthM     float64
	Position   scene.Vec3
	BBox       [4]float64
	Region     string
	FrameIndex int
	Timestamp  float64
}

// Edge is directed labelled edge
type Edge struct {
	From      NodeRef
	To        NodeRef
	Relation  Relation
	DistanceM *float64
	// seconds elapsed, NEXT edges only
	Dt float64
}

// Stats is summary of graph size
type Stats struct {
	TotalNodes int            `json:"total_nodes"`
	TotalEdges int            `json:"total_edges"`
	NodeTypes  map[string]int `json:"node_types"`
	EdgeTypes  map[string]int `json:"edge_types"`
}

func frameNodeID(frameIndex int) string {
	return fmt.Sprintf("frame_%d", frameIndex)
}

func observationNodeID(objectID scene.ObjectID, frameIndex int) string {
	return fmt.Sprintf("obs_%s_f%d", objectID, frameIndex)
}
