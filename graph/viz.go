package graph

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/LdDl/scene-graph-go/scene"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Color hints for rendering
var (
	nodeColors = map[string]string{
		"frame":           "#3498db",
		"worker":          "#2ecc71",
		"concrete block":  "#e67e22",
		"safety vest":     "#f39c12",
		"hand protection": "#e74c3c",
		"head protection": "#1abc9c",
		"crane":           "#9b59b6",
		"ladder":          "#e74c3c",
		"safety":          "#f1c40f",
	}
	defaultNodeColor = "#95a5a6"

	edgeColors = map[Relation]string{
		SpatialRelation(scene.RelationVeryNear):   "#e74c3c",
		SpatialRelation(scene.RelationNear):       "#f39c12",
		SpatialRelation(scene.RelationFar):        "#3498db",
		SpatialRelation(scene.RelationContacting): "#e67e22",
		SpatialRelation(scene.RelationLeftOf):     "#95a5a6",
		SpatialRelation(scene.RelationRightOf):    "#95a5a6",
		SpatialRelation(scene.RelationAbove):      "#95a5a6",
		SpatialRelation(scene.RelationBelow):      "#95a5a6",
		RelationHolds:                             "#e74c3c",
		RelationNext:                              "#2c3e50",
		RelationInFrame:                           "#7f8c8d",
		RelationObservedAs:                        "#bdc3c7",
	}
	defaultEdgeColor = "#95a5a6"
)

func nodeColor(label string) string {
	if color, ok := nodeColors[strings.ToLower(label)]; ok {
		return color
	}
	return defaultNodeColor
}

func edgeColor(rel Relation) string {
	if color, ok := edgeColors[rel]; ok {
		return color
	}
	return defaultEdgeColor
}

// VizNode is tracked object or frame node of visualization payload
type VizNode struct {
	ID             string      `json:"id"`
	Type           string      `json:"type"`
	Label          string      `json:"label"`
	FirstSeen      float64     `json:"first_seen,omitempty"`
	LastSeen       float64     `json:"last_seen,omitempty"`
	Timestamp      float64     `json:"timestamp,omitempty"`
	CameraPosition *scene.Vec3 `json:"camera_position,omitempty"`
	Color          string      `json:"color"`
}

// VizEdge is aggregated edge, Weight counts underlying edges
type VizEdge struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Relation Relation `json:"relation"`
	Weight   int      `json:"weight"`
	Color    string   `json:"color"`
}

// Visualization is compact payload for force-directed rendering
type Visualization struct {
	Nodes []VizNode `json:"nodes"`
	Edges []VizEdge `json:"edges"`
	Stats *Stats    `json:"stats,omitempty"`
}

// sampleIndices picks k evenly spaced indices out of n (all of them when n <= k)
func sampleIndices(n, k int) []int {
	if k <= 0 || n <= k {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	if k == 1 {
		return []int{0}
	}
	points := floats.Span(make([]float64, k), 0, float64(n-1))
	out := make([]int, k)
	for i, p := range points {
		out[i] = int(p)
	}
	return out
}

// Visualization returns tracked objects and up to maxFrames evenly sampled frames.
// Edges between observations are aggregated into edges between their tracked objects, NEXT edges are kept between sampled frames.
func (g *Graph) Visualization(maxFrames int) Visualization {
	viz := Visualization{
		Nodes: make([]VizNode, 0, len(g.objects)),
		Edges: make([]VizEdge, 0),
	}
	for _, obj := range g.objects {
		viz.Nodes = append(viz.Nodes, VizNode{
			ID:        string(obj.ID),
			Type:      "object",
			Label:     obj.Label,
			FirstSeen: obj.FirstSeen,
			LastSeen:  obj.LastSeen,
			Color:     nodeColor(obj.Label),
		})
	}
	keptFrames := make(map[int]struct{})
	for _, idx := range sampleIndices(len(g.frames), maxFrames) {
		frame := g.frames[idx]
		keptFrames[idx] = struct{}{}
		viz.Nodes = append(viz.Nodes, VizNode{
			ID:             frameNodeID(frame.FrameIndex),
			Type:           "frame",
			Label:          frame.TimestampStr,
			Timestamp:      frame.Timestamp,
			CameraPosition: frame.CameraPosition,
			Color:          nodeColors["frame"],
		})
	}

	type edgeKey struct {
		from, to NodeRef
		rel      Relation
	}
	counts := make(map[edgeKey]int)
	order := make([]edgeKey, 0)
	for _, edge := range g.edges {
		var key edgeKey
		switch {
		case edge.From.Kind == NodeObservation && edge.To.Kind == NodeObservation:
			fromObj := g.observations[edge.From.Index].Object
			toObj := g.observations[edge.To.Index].Object
			if fromObj == toObj {
				continue
			}
			key = edgeKey{from: NodeRef{Kind: NodeObject, Index: fromObj}, to: NodeRef{Kind: NodeObject, Index: toObj}, rel: edge.Relation}
		case edge.Relation == RelationNext:
			_, okFrom := keptFrames[edge.From.Index]
			_, okTo := keptFrames[edge.To.Index]
			if !okFrom || !okTo {
				continue
			}
			key = edgeKey{from: edge.From, to: edge.To, rel: edge.Relation}
		default:
			continue
		}
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}
	for _, key := range order {
		viz.Edges = append(viz.Edges, VizEdge{
			Source:   g.NodeID(key.from),
			Target:   g.NodeID(key.to),
			Relation: key.rel,
			Weight:   counts[key],
			Color:    edgeColor(key.rel),
		})
	}
	return viz
}

// SaveJSON writes visualization payload with graph statistics
func (g *Graph) SaveJSON(path string, maxFrames int) error {
	viz := g.Visualization(maxFrames)
	stats := g.Stats()
	viz.Stats = &stats
	payload, err := json.MarshalIndent(viz, "", "  ")
	if err != nil {
		return errors.Wrap(err, "Can't encode graph")
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return errors.Wrapf(err, "Can't write graph to '%s'", path)
	}
	return nil
}
