package graph

import (
	"log/slog"

	"github.com/LdDl/scene-graph-go/scene"
)

// Graph is directed multigraph of frames, tracked objects and observations kept in typed arenas.
type Graph struct {
	frames       []FrameNode
	objects      []ObjectNode
	observations []ObservationNode
	edges        []Edge
	out          map[NodeRef][]int
	in           map[NodeRef][]int
	objectIndex  map[scene.ObjectID]int
	lastFrame    int
	logger       *slog.Logger
}

// New creates empty graph
func New() *Graph {
	return &Graph{
		frames:       make([]FrameNode, 0),
		objects:      make([]ObjectNode, 0),
		observations: make([]ObservationNode, 0),
		edges:        make([]Edge, 0),
		out:          make(map[NodeRef][]int),
		in:           make(map[NodeRef][]int),
		objectIndex:  make(map[scene.ObjectID]int),
		lastFrame:    -1,
		logger:       slog.Default(),
	}
}

// Build creates graph from frames
func Build(frames []scene.Frame) (*Graph, error) {
	g := New()
	if err := g.AddFrames(frames); err != nil {
		return nil, err
	}
	return g, nil
}

// SetLogger replaces graph's logger
func (g *Graph) SetLogger(logger *slog.Logger) {
	g.logger = logger
}

// AddFrames appends frames in order, continuing the temporal chain of earlier calls
func (g *Graph) AddFrames(frames []scene.Frame) error {
	if frames == nil {
		return scene.ErrNoFrames
	}
	for i := range frames {
		g.addFrame(&frames[i])
	}
	stats := g.Stats()
	g.logger.Info("entity graph built",
		slog.Int("nodes", stats.TotalNodes),
		slog.Int("edges", stats.TotalEdges),
		slog.Int("frames", stats.NodeTypes[NodeFrame.String()]),
		slog.Int("tracked_objects", stats.NodeTypes[NodeObject.String()]),
		slog.Int("observations", stats.NodeTypes[NodeObservation.String()]),
	)
	return nil
}

func (g *Graph) addFrame(frame *scene.Frame) {
	frameNode := FrameNode{
		FrameIndex:   frame.FrameIndex,
		Timestamp:    frame.Timestamp,
		TimestampStr: frame.TimestampStr,
		NumObjects:   frame.NumObjects,
		Observations: make([]int, 0, len(frame.Objects)),
	}
	if pos, ok := frame.CameraPosition(); ok {
		frameNode.CameraPosition = &pos
	}
	g.frames = append(g.frames, frameNode)
	frameIdx := len(g.frames) - 1
	frameRef := NodeRef{Kind: NodeFrame, Index: frameIdx}

	if g.lastFrame >= 0 {
		prev := g.frames[g.lastFrame]
		g.addEdge(Edge{
			From:     NodeRef{Kind: NodeFrame, Index: g.lastFrame},
			To:       frameRef,
			Relation: RelationNext,
			Dt:       scene.Round2(frame.Timestamp - prev.Timestamp),
		})
	}
	g.lastFrame = frameIdx

	observed := make(map[scene.ObjectID]int, len(frame.Objects))
	for _, obj := range frame.Objects {
		objIdx, ok := g.objectIndex[obj.ID]
		if !ok {
			g.objects = append(g.objects, ObjectNode{
				ID:           obj.ID,
				Label:        obj.Label,
				FirstSeen:    frame.Timestamp,
				LastSeen:     frame.Timestamp,
				FirstFrame:   frame.FrameIndex,
				LastFrame:    frame.FrameIndex,
				Observations: make([]int, 0),
			})
			objIdx = len(g.objects) - 1
			g.objectIndex[obj.ID] = objIdx
		} else {
			g.objects[objIdx].LastSeen = frame.Timestamp
			g.objects[objIdx].LastFrame = frame.FrameIndex
		}

		g.observations = append(g.observations, ObservationNode{
			Object:     objIdx,
			Frame:      frameIdx,
			ObjectID:   obj.ID,
			Label:      obj.Label,
			DepthM:     obj.DepthM,
			Position:   obj.Position,
			BBox:       obj.BBox,
			Region:     obj.Region,
			FrameIndex: frame.FrameIndex,
			Timestamp:  frame.Timestamp,
		})
		obsIdx := len(g.observations) - 1
		obsRef := NodeRef{Kind: NodeObservation, Index: obsIdx}
		g.objects[objIdx].Observations = append(g.objects[objIdx].Observations, obsIdx)
		g.frames[frameIdx].Observations = append(g.frames[frameIdx].Observations, obsIdx)

		g.addEdge(Edge{From: NodeRef{Kind: NodeObject, Index: objIdx}, To: obsRef, Relation: RelationObservedAs})
		g.addEdge(Edge{From: obsRef, To: frameRef, Relation: RelationInFrame})
		observed[obj.ID] = obsIdx
	}

	for _, rel := range frame.Relations {
		src, okSrc := observed[rel.Source]
		tgt, okTgt := observed[rel.Target]
		if !okSrc || !okTgt {
			continue
		}
		g.addEdge(Edge{
			From:      NodeRef{Kind: NodeObservation, Index: src},
			To:        NodeRef{Kind: NodeObservation, Index: tgt},
			Relation:  SpatialRelation(rel.Kind),
			DistanceM: rel.DistanceM,
		})
	}

	for _, hand := range frame.HandState.Hands() {
		held := frame.HandState[hand]
		if held == scene.HandFree {
			continue
		}
		handObs, okHand := observed[hand]
		heldObs, okHeld := observed[held]
		if !okHand || !okHeld {
			continue
		}
		g.addEdge(Edge{
			From:     NodeRef{Kind: NodeObservation, Index: handObs},
			To:       NodeRef{Kind: NodeObservation, Index: heldObs},
			Relation: RelationHolds,
		})
	}
}

func (g *Graph) addEdge(edge Edge) {
	g.edges = append(g.edges, edge)
	idx := len(g.edges) - 1
	g.out[edge.From] = append(g.out[edge.From], idx)
	g.in[edge.To] = append(g.in[edge.To], idx)
}

// Frames returns frame nodes in insertion order
func (g *Graph) Frames() []FrameNode {
	return g.frames
}

// Objects returns tracked object nodes in first-sighting order
func (g *Graph) Objects() []ObjectNode {
	return g.objects
}

// Observations returns observation nodes
func (g *Graph) Observations() []ObservationNode {
	return g.observations
}

// Edges returns all edges in insertion order
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Object looks up tracked object by identity
func (g *Graph) Object(id scene.ObjectID) (ObjectNode, bool) {
	idx, ok := g.objectIndex[id]
	if !ok {
		return ObjectNode{}, false
	}
	return g.objects[idx], true
}

// OutEdges returns edges leaving node
func (g *Graph) OutEdges(ref NodeRef) []Edge {
	return g.collect(g.out[ref])
}

// InEdges returns edges entering node
func (g *Graph) InEdges(ref NodeRef) []Edge {
	return g.collect(g.in[ref])
}

func (g *Graph) collect(indices []int) []Edge {
	edges := make([]Edge, 0, len(indices))
	for _, idx := range indices {
		edges = append(edges, g.edges[idx])
	}
	return edges
}

// NodeID returns stable textual identity of node
func (g *Graph) NodeID(ref NodeRef) string {
	switch ref.Kind {
	case NodeFrame:
		return frameNodeID(g.frames[ref.Index].FrameIndex)
	case NodeObject:
		return string(g.objects[ref.Index].ID)
	case NodeObservation:
		obs := g.observations[ref.Index]
		return observationNodeID(obs.ObjectID, obs.FrameIndex)
	default:
		return ""
	}
}

// NodeLabel returns human readable label of node
func (g *Graph) NodeLabel(ref NodeRef) string {
	switch ref.Kind {
	case NodeFrame:
		return g.frames[ref.Index].TimestampStr
	case NodeObject:
		return g.objects[ref.Index].Label
	case NodeObservation:
		return g.observations[ref.Index].Label
	default:
		return ""
	}
}

// Stats counts nodes and edges by type
func (g *Graph) Stats() Stats {
	stats := Stats{
		TotalNodes: len(g.frames) + len(g.objects) + len(g.observations),
		TotalEdges: len(g.edges),
		NodeTypes: map[string]int{
			NodeFrame.String():       len(g.frames),
			NodeObject.String():      len(g.objects),
			NodeObservation.String(): len(g.observations),
		},
		EdgeTypes: make(map[string]int),
	}
	for _, edge := range g.edges {
		stats.EdgeTypes[string(edge.Relation)]++
	}
	return stats
}
