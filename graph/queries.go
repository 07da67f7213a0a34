package graph

import (
	"sort"

	"github.com/LdDl/scene-graph-go/scene"
)

// Subgraph is a node-induced part of the graph
type Subgraph struct {
	Frames       []FrameNode
	Objects      []ObjectNode
	Observations []ObservationNode
	Edges        []Edge
}

// TimeWindow returns frames and observations with timestamp in [t0, t1], their owning tracked objects
// and every edge between selected nodes
func (g *Graph) TimeWindow(t0, t1 float64) Subgraph {
	selected := make(map[NodeRef]struct{})
	sub := Subgraph{
		Frames:       make([]FrameNode, 0),
		Objects:      make([]ObjectNode, 0),
		Observations: make([]ObservationNode, 0),
		Edges:        make([]Edge, 0),
	}
	for i, frame := range g.frames {
		if frame.Timestamp >= t0 && frame.Timestamp <= t1 {
			selected[NodeRef{Kind: NodeFrame, Index: i}] = struct{}{}
			sub.Frames = append(sub.Frames, frame)
		}
	}
	owners := make([]int, 0)
	for i, obs := range g.observations {
		if obs.Timestamp < t0 || obs.Timestamp > t1 {
			continue
		}
		selected[NodeRef{Kind: NodeObservation, Index: i}] = struct{}{}
		sub.Observations = append(sub.Observations, obs)
		ownerRef := NodeRef{Kind: NodeObject, Index: obs.Object}
		if _, ok := selected[ownerRef]; !ok {
			selected[ownerRef] = struct{}{}
			owners = append(owners, obs.Object)
		}
	}
	sort.Ints(owners)
	for _, idx := range owners {
		sub.Objects = append(sub.Objects, g.objects[idx])
	}
	for _, edge := range g.edges {
		_, okFrom := selected[edge.From]
		_, okTo := selected[edge.To]
		if okFrom && okTo {
			sub.Edges = append(sub.Edges, edge)
		}
	}
	return sub
}

// ObjectHistory returns all observations of tracked object ordered by time
func (g *Graph) ObjectHistory(id scene.ObjectID) []ObservationNode {
	idx, ok := g.objectIndex[id]
	if !ok {
		return []ObservationNode{}
	}
	history := make([]ObservationNode, 0, len(g.objects[idx].Observations))
	for _, obsIdx := range g.objects[idx].Observations {
		history = append(history, g.observations[obsIdx])
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp < history[j].Timestamp
	})
	return history
}

// Interaction is an edge between two observations resolved to their tracked objects
type Interaction struct {
	From       scene.ObjectID `json:"from"`
	To         scene.ObjectID `json:"to"`
	FromLabel  string         `json:"from_label"`
	ToLabel    string         `json:"to_label"`
	Relation   Relation       `json:"relation"`
	FrameIndex int            `json:"frame_index"`
	Timestamp  float64        `json:"timestamp"`
	DistanceM  *float64       `json:"distance_m,omitempty"`
}

// Interactions returns every observation-to-observation edge with given relation
func (g *Graph) Interactions(rel Relation) []Interaction {
	out := make([]Interaction, 0)
	for _, edge := range g.edges {
		if edge.Relation != rel || edge.From.Kind != NodeObservation || edge.To.Kind != NodeObservation {
			continue
		}
		from, to := g.observations[edge.From.Index], g.observations[edge.To.Index]
		out = append(out, Interaction{
			From:       from.ObjectID,
			To:         to.ObjectID,
			FromLabel:  from.Label,
			ToLabel:    to.Label,
			Relation:   rel,
			FrameIndex: from.FrameIndex,
			Timestamp:  from.Timestamp,
			DistanceM:  edge.DistanceM,
		})
	}
	return out
}

// InterestingFrames returns up to k frame indices with the most salient relations (very near, near, contacting, holds).
// Ties go to the earlier frame. Frames without salient relations are never returned.
func (g *Graph) InterestingFrames(k int) []int {
	scores := make(map[int]int)
	for _, edge := range g.edges {
		if !edge.Relation.IsSalient() || edge.From.Kind != NodeObservation {
			continue
		}
		scores[g.observations[edge.From.Index].FrameIndex]++
	}
	h := make(scoreHeap, 0, len(scores))
	for frameIndex, score := range scores {
		h.Push(&frameScore{frameIndex: frameIndex, score: score})
	}
	out := make([]int, 0, k)
	for len(out) < k && h.Len() > 0 {
		out = append(out, h.Pop().frameIndex)
	}
	return out
}
