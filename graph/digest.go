package graph

import (
	"fmt"
	"strings"
)

// Digest renders up to maxFrames evenly sampled frames as plain text:
// camera position, every observation with its measurements and relations.
func (g *Graph) Digest(maxFrames int) string {
	var sb strings.Builder
	for _, idx := range sampleIndices(len(g.frames), maxFrames) {
		frame := g.frames[idx]
		camera := "unknown"
		if frame.CameraPosition != nil {
			pos := frame.CameraPosition
			camera = fmt.Sprintf("[%.2f, %.2f, %.2f]", pos[0], pos[1], pos[2])
		}
		fmt.Fprintf(&sb, "[t=%s] Camera at %s\n", frame.TimestampStr, camera)

		for _, obsIdx := range frame.Observations {
			obs := g.observations[obsIdx]
			ref := NodeRef{Kind: NodeObservation, Index: obsIdx}
			fmt.Fprintf(&sb, "  %s: depth=%.1fm, pos=[%.1f, %.1f, %.1f]\n", obs.ObjectID, obs.DepthM, obs.Position[0], obs.Position[1], obs.Position[2])
			for _, edge := range g.OutEdges(ref) {
				if edge.Relation.IsStructural() {
					continue
				}
				distance := ""
				if edge.DistanceM != nil && *edge.DistanceM != 0 {
					distance = fmt.Sprintf(" (%.2fm)", *edge.DistanceM)
				}
				fmt.Fprintf(&sb, "    -> %s %s%s\n", edge.Relation, g.NodeLabel(edge.To), distance)
			}
			for _, edge := range g.InEdges(ref) {
				if edge.Relation != RelationHolds {
					continue
				}
				fmt.Fprintf(&sb, "    <- HELD_BY %s\n", g.NodeLabel(edge.From))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
