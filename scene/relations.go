package scene

import "math"

// ComputeRelations computes pairwise spatial relations for objects of a single frame.
// masks is either nil or parallel to objects (nil entries allowed).
// Objects without geometry take no part in relations.
func ComputeRelations(objects []SpatialObject, masks []*Mask, cfg Config) []SpatialRelation {
	relations := make([]SpatialRelation, 0)
	for i := range objects {
		a := objects[i]
		if !a.HasGeometry() {
			continue
		}
		for j := i + 1; j < len(objects); j++ {
			b := objects[j]
			if !b.HasGeometry() {
				continue
			}
			dist := a.Position.DistanceTo(b.Position)
			distRounded := Round2(dist)
			// Proximity: exactly one bucket, ties go to the lower bucket
			kind := RelationFar
			if dist < cfg.NearThreshold {
				kind = RelationVeryNear
			} else if dist < cfg.FarThreshold {
				kind = RelationNear
			}
			relations = append(relations, SpatialRelation{Source: a.ID, Kind: kind, Target: b.ID, DistanceM: &distRounded})

			dx := b.Position[0] - a.Position[0]
			dy := b.Position[1] - a.Position[1]
			if dx > cfg.DirectionDeadZoneX {
				relations = append(relations, SpatialRelation{Source: a.ID, Kind: RelationLeftOf, Target: b.ID})
			} else if dx < -cfg.DirectionDeadZoneX {
				relations = append(relations, SpatialRelation{Source: a.ID, Kind: RelationRightOf, Target: b.ID})
			}
			if dy > cfg.DirectionDeadZoneY {
				relations = append(relations, SpatialRelation{Source: a.ID, Kind: RelationBelow, Target: b.ID})
			} else if dy < -cfg.DirectionDeadZoneY {
				relations = append(relations, SpatialRelation{Source: a.ID, Kind: RelationAbove, Target: b.ID})
			}

			if i < len(masks) && j < len(masks) && masks[i] != nil && masks[j] != nil {
				if MaskIoU(masks[i], masks[j]) > cfg.ContactIoU {
					relations = append(relations, SpatialRelation{Source: a.ID, Kind: RelationContacting, Target: b.ID})
				}
			}
		}
	}
	return relations
}

// DetectHandState maps every hand-like object to the first object (in detection order) it holds.
// A hand holds an object when their bbox overlap, relative to the hand area, exceeds cfg.HandOverlap
// and they are closer than cfg.HandDepth: 3D distance when both have geometry, depth difference otherwise.
func DetectHandState(objects []SpatialObject, tx Taxonomy, cfg Config) HandState {
	hands := make([]int, 0)
	others := make([]int, 0, len(objects))
	for i := range objects {
		if tx.IsHand(objects[i].Label) {
			hands = append(hands, i)
		} else {
			others = append(others, i)
		}
	}
	state := make(HandState, len(hands))
	for _, handIdx := range hands {
		hand := objects[handIdx]
		state[hand.ID] = HandFree
		handRect := hand.Rect()
		if handRect.Area() <= 0 {
			continue
		}
		for _, objIdx := range others {
			obj := objects[objIdx]
			objRect := obj.Rect()
			if objRect.Area() <= 0 {
				continue
			}
			if OverlapRatio(handRect, objRect) <= cfg.HandOverlap {
				continue
			}
			var gap float64
			if hand.HasGeometry() && obj.HasGeometry() {
				gap = hand.Position.DistanceTo(obj.Position)
			} else {
				gap = math.Abs(hand.DepthM - obj.DepthM)
			}
			if gap < cfg.HandDepth {
				state[hand.ID] = obj.ID
				break
			}
		}
	}
	return state
}
