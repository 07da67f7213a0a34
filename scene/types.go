package scene

import (
	"fmt"
	"strings"
)

// Detection is one tracked instance in one frame as delivered by the detection/tracking collaborator.
type Detection struct {
	TrackID int    `json:"id"`
	Label   string `json:"label"`
	// [x1, y1, x2, y2] in pixels
	BBox       [4]float64 `json:"bbox"`
	Confidence *float64   `json:"confidence,omitempty"`
	// Present only while the scene graph is being built
	Mask *Mask `json:"mask,omitempty"`
}

// Rect returns detection's bounding box as Rectangle
func (det Detection) Rect() Rectangle {
	return NewRectFromCorners(det.BBox[0], det.BBox[1], det.BBox[2], det.BBox[3])
}

// Mask is a binary per-pixel segmentation mask stored row-major.
type Mask struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Data   []uint8 `json:"data"`
}

// ObjectID identifies an object within a run: label (spaces replaced by underscores) plus track id.
// It is an opaque key; the label is always read from the object itself.
type ObjectID string

// NewObjectID builds identity for label and track id, e.g. "concrete_block_5"
func NewObjectID(label string, trackID int) ObjectID {
	return ObjectID(fmt.Sprintf("%s_%d", strings.ReplaceAll(label, " ", "_"), trackID))
}

// SpatialObject is a detection enriched with reconstruction geometry.
type SpatialObject struct {
	ID         ObjectID   `json:"id_str"`
	TrackID    int        `json:"id"`
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
	// Distance from camera centre in meters. Zero when no geometry was found
	DepthM float64 `json:"depth_m"`
	// World position. Zero vector when unknown
	Position Vec3   `json:"position_3d"`
	Region   string `json:"region,omitempty"`
}

// Rect returns object's bounding box as Rectangle
func (obj SpatialObject) Rect() Rectangle {
	return NewRectFromCorners(obj.BBox[0], obj.BBox[1], obj.BBox[2], obj.BBox[3])
}

// HasGeometry reports whether object carries a 3D position
func (obj SpatialObject) HasGeometry() bool {
	return obj.DepthM != 0 && !obj.Position.IsZero()
}

// RelationKind is type of pairwise relation between two objects of one frame
type RelationKind string

const (
	RelationVeryNear   = RelationKind("very_near")
	RelationNear       = RelationKind("near")
	RelationFar        = RelationKind("far")
	RelationLeftOf     = RelationKind("left_of")
	RelationRightOf    = RelationKind("right_of")
	RelationAbove      = RelationKind("above")
	RelationBelow      = RelationKind("below")
	RelationContacting = RelationKind("contacting")
)

// IsProximity reports whether kind is one of very_near/near/far
func (kind RelationKind) IsProximity() bool {
	return kind == RelationVeryNear || kind == RelationNear || kind == RelationFar
}

// SpatialRelation is ordered triple (source, kind, target) with optional metric payload.
type SpatialRelation struct {
	Source    ObjectID     `json:"source"`
	Kind      RelationKind `json:"relation"`
	Target    ObjectID     `json:"target"`
	DistanceM *float64     `json:"distance_m,omitempty"`
}

// Involves reports whether object takes part in relation
func (rel SpatialRelation) Involves(id ObjectID) bool {
	return rel.Source == id || rel.Target == id
}

// HandFree is the hand state value for a hand holding nothing
const HandFree = ObjectID("free")

// HandState maps every hand in a frame to the object it holds or HandFree.
type HandState map[ObjectID]ObjectID

// Hands returns hand identities in a stable (sorted) order
func (hs HandState) Hands() []ObjectID {
	hands := make([]ObjectID, 0, len(hs))
	for hand := range hs {
		hands = append(hands, hand)
	}
	sortObjectIDs(hands)
	return hands
}

// Holding reports whether any hand holds something
func (hs HandState) Holding() bool {
	for _, held := range hs {
		if held != HandFree {
			return true
		}
	}
	return false
}

// CameraPose is camera world position for a frame
type CameraPose struct {
	Position Vec3 `json:"position"`
}

// Frame is one frame's complete structured snapshot.
type Frame struct {
	FrameIndex    int               `json:"frame_index"`
	OriginalFrame int               `json:"original_frame"`
	Timestamp     float64           `json:"timestamp"`
	TimestampStr  string            `json:"timestamp_str"`
	Camera        *CameraPose       `json:"camera_pose"`
	NumObjects    int               `json:"num_objects"`
	Objects       []SpatialObject   `json:"objects"`
	Relations     []SpatialRelation `json:"spatial_relations"`
	HandState     HandState         `json:"hand_state"`
	ReconFrame    string            `json:"colmap_frame"`
}

// Object looks up object of this frame by its identity
func (frame *Frame) Object(id ObjectID) (SpatialObject, bool) {
	for i := range frame.Objects {
		if frame.Objects[i].ID == id {
			return frame.Objects[i], true
		}
	}
	return SpatialObject{}, false
}

// CameraPosition returns camera world position if known
func (frame *Frame) CameraPosition() (Vec3, bool) {
	if frame.Camera == nil {
		return Vec3{}, false
	}
	return frame.Camera.Position, true
}

// Camera is reconstruction output for a single frame
type Camera struct {
	Center *Vec3 `json:"cam_center"`
}

// Correspondence links a 2D pixel of a frame with a sparse reconstruction 3D point
type Correspondence struct {
	Pixel [2]float64 `json:"xy"`
	Point Vec3       `json:"xyz"`
}

// Intrinsics are global camera intrinsics. Carried through, not used by the builder.
type Intrinsics struct {
	Fx float64 `json:"fx"`
	Fy float64 `json:"fy"`
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
}

// Reconstruction is sparse multi-view reconstruction output keyed by reconstruction frame name.
type Reconstruction struct {
	Cameras            map[string]Camera           `json:"image_data"`
	Points             map[string][]Correspondence `json:"img_to_points3d"`
	Intrinsics         *Intrinsics                 `json:"intrinsics,omitempty"`
	SmoothedTrajectory []Vec3                      `json:"cam_positions_smooth,omitempty"`
}

// Input bundles everything the builder consumes for one run.
type Input struct {
	Detections     [][]Detection   `json:"detections"`
	Reconstruction *Reconstruction `json:"reconstruction"`
	Timestamps     []float64       `json:"timestamps"`
	FrameIndices   []int           `json:"frame_indices"`
	ImageWidth     int             `json:"image_width"`
	ImageHeight    int             `json:"image_height"`
}
