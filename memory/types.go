package memory

import (
	"time"

	"github.com/LdDl/scene-graph-go/scene"
)

// CameraInfo is camera placement stored with an entry
type CameraInfo struct {
	WorldPosition *scene.Vec3 `json:"world_position"`
}

// SceneSummary is compact per-frame summary
type SceneSummary struct {
	NumObjects int                     `json:"n_objects"`
	Labels     map[string]int          `json:"labels"`
	Relations  []scene.SpatialRelation `json:"relations"`
	HandState  scene.HandState         `json:"hand_state"`
}

// Entry is one persisted record per frame. Detections never carry masks.
type Entry struct {
	ID           string                `json:"entry_id"`
	Source       string                `json:"video_source"`
	FrameIndex   int                   `json:"frame_idx"`
	Timestamp    float64               `json:"timestamp_sec"`
	TimestampStr string                `json:"timestamp_str"`
	ReconFrame   string                `json:"colmap_frame"`
	Detections   []scene.SpatialObject `json:"detections"`
	Camera       CameraInfo            `json:"camera"`
	Summary      SceneSummary          `json:"scene_summary"`
	CreatedAt    time.Time             `json:"created_at"`
}

// ProximityMatch is entry annotated with the closest matched pair distance
type ProximityMatch struct {
	Entry
	DistanceM float64 `json:"distance_m"`
}

// SimilarMatch is entry found by embedding similarity
type SimilarMatch struct {
	Entry    Entry   `json:"entry"`
	Distance float64 `json:"distance"`
}

// Stats describes store size
type Stats struct {
	Entries int     `json:"entries"`
	SizeKB  float64 `json:"size_kb"`
}
