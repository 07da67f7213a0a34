package events

import (
	"github.com/LdDl/scene-graph-go/scene"
)

// EventType is kind of discrete event
type EventType string

const (
	EventToolPickup       = EventType("tool_pickup")
	EventToolPutdown      = EventType("tool_putdown")
	EventToolProximity    = EventType("tool_proximity")
	EventBlockInteraction = EventType("block_interaction")
	EventIdlePeriod       = EventType("idle_period")
	EventRelocation       = EventType("relocation")
)

// Event is a typed, timestamped fact. Payload fields are filled depending on Type.
type Event struct {
	Type         EventType `json:"type"`
	FrameIndex   int       `json:"frame_index"`
	Timestamp    float64   `json:"timestamp"`
	TimestampStr string    `json:"timestamp_str"`
	Description  string    `json:"description"`

	// tool_pickup, tool_putdown
	Hand        scene.ObjectID `json:"hand,omitempty"`
	Object      scene.ObjectID `json:"object,omitempty"`
	ObjectLabel string         `json:"object_label,omitempty"`

	// tool_proximity
	Worker scene.ObjectID `json:"worker,omitempty"`
	Tool   scene.ObjectID `json:"tool,omitempty"`

	// block_interaction
	Block      scene.ObjectID `json:"block,omitempty"`
	BlockLabel string         `json:"block_label,omitempty"`

	// tool_proximity, relocation
	DistanceM float64 `json:"distance_m,omitempty"`

	// idle_period, relocation
	EndFrame       int         `json:"end_frame,omitempty"`
	EndTimestamp   float64     `json:"end_timestamp,omitempty"`
	DurationFrames int         `json:"duration_frames,omitempty"`
	FromPosition   *scene.Vec3 `json:"from_pos,omitempty"`
	ToPosition     *scene.Vec3 `json:"to_pos,omitempty"`
}

// Activity is per-frame activity label
type Activity string

const (
	ActivityProduction = Activity("production")
	ActivityPrep       = Activity("prep")
	ActivityDowntime   = Activity("downtime")
	ActivityStandby    = Activity("standby")
)

// IsIdle reports whether activity is downtime or standby
func (activity Activity) IsIdle() bool {
	return activity == ActivityDowntime || activity == ActivityStandby
}

// FrameActivity is activity assigned to a single frame
type FrameActivity struct {
	FrameIndex   int      `json:"frame_index"`
	Timestamp    float64  `json:"timestamp"`
	TimestampStr string   `json:"timestamp_str"`
	Activity     Activity `json:"activity"`
}

// TimelineSegment is a maximal run of frames sharing one activity.
// A segment spans [StartSec, EndSec) where EndSec is the start of the next segment
// (or the last frame timestamp for the final segment).
type TimelineSegment struct {
	Start       string   `json:"start"`
	End         string   `json:"end"`
	StartSec    float64  `json:"start_sec"`
	EndSec      float64  `json:"end_sec"`
	StartFrame  int      `json:"start_frame"`
	EndFrame    int      `json:"end_frame"`
	Activity    Activity `json:"activity"`
	DurationSec float64  `json:"duration_sec"`
	NumFrames   int      `json:"num_frames"`
}

// Stats are productivity statistics of a run
type Stats struct {
	TotalFrames             int     `json:"total_frames"`
	TotalTimeSec            float64 `json:"total_time_sec"`
	ProductionPct           float64 `json:"production_pct"`
	PrepPct                 float64 `json:"prep_pct"`
	DowntimePct             float64 `json:"downtime_pct"`
	StandbyPct              float64 `json:"standby_pct"`
	DistanceTraveledM       float64 `json:"distance_traveled_m"`
	ToolPickups             int     `json:"tool_pickups"`
	ToolPutdowns            int     `json:"tool_putdowns"`
	BlockInteractions       int     `json:"block_interactions"`
	Relocations             int     `json:"relocations"`
	UniqueObjectsInteracted int     `json:"unique_objects_interacted"`
	AvgObjectsPerFrame      float64 `json:"avg_objects_per_frame"`
}

// PPEFrame is PPE visibility for one frame
type PPEFrame struct {
	FrameIndex int      `json:"frame_index"`
	Timestamp  float64  `json:"timestamp"`
	Vest       bool     `json:"vest"`
	Helmet     bool     `json:"helmet"`
	Gloves     bool     `json:"gloves"`
	Items      []string `json:"items"`
}

// PPEReport summarizes PPE compliance over all frames
type PPEReport struct {
	TotalFrames      int        `json:"total_frames"`
	VestVisiblePct   float64    `json:"vest_visible_pct"`
	HelmetVisiblePct float64    `json:"helmet_visible_pct"`
	GlovesVisiblePct float64    `json:"gloves_visible_pct"`
	AllItems         []string   `json:"all_ppe_items"`
	Concerns         []string   `json:"concerns"`
	Frames           []PPEFrame `json:"frames"`
}

// Result is full Event Engine output
type Result struct {
	Events      []Event           `json:"events"`
	Timeline    []TimelineSegment `json:"timeline"`
	Activities  []FrameActivity   `json:"activities"`
	Stats       Stats             `json:"stats"`
	PPE         PPEReport         `json:"ppe_report"`
	Performance Performance       `json:"performance"`
}

// CountByType returns number of events per type
func (result *Result) CountByType() map[EventType]int {
	counts := make(map[EventType]int)
	for _, evt := range result.Events {
		counts[evt.Type]++
	}
	return counts
}
