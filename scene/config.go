package scene

// Config holds scene graph builder thresholds.
type Config struct {
	// Pairs closer than this are very_near (meters). Default 1.0
	NearThreshold float64 `yaml:"near_threshold_m"`
	// Pairs closer than this (and not very_near) are near, the rest are far (meters). Default 3.0
	FarThreshold float64 `yaml:"far_threshold_m"`
	// Minimum world X offset to emit left_of/right_of (meters). Default 0.3
	DirectionDeadZoneX float64 `yaml:"direction_dead_zone_x_m"`
	// Minimum world Y offset to emit above/below (meters). Default 0.3
	DirectionDeadZoneY float64 `yaml:"direction_dead_zone_y_m"`
	// Mask IoU above which two objects are contacting. Default 0.05
	ContactIoU float64 `yaml:"contact_iou"`
	// Hand bbox overlap (relative to hand area) above which an object may be held. Default 0.2
	HandOverlap float64 `yaml:"hand_overlap"`
	// Max hand-object 3D distance (or depth difference) for holding (meters). Default 0.5
	HandDepth float64 `yaml:"hand_depth_m"`
	// Reconstruction frame name for frame i. Default "%06d.jpg"
	FrameNameFormat string `yaml:"frame_name_format"`
}

// DefaultConfig returns builder thresholds
func DefaultConfig() Config {
	return Config{
		NearThreshold:      1.0,
		FarThreshold:       3.0,
		DirectionDeadZoneX: 0.3,
		DirectionDeadZoneY: 0.3,
		ContactIoU:         0.05,
		HandOverlap:        0.2,
		HandDepth:          0.5,
		FrameNameFormat:    "%06d.jpg",
	}
}
