package events

// Config holds Event Engine thresholds.
type Config struct {
	// Idle frames (exclusive) after which standby turns into downtime. Default 5
	IdleDowntimeFrames int `yaml:"idle_downtime_frames"`
	// Minimum idle run reported as idle_period. Default 8
	IdleMinFrames int `yaml:"idle_min_frames"`
	// Sliding window over the movement trail (frames). Stride is half of it. Default 15
	RelocationWindow int `yaml:"relocation_window"`
	// Displacement over a window to report relocation (meters). Default 2.0
	RelocationMinDistance float64 `yaml:"relocation_min_distance_m"`
	// Worker-tool distance under which tool_proximity is emitted (meters). Default 0.5
	ToolProximity float64 `yaml:"tool_proximity_m"`
	// Segments shorter than this are merged into a preceding segment of the same activity. Default 2
	MinSegmentFrames int `yaml:"min_segment_frames"`
	// Frame interval used when it can not be estimated from timestamps (seconds). Default 0.67
	DefaultFrameDt float64 `yaml:"default_frame_dt_s"`
	// Max key events listed in the text digest. Default 50
	DigestMaxEvents int `yaml:"digest_max_events"`

	Trail       TrailConfig       `yaml:"trail"`
	PPE         PPEConfig         `yaml:"ppe"`
	Performance PerformanceConfig `yaml:"performance"`
}

// TrailConfig controls smoothing of the raw camera trail when no smoothed trajectory is supplied
type TrailConfig struct {
	Smooth           bool    `yaml:"smooth"`
	ProcessNoise     float64 `yaml:"process_noise"`
	MeasurementNoise float64 `yaml:"measurement_noise"`
}

// PPEConfig describes how PPE labels map to vest/helmet/gloves
type PPEConfig struct {
	VestKeywords   []string `yaml:"vest_keywords"`
	HelmetKeywords []string `yaml:"helmet_keywords"`
	HelmetLabels   []string `yaml:"helmet_labels"`
	GloveKeywords  []string `yaml:"glove_keywords"`
	GloveLabels    []string `yaml:"glove_labels"`
	// Vest visible in fewer frames than this ratio raises a concern. Default 0.5
	VestConcernRatio float64 `yaml:"vest_concern_ratio"`
	// Helmet visible in fewer frames than this ratio raises a concern. Default 0.3
	HelmetConcernRatio float64 `yaml:"helmet_concern_ratio"`
}

// PerformanceConfig holds scaling factors and suggestion rule thresholds
type PerformanceConfig struct {
	ProductionScale float64 `yaml:"production_scale"`
	// Score per block interaction per meter travelled
	MovementScale float64 `yaml:"movement_scale"`
	// Distances below this are treated as this value when computing blocks per meter
	MinDistanceM float64 `yaml:"min_distance_m"`
	// Score per frame of mean production run length
	ContinuityScale float64 `yaml:"continuity_scale"`

	PrepHighPct             float64 `yaml:"prep_high_pct"`
	DowntimeHighPct         float64 `yaml:"downtime_high_pct"`
	ToolChangesHighPerMin   float64 `yaml:"tool_changes_high_per_min"`
	LowBlocksPerMeter       float64 `yaml:"low_blocks_per_meter"`
	MovementRuleMinDistance float64 `yaml:"movement_rule_min_distance_m"`
	LongIdleSec             float64 `yaml:"long_idle_sec"`
	FragmentedMinRuns       int     `yaml:"fragmented_min_runs"`
	FragmentedMaxMeanFrames float64 `yaml:"fragmented_max_mean_frames"`
}

// DefaultConfig returns Event Engine thresholds
func DefaultConfig() Config {
	return Config{
		IdleDowntimeFrames:    5,
		IdleMinFrames:         8,
		RelocationWindow:      15,
		RelocationMinDistance: 2.0,
		ToolProximity:         0.5,
		MinSegmentFrames:      2,
		DefaultFrameDt:        0.67,
		DigestMaxEvents:       50,
		Trail: TrailConfig{
			Smooth:           false,
			ProcessNoise:     0.5,
			MeasurementNoise: 0.1,
		},
		PPE: PPEConfig{
			VestKeywords:       []string{"vest"},
			HelmetKeywords:     []string{"hat", "helmet"},
			HelmetLabels:       []string{"head protection"},
			GloveKeywords:      []string{"glove"},
			GloveLabels:        []string{"hand protection"},
			VestConcernRatio:   0.5,
			HelmetConcernRatio: 0.3,
		},
		Performance: PerformanceConfig{
			ProductionScale:         1.25,
			MovementScale:           100.0,
			MinDistanceM:            1.0,
			ContinuityScale:         10.0,
			PrepHighPct:             30.0,
			DowntimeHighPct:         20.0,
			ToolChangesHighPerMin:   2.0,
			LowBlocksPerMeter:       0.1,
			MovementRuleMinDistance: 5.0,
			LongIdleSec:             60.0,
			FragmentedMinRuns:       5,
			FragmentedMaxMeanFrames: 3.0,
		},
	}
}
