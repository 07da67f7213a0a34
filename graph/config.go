package graph

// Config holds serialization sizes
type Config struct {
	// Frames kept in visualization payload. Default 50
	VisualizationFrames int `yaml:"visualization_frames"`
	// Frames rendered in text digest. Default 30
	DigestFrames int `yaml:"digest_frames"`
	// Number of interesting frames to pick. Default 5
	TopK int `yaml:"top_k"`
}

// DefaultConfig returns default serialization sizes
func DefaultConfig() Config {
	return Config{
		VisualizationFrames: 50,
		DigestFrames:        30,
		TopK:                5,
	}
}
