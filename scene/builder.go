package scene

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrNoFrames is returned by downstream components when scene graphs were never built
	ErrNoFrames = errors.New("scene graph frames are not available")
	// ErrInputMismatch is returned when per-frame inputs disagree in length
	ErrInputMismatch = errors.New("per-frame inputs have different lengths")
)

// Builder fuses per-frame detections with sparse reconstruction into scene graph frames.
type Builder struct {
	cfg      Config
	taxonomy Taxonomy
	logger   *slog.Logger
}

// NewDefaultBuilder creates builder with default thresholds and taxonomy
func NewDefaultBuilder() *Builder {
	return NewBuilder(DefaultConfig(), DefaultTaxonomy())
}

// NewBuilder creates new instance of Builder
func NewBuilder(cfg Config, taxonomy Taxonomy) *Builder {
	return &Builder{
		cfg:      cfg,
		taxonomy: taxonomy,
		logger:   slog.Default(),
	}
}

// SetLogger replaces builder's logger
func (builder *Builder) SetLogger(logger *slog.Logger) {
	builder.logger = logger
}

// FrameName returns reconstruction frame name for frame i
func (builder *Builder) FrameName(i int) string {
	return fmt.Sprintf(builder.cfg.FrameNameFormat, i)
}

// Build produces one frame per input frame, preserving input order.
// Missing reconstruction data yields sentinel geometry, never an error.
func (builder *Builder) Build(in Input) ([]Frame, error) {
	numFrames := len(in.Detections)
	if len(in.Timestamps) != numFrames {
		return nil, errors.Wrapf(ErrInputMismatch, "detections: %d, timestamps: %d", numFrames, len(in.Timestamps))
	}
	if in.FrameIndices != nil && len(in.FrameIndices) != numFrames {
		return nil, errors.Wrapf(ErrInputMismatch, "detections: %d, frame indices: %d", numFrames, len(in.FrameIndices))
	}
	frames := make([]Frame, 0, numFrames)
	positioned := 0
	missed := 0
	labels := make(map[string]struct{})
	totalObjects := 0
	for i := 0; i < numFrames; i++ {
		originalFrame := i
		if in.FrameIndices != nil {
			originalFrame = in.FrameIndices[i]
		}
		frame := builder.BuildFrame(i, originalFrame, in.Timestamps[i], in.Detections[i], in.Reconstruction, in.ImageWidth, in.ImageHeight)
		for _, obj := range frame.Objects {
			if obj.HasGeometry() {
				positioned++
			} else {
				missed++
			}
			labels[obj.Label] = struct{}{}
		}
		totalObjects += frame.NumObjects
		frames = append(frames, frame)
	}

	uniqueLabels := make([]string, 0, len(labels))
	for label := range labels {
		uniqueLabels = append(uniqueLabels, label)
	}
	sort.Strings(uniqueLabels)
	avgObjects := 0.0
	if numFrames > 0 {
		avgObjects = float64(totalObjects) / float64(numFrames)
	}
	builder.logger.Info("scene graphs built",
		"frames", len(frames),
		"positioned", positioned,
		"no_geometry", missed,
		"classes", uniqueLabels,
		"avg_objects_per_frame", roundTo(avgObjects, 1),
	)
	return frames, nil
}

// BuildFrame builds scene graph for a single frame. recon may be nil.
// Masks are used for contact relations here and dropped afterwards.
func (builder *Builder) BuildFrame(i, originalFrame int, timestamp float64, detections []Detection, recon *Reconstruction, imageWidth, imageHeight int) Frame {
	name := builder.FrameName(i)

	var camCenter *Vec3
	var points []Correspondence
	if recon != nil {
		if cam, ok := recon.Cameras[name]; ok && cam.Center != nil {
			center := *cam.Center
			camCenter = &center
		}
		points = recon.Points[name]
	}

	objects := make([]SpatialObject, 0, len(detections))
	masks := make([]*Mask, 0, len(detections))
	for _, det := range detections {
		rect := det.Rect()
		depth, position := EstimatePosition(points, rect, camCenter)
		confidence := 1.0
		if det.Confidence != nil {
			confidence = *det.Confidence
		}
		objects = append(objects, SpatialObject{
			ID:         NewObjectID(det.Label, det.TrackID),
			TrackID:    det.TrackID,
			Label:      det.Label,
			Confidence: confidence,
			BBox:       det.BBox,
			DepthM:     depth,
			Position:   position,
			Region:     RegionLabel(rect.Center(), imageWidth, imageHeight),
		})
		masks = append(masks, det.Mask)
	}

	var camera *CameraPose
	if camCenter != nil {
		camera = &CameraPose{Position: camCenter.Round(4)}
	}

	ts := Round2(timestamp)
	return Frame{
		FrameIndex:    i,
		OriginalFrame: originalFrame,
		Timestamp:     ts,
		TimestampStr:  FormatTimestamp(timestamp),
		Camera:        camera,
		NumObjects:    len(objects),
		Objects:       objects,
		Relations:     ComputeRelations(objects, masks, builder.cfg),
		HandState:     DetectHandState(objects, builder.taxonomy, builder.cfg),
		ReconFrame:    name,
	}
}
