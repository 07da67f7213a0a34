package memory

import (
	"sort"

	"github.com/LdDl/scene-graph-go/scene"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Embedding layout
const (
	EmbedDim = 32

	depthBins    = 16
	maxDepthM    = 12.0
	labelOffset  = 16
	labelBuckets = 8
	meanOffset   = 24
	stdOffset    = 27
	meanClip     = 10.0
	stdClip      = 10.0
)

// Embed builds fixed-length, L2-normalized descriptor of a frame's objects:
// [0,16) depth histogram over (0, 12] meters, [16,24) hashed label buckets weighted by confidence,
// [24,27) clipped mean and [27,30) clipped population std of known 3D positions.
func Embed(objects []scene.SpatialObject) []float64 {
	vec := make([]float64, EmbedDim)

	depths := make([]float64, 0, len(objects))
	atUpperEdge := 0
	for _, obj := range objects {
		switch {
		case obj.DepthM <= 0 || obj.DepthM > maxDepthM:
			continue
		case obj.DepthM == maxDepthM:
			atUpperEdge++
		default:
			depths = append(depths, obj.DepthM)
		}
	}
	if len(depths) > 0 {
		sort.Float64s(depths)
		dividers := floats.Span(make([]float64, depthBins+1), 0, maxDepthM)
		stat.Histogram(vec[:depthBins], dividers, depths, nil)
	}
	vec[depthBins-1] += float64(atUpperEdge)

	for _, obj := range objects {
		bucket := int(xxhash.Sum64String(obj.Label) % labelBuckets)
		vec[labelOffset+bucket] += obj.Confidence
	}

	axes := [3][]float64{}
	for _, obj := range objects {
		if obj.Position.IsZero() {
			continue
		}
		for axis := 0; axis < 3; axis++ {
			axes[axis] = append(axes[axis], obj.Position[axis])
		}
	}
	if len(axes[0]) > 0 {
		for axis := 0; axis < 3; axis++ {
			mean, std := stat.PopMeanStdDev(axes[axis], nil)
			vec[meanOffset+axis] = clip(mean, -meanClip, meanClip)
			vec[stdOffset+axis] = clip(std, 0, stdClip)
		}
	}

	norm := floats.Norm(vec, 2)
	if norm > 0 {
		floats.Scale(1/norm, vec)
	}
	return vec
}

func clip(value, lo, hi float64) float64 {
	return max(lo, min(hi, value))
}
