package scene

import (
	"fmt"
	"math"
	"sort"
)

// EstimatePosition returns metric depth and world position of the object inside bbox.
// Position is the component-wise median of all reconstruction points projecting inside the box.
// Depth is the range from camera centre to that position (absolute world Z when camera is unknown).
// Both are zero when no point lands inside the box.
func EstimatePosition(points []Correspondence, bbox Rectangle, camCenter *Vec3) (float64, Vec3) {
	xs := make([]float64, 0)
	ys := make([]float64, 0)
	zs := make([]float64, 0)
	for _, p := range points {
		if !bbox.Contains(NewPoint(p.Pixel[0], p.Pixel[1])) {
			continue
		}
		xs = append(xs, p.Point[0])
		ys = append(ys, p.Point[1])
		zs = append(zs, p.Point[2])
	}
	if len(xs) == 0 {
		return 0, Vec3{}
	}
	position := Vec3{Median(xs), Median(ys), Median(zs)}

	var depth float64
	if camCenter != nil {
		depth = position.DistanceTo(*camCenter)
	} else {
		depth = math.Abs(position[2])
	}

	depth = roundTo(depth, 3)
	if depth == 0 {
		// keep sentinels consistent
		return 0, Vec3{}
	}
	return depth, position.Round(4)
}

// Median sorts values in place. Even-sized input yields the mean of the two middle values
func Median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2.0
}

// RegionLabel buckets a point into 3x3 screen grid, e.g. "top-left", "middle-center"
// Unknown image size (zero or negative dimension) yields an empty label.
func RegionLabel(center Point, imageWidth, imageHeight int) string {
	if imageWidth <= 0 || imageHeight <= 0 {
		return ""
	}
	w := float64(imageWidth)
	h := float64(imageHeight)
	horizontal := "center"
	if center.X < w/3 {
		horizontal = "left"
	} else if center.X > 2*w/3 {
		horizontal = "right"
	}
	vertical := "middle"
	if center.Y < h/3 {
		vertical = "top"
	} else if center.Y > 2*h/3 {
		vertical = "bottom"
	}
	return vertical + "-" + horizontal
}

// FormatTimestamp formats seconds as MM:SS.ff
func FormatTimestamp(sec float64) string {
	minutes := int(math.Floor(sec / 60))
	return fmt.Sprintf("%02d:%05.2f", minutes, sec-float64(minutes)*60)
}
