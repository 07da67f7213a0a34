package events

import (
	"github.com/LdDl/scene-graph-go/scene"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// TrailPoint is camera position at a frame
type TrailPoint struct {
	FrameIndex   int
	Timestamp    float64
	TimestampStr string
	Position     scene.Vec3
}

// SmoothTrajectory filters camera positions on the ground (X-Z) plane with constant velocity Kalman filter.
// Height (Y) is passed through untouched.
func SmoothTrajectory(points []scene.Vec3, dt, processNoise, measurementNoise float64) ([]scene.Vec3, error) {
	if len(points) == 0 {
		return nil, nil
	}
	if dt <= 0 {
		dt = 1.0
	}
	/* Kalman filter props */
	ux := 0.0
	uy := 0.0
	stdDevA := processNoise
	stdDevMx := measurementNoise
	stdDevMy := measurementNoise
	kf := kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(points[0][0], points[0][2]))

	smoothed := make([]scene.Vec3, len(points))
	smoothed[0] = points[0]
	for i := 1; i < len(points); i++ {
		kf.Predict()
		err := kf.Update(points[i][0], points[i][2])
		if err != nil {
			return nil, errors.Wrapf(err, "Can't update trajectory filter at point %d", i)
		}
		stateX, stateZ := kf.GetState()
		smoothed[i] = scene.Vec3{stateX, points[i][1], stateZ}
	}
	return smoothed, nil
}

// trailDistance is sum of consecutive displacements
func trailDistance(trail []TrailPoint) float64 {
	total := 0.0
	for i := 1; i < len(trail); i++ {
		total += trail[i-1].Position.DistanceTo(trail[i].Position)
	}
	return total
}

// groundArea is area of X-Z bounding box of the trail
func groundArea(trail []TrailPoint) float64 {
	if len(trail) < 2 {
		return 0
	}
	minX, maxX := trail[0].Position[0], trail[0].Position[0]
	minZ, maxZ := trail[0].Position[2], trail[0].Position[2]
	for _, pt := range trail[1:] {
		minX = min(minX, pt.Position[0])
		maxX = max(maxX, pt.Position[0])
		minZ = min(minZ, pt.Position[2])
		maxZ = max(maxZ, pt.Position[2])
	}
	return (maxX - minX) * (maxZ - minZ)
}
