package scene

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Rectangle is an axis-aligned box in pixel coordinates.
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewRect creates rectangle from its top-left corner and size
func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

// NewRectFromCorners creates rectangle from [x1, y1, x2, y2] corners.
// Inverted corners produce negative width/height, which Area() reports as non-positive.
func NewRectFromCorners(x1, y1, x2, y2 float64) Rectangle {
	return Rectangle{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}

// Area returns width*height. Malformed boxes yield a value <= 0
func (r Rectangle) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Center returns rectangle's center
func (r Rectangle) Center() Point {
	return Point{
		X: r.X + r.Width/2.0,
		Y: r.Y + r.Height/2.0,
	}
}

// Contains reports whether point lies inside rectangle, borders included
func (r Rectangle) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

// Vec3 is a point (or displacement) in reconstruction world coordinates.
// The zero vector is the "no geometry" sentinel.
type Vec3 [3]float64

// IsZero reports whether vector is the unknown-position sentinel
func (v Vec3) IsZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// DistanceTo returns Euclidean distance between two world points
func (v Vec3) DistanceTo(other Vec3) float64 {
	return floats.Distance(v[:], other[:], 2)
}

// Round returns copy of vector with every component rounded to given number of decimals
func (v Vec3) Round(decimals int) Vec3 {
	return Vec3{roundTo(v[0], decimals), roundTo(v[1], decimals), roundTo(v[2], decimals)}
}

func roundTo(value float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(value*pow) / pow
}

// Round2 rounds value to 2 decimals (timestamps, distances on the wire)
func Round2(value float64) float64 {
	return roundTo(value, 2)
}
