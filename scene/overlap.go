package scene

// IoU calculates Intersection over Union between two rectangles.
func IoU(r1, r2 Rectangle) float64 {
	interArea := intersectionArea(r1, r2)
	if interArea == 0 {
		return 0.0
	}
	r1Area := r1.Area()
	r2Area := r2.Area()
	return interArea / (r1Area + r2Area - interArea)
}

// OverlapRatio returns intersection area relative to area of the first rectangle.
// Zero when the first rectangle is malformed.
func OverlapRatio(own, other Rectangle) float64 {
	ownArea := own.Area()
	if ownArea <= 0 {
		return 0.0
	}
	return intersectionArea(own, other) / ownArea
}

func intersectionArea(r1, r2 Rectangle) float64 {
	xA := maxFloat64(r1.X, r2.X)
	yA := maxFloat64(r1.Y, r2.Y)
	xB := minFloat64(r1.X+r1.Width, r2.X+r2.Width)
	yB := minFloat64(r1.Y+r1.Height, r2.Y+r2.Height)
	return maxFloat64(0, xB-xA) * maxFloat64(0, yB-yA)
}

// MaskIoU calculates per-pixel Intersection over Union of two binary masks.
// Masks of different resolution never overlap.
func MaskIoU(m1, m2 *Mask) float64 {
	if m1 == nil || m2 == nil {
		return 0.0
	}
	if m1.Width != m2.Width || m1.Height != m2.Height || len(m1.Data) != len(m2.Data) {
		return 0.0
	}
	overlap := 0
	union := 0
	for i := range m1.Data {
		a := m1.Data[i] != 0
		b := m2.Data[i] != 0
		if a && b {
			overlap++
		}
		if a || b {
			union++
		}
	}
	if union == 0 {
		return 0.0
	}
	return float64(overlap) / float64(union)
}

func maxFloat64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
