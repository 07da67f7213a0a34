package scene

import (
	"math"
	"testing"
)

const (
	eps = 0.00001
)

func TestVec3DistanceTo(t *testing.T) {
	p1 := Vec3{341, 264, 0}
	p2 := Vec3{421, 427, 0}
	correnctAnswer := 181.57367
	answer := p1.DistanceTo(p2)
	if math.Abs(answer-correnctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correnctAnswer)
	}
}

func TestRectangleFromCorners(t *testing.T) {
	rect := NewRectFromCorners(10, 20, 40, 60)
	if rect != NewRect(10, 20, 30, 40) {
		t.Errorf("Expected rect %v, got %v", NewRect(10, 20, 30, 40), rect)
	}
	if rect.Area() != 1200 {
		t.Errorf("Expected area 1200, got %f", rect.Area())
	}
	expectedCenter := Point{X: 25, Y: 40}
	if rect.Center() != expectedCenter {
		t.Errorf("Expected center %v, got %v", expectedCenter, rect.Center())
	}
	inverted := NewRectFromCorners(40, 60, 10, 20)
	if inverted.Area() > 0 {
		t.Errorf("Inverted rectangle should have non-positive area, got %f", inverted.Area())
	}
}

func TestRectangleContains(t *testing.T) {
	rect := NewRectFromCorners(0, 0, 10, 10)
	if !rect.Contains(NewPoint(10, 10)) {
		t.Error("Border point should be inside")
	}
	if rect.Contains(NewPoint(10.01, 5)) {
		t.Error("Point outside should not be inside")
	}
}

func TestIoU(t *testing.T) {
	r1 := NewRect(0, 0, 10, 10)
	r2 := NewRect(5, 0, 10, 10)
	correctAnswer := 50.0 / 150.0
	answer := IoU(r1, r2)
	if math.Abs(answer-correctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correctAnswer)
	}
	if IoU(r1, NewRect(100, 100, 10, 10)) != 0 {
		t.Error("Disjoint rectangles should have zero IoU")
	}
}

func TestOverlapRatio(t *testing.T) {
	hand := NewRect(0, 0, 10, 10)
	tool := NewRect(0, 0, 100, 100)
	if math.Abs(OverlapRatio(hand, tool)-1.0) > eps {
		t.Errorf("Hand fully inside tool should have overlap 1.0, got %f", OverlapRatio(hand, tool))
	}
	if math.Abs(OverlapRatio(tool, hand)-0.01) > eps {
		t.Errorf("Expected overlap 0.01, got %f", OverlapRatio(tool, hand))
	}
	if OverlapRatio(NewRectFromCorners(10, 10, 0, 0), tool) != 0 {
		t.Error("Malformed rectangle should have zero overlap")
	}
}

func TestMaskIoU(t *testing.T) {
	m1 := &Mask{Width: 2, Height: 2, Data: []uint8{1, 1, 0, 0}}
	m2 := &Mask{Width: 2, Height: 2, Data: []uint8{0, 1, 0, 0}}
	if math.Abs(MaskIoU(m1, m2)-0.5) > eps {
		t.Errorf("Expected mask IoU 0.5, got %f", MaskIoU(m1, m2))
	}
	m3 := &Mask{Width: 4, Height: 1, Data: []uint8{1, 1, 0, 0}}
	if MaskIoU(m1, m3) != 0 {
		t.Error("Masks of different size should not overlap")
	}
	if MaskIoU(m1, nil) != 0 {
		t.Error("Nil mask should not overlap")
	}
}
