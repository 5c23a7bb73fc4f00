package direction

import (
	"math"

	"OcularBiomarker/pkg/geometry"
)

type Direction string

const (
	Forward    Direction = "forward"
	Left       Direction = "left"
	Right      Direction = "right"
	Up         Direction = "up"
	Down       Direction = "down"
	Blink      Direction = "blink"
	Undetected Direction = "undetected"
)

// Thresholds are in pixel units for Forward and a plain ratio for Blink.
// Forward does not scale with frame resolution.
type Thresholds struct {
	Forward float64 `validate:"gt=0"`
	Blink   float64 `validate:"gt=0,lte=1"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Forward: 5.0,
		Blink:   0.2,
	}
}

// Classify maps one frame's gaze and blink ratios to a direction. It keeps no
// state between frames.
func Classify(gaze geometry.Vector, blinkLeft, blinkRight float64, th Thresholds) Direction {
	if blinkLeft < th.Blink && blinkRight < th.Blink {
		return Blink
	}

	dx, dy := gaze.X, gaze.Y
	if math.Abs(dx) < th.Forward && math.Abs(dy) < th.Forward {
		return Forward
	}

	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return Right
		}
		return Left
	}

	if dy > 0 {
		return Down
	}
	return Up
}

// ClassifyFace returns Undetected when no face geometry is available.
func ClassifyFace(face *geometry.FaceGeometry, th Thresholds) Direction {
	if face == nil {
		return Undetected
	}
	return Classify(face.AverageGaze, face.Left.BlinkRatio, face.Right.BlinkRatio, th)
}

func (d Direction) String() string {
	return string(d)
}
