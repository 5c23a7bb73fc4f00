package direction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"OcularBiomarker/pkg/geometry"
)

func TestClassify(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name       string
		gaze       geometry.Vector
		blinkLeft  float64
		blinkRight float64
		want       Direction
	}{
		{"centered", geometry.Vector{X: 0, Y: 0}, 0.3, 0.3, Forward},
		{"inside forward box", geometry.Vector{X: 4.9, Y: -4.9}, 0.3, 0.3, Forward},
		{"right", geometry.Vector{X: 10, Y: 2}, 0.3, 0.3, Right},
		{"left", geometry.Vector{X: -10, Y: 2}, 0.3, 0.3, Left},
		{"down", geometry.Vector{X: 1, Y: 8}, 0.3, 0.3, Down},
		{"up", geometry.Vector{X: 1, Y: -8}, 0.3, 0.3, Up},
		{"tie goes vertical", geometry.Vector{X: 6, Y: 6}, 0.3, 0.3, Down},
		{"on threshold is not forward", geometry.Vector{X: 5, Y: 0}, 0.3, 0.3, Right},
		{"blink wins over gaze", geometry.Vector{X: 30, Y: 0}, 0.1, 0.15, Blink},
		{"one eye closed", geometry.Vector{X: 0, Y: 0}, 0.1, 0.3, Forward},
		{"blink at threshold", geometry.Vector{X: 0, Y: 0}, 0.2, 0.2, Forward},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.gaze, tt.blinkLeft, tt.blinkRight, th))
		})
	}
}

func TestClassify_Pure(t *testing.T) {
	th := DefaultThresholds()
	gaze := geometry.Vector{X: -7, Y: 3}

	first := Classify(gaze, 0.3, 0.3, th)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(gaze, 0.3, 0.3, th))
	}
}

func TestClassify_CustomThresholds(t *testing.T) {
	th := Thresholds{Forward: 12, Blink: 0.35}

	assert.Equal(t, Forward, Classify(geometry.Vector{X: 10, Y: 0}, 0.4, 0.4, th))
	assert.Equal(t, Blink, Classify(geometry.Vector{X: 10, Y: 0}, 0.3, 0.3, th))
}

func TestClassifyFace(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, Undetected, ClassifyFace(nil, th))

	face := &geometry.FaceGeometry{
		Left:        geometry.EyeGeometry{BlinkRatio: 0.3},
		Right:       geometry.EyeGeometry{BlinkRatio: 0.3},
		AverageGaze: geometry.Vector{X: 0, Y: -9},
	}
	assert.Equal(t, Up, ClassifyFace(face, th))
	assert.Equal(t, "up", ClassifyFace(face, th).String())
}
