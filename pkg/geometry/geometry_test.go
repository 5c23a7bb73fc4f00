package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"OcularBiomarker/pkg/landmark"
)

func quad(pts ...float64) landmark.Quad {
	var q landmark.Quad
	for i := 0; i < 4; i++ {
		q[i] = landmark.Point{X: pts[2*i], Y: pts[2*i+1]}
	}
	return q
}

func testSet() landmark.Set {
	return landmark.Set{
		LeftEye:   quad(0.40, 0.50, 0.60, 0.50, 0.50, 0.45, 0.50, 0.55),
		LeftIris:  quad(0.52, 0.48, 0.55, 0.50, 0.52, 0.52, 0.49, 0.50),
		RightEye:  quad(0.20, 0.50, 0.30, 0.50, 0.25, 0.49, 0.25, 0.51),
		RightIris: quad(0.25, 0.48, 0.27, 0.50, 0.25, 0.52, 0.23, 0.50),
	}
}

func TestExtract(t *testing.T) {
	face := Extract(testSet(), FrameSize{Width: 100, Height: 100})

	assert.InDelta(t, 50, face.Left.Center.X, 1e-9)
	assert.InDelta(t, 50, face.Left.Center.Y, 1e-9)
	assert.InDelta(t, 52, face.Left.IrisCenter.X, 1e-9)
	assert.InDelta(t, 50, face.Left.IrisCenter.Y, 1e-9)
	assert.InDelta(t, 2, face.Left.GazeVector.X, 1e-9)
	assert.InDelta(t, 0, face.Left.GazeVector.Y, 1e-9)
	assert.InDelta(t, 0.5, face.Left.BlinkRatio, 1e-9)
	assert.InDelta(t, 6, face.Left.PupilDiameter, 1e-9)

	assert.InDelta(t, 0.2, face.Right.BlinkRatio, 1e-9)
	assert.InDelta(t, 0, face.Right.GazeVector.X, 1e-9)
	assert.InDelta(t, 4, face.Right.PupilDiameter, 1e-9)

	assert.InDelta(t, 1, face.AverageGaze.X, 1e-9)
	assert.InDelta(t, 0, face.AverageGaze.Y, 1e-9)
	assert.InDelta(t, 38.5, face.AverageIrisCenter.X, 1e-9)
}

func TestExtract_KeepsSubPixelPrecision(t *testing.T) {
	set := testSet()
	set.LeftIris = quad(0.523, 0.48, 0.553, 0.50, 0.523, 0.52, 0.493, 0.50)

	face := Extract(set, FrameSize{Width: 100, Height: 100})

	assert.InDelta(t, 2.3, face.Left.GazeVector.X, 1e-9)
}

func TestExtract_ScalesWithFrame(t *testing.T) {
	small := Extract(testSet(), FrameSize{Width: 100, Height: 100})
	large := Extract(testSet(), FrameSize{Width: 200, Height: 200})

	assert.InDelta(t, small.Left.GazeVector.X*2, large.Left.GazeVector.X, 1e-9)
	assert.InDelta(t, small.Left.BlinkRatio, large.Left.BlinkRatio, 1e-9)
}

func TestBlinkRatio(t *testing.T) {
	tests := []struct {
		name    string
		corners [4]Vector
		want    float64
	}{
		{
			name:    "open eye",
			corners: [4]Vector{{0, 0}, {20, 0}, {10, -3}, {10, 3}},
			want:    0.3,
		},
		{
			name:    "closed eye",
			corners: [4]Vector{{0, 0}, {20, 0}, {10, 0}, {10, 0}},
			want:    0,
		},
		{
			name:    "degenerate corners",
			corners: [4]Vector{{5, 5}, {5, 5}, {5, 0}, {5, 10}},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BlinkRatio(tt.corners), 1e-9)
		})
	}
}

func TestPupilDiameter_Rounds(t *testing.T) {
	iris := [4]Vector{{0, 0}, {0, 0}, {0, 0}, {1.23456, 0}}
	assert.Equal(t, 1.23, PupilDiameter(iris))
}
