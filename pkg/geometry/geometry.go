package geometry

import (
	"math"

	"OcularBiomarker/pkg/landmark"
)

type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vector) Add(o Vector) Vector {
	return Vector{v.X + o.X, v.Y + o.Y}
}

func (v Vector) Sub(o Vector) Vector {
	return Vector{v.X - o.X, v.Y - o.Y}
}

func (v Vector) Scale(f float64) Vector {
	return Vector{v.X * f, v.Y * f}
}

func Distance(a, b Vector) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

type FrameSize struct {
	Width  int `json:"width" validate:"required,gt=0"`
	Height int `json:"height" validate:"required,gt=0"`
}

type EyeGeometry struct {
	Center        Vector  `json:"center"`
	IrisCenter    Vector  `json:"iris_center"`
	GazeVector    Vector  `json:"gaze_vector"`
	BlinkRatio    float64 `json:"blink_ratio"`
	PupilDiameter float64 `json:"pupil_diameter"`
}

type FaceGeometry struct {
	Left              EyeGeometry `json:"left"`
	Right             EyeGeometry `json:"right"`
	AverageGaze       Vector      `json:"average_gaze_vector"`
	AverageIrisCenter Vector      `json:"average_iris_center"`
}

// Extract computes per-eye geometry in pixel space. Coordinates keep their
// sub-pixel precision.
func Extract(set landmark.Set, size FrameSize) FaceGeometry {
	left := eye(set.LeftEye, set.LeftIris, size)
	right := eye(set.RightEye, set.RightIris, size)

	return FaceGeometry{
		Left:              left,
		Right:             right,
		AverageGaze:       left.GazeVector.Add(right.GazeVector).Scale(0.5),
		AverageIrisCenter: left.IrisCenter.Add(right.IrisCenter).Scale(0.5),
	}
}

func eye(corners, iris landmark.Quad, size FrameSize) EyeGeometry {
	c := toPixels(corners, size)
	r := toPixels(iris, size)

	center := mean(c)
	irisCenter := mean(r)

	return EyeGeometry{
		Center:        center,
		IrisCenter:    irisCenter,
		GazeVector:    irisCenter.Sub(center),
		BlinkRatio:    BlinkRatio(c),
		PupilDiameter: PupilDiameter(r),
	}
}

// BlinkRatio is the vertical over horizontal eye opening, 0 when the corners
// coincide horizontally.
func BlinkRatio(corners [4]Vector) float64 {
	horizontal := Distance(corners[landmark.CornerOuter], corners[landmark.CornerInner])
	if horizontal == 0 {
		return 0
	}
	return Distance(corners[landmark.CornerTop], corners[landmark.CornerBottom]) / horizontal
}

// PupilDiameter is the distance between the opposing iris ring points 1 and 3,
// rounded to two decimals.
func PupilDiameter(iris [4]Vector) float64 {
	return math.Round(Distance(iris[1], iris[3])*100) / 100
}

func toPixels(q landmark.Quad, size FrameSize) [4]Vector {
	var out [4]Vector
	w, h := float64(size.Width), float64(size.Height)
	for i, p := range q {
		out[i] = Vector{X: p.X * w, Y: p.Y * h}
	}
	return out
}

func mean(pts [4]Vector) Vector {
	var sum Vector
	for _, p := range pts {
		sum = sum.Add(p)
	}
	return sum.Scale(1.0 / float64(len(pts)))
}
