package landmark

import (
	"fmt"
	"math"
)

// Face mesh indices (MediaPipe refined landmarks). Eye corners are ordered
// outer, inner, top, bottom.
var (
	LeftEyeIndices   = [4]int{33, 133, 159, 145}
	RightEyeIndices  = [4]int{362, 263, 386, 374}
	LeftIrisIndices  = [4]int{468, 469, 470, 471}
	RightIrisIndices = [4]int{473, 474, 475, 476}
)

// MeshSize is the minimum number of points a refined face mesh carries.
const MeshSize = 478

const (
	CornerOuter = iota
	CornerInner
	CornerTop
	CornerBottom
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Quad [4]Point

// Set holds the named eye and iris groups of one detected face, in normalized
// coordinates.
type Set struct {
	LeftEye   Quad `json:"left_eye"`
	RightEye  Quad `json:"right_eye"`
	LeftIris  Quad `json:"left_iris"`
	RightIris Quad `json:"right_iris"`
}

// FromMesh picks the eye and iris groups out of a full face mesh. When mirror
// is set x is flipped, which matches running detection on a horizontally
// flipped frame.
func FromMesh(mesh []Point, mirror bool) (Set, error) {
	if len(mesh) < MeshSize {
		return Set{}, fmt.Errorf("face mesh has %d points, need at least %d", len(mesh), MeshSize)
	}

	for i, p := range mesh {
		if !finite(p.X) || !finite(p.Y) {
			return Set{}, fmt.Errorf("face mesh point %d is not finite", i)
		}
	}

	pick := func(indices [4]int) Quad {
		var q Quad
		for i, idx := range indices {
			p := mesh[idx]
			if mirror {
				p.X = 1 - p.X
			}
			q[i] = p
		}
		return q
	}

	return Set{
		LeftEye:   pick(LeftEyeIndices),
		RightEye:  pick(RightEyeIndices),
		LeftIris:  pick(LeftIrisIndices),
		RightIris: pick(RightIrisIndices),
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
