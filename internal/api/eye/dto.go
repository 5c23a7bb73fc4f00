package eye

import (
	"OcularBiomarker/pkg/direction"
	"OcularBiomarker/pkg/geometry"
	"OcularBiomarker/pkg/landmark"
)

const (
	SessionHeader = "X-Session-ID"
	SessionQuery  = "session_id"
)

// LandmarksRequest carries a face mesh detected on the client. An empty mesh
// means no face was found in the frame.
type LandmarksRequest struct {
	Width     int              `json:"width" validate:"required,gt=0"`
	Height    int              `json:"height" validate:"required,gt=0"`
	Landmarks []landmark.Point `json:"landmarks"`
}

// Frame is one unit of input: either an encoded image for the landmark
// provider or a client-side mesh.
type Frame struct {
	Image     []byte
	Landmarks *LandmarksRequest
}

type BlinkRatio struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

type DirectionResponse struct {
	Direction         direction.Direction `json:"direction"`
	Detected          bool                `json:"detected"`
	AverageGazeVector *geometry.Vector    `json:"average_gaze_vector"`
	BlinkRatio        *BlinkRatio         `json:"blink_ratio"`
}

type PupilResponse struct {
	Detected       bool     `json:"detected"`
	LeftPupilSize  *float64 `json:"left_pupil_size"`
	RightPupilSize *float64 `json:"right_pupil_size"`
}

type GazeShiftResponse struct {
	SessionID string            `json:"session_id"`
	Detected  bool              `json:"detected"`
	Point     *geometry.Vector  `json:"point"`
	Trail     []geometry.Vector `json:"trail"`
}

type FrameResponse struct {
	SessionID string                 `json:"session_id,omitempty"`
	Detected  bool                   `json:"detected"`
	Direction direction.Direction    `json:"direction"`
	Width     int                    `json:"width"`
	Height    int                    `json:"height"`
	Geometry  *geometry.FaceGeometry `json:"geometry"`
	Trail     []geometry.Vector      `json:"trail,omitempty"`
}

type TrailResponse struct {
	SessionID string               `json:"session_id"`
	Capacity  int                  `json:"capacity"`
	Trail     []geometry.Vector    `json:"trail"`
	Segments  [][2]geometry.Vector `json:"segments"`
}
