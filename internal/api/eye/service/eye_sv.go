package eyeService

import (
	"OcularBiomarker/internal/api/eye"
	contextPkg "OcularBiomarker/pkg/context"
	"OcularBiomarker/pkg/direction"
	"OcularBiomarker/pkg/facemesh"
	"OcularBiomarker/pkg/geometry"
	"OcularBiomarker/pkg/landmark"
	"OcularBiomarker/pkg/response"
	"OcularBiomarker/pkg/trail"
	"context"
	"errors"
	"github.com/sirupsen/logrus"
)

// Analysis is the per-frame result every eye endpoint is built from. Face is
// nil when no face was detected.
type Analysis struct {
	Size      geometry.FrameSize
	Face      *geometry.FaceGeometry
	Direction direction.Direction
}

func (a Analysis) Detected() bool {
	return a.Face != nil
}

func (s *eyeService) Analyze(ctx context.Context, frame eye.Frame) (Analysis, error) {
	requestID := contextPkg.GetRequestID(ctx)

	mesh, size, err := s.resolveMesh(ctx, frame)
	if err != nil {
		return Analysis{}, err
	}

	if len(mesh) == 0 {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
		}).Debug("No face detected in frame")
		return Analysis{Size: size, Direction: direction.Undetected}, nil
	}

	set, err := landmark.FromMesh(mesh, frame.Image != nil && s.mirror)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Rejected face mesh")
		return Analysis{}, response.WithDetail(eye.ErrInvalidInput, err.Error())
	}

	face := geometry.Extract(set, size)

	return Analysis{
		Size:      size,
		Face:      &face,
		Direction: direction.ClassifyFace(&face, s.thresholds),
	}, nil
}

func (s *eyeService) resolveMesh(ctx context.Context, frame eye.Frame) ([]landmark.Point, geometry.FrameSize, error) {
	if frame.Landmarks != nil {
		size := geometry.FrameSize{Width: frame.Landmarks.Width, Height: frame.Landmarks.Height}
		if size.Width <= 0 || size.Height <= 0 {
			return nil, geometry.FrameSize{}, response.WithDetail(eye.ErrInvalidInput, "width and height must be positive")
		}
		return frame.Landmarks.Landmarks, size, nil
	}

	if len(frame.Image) == 0 {
		return nil, geometry.FrameSize{}, response.WithDetail(eye.ErrInvalidImage, "empty frame")
	}

	if s.provider == nil {
		return nil, geometry.FrameSize{}, eye.ErrProviderUnavailable
	}

	detection, err := s.provider.Detect(ctx, frame.Image)
	if err != nil {
		return nil, geometry.FrameSize{}, s.providerError(ctx, err)
	}

	size := geometry.FrameSize{Width: detection.Width, Height: detection.Height}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, geometry.FrameSize{}, response.WithDetail(eye.ErrProviderUnavailable, "provider did not report the frame size")
	}

	mesh, _ := detection.First()
	return mesh, size, nil
}

func (s *eyeService) providerError(ctx context.Context, err error) error {
	fields := logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"error":      err.Error(),
	}

	switch {
	case errors.Is(err, facemesh.ErrInvalidImage):
		s.log.WithFields(fields).Warn("Landmark provider rejected the image")
		return response.WithDetail(eye.ErrInvalidImage, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.log.WithFields(fields).Warn("Landmark detection timed out")
		return err
	default:
		s.log.WithFields(fields).Error("Landmark provider call failed")
		return response.WithDetail(eye.ErrProviderUnavailable, err.Error())
	}
}

func (s *eyeService) Direction(ctx context.Context, frame eye.Frame) (eye.DirectionResponse, error) {
	a, err := s.Analyze(ctx, frame)
	if err != nil {
		return eye.DirectionResponse{}, err
	}

	resp := eye.DirectionResponse{
		Direction: a.Direction,
		Detected:  a.Detected(),
	}
	if a.Face != nil {
		gaze := a.Face.AverageGaze
		resp.AverageGazeVector = &gaze
		resp.BlinkRatio = &eye.BlinkRatio{
			Left:  a.Face.Left.BlinkRatio,
			Right: a.Face.Right.BlinkRatio,
		}
	}

	return resp, nil
}

func (s *eyeService) Pupil(ctx context.Context, frame eye.Frame) (eye.PupilResponse, error) {
	a, err := s.Analyze(ctx, frame)
	if err != nil {
		return eye.PupilResponse{}, err
	}

	resp := eye.PupilResponse{Detected: a.Detected()}
	if a.Face != nil {
		left, right := a.Face.Left.PupilDiameter, a.Face.Right.PupilDiameter
		resp.LeftPupilSize = &left
		resp.RightPupilSize = &right
	}

	return resp, nil
}

func (s *eyeService) GazeShift(ctx context.Context, sessionID string, frame eye.Frame) (eye.GazeShiftResponse, error) {
	if sessionID == "" {
		return eye.GazeShiftResponse{}, eye.ErrSessionRequired
	}

	a, err := s.Analyze(ctx, frame)
	if err != nil {
		return eye.GazeShiftResponse{}, err
	}

	points, err := s.updateTrail(ctx, sessionID, a)
	if err != nil {
		return eye.GazeShiftResponse{}, err
	}

	resp := eye.GazeShiftResponse{
		SessionID: sessionID,
		Detected:  a.Detected(),
		Trail:     points,
	}
	if a.Face != nil {
		point := a.Face.AverageIrisCenter
		resp.Point = &point
	}

	return resp, nil
}

func (s *eyeService) ProcessFrame(ctx context.Context, sessionID string, frame eye.Frame) (eye.FrameResponse, error) {
	a, err := s.Analyze(ctx, frame)
	if err != nil {
		return eye.FrameResponse{}, err
	}

	resp := eye.FrameResponse{
		SessionID: sessionID,
		Detected:  a.Detected(),
		Direction: a.Direction,
		Width:     a.Size.Width,
		Height:    a.Size.Height,
		Geometry:  a.Face,
	}

	if sessionID != "" {
		points, err := s.updateTrail(ctx, sessionID, a)
		if err != nil {
			return eye.FrameResponse{}, err
		}
		resp.Trail = points
	}

	return resp, nil
}

// updateTrail appends the frame's iris center and returns the trail. Frames
// without a face leave the trail untouched.
func (s *eyeService) updateTrail(ctx context.Context, sessionID string, a Analysis) ([]geometry.Vector, error) {
	var (
		points []geometry.Vector
		err    error
	)

	if a.Face != nil {
		points, err = s.trails.Append(ctx, sessionID, a.Face.AverageIrisCenter)
	} else {
		points, err = s.trails.Points(ctx, sessionID)
	}
	if err != nil {
		return nil, s.trailError(ctx, sessionID, err)
	}

	return points, nil
}

func (s *eyeService) Trail(ctx context.Context, sessionID string) (eye.TrailResponse, error) {
	if sessionID == "" {
		return eye.TrailResponse{}, eye.ErrSessionRequired
	}

	points, err := s.trails.Points(ctx, sessionID)
	if err != nil {
		return eye.TrailResponse{}, s.trailError(ctx, sessionID, err)
	}

	segments := trail.Segments(points)
	if segments == nil {
		segments = [][2]geometry.Vector{}
	}

	return eye.TrailResponse{
		SessionID: sessionID,
		Capacity:  s.trails.Capacity(),
		Trail:     points,
		Segments:  segments,
	}, nil
}

func (s *eyeService) ResetTrail(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return eye.ErrSessionRequired
	}

	if err := s.trails.Reset(ctx, sessionID); err != nil {
		return s.trailError(ctx, sessionID, err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": sessionID,
	}).Debug("Gaze trail reset")
	return nil
}

func (s *eyeService) trailError(ctx context.Context, sessionID string, err error) error {
	if errors.Is(err, trail.ErrEmptySession) {
		return eye.ErrSessionRequired
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": sessionID,
		"error":      err.Error(),
	}).Error("Trail store operation failed")
	return response.WithDetail(eye.ErrTrailStore, err.Error())
}
