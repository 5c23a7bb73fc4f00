package eyeService

import (
	"OcularBiomarker/internal/api/eye"
	"OcularBiomarker/pkg/direction"
	"OcularBiomarker/pkg/facemesh"
	"OcularBiomarker/pkg/trail"
	"context"
	"github.com/sirupsen/logrus"
)

type IEyeService interface {
	Analyze(ctx context.Context, frame eye.Frame) (Analysis, error)
	Direction(ctx context.Context, frame eye.Frame) (eye.DirectionResponse, error)
	Pupil(ctx context.Context, frame eye.Frame) (eye.PupilResponse, error)
	GazeShift(ctx context.Context, sessionID string, frame eye.Frame) (eye.GazeShiftResponse, error)
	ProcessFrame(ctx context.Context, sessionID string, frame eye.Frame) (eye.FrameResponse, error)
	Trail(ctx context.Context, sessionID string) (eye.TrailResponse, error)
	ResetTrail(ctx context.Context, sessionID string) error
}

type Options struct {
	Thresholds   direction.Thresholds
	MirrorFrames bool
}

type eyeService struct {
	log        *logrus.Logger
	provider   facemesh.ILandmarkProvider
	trails     trail.Store
	thresholds direction.Thresholds
	mirror     bool
}

func NewEyeService(
	log *logrus.Logger,
	provider facemesh.ILandmarkProvider,
	trails trail.Store,
	opts Options,
) IEyeService {
	return &eyeService{
		log:        log,
		provider:   provider,
		trails:     trails,
		thresholds: opts.Thresholds,
		mirror:     opts.MirrorFrames,
	}
}
