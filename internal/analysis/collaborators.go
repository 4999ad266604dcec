package analysis

import (
	"context"
	"errors"

	"github.com/andresmejia3/posture/internal/types"
)

// ErrNoFace is returned by a collaborator that expected a trackable face in
// the frame and found none.
var ErrNoFace = errors.New("no face found")

// ErrUnavailable is returned by a collaborator that can no longer answer,
// e.g. a worker whose pipe fell out of step. The frame loop stops on it.
var ErrUnavailable = errors.New("collaborator unavailable")

// FaceMeasurement is what the face detector reports for one frame.
type FaceMeasurement struct {
	FaceWidth  float64 // pixels; 0 when no face was located
	Brightness float64 // brightness score of the face region
}

// FaceMeasurer locates the face and reports its width.
type FaceMeasurer interface {
	Measure(ctx context.Context, f types.Frame) (FaceMeasurement, error)
}

// GazeEstimator is a stateful gaze model. Update locks onto the frame; the
// other methods report on the last successful Update.
type GazeEstimator interface {
	Update(ctx context.Context, f types.Frame) error
	Ratios() (vertical, horizontal float64)
	IsLeft() bool
	IsRight() bool
	IsCenter() bool
}

// HandDetector reports whether at least one hand is visible.
type HandDetector interface {
	Detect(ctx context.Context, f types.Frame) (bool, error)
}

// FrameSource yields decoded frames in order. Read returns io.EOF at the end
// of the stream.
type FrameSource interface {
	Read(ctx context.Context) (types.Frame, error)
	// FrameCount is a best-effort total, <= 0 when unknown.
	FrameCount() int
}

// ReportSink persists a finished report. Saving the same subject twice
// overwrites the earlier record.
type ReportSink interface {
	Save(ctx context.Context, subjectID string, report SessionReport) error
}

// Collaborators bundles the per-session detector instances. Instances must
// not be shared between concurrently running sessions.
type Collaborators struct {
	Face     FaceMeasurer
	Selfie   GazeEstimator
	FullBody GazeEstimator
	Hands    HandDetector
}

func (c Collaborators) validate() error {
	switch {
	case c.Face == nil:
		return errors.New("face measurer is required")
	case c.Selfie == nil || c.FullBody == nil:
		return errors.New("both gaze estimators are required")
	case c.Hands == nil:
		return errors.New("hand detector is required")
	}
	return nil
}
