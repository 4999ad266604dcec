package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/andresmejia3/posture/internal/types"
)

// QualityFlag is the data-quality problem attached to a frame, if any.
type QualityFlag int

const (
	QualityNone QualityFlag = iota
	QualityLowLight
	QualityTooFar
	QualityNoFace
)

func (q QualityFlag) String() string {
	switch q {
	case QualityLowLight:
		return "Low Light Found"
	case QualityTooFar:
		return "You Are Too Far"
	case QualityNoFace:
		return "No Face Found"
	default:
		return ""
	}
}

// LowLightThreshold is the face brightness at or below which a frame is
// flagged as low light.
const LowLightThreshold = 65

// ClassifiedFrame is the per-frame outcome fed to the accumulator.
type ClassifiedFrame struct {
	Index    int
	Head     HeadDirection
	Eyes     EyeDirection
	Quality  QualityFlag
	Gesture  bool
	Regime   Regime
	Distance float64 // cm, 0 when no face was measured
}

// errCollaborator marks a face or gaze failure that is not a missing face,
// or a hand detector that is gone for good. The frame loop stops on it.
type errCollaborator struct{ err error }

func (e errCollaborator) Error() string { return fmt.Sprintf("collaborator failed: %v", e.err) }
func (e errCollaborator) Unwrap() error { return e.err }

// classifier runs the per-frame pipeline for one session.
type classifier struct {
	collab      Collaborators
	focalLength float64
	realWidth   float64
	bounds      Bounds
	logger      *slog.Logger
}

// classify produces the ClassifiedFrame for f. Gesture detection always
// runs; face analysis is skipped once a frame is known to have no face.
func (c *classifier) classify(ctx context.Context, f types.Frame) (ClassifiedFrame, error) {
	cf := ClassifiedFrame{Index: f.Index}

	hasHand, err := c.collab.Hands.Detect(ctx, f)
	if errors.Is(err, ErrUnavailable) {
		return cf, errCollaborator{err}
	}
	if err != nil {
		c.logger.Warn("hand detection failed", "frame", f.Index, "err", err)
	}
	cf.Gesture = hasHand

	m, err := c.collab.Face.Measure(ctx, f)
	if errors.Is(err, ErrNoFace) || (err == nil && m.FaceWidth <= 0) {
		cf.Quality = QualityNoFace
		return cf, nil
	}
	if err != nil {
		return cf, errCollaborator{err}
	}

	lowLight := m.Brightness <= LowLightThreshold
	cf.Distance = Distance(c.focalLength, c.realWidth, m.FaceWidth)
	cf.Regime = SelectRegime(cf.Distance, c.bounds)

	var gaze GazeEstimator
	switch cf.Regime {
	case RegimeSelfie:
		gaze = c.collab.Selfie
	case RegimeFullBody:
		gaze = c.collab.FullBody
	}

	if gaze != nil {
		if err := gaze.Update(ctx, f); err != nil {
			if errors.Is(err, ErrNoFace) {
				return ClassifiedFrame{Index: f.Index, Gesture: cf.Gesture, Quality: QualityNoFace, Regime: cf.Regime, Distance: cf.Distance}, nil
			}
			return cf, errCollaborator{err}
		}
		cf.Head = ClassifyHead(gaze.Ratios())
		if f.HasBrightness && f.Brightness > EyeBrightnessGate {
			cf.Eyes = ClassifyEyes(gaze)
		}
	}

	switch {
	case lowLight:
		cf.Quality = QualityLowLight
	case cf.Regime == RegimeTooFar:
		cf.Quality = QualityTooFar
	}
	return cf, nil
}
