// Package analysis turns a stream of video frames into a session report of
// head orientation, eye gaze, gesture timing and data quality.
//
// The detectors themselves are collaborators behind small interfaces; this
// package owns the per-frame classification and the session reduction.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/andresmejia3/posture/internal/log"
)

// Config holds the calibration and weighting for an Analyzer.
type Config struct {
	KnownDistance      float64 // cm, distance of the subject in the reference image
	KnownWidth         float64 // cm, real face width
	ReferenceFaceWidth float64 // px, face width measured in the reference image

	Bounds  Bounds
	Weights Weights
}

// DefaultConfig returns the stock calibration. ReferenceFaceWidth still has
// to be measured.
func DefaultConfig() Config {
	return Config{
		KnownDistance: 43,
		KnownWidth:    12.3,
		Bounds:        DefaultBounds(),
		Weights:       DefaultWeights(),
	}
}

func (c Config) validate() error {
	if c.KnownDistance <= 0 || c.KnownWidth <= 0 {
		return fmt.Errorf("known distance and width must be positive, got %v cm and %v cm", c.KnownDistance, c.KnownWidth)
	}
	if c.ReferenceFaceWidth <= 0 {
		return fmt.Errorf("reference face width must be positive, got %v px", c.ReferenceFaceWidth)
	}
	b := c.Bounds
	if !(b.MinSelfie < b.MinFullBody && b.MinFullBody <= b.MaxFullBody) {
		return fmt.Errorf("regime bounds out of order: %+v", b)
	}
	for name, v := range map[string]float64{"head": c.Weights.Head, "eyes": c.Weights.Eyes} {
		// NaN fails both comparisons.
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("%s weight must be between 0 and 1, got %v", name, v)
		}
	}
	return nil
}

// SessionStats summarizes a finished run for metrics.
type SessionStats struct {
	RunID         string
	SubjectID     string
	FramesDecoded int
	Gestures      int
	LowLight      int
	TooFar        int
	NoFace        int
	Flag          AbortFlag
	Duration      time.Duration
}

// Metrics receives one record per finished session.
type Metrics interface {
	RecordSession(ctx context.Context, s SessionStats)
}

type noopMetrics struct{}

func (noopMetrics) RecordSession(context.Context, SessionStats) {}

// Result is what Analyze hands back. Report is nil for an aborted or empty
// session.
type Result struct {
	RunID  string
	Report *SessionReport
	Flag   AbortFlag
}

// Analyzer runs sessions against one set of collaborators. It is not safe
// for concurrent use; create one per session.
type Analyzer struct {
	cfg     Config
	collab  Collaborators
	sink    ReportSink
	metrics Metrics
	videoID string
	onFrame func(ClassifiedFrame)
	logger  *slog.Logger
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithSink saves every completed, non-aborted report.
func WithSink(s ReportSink) Option {
	return func(a *Analyzer) { a.sink = s }
}

// WithMetrics records session statistics.
func WithMetrics(m Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithVideoID tags the report with the ID of the analyzed video.
func WithVideoID(id string) Option {
	return func(a *Analyzer) { a.videoID = id }
}

// WithFrameHook is called after each frame is classified, e.g. to drive a
// progress bar.
func WithFrameHook(fn func(ClassifiedFrame)) Option {
	return func(a *Analyzer) { a.onFrame = fn }
}

// New validates the configuration and collaborators.
func New(cfg Config, collab Collaborators, opts ...Option) (*Analyzer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := collab.validate(); err != nil {
		return nil, err
	}

	a := &Analyzer{
		cfg:     cfg,
		collab:  collab,
		metrics: noopMetrics{},
		logger:  log.With("component", "analysis"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Analyze reads src to the end, classifies every frame and reduces the
// session. Read errors end the stream early; the partial session is still
// reported. The returned error is reserved for a failing ReportSink.
func (a *Analyzer) Analyze(ctx context.Context, src FrameSource, subjectID string) (Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := a.logger.With("run", runID, "subject", subjectID)

	c := &classifier{
		collab:      a.collab,
		focalLength: FocalLength(a.cfg.KnownDistance, a.cfg.KnownWidth, a.cfg.ReferenceFaceWidth),
		realWidth:   a.cfg.KnownWidth,
		bounds:      a.cfg.Bounds,
		logger:      logger,
	}

	acc := NewAccumulator()
	index := 1
	for {
		if err := ctx.Err(); err != nil {
			logger.Warn("analysis cancelled, aggregating partial session", "frames", acc.Frames())
			break
		}

		frame, err := src.Read(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Error("frame read failed, aggregating partial session", "frame", index, "err", err)
			}
			break
		}
		frame.Index = index

		cf, err := c.classify(ctx, frame)
		if err != nil {
			logger.Error("frame analysis failed, aggregating partial session", "frame", index, "err", err)
			break
		}
		acc.Add(cf)
		if a.onFrame != nil {
			a.onFrame(cf)
		}
		index++
	}

	res := Result{RunID: runID}
	defer func() {
		a.metrics.RecordSession(context.WithoutCancel(ctx), SessionStats{
			RunID:         runID,
			SubjectID:     subjectID,
			FramesDecoded: acc.Frames(),
			Gestures:      len(acc.Gestures()),
			LowLight:      acc.QualityCount(QualityLowLight),
			TooFar:        acc.QualityCount(QualityTooFar),
			NoFace:        acc.QualityCount(QualityNoFace),
			Flag:          res.Flag,
			Duration:      time.Since(start),
		})
	}()

	if acc.Frames() == 0 {
		logger.Info("no frames decoded")
		return res, nil
	}

	report, flag := Aggregate(acc, src.FrameCount(), a.cfg.Weights)
	res.Flag = flag
	if flag != AbortNone {
		logger.Info("session aborted on quality", "flag", flag.String(), "frames", acc.Frames())
		return res, nil
	}

	report.VideoID = a.videoID
	res.Report = report
	logger.Info("session analyzed",
		"frames", report.FramesDecoded,
		"center", report.Center,
		"left", report.Left,
		"right", report.Right,
		"gestures", report.TotalGestures,
	)

	if a.sink != nil {
		// Persist even if the caller gave up mid-stream; the partial report is valid.
		if err := a.sink.Save(context.WithoutCancel(ctx), subjectID, *report); err != nil {
			return res, fmt.Errorf("failed to save report for subject %s: %w", subjectID, err)
		}
	}
	return res, nil
}

// MeasureReference runs the face measurer on a reference image and returns
// the face width to use as Config.ReferenceFaceWidth.
func MeasureReference(ctx context.Context, face FaceMeasurer, src FrameSource) (float64, error) {
	frame, err := src.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read reference image: %w", err)
	}
	frame.Index = 1
	m, err := face.Measure(ctx, frame)
	if err != nil {
		return 0, fmt.Errorf("failed to measure reference face: %w", err)
	}
	if m.FaceWidth <= 0 {
		return 0, ErrNoFace
	}
	return m.FaceWidth, nil
}
