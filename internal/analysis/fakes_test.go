package analysis

import (
	"context"
	"errors"
	"io"

	"github.com/andresmejia3/posture/internal/types"
)

// scripted is the per-frame behaviour of the fake collaborators, keyed by
// 1-based frame index.
type scripted struct {
	faceWidth  float64
	brightness float64 // face brightness score
	faceErr    error

	vertical, horizontal float64
	left, right, center  bool
	gazeErr              error

	hand    bool
	handErr error
}

type fakeFace struct{ script map[int]scripted }

func (f *fakeFace) Measure(_ context.Context, fr types.Frame) (FaceMeasurement, error) {
	s := f.script[fr.Index]
	if s.faceErr != nil {
		return FaceMeasurement{}, s.faceErr
	}
	return FaceMeasurement{FaceWidth: s.faceWidth, Brightness: s.brightness}, nil
}

type fakeGaze struct {
	script  map[int]scripted
	last    scripted
	updates int
}

func (g *fakeGaze) Update(_ context.Context, fr types.Frame) error {
	g.updates++
	s := g.script[fr.Index]
	if s.gazeErr != nil {
		return s.gazeErr
	}
	g.last = s
	return nil
}

func (g *fakeGaze) Ratios() (float64, float64) { return g.last.vertical, g.last.horizontal }
func (g *fakeGaze) IsLeft() bool               { return g.last.left }
func (g *fakeGaze) IsRight() bool              { return g.last.right }
func (g *fakeGaze) IsCenter() bool             { return g.last.center }

type fakeHands struct {
	script map[int]scripted
	calls  int
}

func (h *fakeHands) Detect(_ context.Context, fr types.Frame) (bool, error) {
	h.calls++
	s := h.script[fr.Index]
	return s.hand, s.handErr
}

// sliceSource replays frames and then reports EOF or a fixed error.
type sliceSource struct {
	frames []types.Frame
	count  int
	tail   error
	pos    int
}

func (s *sliceSource) Read(context.Context) (types.Frame, error) {
	if s.pos >= len(s.frames) {
		if s.tail != nil {
			return types.Frame{}, s.tail
		}
		return types.Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *sliceSource) FrameCount() int { return s.count }

// brightFrames returns n frames bright enough to pass the eye gate.
func brightFrames(n int) []types.Frame {
	frames := make([]types.Frame, n)
	for i := range frames {
		frames[i] = types.Frame{Brightness: 120, HasBrightness: true}
	}
	return frames
}

type memSink struct {
	saved map[string]SessionReport
	saves int
	err   error
}

func (m *memSink) Save(_ context.Context, subjectID string, r SessionReport) error {
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = make(map[string]SessionReport)
	}
	m.saves++
	m.saved[subjectID] = r
	return nil
}

type recordingMetrics struct{ stats []SessionStats }

func (r *recordingMetrics) RecordSession(_ context.Context, s SessionStats) {
	r.stats = append(r.stats, s)
}

var errWorkerDied = errors.New("worker pipe closed")

// refWidth makes the focal length such that distance == 43*refWidth/faceWidth.
const refWidth = 100.0

// widthFor returns the face width (px) that puts the subject at d cm.
func widthFor(d float64) float64 { return 43 * refWidth / d }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ReferenceFaceWidth = refWidth
	return cfg
}

func newCollab(script map[int]scripted) (Collaborators, *fakeGaze, *fakeGaze, *fakeHands) {
	selfie := &fakeGaze{script: script}
	full := &fakeGaze{script: script}
	hands := &fakeHands{script: script}
	return Collaborators{
		Face:     &fakeFace{script: script},
		Selfie:   selfie,
		FullBody: full,
		Hands:    hands,
	}, selfie, full, hands
}
