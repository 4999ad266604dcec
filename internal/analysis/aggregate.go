package analysis

import "math"

// AbortFlag is the session-level quality verdict. A non-zero flag replaces
// the statistics in the report.
type AbortFlag int

const (
	AbortNone     AbortFlag = 0
	AbortLowLight AbortFlag = 1
	AbortTooFar   AbortFlag = 2
	AbortNoFace   AbortFlag = 3
)

func (a AbortFlag) String() string {
	switch a {
	case AbortLowLight:
		return "low-light"
	case AbortTooFar:
		return "too-far"
	case AbortNoFace:
		return "no-face"
	default:
		return "none"
	}
}

// abortShare is the fraction of all recorded results a quality flag must
// exceed to abort the session.
const abortShare = 0.50

// Weights blend head and eye counts into the composite scores.
type Weights struct {
	Head float64 // ratioX
	Eyes float64 // ratioY
}

// DefaultWeights lets the head dominate the composite.
func DefaultWeights() Weights {
	return Weights{Head: 0.95, Eyes: 0.05}
}

// SessionReport is the immutable outcome of one analyzed session.
type SessionReport struct {
	Center int
	Up     int
	Down   int
	Left   int
	Right  int

	TotalGestures      int
	FirstHalfGestures  int
	SecondHalfGestures int
	FirstHalfFeedback  string
	SecondHalfFeedback string

	VideoID       string
	FrameCount    int // total used for the half split
	FramesDecoded int
}

// Accumulator collects classified frames for a single session, in order.
type Accumulator struct {
	frames   []ClassifiedFrame
	head     map[HeadDirection]int
	eyes     map[EyeDirection]int
	quality  map[QualityFlag]int
	gestures []int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		head:    make(map[HeadDirection]int),
		eyes:    make(map[EyeDirection]int),
		quality: make(map[QualityFlag]int),
	}
}

// Add records a frame. Frames must arrive in index order.
func (a *Accumulator) Add(cf ClassifiedFrame) {
	a.frames = append(a.frames, cf)
	if cf.Head != HeadNone {
		a.head[cf.Head]++
	}
	if cf.Eyes != EyesNone {
		a.eyes[cf.Eyes]++
	}
	if cf.Quality != QualityNone {
		a.quality[cf.Quality]++
	}
	if cf.Gesture {
		a.gestures = append(a.gestures, cf.Index)
	}
}

// Frames returns the number of frames recorded.
func (a *Accumulator) Frames() int { return len(a.frames) }

// Gestures returns the indices of frames where a hand was seen.
func (a *Accumulator) Gestures() []int { return a.gestures }

// QualityCount returns how many frames carried flag q.
func (a *Accumulator) QualityCount(q QualityFlag) int { return a.quality[q] }

// TotalResults is the number of recorded results of every kind: head
// directions, eye directions, gesture frames and quality flags.
func (a *Accumulator) TotalResults() int {
	total := len(a.gestures)
	for _, n := range a.head {
		total += n
	}
	for _, n := range a.eyes {
		total += n
	}
	for _, n := range a.quality {
		total += n
	}
	return total
}

// HalfSplit counts gestures in each half of a session of frameCount frames.
// The first half is index <= half, the second half < index < frameCount, so a
// gesture on the very last index falls in neither.
func HalfSplit(gestures []int, frameCount int) (half, first, second int) {
	half = int(math.RoundToEven(float64(frameCount) / 2))
	for _, i := range gestures {
		if i <= half {
			first++
		}
		if half < i && i < frameCount {
			second++
		}
	}
	return half, first, second
}

// Composite blends a head count and an eye count with w.
func Composite(head, eyes int, w Weights) int {
	return int(math.RoundToEven(float64(head)*w.Head)) + int(math.RoundToEven(float64(eyes)*w.Eyes))
}

// Aggregate reduces the accumulated frames to a report. frameCount is the
// source's frame total; when it is unknown the decoded count is used. When an
// abort flag is raised the returned report is nil.
func Aggregate(a *Accumulator, frameCount int, w Weights) (*SessionReport, AbortFlag) {
	if frameCount <= 0 {
		frameCount = a.Frames()
	}

	half, first, second := HalfSplit(a.gestures, frameCount)
	firstFeedback := GestureScore(first, half)
	secondFeedback := GestureScore(second, frameCount-half)

	if flag := abortFlag(a.quality, a.TotalResults()); flag != AbortNone {
		return nil, flag
	}

	return &SessionReport{
		Center:             Composite(a.head[HeadCenter], a.eyes[EyesCenter], w),
		Up:                 a.head[HeadUpper],
		Down:               a.head[HeadDown],
		Left:               Composite(a.head[HeadLeft], a.eyes[EyesLeft], w),
		Right:              Composite(a.head[HeadRight], a.eyes[EyesRight], w),
		TotalGestures:      len(a.gestures),
		FirstHalfGestures:  first,
		SecondHalfGestures: second,
		FirstHalfFeedback:  firstFeedback,
		SecondHalfFeedback: secondFeedback,
		FrameCount:         frameCount,
		FramesDecoded:      a.Frames(),
	}, AbortNone
}

// abortFlag checks the quality flag counts in priority order against total
// results; the first one above the majority share wins. A zero total skips
// the checks.
func abortFlag(counts map[QualityFlag]int, total int) AbortFlag {
	if total == 0 {
		return AbortNone
	}
	limit := float64(total) * abortShare

	checks := []struct {
		q    QualityFlag
		flag AbortFlag
	}{
		{QualityLowLight, AbortLowLight},
		{QualityTooFar, AbortTooFar},
		{QualityNoFace, AbortNoFace},
	}
	for _, c := range checks {
		if float64(counts[c.q]) > limit {
			return c.flag
		}
	}
	return AbortNone
}
