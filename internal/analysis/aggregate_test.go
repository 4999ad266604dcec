package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposite(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, 10, Composite(10, 4, w)) // 9.5 -> 10, 0.2 -> 0
	assert.Equal(t, 0, Composite(0, 0, w))
	assert.Equal(t, 100, Composite(100, 100, w))
	assert.Equal(t, 5, Composite(3, 50, w)) // 2.85 -> 3, 2.5 -> 2
	assert.Equal(t, 7, Composite(7, 0, Weights{Head: 1}))
}

func TestHalfSplit(t *testing.T) {
	tests := []struct {
		name          string
		gestures      []int
		frameCount    int
		half          int
		first, second int
	}{
		{"odd count rounds half to even", []int{50, 51}, 101, 50, 1, 1},
		{"half rounds up to even", []int{51, 52, 53}, 103, 52, 2, 1},
		{"last index excluded from both halves", []int{1, 100}, 100, 50, 1, 0},
		{"index past the count excluded", []int{120}, 100, 50, 0, 0},
		{"empty", nil, 10, 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			half, first, second := HalfSplit(tt.gestures, tt.frameCount)
			assert.Equal(t, tt.half, half)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.second, second)
		})
	}
}

func TestAbortFlagPriority(t *testing.T) {
	tests := []struct {
		name   string
		counts map[QualityFlag]int
		total  int
		want   AbortFlag
	}{
		{"low light and too far both above half", map[QualityFlag]int{QualityLowLight: 60, QualityTooFar: 60}, 100, AbortLowLight},
		{"all three above half", map[QualityFlag]int{QualityLowLight: 51, QualityTooFar: 90, QualityNoFace: 99}, 100, AbortLowLight},
		{"too far beats no face", map[QualityFlag]int{QualityTooFar: 51, QualityNoFace: 51}, 100, AbortTooFar},
		{"no face alone", map[QualityFlag]int{QualityNoFace: 51}, 100, AbortNoFace},
		{"exactly half is not a majority", map[QualityFlag]int{QualityLowLight: 50}, 100, AbortNone},
		{"zero total skips checks", map[QualityFlag]int{}, 0, AbortNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, abortFlag(tt.counts, tt.total))
		})
	}
}

func accumulate(frames []ClassifiedFrame) *Accumulator {
	acc := NewAccumulator()
	for i, f := range frames {
		f.Index = i + 1
		acc.Add(f)
	}
	return acc
}

func repeat(n int, f ClassifiedFrame) []ClassifiedFrame {
	out := make([]ClassifiedFrame, n)
	for i := range out {
		out[i] = f
	}
	return out
}

func TestAggregateAbortsOnMajorityFlag(t *testing.T) {
	frames := repeat(8, ClassifiedFrame{Quality: QualityNoFace})
	frames = append(frames, repeat(2, ClassifiedFrame{Head: HeadCenter})...)

	report, flag := Aggregate(accumulate(frames), 10, DefaultWeights())
	assert.Equal(t, AbortNoFace, flag)
	assert.Nil(t, report)
}

func TestAggregateReport(t *testing.T) {
	var frames []ClassifiedFrame
	frames = append(frames, repeat(10, ClassifiedFrame{Head: HeadCenter, Eyes: EyesCenter})...)
	frames = append(frames, repeat(4, ClassifiedFrame{Head: HeadLeft})...)
	frames = append(frames, repeat(3, ClassifiedFrame{Head: HeadRight, Eyes: EyesRight})...)
	frames = append(frames, repeat(2, ClassifiedFrame{Head: HeadUpper})...)
	frames = append(frames, repeat(1, ClassifiedFrame{Head: HeadDown, Quality: QualityLowLight})...)
	// gestures on frames 1, 2 and 20
	frames[0].Gesture = true
	frames[1].Gesture = true
	frames[19].Gesture = true

	acc := accumulate(frames)
	assert.Equal(t, 20+13+3+1, acc.TotalResults())

	report, flag := Aggregate(acc, 20, DefaultWeights())
	require.Equal(t, AbortNone, flag)
	require.NotNil(t, report)

	assert.Equal(t, Composite(10, 10, DefaultWeights()), report.Center)
	assert.Equal(t, Composite(4, 0, DefaultWeights()), report.Left)
	assert.Equal(t, Composite(3, 3, DefaultWeights()), report.Right)
	assert.Equal(t, 2, report.Up)
	assert.Equal(t, 1, report.Down)
	assert.Equal(t, 3, report.TotalGestures)
	assert.Equal(t, 2, report.FirstHalfGestures)
	assert.Equal(t, 0, report.SecondHalfGestures) // frame 20 == frame count
	assert.Equal(t, FeedbackGood, report.FirstHalfFeedback)
	assert.Equal(t, FeedbackNone, report.SecondHalfFeedback)
	assert.Equal(t, 20, report.FrameCount)
	assert.Equal(t, 20, report.FramesDecoded)
}

func TestAggregateUnknownFrameCountUsesDecoded(t *testing.T) {
	frames := repeat(6, ClassifiedFrame{Head: HeadCenter})
	frames[4].Gesture = true // index 5, second half of 6

	report, flag := Aggregate(accumulate(frames), 0, DefaultWeights())
	require.Equal(t, AbortNone, flag)
	assert.Equal(t, 6, report.FrameCount)
	assert.Equal(t, 1, report.SecondHalfGestures)
}

func TestAggregateNoResults(t *testing.T) {
	// Frames decoded but nothing recorded: abort checks are skipped and the
	// report is all zeros.
	report, flag := Aggregate(accumulate(repeat(3, ClassifiedFrame{})), 3, DefaultWeights())
	require.Equal(t, AbortNone, flag)
	require.NotNil(t, report)
	assert.Zero(t, report.Center)
	assert.Zero(t, report.TotalGestures)
	assert.Equal(t, FeedbackNone, report.FirstHalfFeedback)
}
