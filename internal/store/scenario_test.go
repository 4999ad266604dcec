package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresmejia3/posture/internal/analysis"
)

// runStoreScenario exercises the behaviour every backend must share.
func runStoreScenario(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.GetReport(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.EnsureVideo(ctx, "vid_123", "/tmp/talk.mp4"))
	require.NoError(t, s.EnsureVideo(ctx, "vid_123", "/tmp/talk-moved.mp4"), "re-registering a video must not fail")

	first := analysis.SessionReport{
		Center: 10, Up: 2, Down: 1, Left: 3, Right: 4,
		TotalGestures: 7, FirstHalfGestures: 3, SecondHalfGestures: 4,
		FirstHalfFeedback:  analysis.FeedbackGood,
		SecondHalfFeedback: analysis.FeedbackGood,
		VideoID:            "vid_123",
		FrameCount:         20,
		FramesDecoded:      20,
	}
	require.NoError(t, s.Save(ctx, "subject-1", first))

	// Saving again for the same subject overwrites rather than duplicates.
	second := first
	second.Center = 42
	second.FirstHalfFeedback = analysis.FeedbackAwesome
	second.VideoID = ""
	require.NoError(t, s.Save(ctx, "subject-1", second))

	got, err := s.GetReport(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, second, got.Report)
	assert.False(t, got.UpdatedAt.IsZero())
	assert.Empty(t, got.Charts)

	require.NoError(t, s.Save(ctx, "subject-2", first))

	require.NoError(t, s.AttachChart(ctx, "subject-1", "direction", "/charts/a.png"))
	require.NoError(t, s.AttachChart(ctx, "subject-1", "direction", "/charts/b.png"))
	require.NoError(t, s.AttachChart(ctx, "subject-1", "gesture", "/charts/g.png"))

	got, err = s.GetReport(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"direction": "/charts/b.png", "gesture": "/charts/g.png"}, got.Charts)

	all, err := s.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	subjects := []string{all[0].SubjectID, all[1].SubjectID}
	assert.ElementsMatch(t, []string{"subject-1", "subject-2"}, subjects)

	require.NoError(t, s.Reset(ctx))
}
