package render

import (
	"context"
	"errors"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresmejia3/posture/internal/analysis"
)

func TestPie_Validation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chart.png")

	tests := []struct {
		name  string
		chart PieChart
	}{
		{"no sizes", PieChart{Path: path}},
		{"all zero", PieChart{Labels: []string{"a", "b"}, Sizes: []float64{0, 0}, Path: path}},
		{"length mismatch", PieChart{Labels: []string{"a"}, Sizes: []float64{1, 2}, Path: path}},
		{"nan", PieChart{Labels: []string{"a", "b"}, Sizes: []float64{1, math.NaN()}, Path: path}},
		{"inf", PieChart{Labels: []string{"a", "b"}, Sizes: []float64{1, math.Inf(1)}, Path: path}},
		{"negative", PieChart{Labels: []string{"a", "b"}, Sizes: []float64{3, -1}, Path: path}},
		{"colors mismatch", PieChart{Labels: []string{"a", "b"}, Sizes: []float64{1, 2}, Colors: []color.Color{color.Black}, Path: path}},
		{"explode mismatch", PieChart{Labels: []string{"a", "b"}, Sizes: []float64{1, 2}, Explode: []float64{0.1}, Path: path}},
		{"no path", PieChart{Labels: []string{"a"}, Sizes: []float64{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Pie(tt.chart)
			assert.False(t, ok)
			assert.Empty(t, got)
			_, err := os.Stat(path)
			assert.True(t, os.IsNotExist(err), "no artifact should be produced")
		})
	}
}

func TestPie_WritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.png")
	got, ok := Pie(PieChart{
		Labels:  []string{"Center", "Left", "Right"},
		Sizes:   []float64{6, 3, 1},
		Explode: []float64{0.1, 0, 0},
		Path:    path,
		Kind:    KindDirection,
	})
	require.True(t, ok)
	assert.Equal(t, path, got)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, canvasW, img.Bounds().Dx())
	assert.Equal(t, canvasH, img.Bounds().Dy())
}

func TestPie_UnwritablePath(t *testing.T) {
	_, ok := Pie(PieChart{
		Labels: []string{"a"},
		Sizes:  []float64{1},
		Path:   filepath.Join(t.TempDir(), "missing", "chart.png"),
	})
	assert.False(t, ok)
}

func TestLegend(t *testing.T) {
	c := PieChart{Labels: []string{"First half", "Second half"}, Sizes: []float64{3.7, 1}, Kind: KindGesture}
	assert.Equal(t, []string{"First half, 3.0", "Second half, 1.0"}, c.legend(4.7))

	c = PieChart{Labels: []string{"Center", "Left"}, Sizes: []float64{3, 1}, Kind: KindDirection}
	assert.Equal(t, []string{"Center, 75.0%", "Left, 25.0%"}, c.legend(4))
}

type recordingSink struct {
	kinds []string
	err   error
}

func (s *recordingSink) AttachChart(_ context.Context, subjectID, kind, path string) error {
	s.kinds = append(s.kinds, subjectID+":"+kind)
	return s.err
}

func TestCharts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	report := analysis.SessionReport{Center: 10, Left: 2, Right: 1, Up: 1, FirstHalfGestures: 4, SecondHalfGestures: 6}
	sink := &recordingSink{}

	paths, err := Charts(context.Background(), dir, "user/42", report, sink)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "user_42_direction.png"),
		filepath.Join(dir, "user_42_gesture.png"),
	}, paths)
	assert.Equal(t, []string{"user/42:direction", "user/42:gesture"}, sink.kinds)
}

func TestCharts_SkipsEmptyGestures(t *testing.T) {
	report := analysis.SessionReport{Center: 5}
	sink := &recordingSink{}

	paths, err := Charts(context.Background(), t.TempDir(), "s1", report, sink)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
	assert.Equal(t, []string{"s1:direction"}, sink.kinds)
}

func TestCharts_SinkError(t *testing.T) {
	sink := &recordingSink{err: errors.New("db down")}
	_, err := Charts(context.Background(), t.TempDir(), "s1", analysis.SessionReport{Center: 1}, sink)
	assert.ErrorContains(t, err, "db down")
}
