package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/posture/internal/analysis"
	"github.com/andresmejia3/posture/internal/log"
)

// ChartSink records a rendered chart for a subject.
type ChartSink interface {
	AttachChart(ctx context.Context, subjectID string, kind string, path string) error
}

// DirectionChart shows the share of each head direction.
func DirectionChart(r analysis.SessionReport, path string) PieChart {
	return PieChart{
		Labels:  []string{"Center", "Left", "Right", "Up", "Down"},
		Sizes:   []float64{float64(r.Center), float64(r.Left), float64(r.Right), float64(r.Up), float64(r.Down)},
		Explode: []float64{0.05, 0, 0, 0, 0},
		Path:    path,
		Kind:    KindDirection,
	}
}

// GestureChart shows gesture counts per session half.
func GestureChart(r analysis.SessionReport, path string) PieChart {
	return PieChart{
		Labels: []string{"First half", "Second half"},
		Sizes:  []float64{float64(r.FirstHalfGestures), float64(r.SecondHalfGestures)},
		Path:   path,
		Kind:   KindGesture,
	}
}

// Charts renders both charts for r into dir and attaches each produced file
// to sink, which may be nil. Charts that cannot be drawn are skipped. The
// error is reserved for dir creation and sink failures.
func Charts(ctx context.Context, dir, subjectID string, r analysis.SessionReport, sink ChartSink) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chart directory: %w", err)
	}

	base := safeName(subjectID)
	charts := []PieChart{
		DirectionChart(r, filepath.Join(dir, base+"_direction.png")),
		GestureChart(r, filepath.Join(dir, base+"_gesture.png")),
	}

	var paths []string
	for _, c := range charts {
		path, ok := Pie(c)
		if !ok {
			continue
		}
		paths = append(paths, path)
		log.Debug("chart written", "subject", subjectID, "kind", c.Kind, "path", path)

		if sink == nil {
			continue
		}
		if err := sink.AttachChart(ctx, subjectID, string(c.Kind), path); err != nil {
			return paths, fmt.Errorf("failed to attach %s chart: %w", c.Kind, err)
		}
	}
	return paths, nil
}

// safeName keeps subject IDs from escaping the chart directory.
func safeName(s string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
	if out == "" {
		return "subject"
	}
	return out
}
