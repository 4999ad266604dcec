package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFocalLength(t *testing.T) {
	assert.InDelta(t, 100*43/12.3, FocalLength(43, 12.3, 100), 1e-9)
}

func TestDistanceRoundTrip(t *testing.T) {
	tests := []struct {
		ref, frame float64
	}{
		{100, 100},
		{100, 50},
		{150, 300},
		{1, 1000},
		{333.3, 12.7},
	}

	for _, tt := range tests {
		focal := FocalLength(43, 12.3, tt.ref)
		got := Distance(focal, 12.3, tt.frame)
		assert.InDelta(t, 43*tt.ref/tt.frame, got, 1e-9, "ref=%v frame=%v", tt.ref, tt.frame)
	}
}

func TestSelectRegime(t *testing.T) {
	b := DefaultBounds()
	tests := []struct {
		d    float64
		want Regime
	}{
		{0, RegimeNone},
		{20, RegimeNone},
		{20.01, RegimeSelfie},
		{43, RegimeSelfie},
		{68.99, RegimeSelfie},
		{69, RegimeFullBody}, // boundary belongs to full-body
		{100, RegimeFullBody},
		{140, RegimeFullBody},
		{140.01, RegimeTooFar},
		{500, RegimeTooFar},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SelectRegime(tt.d, b), "d=%v", tt.d)
	}
}
