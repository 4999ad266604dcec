package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHead(t *testing.T) {
	tests := []struct {
		name       string
		vertical   float64
		horizontal float64
		want       HeadDirection
	}{
		{"center", 1.5, 1.0, HeadCenter},
		{"center at lower corner", 1.33, 0.71, HeadCenter},
		{"center at upper corner", 2.10, 1.45, HeadCenter},
		{"upper just below vertical min", 1.3299, 1.0, HeadUpper},
		{"upper", 0.5, 1.45, HeadUpper},
		{"down just above vertical max", 2.1001, 1.0, HeadDown},
		{"down", 3.0, 0.71, HeadDown},
		{"left just below horizontal min", 1.5, 0.7099, HeadLeft},
		{"left ignores vertical", 5.0, 0.1, HeadLeft},
		{"right just above horizontal max", 1.5, 1.4501, HeadRight},
		{"right ignores vertical", 0.0, 3.0, HeadRight},
		{"nan horizontal", 1.5, math.NaN(), HeadNone},
		{"nan vertical in band", math.NaN(), 1.0, HeadNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyHead(tt.vertical, tt.horizontal))
		})
	}
}

func TestClassifyEyesPriority(t *testing.T) {
	tests := []struct {
		name                string
		left, right, center bool
		want                EyeDirection
	}{
		{"right wins over everything", true, true, true, EyesRight},
		{"left wins over center", true, false, true, EyesLeft},
		{"center", false, false, true, EyesCenter},
		{"nothing", false, false, false, EyesNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGaze{last: scripted{left: tt.left, right: tt.right, center: tt.center}}
			assert.Equal(t, tt.want, ClassifyEyes(g))
		})
	}
}

func TestDirectionStrings(t *testing.T) {
	assert.Equal(t, "Upper", HeadUpper.String())
	assert.Equal(t, "", HeadNone.String())
	assert.Equal(t, "Right", EyesRight.String())
	assert.Equal(t, "No Face Found", QualityNoFace.String())
	assert.Equal(t, "fullbody", RegimeFullBody.String())
}
