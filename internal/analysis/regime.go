package analysis

// Regime is the measurement mode chosen from the estimated subject distance.
type Regime int

const (
	RegimeNone     Regime = iota // too close, nothing measured
	RegimeSelfie                 // close range gaze model
	RegimeFullBody               // far range gaze model
	RegimeTooFar                 // beyond the full-body range
)

func (r Regime) String() string {
	switch r {
	case RegimeSelfie:
		return "selfie"
	case RegimeFullBody:
		return "fullbody"
	case RegimeTooFar:
		return "too-far"
	default:
		return "none"
	}
}

// Bounds are the distance limits (cm) separating the regimes.
type Bounds struct {
	MinSelfie   float64
	MinFullBody float64
	MaxFullBody float64
}

// DefaultBounds returns the calibrated 20/69/140 cm limits.
func DefaultBounds() Bounds {
	return Bounds{MinSelfie: 20, MinFullBody: 69, MaxFullBody: 140}
}

// SelectRegime maps a distance onto a regime. Selfie is open on both ends,
// full-body is closed on both ends, so MinFullBody itself is full-body.
func SelectRegime(d float64, b Bounds) Regime {
	switch {
	case d > b.MinSelfie && d < b.MinFullBody:
		return RegimeSelfie
	case d >= b.MinFullBody && d <= b.MaxFullBody:
		return RegimeFullBody
	case d > b.MaxFullBody:
		return RegimeTooFar
	default:
		return RegimeNone
	}
}
