package analysis

// HeadDirection is the discrete head orientation of a frame.
type HeadDirection int

const (
	HeadNone HeadDirection = iota
	HeadCenter
	HeadUpper
	HeadDown
	HeadLeft
	HeadRight
)

func (h HeadDirection) String() string {
	switch h {
	case HeadCenter:
		return "Center"
	case HeadUpper:
		return "Upper"
	case HeadDown:
		return "Down"
	case HeadLeft:
		return "Left"
	case HeadRight:
		return "Right"
	default:
		return ""
	}
}

// Head classification bounds on the gaze ratios.
const (
	horizontalMin = 0.71
	horizontalMax = 1.45
	verticalMin   = 1.33
	verticalMax   = 2.10
)

// ClassifyHead maps the gaze model's (vertical, horizontal) ratios onto a
// head direction. Rules are evaluated in order and the first match wins.
// NaN ratios match nothing and yield HeadNone.
func ClassifyHead(vertical, horizontal float64) HeadDirection {
	switch {
	case horizontal >= horizontalMin && horizontal <= horizontalMax:
		switch {
		case vertical >= verticalMin && vertical <= verticalMax:
			return HeadCenter
		case vertical < verticalMin:
			return HeadUpper
		case vertical > verticalMax:
			return HeadDown
		}
	case horizontal < horizontalMin:
		return HeadLeft
	case horizontal > horizontalMax:
		return HeadRight
	}
	return HeadNone
}

// EyeDirection is the discrete eye gaze of a frame.
type EyeDirection int

const (
	EyesNone EyeDirection = iota
	EyesCenter
	EyesLeft
	EyesRight
)

func (e EyeDirection) String() string {
	switch e {
	case EyesCenter:
		return "Center"
	case EyesLeft:
		return "Left"
	case EyesRight:
		return "Right"
	default:
		return ""
	}
}

// EyeBrightnessGate is the frame brightness a frame must exceed before the
// eye flags are trusted.
const EyeBrightnessGate = 97

// ClassifyEyes queries the active gaze estimator. Right is tested before
// left, left before center.
func ClassifyEyes(g GazeEstimator) EyeDirection {
	switch {
	case g.IsRight():
		return EyesRight
	case g.IsLeft():
		return EyesLeft
	case g.IsCenter():
		return EyesCenter
	default:
		return EyesNone
	}
}
