package analysis

// Gesture feedback statements, from "none" to "far too many".
const (
	FeedbackNone    = "We didn’t see any gestures. Is this a missed opportunity? Consider using gestures to help you emphasize your key messages."
	FeedbackGood    = "Good effort! You had some gestures, try using a few more."
	FeedbackAwesome = "Awesome, that was magnificent! You are using your gestures to add interest."
	FeedbackTooMuch = "Phew! We can see you are using your hands. Maybe a little too much."
	FeedbackExcess  = "Ouch! There were a lot of gestures."
)

// gestureBuckets returns the upper bounds of the good/awesome/too-much
// buckets for a half-session of nSamples frames.
func gestureBuckets(nSamples int) (good, awesome, tooMuch int) {
	switch {
	case nSamples < 750:
		return 100, 200, 300
	case nSamples <= 1250:
		return 200, 400, 600
	default:
		return 400, 800, 1600
	}
}

// GestureScore turns a gesture count over nSamples frames into a feedback
// statement. Bucket bounds are inclusive.
func GestureScore(count, nSamples int) string {
	good, awesome, tooMuch := gestureBuckets(nSamples)
	switch {
	case count <= 0:
		return FeedbackNone
	case count <= good:
		return FeedbackGood
	case count <= awesome:
		return FeedbackAwesome
	case count <= tooMuch:
		return FeedbackTooMuch
	default:
		return FeedbackExcess
	}
}
