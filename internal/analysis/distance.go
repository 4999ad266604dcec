package analysis

// FocalLength computes the camera focal length (px) from a reference image
// in which an object of realWidth (cm) at measuredDistance (cm) spans
// widthInReference pixels.
func FocalLength(measuredDistance, realWidth, widthInReference float64) float64 {
	return (widthInReference * measuredDistance) / realWidth
}

// Distance estimates the subject distance (cm) from the face width in the
// current frame. faceWidthInFrame must be non-zero; callers treat a zero
// width as "no face" before getting here.
func Distance(focalLength, realFaceWidth, faceWidthInFrame float64) float64 {
	return (realFaceWidth * focalLength) / faceWidthInFrame
}
