package types

import "image"

// Frame is a single decoded video frame handed to the analyzers.
type Frame struct {
	Index int    // 1-based, assigned in read order
	Data  []byte // encoded JPEG as read from the decoder

	// Image is the frame resized for the detectors. Nil if decoding failed.
	Image *image.RGBA

	// Brightness is the mean pixel intensity (0-255) over all channels of the
	// full-size frame. Only meaningful when HasBrightness is set.
	Brightness    float64
	HasBrightness bool
}

// Worker ops understood by the Python detector process.
const (
	OpMeasure = "measure"
	OpGaze    = "gaze"
	OpHands   = "hands"
)

// Pixel formats for WorkerRequest.Format.
const (
	FormatRGB  = "rgb"
	FormatJPEG = "jpeg"
)

// WorkerRequest is the msgpack body sent to the Python worker.
type WorkerRequest struct {
	Op     string `msgpack:"op"`
	Regime string `msgpack:"regime,omitempty"` // "selfie" or "fullbody" for OpGaze
	Format string `msgpack:"fmt"`
	Width  int    `msgpack:"w"`
	Height int    `msgpack:"h"`
	Data   []byte `msgpack:"d"` // RGB uint8 row-major (H, W, 3), or JPEG bytes
}

// MeasureResult is the worker response for OpMeasure.
type MeasureResult struct {
	FaceWidth  float64 `msgpack:"face_width"`
	Brightness float64 `msgpack:"brightness"`
}

// GazeResult is the worker response for OpGaze.
type GazeResult struct {
	Vertical   float64 `msgpack:"v"`
	Horizontal float64 `msgpack:"h"`
	Left       bool    `msgpack:"left"`
	Right      bool    `msgpack:"right"`
	Center     bool    `msgpack:"center"`
}

// HandsResult is the worker response for OpHands.
type HandsResult struct {
	Hands int `msgpack:"hands"`
}
