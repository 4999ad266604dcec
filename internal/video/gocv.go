//go:build gocv

package video

import (
	"context"
	"image"
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/andresmejia3/posture/internal/types"
)

func init() {
	Register("gocv", OpenGoCV)
}

// GoCVSource reads frames through OpenCV's VideoCapture, in-process.
type GoCVSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	resized gocv.Mat
	total   int
}

func OpenGoCV(ctx context.Context, path string) (Source, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open video")
	}
	return &GoCVSource{
		capture: capture,
		mat:     gocv.NewMat(),
		resized: gocv.NewMat(),
		total:   int(capture.Get(gocv.VideoCaptureFrameCount)),
	}, nil
}

func (s *GoCVSource) Read(ctx context.Context) (types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return types.Frame{}, err
	}
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return types.Frame{}, io.EOF
	}

	// Mean over the B, G and R planes of the full-size frame.
	m := s.mat.Mean()
	f := types.Frame{
		Brightness:    (m.Val1 + m.Val2 + m.Val3) / 3,
		HasBrightness: true,
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.mat)
	if err != nil {
		return types.Frame{}, errors.Wrap(err, "jpeg encoding failed")
	}
	f.Data = append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	gocv.Resize(s.mat, &s.resized, image.Pt(DetectWidth, DetectHeight), 0, 0, gocv.InterpolationLinear)
	img, err := s.resized.ToImage()
	if err != nil {
		return types.Frame{}, errors.Wrap(err, "mat conversion failed")
	}
	f.Image = ToRGBA(img)
	return f, nil
}

func (s *GoCVSource) FrameCount() int { return s.total }

func (s *GoCVSource) Close() error {
	s.mat.Close()
	s.resized.Close()
	return s.capture.Close()
}
