package video

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/andresmejia3/posture/internal/types"
)

// ImageSource yields a single still image, e.g. the calibration reference.
type ImageSource struct {
	frame types.Frame
	read  bool
}

// OpenImage loads a JPEG or PNG from disk.
func OpenImage(path string) (*ImageSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read image file")
	}
	return NewImageSource(raw)
}

// NewImageSource decodes raw image bytes. The frame keeps its original
// resolution, since the reference face width is measured in source pixels,
// and is re-encoded as JPEG for the detectors.
func NewImageSource(raw []byte) (*ImageSource, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "image decoding failed")
	}

	data := raw
	if !bytes.HasPrefix(raw, []byte{0xFF, 0xD8}) {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
			return nil, errors.Wrap(err, "jpeg encoding failed")
		}
		data = buf.Bytes()
	}

	return &ImageSource{frame: types.Frame{
		Data:          data,
		Image:         ToRGBA(img),
		Brightness:    MeanBrightness(img),
		HasBrightness: true,
	}}, nil
}

func (s *ImageSource) Read(ctx context.Context) (types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return types.Frame{}, err
	}
	if s.read {
		return types.Frame{}, io.EOF
	}
	s.read = true
	return s.frame, nil
}

func (s *ImageSource) FrameCount() int { return 1 }

func (s *ImageSource) Close() error { return nil }
