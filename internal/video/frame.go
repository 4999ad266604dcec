package video

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/andresmejia3/posture/internal/types"
)

// Detector input size.
const (
	DetectWidth  = 480
	DetectHeight = 360
)

// DecodeFrame builds a Frame from one JPEG. A JPEG that fails to decode
// still yields a frame carrying the raw bytes, with no image and no
// brightness.
func DecodeFrame(data []byte) (types.Frame, error) {
	f := types.Frame{Data: data}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return f, errors.Wrap(err, "jpeg decoding failed")
	}
	f.Brightness = MeanBrightness(img)
	f.HasBrightness = true
	f.Image = ToRGBA(resize.Resize(DetectWidth, DetectHeight, img, resize.Bilinear))
	return f, nil
}

// MeanBrightness is the mean of the R, G and B samples (0-255) over the
// whole image.
func MeanBrightness(img image.Image) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}

	var sum uint64
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+b.Dx()*4]
			for x := 0; x < len(row); x += 4 {
				sum += uint64(row[x]) + uint64(row[x+1]) + uint64(row[x+2])
			}
		}
	} else {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, _ := img.At(x, y).RGBA()
				sum += uint64(r>>8) + uint64(g>>8) + uint64(bl>>8)
			}
		}
	}
	return float64(sum) / float64(3*n)
}

// ToRGBA returns img as an *image.RGBA anchored at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
