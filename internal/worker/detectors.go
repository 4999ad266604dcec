package worker

import (
	"context"

	"github.com/andresmejia3/posture/internal/analysis"
	"github.com/andresmejia3/posture/internal/types"
)

// frameRequest builds the wire request for f. The resized RGB image is sent
// when available; otherwise the detectors get the raw JPEG.
func frameRequest(op string, f types.Frame) types.WorkerRequest {
	req := types.WorkerRequest{Op: op}
	if f.Image == nil {
		req.Format = types.FormatJPEG
		req.Data = f.Data
		return req
	}

	b := f.Image.Bounds()
	req.Format = types.FormatRGB
	req.Width = b.Dx()
	req.Height = b.Dy()
	req.Data = make([]byte, 0, req.Width*req.Height*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := f.Image.Pix[(y-b.Min.Y)*f.Image.Stride:]
		for x := 0; x < req.Width; x++ {
			req.Data = append(req.Data, row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return req
}

// FaceClient measures faces through a worker.
type FaceClient struct {
	W *PythonWorker
}

func (c *FaceClient) Measure(ctx context.Context, f types.Frame) (analysis.FaceMeasurement, error) {
	if err := ctx.Err(); err != nil {
		return analysis.FaceMeasurement{}, err
	}
	var res types.MeasureResult
	if err := c.W.Call(frameRequest(types.OpMeasure, f), &res); err != nil {
		return analysis.FaceMeasurement{}, err
	}
	return analysis.FaceMeasurement{FaceWidth: res.FaceWidth, Brightness: res.Brightness}, nil
}

// GazeClient is a stateful gaze model for one regime. It caches the last
// successful result for Ratios and the direction queries.
type GazeClient struct {
	W      *PythonWorker
	Regime analysis.Regime

	last types.GazeResult
}

func (c *GazeClient) Update(ctx context.Context, f types.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := frameRequest(types.OpGaze, f)
	req.Regime = c.Regime.String()

	var res types.GazeResult
	if err := c.W.Call(req, &res); err != nil {
		return err
	}
	c.last = res
	return nil
}

func (c *GazeClient) Ratios() (float64, float64) { return c.last.Vertical, c.last.Horizontal }
func (c *GazeClient) IsLeft() bool               { return c.last.Left }
func (c *GazeClient) IsRight() bool              { return c.last.Right }
func (c *GazeClient) IsCenter() bool             { return c.last.Center }

// HandClient detects hands through a worker.
type HandClient struct {
	W *PythonWorker
}

func (c *HandClient) Detect(ctx context.Context, f types.Frame) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var res types.HandsResult
	if err := c.W.Call(frameRequest(types.OpHands, f), &res); err != nil {
		return false, err
	}
	return res.Hands > 0, nil
}

// Pool owns the worker processes behind one session's collaborators.
type Pool struct {
	workers []*PythonWorker
}

// NewPool starts one process per role so the two gaze models keep
// independent tracking state.
func NewPool(ctx context.Context, cfg Config) (*Pool, analysis.Collaborators, error) {
	p := &Pool{}
	start := func(role string) (*PythonWorker, error) {
		c := cfg
		c.Role = role
		w, err := NewPythonWorker(ctx, len(p.workers), c)
		if err != nil {
			return nil, err
		}
		p.workers = append(p.workers, w)
		return w, nil
	}

	face, err := start(types.OpMeasure)
	if err != nil {
		p.Close()
		return nil, analysis.Collaborators{}, err
	}
	selfie, err := start(analysis.RegimeSelfie.String())
	if err != nil {
		p.Close()
		return nil, analysis.Collaborators{}, err
	}
	full, err := start(analysis.RegimeFullBody.String())
	if err != nil {
		p.Close()
		return nil, analysis.Collaborators{}, err
	}
	hands, err := start(types.OpHands)
	if err != nil {
		p.Close()
		return nil, analysis.Collaborators{}, err
	}

	return p, analysis.Collaborators{
		Face:     &FaceClient{W: face},
		Selfie:   &GazeClient{W: selfie, Regime: analysis.RegimeSelfie},
		FullBody: &GazeClient{W: full, Regime: analysis.RegimeFullBody},
		Hands:    &HandClient{W: hands},
	}, nil
}

// Stderr returns the captured logs of every worker, for crash reports.
func (p *Pool) Stderr() string {
	var out string
	for _, w := range p.workers {
		if w.Cmd != nil && w.Cmd.Stderr.Len() > 0 {
			out += w.Cmd.Stderr.String()
		}
	}
	return out
}

func (p *Pool) Close() {
	for _, w := range p.workers {
		w.Close()
	}
	p.workers = nil
}
