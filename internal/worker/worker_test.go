package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/andresmejia3/posture/internal/analysis"
	"github.com/andresmejia3/posture/internal/types"
)

// MockCloser wraps a bytes.Buffer to satisfy io.ReadCloser and io.WriteCloser,
// standing in for the OS pipes.
type MockCloser struct {
	*bytes.Buffer
}

func (m *MockCloser) Close() error { return nil }

// mockWorker returns a worker whose data pipe is pre-filled with responses.
func mockWorker(t *testing.T, responses ...[]byte) (*PythonWorker, *MockCloser) {
	t.Helper()
	stdin := &MockCloser{Buffer: new(bytes.Buffer)}
	pipe := &MockCloser{Buffer: new(bytes.Buffer)}
	for _, r := range responses {
		require.NoError(t, binary.Write(pipe, binary.BigEndian, uint32(len(r))))
		pipe.Write(r)
	}
	// Cmd is nil because we aren't testing process management, just the protocol
	return &PythonWorker{ID: 1, Stdin: stdin, DataPipe: pipe}, stdin
}

func okResponse(t *testing.T, v any) []byte {
	t.Helper()
	body, err := msgpack.Marshal(v)
	require.NoError(t, err)
	return append([]byte{statusOK}, body...)
}

func errorResponse(msg string) []byte {
	b := new(bytes.Buffer)
	b.WriteByte(statusError)
	binary.Write(b, binary.BigEndian, uint32(len(msg)))
	b.WriteString(msg)
	return b.Bytes()
}

// sentRequest decodes the single framed request written to stdin.
func sentRequest(t *testing.T, stdin *MockCloser) types.WorkerRequest {
	t.Helper()
	var n uint32
	require.NoError(t, binary.Read(stdin, binary.BigEndian, &n))
	body := make([]byte, n)
	_, err := io.ReadFull(stdin, body)
	require.NoError(t, err)

	var req types.WorkerRequest
	require.NoError(t, msgpack.Unmarshal(body, &req))
	return req
}

func TestCommunicate(t *testing.T) {
	w, stdin := mockWorker(t, []byte{0xCA, 0xFE})

	resp, err := w.Communicate([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCA, 0xFE}, resp)

	// 4 bytes header + 4 bytes data
	assert.Equal(t, []byte{0, 0, 0, 4, 0xDE, 0xAD, 0xBE, 0xEF}, stdin.Bytes())
}

func TestCommunicate_WorkerGone(t *testing.T) {
	w, _ := mockWorker(t)
	_, err := w.Communicate([]byte("frame"))
	assert.ErrorIs(t, err, io.EOF)
}

func TestCommunicate_TimeoutBreaksWorker(t *testing.T) {
	r, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pw.Close()

	stdin := &MockCloser{Buffer: new(bytes.Buffer)}
	w := &PythonWorker{ID: 1, Stdin: stdin, DataPipe: r, readTimeout: 50 * time.Millisecond}
	defer w.Close()
	c := &HandClient{W: w}

	_, err = c.Detect(context.Background(), types.Frame{Index: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	assert.ErrorIs(t, err, analysis.ErrUnavailable)

	// The slow answer to frame 1 arrives after the deadline.
	late := okResponse(t, types.HandsResult{Hands: 1})
	require.NoError(t, binary.Write(pw, binary.BigEndian, uint32(len(late))))
	_, err = pw.Write(late)
	require.NoError(t, err)

	sent := stdin.Len()
	got, err := c.Detect(context.Background(), types.Frame{Index: 2})
	assert.ErrorIs(t, err, analysis.ErrUnavailable)
	assert.False(t, got, "frame 2 must not inherit the reply meant for frame 1")
	assert.Equal(t, sent, stdin.Len(), "no request is sent to a broken worker")
}

func TestCall_Statuses(t *testing.T) {
	errMsg := "Python Exception: Import Error"

	tests := []struct {
		name    string
		resp    []byte
		wantErr string
		noFace  bool
	}{
		{name: "not found", resp: []byte{statusNotFound}, noFace: true},
		{name: "error", resp: errorResponse(errMsg), wantErr: "python worker error: " + errMsg},
		{name: "truncated error", resp: []byte{statusError, 0}, wantErr: "python worker error: <truncated>"},
		{name: "unknown status", resp: []byte{7}, wantErr: "unknown worker status 7"},
		{name: "empty", resp: []byte{}, wantErr: "empty response from python worker"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := mockWorker(t, tt.resp)
			var out types.MeasureResult
			err := w.Call(types.WorkerRequest{Op: types.OpMeasure}, &out)
			require.Error(t, err)
			if tt.noFace {
				assert.ErrorIs(t, err, analysis.ErrNoFace)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestFaceClient_Measure(t *testing.T) {
	w, stdin := mockWorker(t, okResponse(t, types.MeasureResult{FaceWidth: 182.5, Brightness: 120}))
	c := &FaceClient{W: w}

	jpeg := []byte{0xFF, 0xD8, 0x00, 0xFF, 0xD9}
	m, err := c.Measure(context.Background(), types.Frame{Index: 1, Data: jpeg})
	require.NoError(t, err)
	assert.Equal(t, analysis.FaceMeasurement{FaceWidth: 182.5, Brightness: 120}, m)

	req := sentRequest(t, stdin)
	assert.Equal(t, types.OpMeasure, req.Op)
	assert.Equal(t, types.FormatJPEG, req.Format)
	assert.Equal(t, jpeg, req.Data)
}

func TestGazeClient_CachesLastResult(t *testing.T) {
	w, stdin := mockWorker(t,
		okResponse(t, types.GazeResult{Vertical: 0.9, Horizontal: 1.5, Center: true}),
		[]byte{statusNotFound},
	)
	c := &GazeClient{W: w, Regime: analysis.RegimeFullBody}

	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	copy(img.Pix, []byte{1, 2, 3, 255, 4, 5, 6, 255})

	require.NoError(t, c.Update(context.Background(), types.Frame{Image: img}))
	v, h := c.Ratios()
	assert.Equal(t, 0.9, v)
	assert.Equal(t, 1.5, h)
	assert.True(t, c.IsCenter())
	assert.False(t, c.IsLeft())

	req := sentRequest(t, stdin)
	assert.Equal(t, "fullbody", req.Regime)
	assert.Equal(t, types.FormatRGB, req.Format)
	assert.Equal(t, 2, req.Width)
	assert.Equal(t, 1, req.Height)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, req.Data, "alpha channel must be dropped")

	// A failed lookup leaves the previous state in place.
	err := c.Update(context.Background(), types.Frame{Image: img})
	assert.ErrorIs(t, err, analysis.ErrNoFace)
	assert.True(t, c.IsCenter())
}

func TestHandClient_Detect(t *testing.T) {
	w, _ := mockWorker(t,
		okResponse(t, types.HandsResult{Hands: 2}),
		okResponse(t, types.HandsResult{Hands: 0}),
	)
	c := &HandClient{W: w}

	got, err := c.Detect(context.Background(), types.Frame{})
	require.NoError(t, err)
	assert.True(t, got)

	got, err = c.Detect(context.Background(), types.Frame{})
	require.NoError(t, err)
	assert.False(t, got)
}

func TestClients_CancelledContext(t *testing.T) {
	w, stdin := mockWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&HandClient{W: w}).Detect(ctx, types.Frame{})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, stdin.Len(), "nothing should be sent after cancellation")
}
