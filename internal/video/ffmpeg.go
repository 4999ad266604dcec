package video

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/errors"

	"github.com/andresmejia3/posture/internal/log"
	"github.com/andresmejia3/posture/internal/types"
	"github.com/andresmejia3/posture/internal/utils"
)

// frameBuffer bounds how far decoding may run ahead of analysis.
const frameBuffer = 8

// maxFrameSize is the largest JPEG the splitter accepts.
const maxFrameSize = 10 * 1024 * 1024

// StreamSource decodes an MJPEG byte stream in the background.
type StreamSource struct {
	frames chan types.Frame
	total  int
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// NewStreamSource starts decoding r. total is the expected frame count, 0 if
// unknown. wait, if set, is called once the stream ends and its error is
// reported as the read error.
func NewStreamSource(ctx context.Context, r io.Reader, total int, wait func() error) *StreamSource {
	ctx, cancel := context.WithCancel(ctx)
	s := &StreamSource{
		frames: make(chan types.Frame, frameBuffer),
		total:  total,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx, r, wait)
	return s
}

func (s *StreamSource) run(ctx context.Context, r io.Reader, wait func() error) {
	defer close(s.done)
	defer close(s.frames)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), maxFrameSize)
	scanner.Split(utils.SplitJpeg)

	for scanner.Scan() {
		data := append([]byte(nil), scanner.Bytes()...)
		f, err := DecodeFrame(data)
		if err != nil {
			log.Debug("undecodable frame", "err", err)
		}
		select {
		case s.frames <- f:
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return
		}
	}

	if err := scanner.Err(); err != nil {
		s.setErr(errors.Wrap(err, "reading frame stream"))
		return
	}
	if wait != nil {
		if err := wait(); err != nil {
			s.setErr(errors.Wrap(err, "decoder exited"))
		}
	}
}

func (s *StreamSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Read returns the next frame, io.EOF at the end of a clean stream, or the
// decoder error.
func (s *StreamSource) Read(ctx context.Context) (types.Frame, error) {
	select {
	case f, ok := <-s.frames:
		if ok {
			return f, nil
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return types.Frame{}, s.err
		}
		return types.Frame{}, io.EOF
	case <-ctx.Done():
		return types.Frame{}, ctx.Err()
	}
}

// FrameCount is the expected number of frames, 0 if unknown.
func (s *StreamSource) FrameCount() int { return s.total }

// Close stops decoding and waits for the background reader to exit.
func (s *StreamSource) Close() error {
	s.cancel()
	// Drain so the reader is never blocked on a send.
	for range s.frames {
	}
	<-s.done
	return nil
}

// FFmpegSource is a StreamSource fed by an ffmpeg subprocess.
type FFmpegSource struct {
	*StreamSource
	cmd *utils.SafeCommand
}

// OpenFFmpeg starts ffmpeg on path. The frame count comes from ffprobe.
func OpenFFmpeg(ctx context.Context, path string) (Source, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, errors.Wrap(err, "ffmpeg not found in PATH")
	}

	total := utils.GetTotalFrames(ctx, path)

	ctx, cancel := context.WithCancel(ctx)
	cmd := utils.NewFFmpegCmd(ctx, path)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "failed to open ffmpeg stdout")
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, errors.Wrap(err, "failed to start ffmpeg")
	}

	wait := func() error {
		if err := cmd.Wait(); err != nil {
			return errors.Errorf("%v: %s", err, cmd.Stderr.String())
		}
		return nil
	}
	src := &FFmpegSource{StreamSource: NewStreamSource(ctx, stdout, total, wait), cmd: cmd}
	// Killing the process unblocks the scanner.
	prev := src.cancel
	src.cancel = func() { prev(); cancel() }
	return src, nil
}

// Logs returns whatever ffmpeg wrote to stderr.
func (s *FFmpegSource) Logs() string { return s.cmd.Stderr.String() }
