package worker

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/andresmejia3/posture/internal/analysis"
	"github.com/andresmejia3/posture/internal/types"
	"github.com/andresmejia3/posture/internal/utils" // Using the SafeCommand wrapper
)

// Response status bytes written by the Python side.
const (
	statusOK       byte = 0
	statusError    byte = 1
	statusNotFound byte = 2
)

// maxResponse guards against a corrupted length header.
const maxResponse = 64 * 1024 * 1024

// Config describes how to launch the Python detector process.
type Config struct {
	Python      string
	Script      string
	Role        string // "measure", "selfie", "fullbody" or "hands"; passed as --role
	ReadTimeout time.Duration
}

// PythonWorker is one detector subprocess. Calls are synchronous; a worker
// must not be shared between goroutines.
type PythonWorker struct {
	ID       int
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser

	readTimeout time.Duration
	// broken is set after a failed exchange; a late reply may still be in
	// the pipe, so no further request can trust what it reads.
	broken error
}

func NewPythonWorker(ctx context.Context, id int, cfg Config) (*PythonWorker, error) {
	// 1. Initialize the SafeCommand
	args := []string{"-u", cfg.Script}
	if cfg.Role != "" {
		args = append(args, "--role", cfg.Role)
	}
	py := utils.NewSafeCommand(ctx, cfg.Python, args...)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close() // Prevent FD leak
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &PythonWorker{
		ID:          id,
		Cmd:         py,
		Stdin:       stdin,
		DataPipe:    r,
		readTimeout: cfg.ReadTimeout,
	}, nil
}

// Communicate sends one length-prefixed message and reads one back. Any I/O
// error, including a read timeout, leaves the worker unusable: every later
// call fails with analysis.ErrUnavailable.
func (w *PythonWorker) Communicate(data []byte) ([]byte, error) {
	if w.broken != nil {
		return nil, w.broken
	}

	// Protocol: [Length][Data]
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, w.fail(err)
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, w.fail(err)
	}

	// *os.File pipes honour deadlines; in-memory pipes in tests do not need to.
	if d, ok := w.DataPipe.(interface{ SetReadDeadline(time.Time) error }); ok && w.readTimeout > 0 {
		_ = d.SetReadDeadline(time.Now().Add(w.readTimeout))
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, w.fail(err) // This is where we catch an import-time crash
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxResponse {
		return nil, w.fail(fmt.Errorf("response too large: %d bytes", respLen))
	}
	respBody := make([]byte, respLen)
	if _, err := io.ReadFull(w.DataPipe, respBody); err != nil {
		return nil, w.fail(err)
	}
	return respBody, nil
}

func (w *PythonWorker) fail(err error) error {
	w.broken = fmt.Errorf("worker %d: %w: %w", w.ID, analysis.ErrUnavailable, err)
	return w.broken
}

// Call encodes req, round-trips it and decodes the payload into out.
// A not-found status maps to analysis.ErrNoFace.
func (w *PythonWorker) Call(req types.WorkerRequest, out any) error {
	body, err := msgpack.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", req.Op, err)
	}

	resp, err := w.Communicate(body)
	if err != nil {
		return err
	}
	if len(resp) == 0 {
		return errors.New("empty response from python worker")
	}

	// Protocol: [Status] [Payload]
	switch resp[0] {
	case statusOK:
		if out == nil {
			return nil
		}
		if err := msgpack.Unmarshal(resp[1:], out); err != nil {
			return fmt.Errorf("malformed %s response: %w", req.Op, err)
		}
		return nil
	case statusNotFound:
		return analysis.ErrNoFace
	case statusError:
		// [MsgLen] [Msg]
		if len(resp) < 5 {
			return errors.New("python worker error: <truncated>")
		}
		msgLen := binary.BigEndian.Uint32(resp[1:5])
		if int(msgLen) > len(resp)-5 {
			msgLen = uint32(len(resp) - 5)
		}
		return fmt.Errorf("python worker error: %s", resp[5:5+msgLen])
	default:
		return fmt.Errorf("unknown worker status %d", resp[0])
	}
}

func (w *PythonWorker) Close() {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd != nil {
		w.Cmd.Wait()
	}
}
