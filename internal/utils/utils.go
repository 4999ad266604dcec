package utils

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/andresmejia3/posture/internal/log"
)

// --- 1. Process Safety & Command Wrapping ---

// SafeCommand wraps an exec.Cmd with a buffer that captures Stderr, so the
// logs of a dying detector or decoder survive for the error report.
type SafeCommand struct {
	*exec.Cmd
	Stderr *bytes.Buffer
}

// NewSafeCommand prepares the command but does not start it. The process is
// killed when ctx is cancelled.
func NewSafeCommand(ctx context.Context, name string, args ...string) *SafeCommand {
	cmd := exec.CommandContext(ctx, name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	return &SafeCommand{Cmd: cmd, Stderr: stderr}
}

// ShowError prints the error box without exiting.
func ShowError(context string, err error, logs string) {
	writeErrorBox(os.Stderr, context, err, logs)
}

// Die prints the error box and exits.
func Die(context string, err error, logs string) {
	writeErrorBox(os.Stderr, context, err, logs)
	os.Exit(1)
}

func writeErrorBox(w io.Writer, context string, err error, logs string) {
	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "🚨 POSTURE ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(w, "DETAILS: %v\n", err)
	}
	if logs != "" {
		fmt.Fprintf(w, "\nSUBPROCESS LOGS:\n%s\n", logs)
	}
	fmt.Fprintf(w, "---------------------------------------------------------\n")
}

// --- 2. Video Engine ---

var (
	JpegSOI = []byte{0xFF, 0xD8} // Start of Image
	JpegEOI = []byte{0xFF, 0xD9} // End of Image
)

type ffprobeOutput struct {
	Streams []struct {
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
	} `json:"streams"`
}

// parseFrameCount pulls the first positive count out of an ffprobe JSON
// document, preferring nb_frames over nb_read_packets.
func parseFrameCount(out []byte) int {
	var res ffprobeOutput
	if json.Unmarshal(out, &res) != nil || len(res.Streams) == 0 {
		return 0
	}
	s := res.Streams[0]
	if n, err := strconv.Atoi(s.NbFrames); err == nil && n > 0 {
		return n
	}
	if n, err := strconv.Atoi(s.NbReadPackets); err == nil && n > 0 {
		return n
	}
	return 0
}

// GetTotalFrames asks ffprobe for the frame count of path. It returns 0 when
// the count is unavailable; callers then fall back to the decoded count.
func GetTotalFrames(ctx context.Context, path string) int {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		log.Warn("⚠️  ffprobe not found, frame count unavailable")
		return 0
	}

	// 1. Fast Path: container metadata. Might be "N/A" for VFR.
	fast := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=nb_frames", "-of", "json", path)
	if out, err := fast.Output(); err == nil {
		if n := parseFrameCount(out); n > 0 {
			return n
		}
	}

	// 2. Slow Path: count packets.
	log.Info("⏳ metadata missing, counting frames", "path", path)
	slow := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-select_streams", "v:0", "-count_packets",
		"-show_entries", "stream=nb_read_packets", "-of", "json", path)
	out, err := slow.Output()
	if err != nil {
		log.Warn("ffprobe failed", "path", path, "err", err)
		return 0
	}
	return parseFrameCount(out)
}

// SplitJpeg is a bufio.SplitFunc that yields whole JPEG images from an
// MJPEG byte stream using the SOI (FFD8) and EOI (FFD9) markers.
func SplitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, JpegSOI)
	if start == -1 {
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], JpegEOI)
	if end == -1 {
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}

// NewFFmpegCmd creates a decoder that writes MJPEG frames to Stdout.
func NewFFmpegCmd(ctx context.Context, inputPath string) *SafeCommand {
	// -loglevel error keeps the stderr buffer small.
	return NewSafeCommand(ctx, "ffmpeg", "-hide_banner", "-loglevel", "error",
		"-i", inputPath, "-f", "image2pipe", "-vcodec", "mjpeg", "-")
}

// GenerateVideoID creates a deterministic hash for the video file
// based on its path, size, and modification time.
func GenerateVideoID(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	input := fmt.Sprintf("%s-%d-%d", path, info.Size(), info.ModTime().UnixNano())
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:]), nil
}
