// Package video turns video files and still images into the frame stream
// consumed by the analyzer.
package video

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/andresmejia3/posture/internal/analysis"
)

// Source is a FrameSource that owns a decoder process or handle.
type Source interface {
	analysis.FrameSource
	Close() error
}

// Opener opens a Source for a video file.
type Opener func(ctx context.Context, path string) (Source, error)

var (
	mu       sync.RWMutex
	decoders = map[string]Opener{
		"ffmpeg": OpenFFmpeg,
	}
)

// Register makes a decoder available under name. Decoders built behind
// build tags register themselves from init.
func Register(name string, open Opener) {
	mu.Lock()
	defer mu.Unlock()
	decoders[name] = open
}

// Decoders lists the registered decoder names.
func Decoders() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(decoders))
	for n := range decoders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open opens path with the named decoder.
func Open(ctx context.Context, decoder, path string) (Source, error) {
	mu.RLock()
	open, ok := decoders[decoder]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown decoder %q (available: %v)", decoder, Decoders())
	}
	return open(ctx, path)
}
