package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"

	"github.com/andresmejia3/posture/internal/analysis"
	"github.com/andresmejia3/posture/internal/render"
	"github.com/andresmejia3/posture/internal/utils"
	"github.com/andresmejia3/posture/internal/video"
	"github.com/andresmejia3/posture/internal/worker"
)

// Options holds shared configuration for the analyze and batch commands
type Options struct {
	InputPath      string
	SubjectID      string
	ReferencePath  string
	ReferenceWidth float64
	RatioX         float64
	RatioY         float64
	ChartsDir      string
	Decoder        string
	WorkerTimeout  string
}

// addSessionFlags registers the flags every analysis command shares.
func addSessionFlags(fs *pflag.FlagSet, opts *Options) {
	fs.StringVarP(&opts.ReferencePath, "reference", "r", "", "Reference image of the subject at the known calibration distance")
	fs.Float64Var(&opts.ReferenceWidth, "reference-width", 0, "Face width in pixels measured on the reference image (skips --reference)")
	fs.Float64Var(&opts.RatioX, "ratio-x", 0.95, "Weight of head direction counts in the composite scores")
	fs.Float64Var(&opts.RatioY, "ratio-y", 0.05, "Weight of eye direction counts in the composite scores")
	fs.StringVarP(&opts.ChartsDir, "charts", "c", "", "Directory for pie charts (disabled when empty)")
	fs.StringVar(&opts.Decoder, "decoder", "ffmpeg", "Frame decoder")
	fs.StringVar(&opts.WorkerTimeout, "worker-timeout", "", "Max time to wait for one detector response (default: $POSTURE_WORKER_TIMEOUT)")
}

// validateSessionFlags checks everything but the input and subject.
func validateSessionFlags(opts *Options) error {
	if opts.ReferencePath == "" && opts.ReferenceWidth <= 0 {
		return fmt.Errorf("one of --reference or a positive --reference-width is required")
	}
	if opts.ReferencePath != "" {
		if err := requireFile(opts.ReferencePath); err != nil {
			return fmt.Errorf("reference image: %w", err)
		}
	}
	for name, v := range map[string]float64{"--ratio-x": opts.RatioX, "--ratio-y": opts.RatioY} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, v)
		}
	}

	known := false
	for _, d := range video.Decoders() {
		if d == opts.Decoder {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown decoder %q (available: %v)", opts.Decoder, video.Decoders())
	}

	if opts.WorkerTimeout != "" {
		d, err := time.ParseDuration(opts.WorkerTimeout)
		if err != nil {
			return fmt.Errorf("invalid --worker-timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("--worker-timeout must be positive")
		}
	}
	return nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return nil
}

// sessionError keeps the detector logs of a failed session for the error box.
type sessionError struct {
	msg  string
	err  error
	logs string
}

func (e *sessionError) Error() string { return e.msg + ": " + e.err.Error() }
func (e *sessionError) Unwrap() error { return e.err }

// workerConfig applies the --worker-timeout override to the environment config.
func workerConfig(opts Options) worker.Config {
	timeout := Cfg.Worker.Timeout
	if d, err := time.ParseDuration(opts.WorkerTimeout); err == nil && d > 0 {
		timeout = d
	}
	return worker.Config{
		Python:      Cfg.Worker.Python,
		Script:      Cfg.Worker.Script,
		ReadTimeout: timeout,
	}
}

// analysisConfig merges the calibration environment with the CLI weights.
func analysisConfig(opts Options, referenceWidth float64) analysis.Config {
	c := Cfg.Calibration
	return analysis.Config{
		KnownDistance:      c.KnownDistanceCM,
		KnownWidth:         c.KnownWidthCM,
		ReferenceFaceWidth: referenceWidth,
		Bounds: analysis.Bounds{
			MinSelfie:   c.MinSelfieCM,
			MinFullBody: c.MinFullBodyCM,
			MaxFullBody: c.MaxFullBodyCM,
		},
		Weights: analysis.Weights{Head: opts.RatioX, Eyes: opts.RatioY},
	}
}

// referenceWidth returns the calibrated face width, measuring the reference
// image with face when no width was given.
func referenceWidth(ctx context.Context, opts Options, face analysis.FaceMeasurer) (float64, error) {
	if opts.ReferenceWidth > 0 {
		return opts.ReferenceWidth, nil
	}
	img, err := video.OpenImage(opts.ReferencePath)
	if err != nil {
		return 0, err
	}
	defer img.Close()
	return analysis.MeasureReference(ctx, face, img)
}

// analyzeSession runs one video through fresh detector workers, saves the
// report and renders the charts. showProgress draws a bar on stderr.
func analyzeSession(ctx context.Context, opts Options, showProgress bool) (analysis.Result, error) {
	// 1. Spawn the detector workers (one per collaborator)
	pool, collab, err := worker.NewPool(ctx, workerConfig(opts))
	if err != nil {
		return analysis.Result{}, &sessionError{msg: "Worker startup failed", err: err}
	}
	defer pool.Close()

	// 2. Calibrate
	refWidth, err := referenceWidth(ctx, opts, collab.Face)
	if err != nil {
		return analysis.Result{}, &sessionError{msg: "Reference calibration failed", err: err, logs: pool.Stderr()}
	}

	// 3. Generate Video ID & Register
	videoID, err := utils.GenerateVideoID(opts.InputPath)
	if err != nil {
		return analysis.Result{}, &sessionError{msg: "Failed to generate video ID", err: err}
	}
	if err := DB.EnsureVideo(ctx, videoID, opts.InputPath); err != nil {
		return analysis.Result{}, &sessionError{msg: "Failed to register video", err: err}
	}

	// 4. Open the frame source
	src, err := video.Open(ctx, opts.Decoder, opts.InputPath)
	if err != nil {
		return analysis.Result{}, &sessionError{msg: "Failed to open video", err: err}
	}
	defer src.Close()

	analyzerOpts := []analysis.Option{
		analysis.WithSink(DB),
		analysis.WithMetrics(Metrics),
		analysis.WithVideoID(videoID),
	}
	var bar *progressbar.ProgressBar
	if showProgress {
		total := src.FrameCount()
		if total <= 0 {
			// Unknown total renders as a spinner
			total = -1
		}
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("🎥 Analyzing "+opts.SubjectID),
			progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
			progressbar.OptionShowCount(),
		)
		analyzerOpts = append(analyzerOpts, analysis.WithFrameHook(func(analysis.ClassifiedFrame) { bar.Add(1) }))
	}

	// 5. Analyze
	a, err := analysis.New(analysisConfig(opts, refWidth), collab, analyzerOpts...)
	if err != nil {
		return analysis.Result{}, &sessionError{msg: "Invalid analysis configuration", err: err}
	}
	res, err := a.Analyze(ctx, src, opts.SubjectID)
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return res, &sessionError{msg: "Failed to save report", err: err}
	}

	// 6. Charts
	if res.Report != nil && opts.ChartsDir != "" {
		if _, err := render.Charts(ctx, opts.ChartsDir, opts.SubjectID, *res.Report, DB); err != nil {
			return res, &sessionError{msg: "Failed to record charts", err: err}
		}
	}
	return res, nil
}
