package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/posture/internal/analysis"
	"github.com/andresmejia3/posture/internal/utils"
)

var analyzeOpts Options

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze head direction, gaze and gestures in one video",
	Run: func(cmd *cobra.Command, args []string) {
		runAnalyze(cmd, analyzeOpts)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOpts.InputPath, "input", "i", "", "Path to video")
	analyzeCmd.Flags().StringVarP(&analyzeOpts.SubjectID, "subject", "s", "", "Subject ID the report is stored under")
	addSessionFlags(analyzeCmd.Flags(), &analyzeOpts)

	analyzeCmd.MarkFlagRequired("input")
	analyzeCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, opts Options) {
	if err := validateAnalyzeFlags(&opts); err != nil {
		utils.Die("Invalid flags", err, "")
	}

	start := time.Now()
	fmt.Fprintf(os.Stderr, "📼 Processing %s for subject %s\n", opts.InputPath, opts.SubjectID)

	res, err := analyzeSession(cmd.Context(), opts, true)
	if err != nil {
		shutdown()
		var se *sessionError
		if errors.As(err, &se) {
			utils.Die(se.msg, se.err, se.logs)
		}
		utils.Die("Analysis failed", err, "")
	}

	printSummary(os.Stdout, opts.SubjectID, res)
	fmt.Fprintf(os.Stderr, "⏱️  Took %s\n", fmtTime(time.Since(start).Seconds()))
}

func validateAnalyzeFlags(opts *Options) error {
	if err := requireFile(opts.InputPath); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if opts.SubjectID == "" {
		return fmt.Errorf("--subject must not be empty")
	}
	return validateSessionFlags(opts)
}

// abortReason names the quality problem behind a non-zero abort flag.
func abortReason(flag analysis.AbortFlag) string {
	switch flag {
	case analysis.AbortLowLight:
		return analysis.QualityLowLight.String()
	case analysis.AbortTooFar:
		return analysis.QualityTooFar.String()
	case analysis.AbortNoFace:
		return analysis.QualityNoFace.String()
	default:
		return ""
	}
}

func printSummary(w io.Writer, subjectID string, res analysis.Result) {
	if res.Flag != analysis.AbortNone {
		fmt.Fprintf(w, "⚠️  Session for %s aborted (flag %d): %s in more than half of the frames.\n",
			subjectID, int(res.Flag), abortReason(res.Flag))
		return
	}
	r := res.Report
	if r == nil {
		fmt.Fprintf(w, "📭 No frames could be decoded for %s. Nothing was saved.\n", subjectID)
		return
	}

	fmt.Fprintf(w, "🏁 Analysis complete for %s (%d frames decoded)\n", subjectID, r.FramesDecoded)
	fmt.Fprintf(w, "   Center %d   Left %d   Right %d   Up %d   Down %d\n", r.Center, r.Left, r.Right, r.Up, r.Down)
	fmt.Fprintf(w, "   Gestures %d (first half %d, second half %d)\n", r.TotalGestures, r.FirstHalfGestures, r.SecondHalfGestures)
	fmt.Fprintf(w, "   First half:  %s\n", r.FirstHalfFeedback)
	fmt.Fprintf(w, "   Second half: %s\n", r.SecondHalfFeedback)
}

// fmtTime formats seconds as HH:MM:SS.
func fmtTime(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
