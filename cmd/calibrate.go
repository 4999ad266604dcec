package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/posture/internal/analysis"
	"github.com/andresmejia3/posture/internal/types"
	"github.com/andresmejia3/posture/internal/utils"
	"github.com/andresmejia3/posture/internal/worker"
)

var calibrateOpts Options

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Measure the reference face width used for distance estimation",
	Long: "Runs the face detector on a reference image taken at POSTURE_KNOWN_DISTANCE_CM and prints the face width\n" +
		"to pass as --reference-width, which skips the measurement on later runs.",
	Run: func(cmd *cobra.Command, args []string) {
		runCalibrate(cmd, calibrateOpts)
	},
}

func init() {
	calibrateCmd.Flags().StringVarP(&calibrateOpts.ReferencePath, "reference", "r", "", "Reference image")
	calibrateCmd.Flags().StringVar(&calibrateOpts.WorkerTimeout, "worker-timeout", "", "Max time to wait for the detector")
	calibrateCmd.MarkFlagRequired("reference")
	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, opts Options) {
	if err := requireFile(opts.ReferencePath); err != nil {
		utils.Die("Invalid reference image", err, "")
	}

	ctx := cmd.Context()
	wcfg := workerConfig(opts)
	wcfg.Role = types.OpMeasure
	w, err := worker.NewPythonWorker(ctx, 0, wcfg)
	if err != nil {
		utils.Die("Failed to start AI worker", err, "")
	}
	defer w.Close()

	width, err := referenceWidth(ctx, opts, &worker.FaceClient{W: w})
	if err != nil {
		utils.Die("Reference calibration failed", err, w.Cmd.Stderr.String())
	}

	c := Cfg.Calibration
	fmt.Printf("📏 Reference face width: %.2f px\n", width)
	fmt.Printf("🔭 Focal length: %.2f px (at %.1f cm, face %.1f cm)\n",
		analysis.FocalLength(c.KnownDistanceCM, c.KnownWidthCM, width), c.KnownDistanceCM, c.KnownWidthCM)
	fmt.Printf("   Reuse with: --reference-width %.2f\n", width)
}
