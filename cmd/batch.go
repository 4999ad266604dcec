package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/andresmejia3/posture/internal/analysis"
	"github.com/andresmejia3/posture/internal/log"
	"github.com/andresmejia3/posture/internal/utils"
)

var (
	batchOpts     Options
	batchManifest string
	batchEngines  int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze every subject,video pair listed in a CSV manifest",
	Run: func(cmd *cobra.Command, args []string) {
		runBatch(cmd, batchOpts)
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchManifest, "file", "f", "", "CSV manifest with subject,video rows")
	batchCmd.Flags().IntVarP(&batchEngines, "engines", "e", 1, "Number of sessions analyzed in parallel")
	addSessionFlags(batchCmd.Flags(), &batchOpts)

	batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// batchJob is one manifest row.
type batchJob struct {
	SubjectID string
	InputPath string
}

// readManifest parses subject,video rows. Blank lines, # comments and a
// leading "subject,video" header are skipped.
func readManifest(r io.Reader) ([]batchJob, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	var jobs []batchJob
	seen := map[string]bool{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed manifest: %w", err)
		}
		subject, path := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if len(jobs) == 0 && strings.EqualFold(subject, "subject") && strings.EqualFold(path, "video") {
			continue
		}
		if subject == "" || path == "" {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: subject and video are required", line)
		}
		// Reports are keyed by subject; a second row would overwrite the first.
		if seen[subject] {
			return nil, fmt.Errorf("subject %q listed twice", subject)
		}
		seen[subject] = true
		jobs = append(jobs, batchJob{SubjectID: subject, InputPath: path})
	}
	if len(jobs) == 0 {
		return nil, errors.New("manifest has no rows")
	}
	return jobs, nil
}

type batchOutcome struct {
	job batchJob
	res analysis.Result
	err error
}

func runBatch(cmd *cobra.Command, opts Options) {
	if batchEngines < 1 {
		utils.Die("Invalid flags", fmt.Errorf("--engines must be at least 1"), "")
	}
	if err := validateSessionFlags(&opts); err != nil {
		utils.Die("Invalid flags", err, "")
	}

	f, err := os.Open(batchManifest)
	if err != nil {
		utils.Die("Failed to open manifest", err, "")
	}
	jobs, err := readManifest(f)
	f.Close()
	if err != nil {
		utils.Die("Failed to read manifest", err, "")
	}

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing %d sessions with %d engines...\n", len(jobs), batchEngines)

	ctx := cmd.Context()
	outcomes := make([]batchOutcome, len(jobs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchEngines)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			o := opts
			o.SubjectID = job.SubjectID
			o.InputPath = job.InputPath

			out := batchOutcome{job: job}
			if err := requireFile(o.InputPath); err != nil {
				out.err = err
			} else {
				out.res, out.err = analyzeSession(gctx, o, false)
			}
			if out.err != nil {
				log.Error("session failed", "subject", job.SubjectID, "video", job.InputPath, "err", out.err)
			} else {
				log.Info("session done", "subject", job.SubjectID, "flag", out.res.Flag.String())
			}

			mu.Lock()
			outcomes[i] = out
			mu.Unlock()
			// One bad video must not cancel the others.
			return nil
		})
	}
	g.Wait()

	failed := printBatchSummary(os.Stdout, outcomes)
	if failed > 0 {
		var se *sessionError
		for _, o := range outcomes {
			if errors.As(o.err, &se) && se.logs != "" {
				utils.ShowError(fmt.Sprintf("Subject %s", o.job.SubjectID), se.err, se.logs)
			}
		}
		shutdown()
		os.Exit(1)
	}
}

// printBatchSummary writes one row per session and returns the failure count.
func printBatchSummary(out io.Writer, outcomes []batchOutcome) int {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SUBJECT\tSTATUS\tCENTER\tLEFT\tRIGHT\tGESTURES")
	fmt.Fprintln(w, "-------\t------\t------\t----\t-----\t--------")

	failed := 0
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			failed++
			fmt.Fprintf(w, "%s\tfailed: %v\t-\t-\t-\t-\n", o.job.SubjectID, o.err)
		case o.res.Flag != analysis.AbortNone:
			fmt.Fprintf(w, "%s\taborted: %s\t-\t-\t-\t-\n", o.job.SubjectID, abortReason(o.res.Flag))
		case o.res.Report == nil:
			fmt.Fprintf(w, "%s\tno frames\t-\t-\t-\t-\n", o.job.SubjectID)
		default:
			r := o.res.Report
			fmt.Fprintf(w, "%s\tok\t%d\t%d\t%d\t%d\n", o.job.SubjectID, r.Center, r.Left, r.Right, r.TotalGestures)
		}
	}
	w.Flush()
	return failed
}
