package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/posture/internal/store"
	"github.com/andresmejia3/posture/internal/utils"
)

var reportCmd = &cobra.Command{
	Use:   "report <subject>",
	Short: "Show the stored report for a subject",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rec, err := DB.GetReport(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			fmt.Printf("No report stored for %s.\n", args[0])
			return
		}
		if err != nil {
			utils.Die("Failed to retrieve report", err, "")
		}
		printReport(os.Stdout, rec)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func printReport(out io.Writer, rec *store.Record) {
	r := rec.Report
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "SUBJECT\t%s\n", rec.SubjectID)
	if r.VideoID != "" {
		fmt.Fprintf(w, "VIDEO\t%s\n", shortID(r.VideoID))
	}
	fmt.Fprintf(w, "UPDATED\t%s\n", rec.UpdatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "FRAMES\t%d decoded of %d\n", r.FramesDecoded, r.FrameCount)
	fmt.Fprintf(w, "CENTER\t%d\n", r.Center)
	fmt.Fprintf(w, "LEFT\t%d\n", r.Left)
	fmt.Fprintf(w, "RIGHT\t%d\n", r.Right)
	fmt.Fprintf(w, "UP\t%d\n", r.Up)
	fmt.Fprintf(w, "DOWN\t%d\n", r.Down)
	fmt.Fprintf(w, "GESTURES\t%d (first half %d, second half %d)\n", r.TotalGestures, r.FirstHalfGestures, r.SecondHalfGestures)
	fmt.Fprintf(w, "FIRST HALF\t%s\n", r.FirstHalfFeedback)
	fmt.Fprintf(w, "SECOND HALF\t%s\n", r.SecondHalfFeedback)

	kinds := make([]string, 0, len(rec.Charts))
	for k := range rec.Charts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "CHART (%s)\t%s\n", k, rec.Charts[k])
	}
	w.Flush()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
