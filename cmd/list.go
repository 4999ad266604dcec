package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/posture/internal/store"
	"github.com/andresmejia3/posture/internal/utils"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored reports",
	Run: func(cmd *cobra.Command, args []string) {
		records, err := DB.ListReports(cmd.Context())
		if err != nil {
			utils.Die("Failed to list reports", err, "")
		}
		printList(os.Stdout, records)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func printList(out io.Writer, records []store.Record) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No reports found in database.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SUBJECT\tCENTER\tLEFT\tRIGHT\tUP\tDOWN\tGESTURES\tUPDATED")
	fmt.Fprintln(w, "-------\t------\t----\t-----\t--\t----\t--------\t-------")

	for _, rec := range records {
		r := rec.Report
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n", rec.SubjectID, r.Center, r.Left, r.Right, r.Up, r.Down,
			r.TotalGestures, rec.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}
