package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/posture/internal/store"
	"github.com/andresmejia3/posture/internal/utils"
)

var (
	resetDB     bool
	resetCharts bool
	resetYes    bool
	chartsDir   string
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset system state (Database, Charts)",
	Long:  "Clears all data. By default, it resets everything. Use flags to clear specific components.",
	Run: func(cmd *cobra.Command, args []string) {
		// If no flags are set, default to clearing EVERYTHING
		if !resetDB && !resetCharts {
			resetDB = true
			resetCharts = true
		}

		reader := bufio.NewReader(os.Stdin)

		// Charts first: their paths live in the database.
		if resetCharts {
			records, err := DB.ListReports(cmd.Context())
			if err != nil {
				utils.Die("Failed to list rendered charts", err, "")
			}
			paths := chartPaths(records)
			if len(paths) > 0 && (resetYes || confirm(os.Stdout, reader, fmt.Sprintf("⚠️  Are you sure you want to delete %d rendered charts?", len(paths)))) {
				fmt.Println("🗑️  Clearing Charts...")
				removeCharts(os.Stderr, paths)
			}
			if chartsDir != "" && (resetYes || confirm(os.Stdout, reader, fmt.Sprintf("⚠️  Are you sure you want to delete everything in %s?", chartsDir))) {
				removeDir(chartsDir)
			}
		}

		if resetDB {
			if resetYes || confirm(os.Stdout, reader, "⚠️  Are you sure you want to DROP all database tables?") {
				fmt.Println("🗑️  Clearing Database...")
				if err := DB.Reset(cmd.Context()); err != nil {
					utils.Die("Failed to reset database", err, "")
				}
			}
		}

		fmt.Println("✨ System Reset Complete.")
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetDB, "reports", false, "Clear the report database")
	resetCmd.Flags().BoolVar(&resetCharts, "charts", false, "Clear rendered charts")
	resetCmd.Flags().StringVar(&chartsDir, "charts-dir", "", "Also delete this whole directory (only charts recorded in the database are removed otherwise)")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func confirm(out io.Writer, r *bufio.Reader, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

func removeDir(path string) {
	if err := os.RemoveAll(path); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
	}
}

// chartPaths returns every chart file recorded for records, sorted.
func chartPaths(records []store.Record) []string {
	var paths []string
	for _, r := range records {
		for _, p := range r.Charts {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// removeCharts deletes the given files and returns how many were removed.
// Files already gone are skipped.
func removeCharts(out io.Writer, paths []string) int {
	removed := 0
	for _, p := range paths {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed++
		case !os.IsNotExist(err):
			fmt.Fprintf(out, "⚠️  Failed to remove %s: %v\n", p, err)
		}
	}
	return removed
}
