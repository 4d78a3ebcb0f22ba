package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every database record out to its content file",
	Long: `Push every record in the database to its resolved path under the
content root. Pushes are unconditional: the database content overwrites
the files. Custom frontmatter keys already present in target files are
preserved.

Records whose hierarchy cannot be resolved (for example a parent cycle)
are reported and skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		db, s, err := openEnvironment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		start := time.Now()
		res, err := s.ExportAll(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during export: %v\n", err)
			os.Exit(1)
		}
		reportBatch(res, time.Since(start))
		if res.HasErrors() {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
