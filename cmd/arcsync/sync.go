package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gabe-kai/Arcadium-sub000/internal/engine"
	"github.com/gabe-kai/Arcadium-sub000/internal/syncer"
	"github.com/gabe-kai/Arcadium-sub000/internal/ui"
)

var forceSync bool

var syncAllCmd = &cobra.Command{
	Use:   "sync-all",
	Short: "Sync every content file into the database",
	Long: `Enumerate every content file under the root directory and sync each
one into the database. Per-file failures are reported and counted; the
batch continues with the remaining files.

Exits non-zero if any file failed.`,
	Run: func(cmd *cobra.Command, args []string) {
		db, s, err := openEnvironment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		start := time.Now()
		res, err := s.SyncAll(context.Background(), forceSync)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during sync: %v\n", err)
			os.Exit(1)
		}
		reportBatch(res, time.Since(start))
		if res.HasErrors() {
			os.Exit(1)
		}
	},
}

var syncDirCmd = &cobra.Command{
	Use:   "sync-dir <directory>",
	Short: "Sync one subtree of the content directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, s, err := openEnvironment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		start := time.Now()
		res, err := s.SyncDir(context.Background(), args[0], forceSync)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during sync: %v\n", err)
			os.Exit(1)
		}
		reportBatch(res, time.Since(start))
		if res.HasErrors() {
			os.Exit(1)
		}
	},
}

var syncFileCmd = &cobra.Command{
	Use:   "sync-file <path>",
	Short: "Sync a single content file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, s, err := openEnvironment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		res, err := s.SyncOne(context.Background(), args[0], forceSync)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error syncing %s: %v\n", args[0], err)
			os.Exit(1)
		}

		switch res.Decision {
		case engine.Skip:
			fmt.Printf("%s Skipped %s (%s)\n", ui.RenderDim("-"), args[0], res.Reason)
		case engine.ConflictRequiresMerge:
			fmt.Printf("%s Merged %s (%d conflict region(s))\n", ui.RenderWarn("~"), args[0], res.Conflicts)
		default:
			verb := "Updated"
			if res.Created {
				verb = "Created"
			}
			fmt.Printf("%s %s %q from %s\n", ui.RenderPass("✓"), verb, res.Slug, args[0])
		}
	},
}

func reportBatch(res *syncer.BatchResult, elapsed time.Duration) {
	mark := ui.RenderPass("✓")
	if res.HasErrors() {
		mark = ui.RenderErr("✗")
	}
	fmt.Printf("%s Sync complete in %v\n", mark, elapsed.Round(time.Millisecond))
	fmt.Printf("   Created: %d\n", res.Created)
	fmt.Printf("   Updated: %d\n", res.Updated)
	fmt.Printf("   Skipped: %d\n", res.Skipped)
	if res.HasErrors() {
		fmt.Printf("   Errors:  %d\n", res.Errors)
		for _, f := range res.Failures {
			fmt.Printf("   %s %s: %v\n", ui.RenderErr("✗"), f.Path, f.Err)
		}
	}
}

func init() {
	for _, c := range []*cobra.Command{syncAllCmd, syncDirCmd, syncFileCmd} {
		c.Flags().BoolVar(&forceSync, "force", false, "bypass the decision engine and always pull")
		rootCmd.AddCommand(c)
	}
}
