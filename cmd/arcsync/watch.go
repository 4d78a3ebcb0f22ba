package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gabe-kai/Arcadium-sub000/internal/ui"
	"github.com/gabe-kai/Arcadium-sub000/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the content directory and sync changed files",
	Long: `Watch the content directory for file changes and sync each changed
file into the database.

Events for the same file are coalesced: a burst of writes produces one
sync, after the debounce interval of quiet. Per-file sync failures are
logged and watching continues.

Press Ctrl+C to stop. Files whose debounce window already expired are
flushed before exit; files still inside their window are dropped.`,
	Run: func(cmd *cobra.Command, args []string) {
		db, s, err := openEnvironment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		wc := watcher.DefaultConfig()
		wc.DebounceInterval = cfg.DebounceInterval

		handler := func(ctx context.Context, path string) error {
			_, err := s.SyncOne(ctx, path, false)
			return err
		}

		w, err := watcher.New(cfg.RootDir, handler, wc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating watcher: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		fmt.Printf("%s Watching %s (debounce %v)\n", ui.RenderAccent("👁"), cfg.RootDir, cfg.DebounceInterval)
		fmt.Printf("Press Ctrl+C to stop\n\n")

		if err := w.Start(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "Watcher stopped with error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\n%s Watcher stopped\n", ui.RenderPass("✓"))
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
