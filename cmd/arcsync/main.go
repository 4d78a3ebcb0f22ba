// arcsync keeps wiki content files with YAML frontmatter in sync with
// a SQLite content database.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gabe-kai/Arcadium-sub000/internal/config"
	"github.com/gabe-kai/Arcadium-sub000/internal/notify"
	"github.com/gabe-kai/Arcadium-sub000/internal/store"
	"github.com/gabe-kai/Arcadium-sub000/internal/syncer"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "arcsync",
	Short: "Bidirectional sync between wiki content files and the content database",
	Long: `arcsync keeps a directory of Markdown files with YAML frontmatter
consistent with a SQLite content database.

File edits flow into the database (pull); database writes flow back out
to files (push). A grace period protects recent database-side edits from
being overwritten by stale file events.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		return err
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default arcsync.yaml in the current directory)")
}

// openEnvironment opens the database and builds a syncer from the
// loaded configuration. The caller must Close the returned database.
func openEnvironment() (*store.DB, syncer.Syncer, error) {
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database %s: %w", cfg.DatabasePath, err)
	}
	if err := db.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("initializing schema: %w", err)
	}

	logger := syncLogger()
	sc := syncer.DefaultConfig()
	sc.GracePeriod = cfg.GracePeriod
	sc.CompareContent = cfg.CompareContent
	sc.MergeOnConflict = cfg.MergeOnConflict
	sc.Workers = cfg.Workers
	sc.DefaultAuthor = cfg.DefaultAuthor
	sc.Logger = logger

	s := syncer.New(db, notify.NewIndexer(db, logger), cfg.RootDir, sc)
	return db, s, nil
}

// syncLogger writes to stderr, or to a rotating file when log_file is
// configured.
func syncLogger() *log.Logger {
	if cfg.LogFile == "" {
		return log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return log.New(&lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}, "[sync] ", log.LstdFlags)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
