package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gabe-kai/Arcadium-sub000/internal/pathres"
	"github.com/gabe-kai/Arcadium-sub000/internal/store"
	"github.com/gabe-kai/Arcadium-sub000/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and content directory status",
	Run: func(cmd *cobra.Command, args []string) {
		info, err := os.Stat(cfg.DatabasePath)
		if os.IsNotExist(err) {
			fmt.Printf("\n%s Database not initialized\n", ui.RenderWarn("⚠"))
			fmt.Printf("   Run 'arcsync sync-all' to create it\n\n")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error checking database: %v\n", err)
			os.Exit(1)
		}

		db, err := store.Open(cfg.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		ctx := context.Background()
		// Idempotent; a db file created out of band but never initialized
		// reports zero counts instead of a missing-table error.
		if err := db.InitSchema(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing schema: %v\n", err)
			os.Exit(1)
		}
		pages, err := db.PageCount(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting pages: %v\n", err)
			os.Exit(1)
		}
		revisions, err := db.RevisionCount(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting revisions: %v\n", err)
			os.Exit(1)
		}
		links, err := db.LinkCount(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting links: %v\n", err)
			os.Exit(1)
		}

		size := info.Size()
		sizeStr := fmt.Sprintf("%d bytes", size)
		if size > 1024*1024 {
			sizeStr = fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
		} else if size > 1024 {
			sizeStr = fmt.Sprintf("%.1f KB", float64(size)/1024)
		}

		files := countContentFiles(cfg.RootDir)

		fmt.Printf("\n%s arcsync Status\n\n", ui.RenderAccent("📊"))
		fmt.Printf("Database: %s\n", cfg.DatabasePath)
		fmt.Printf("Size: %s\n", sizeStr)
		fmt.Printf("Pages: %d\n", pages)
		fmt.Printf("Revisions: %d\n", revisions)
		fmt.Printf("Links: %d\n", links)
		fmt.Printf("Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
		fmt.Printf("\nContent root: %s\n", cfg.RootDir)
		fmt.Printf("Content files: %d\n", files)
		if files != pages {
			fmt.Printf("%s file count and page count differ; run 'arcsync sync-all' or 'arcsync export'\n", ui.RenderWarn("⚠"))
		}
		fmt.Println()
	},
}

func countContentFiles(root string) int {
	n := 0
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && filepath.Ext(path) == pathres.Ext {
			n++
		}
		return nil
	})
	return n
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
