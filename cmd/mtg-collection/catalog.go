package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtg-collection/internal/cards/importer"
	"github.com/ramonehamilton/mtg-collection/internal/config"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		download  bool
		batchSize int
		dataDir   string
	)
	cmd := &cobra.Command{
		Use:   "import [bulk.json[.gz]]",
		Short: "Import the card catalog from a Scryfall bulk file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if download == (len(args) == 1) {
				return fmt.Errorf("give either a bulk file or --download")
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}

			if dataDir == "" {
				dir, err := config.Dir()
				if err != nil {
					return err
				}
				dataDir = filepath.Join(dir, "bulk")
			}
			bi := importer.NewBulkImporter(a.scryfallClient(), db, importer.BulkImportOptions{
				BatchSize: batchSize,
				DataDir:   dataDir,
				Logger:    a.logger,
				Progress: func(n int) {
					fmt.Fprintf(a.errOut, "\rProcessed %d cards", n)
				},
			})

			path := ""
			if download {
				fmt.Fprintln(a.out, "Downloading default_cards bulk data...")
				if path, err = bi.Download(cmd.Context()); err != nil {
					return err
				}
			} else {
				path = args[0]
			}

			stats, err := bi.ImportFile(cmd.Context(), path)
			fmt.Fprintln(a.errOut)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Imported %d of %d cards (%d digital skipped, %d invalid) in %s; %d sets\n",
				stats.ImportedCards, stats.TotalCards, stats.SkippedCards, stats.ErrorCards,
				stats.Duration.Round(time.Millisecond), stats.Sets)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&download, "download", false, "download the current default_cards bulk file first")
	flags.IntVar(&batchSize, "batch-size", 500, "cards per transaction")
	flags.StringVar(&dataDir, "data-dir", "", "where downloads are stored (default ~/.mtg-collection/bulk)")
	return cmd
}

func newFetchImagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-images",
		Short: "Download missing card images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}

			fetcher := importer.NewImageFetcher(a.scryfallClient(), db, a.logger)
			fetcher.Progress = func(done, total int) {
				fmt.Fprintf(a.errOut, "\r%d/%d", done, total)
			}
			stats, err := fetcher.Run(cmd.Context())
			fmt.Fprintln(a.errOut)
			if err != nil {
				return err
			}

			for _, f := range stats.Failed {
				fmt.Fprintf(a.errOut, "Failed %s (%s): %v\n", f.CardID, f.URI, f.Err)
			}
			fmt.Fprintf(a.out, "Fetched %d of %d images, %d failed\n", stats.Fetched, stats.Pending, len(stats.Failed))
			return nil
		},
	}
}
