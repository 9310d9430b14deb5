package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-extractor/internal/app"
	"github.com/joseph-ayodele/claims-extractor/internal/entity"
	"github.com/joseph-ayodele/claims-extractor/internal/ingest"
	"github.com/joseph-ayodele/claims-extractor/internal/store"
)

var (
	watchInitial    bool
	watchDebounce   time.Duration
	watchStartBatch int
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Extract each new PDF dropped into a directory",
	Long: `Watch a directory tree and extract every PDF that appears in it. Each document
is saved to the record store as its own one-document batch, numbered after the
highest batch already stored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		a, err := app.Build(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(context.Background()) }()

		ctx := cmd.Context()
		paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{args[0]},
			InitialScan: watchInitial,
			Debounce:    watchDebounce,
		}, log)
		if err != nil {
			return err
		}
		batches, err := store.NewAppender(ctx, a.Stores.Records, watchStartBatch)
		if err != nil {
			return err
		}
		log.Infow("watching for documents", "dir", args[0])

		for {
			select {
			case <-ctx.Done():
				return nil
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				log.Warnw("watch error", "error", err)
			case path, ok := <-paths:
				if !ok {
					return nil
				}
				data, err := os.ReadFile(path)
				if err != nil {
					log.Errorw("read failed", "path", path, "error", err)
					continue
				}
				id := filepath.Base(path)
				rec, err := a.Service.ExtractDocument(ctx, id, data)
				if err != nil {
					log.Errorw("extraction failed", "document_id", id, "error", err)
					continue
				}
				n, err := batches.Append(ctx, []entity.ExtractionRecord{rec})
				if err != nil {
					log.Errorw("save failed", "document_id", id, "error", err)
					continue
				}
				log.Infow("document extracted", "document_id", id, "pages", len(rec.Pages), "batch", n)
			}
		}
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitial, "initial-scan", false, "also extract PDFs already present")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before a file is picked up")
	watchCmd.Flags().IntVar(&watchStartBatch, "start-batch", 1001, "lowest batch number used for watched documents")
}
