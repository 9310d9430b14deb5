package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-extractor/internal/app"
	"github.com/joseph-ayodele/claims-extractor/internal/export"
)

var (
	batchSize int
	batchXLSX string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract every document in the source, checkpointing each batch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		if batchSize > 0 {
			cfg.Batch.Size = batchSize
		}

		a, err := app.Build(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(context.Background()) }()

		report, runErr := a.Service.RunBatch(cmd.Context())
		xlsxPath := batchXLSX
		if xlsxPath == "" {
			xlsxPath = cfg.Batch.ReportPath
		}
		written, err := export.WriteReportXLSX(xlsxPath, report)
		if err != nil {
			return err
		}
		if written {
			log.Infow("batch summary written", "path", xlsxPath)
		}
		if runErr != nil {
			return runErr
		}
		if err := printJSON(cmd, report); err != nil {
			return err
		}
		if err := report.Err(); err != nil {
			return err
		}
		if !report.Success {
			return fmt.Errorf("%s: %s", report.Summary(), report.Reason)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchSize, "batch-size", 0, "documents per checkpointed batch (default from config)")
	batchCmd.Flags().StringVar(&batchXLSX, "xlsx", "", "also write the batch summary workbook here (default batch.report_path)")
}
