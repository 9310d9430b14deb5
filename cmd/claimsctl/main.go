// Package main implements claimsctl, the command-line front end for claims extraction.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

var (
	configPath string
	logLevel   string
	version    = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "claimsctl",
	Short: "Extract and search warranty claim documents",
	Long: `claimsctl extracts text from claim PDFs (text layer first, OCR as fallback),
searches it by keyword or by claim field, and runs checkpointed batch extractions.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CLAIMS_CONFIG"), "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
	rootCmd.AddCommand(extractCmd, searchCmd, lookupCmd, batchCmd, watchCmd)
}

// setup loads configuration and a console logger writing to stderr, so
// stdout stays clean JSON.
func setup() (*common.Config, *zap.SugaredLogger, error) {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := common.NewLogger(cfg.Log.Level, "console")
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
