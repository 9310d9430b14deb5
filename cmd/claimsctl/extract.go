package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-extractor/internal/app"
	"github.com/joseph-ayodele/claims-extractor/internal/entity"
	"github.com/joseph-ayodele/claims-extractor/internal/search"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Extract the text of every page of a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		engine, err := app.NewEngine(cfg, log)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		id := filepath.Base(args[0])
		res, err := engine.Extract(cmd.Context(), id, data, cfg.Extraction.PageWorkers)
		if err != nil {
			return err
		}
		return printJSON(cmd, entity.ExtractionRecord{DocumentID: id, Pages: res.Texts()})
	},
}

var (
	searchKeywords    string
	searchOnlyMatched bool
)

var searchCmd = &cobra.Command{
	Use:   "search --keywords \"CLAIM|INVOICE\" <file.pdf>",
	Short: "Search the pages of a PDF for keywords",
	Example: `  claimsctl search --keywords "CONTRACT" --only-matched claim.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := search.NewKeywordQuery(searchKeywords, searchOnlyMatched)
		if err != nil {
			return err
		}
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		engine, err := app.NewEngine(cfg, log)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		res, err := engine.Extract(cmd.Context(), filepath.Base(args[0]), data, cfg.Extraction.PageWorkers)
		if err != nil {
			return err
		}
		resp, err := search.SearchPages(res.Texts(), q)
		if err != nil {
			return err
		}
		return printJSON(cmd, resp)
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchKeywords, "keywords", "", "pipe-delimited keywords")
	searchCmd.Flags().BoolVar(&searchOnlyMatched, "only-matched", false, "return only pages that matched")
	_ = searchCmd.MarkFlagRequired("keywords")
}
