package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-extractor/internal/app"
	"github.com/joseph-ayodele/claims-extractor/internal/search"
)

var lookupQuery search.FieldQuery

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Find extracted documents by claim fields",
	Long: `Look documents up in the record store. Dealer, contract and claim must all
match; a VIN falls back to the closest fuzzy match when they do not.`,
	Example: `  claimsctl lookup --dealer "Acme" --contract 600128
  claimsctl lookup --vin WAUGNAF46HN038604`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		files, err := a.Service.Lookup(cmd.Context(), lookupQuery)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string][]string{"files": files})
	},
}

func init() {
	f := lookupCmd.Flags()
	f.StringVar(&lookupQuery.Dealer, "dealer", "", "dealer name (substring)")
	f.StringVar(&lookupQuery.VIN, "vin", "", "vehicle identification number")
	f.StringVar(&lookupQuery.Contract, "contract", "", "contract number")
	f.StringVar(&lookupQuery.Claim, "claim", "", "claim number")
	f.StringVar(&lookupQuery.InvoiceDate, "invoice-date", "", "invoice date as printed")
	f.StringVar(&lookupQuery.FreeText, "free-text", "", "literal text")
}
