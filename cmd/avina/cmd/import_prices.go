package cmd

import (
	"fmt"

	"github.com/LRZ-BADW/avina/internal/pricing"
	"github.com/spf13/cobra"
)

var importDryRun bool

var importPricesCmd = &cobra.Command{
	Use:   "import-prices FILE",
	Short: "Import flavor prices from a YAML price sheet",
	Long: `Load a price sheet, validate it and write every price in one
transaction. Unknown flavors or prices that already exist abort the import.

Example sheet:
  start_time: 2024-01-01T00:00:00Z
  prices:
    - flavor: lrz.small
      user_class: UC1
      unit_price: 120.5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sheet, err := pricing.NewLoader().Load(args[0])
		if err != nil {
			return err
		}
		if importDryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d prices valid\n", args[0], len(sheet.Prices))
			return nil
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		prices, err := pricing.Import(ctx, st, sheet)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), prices)
	},
}

func init() {
	importPricesCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "validate the sheet without touching the database")
}
