package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgerflow/internal/database"
	"ledgerflow/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo workspace with customers and invoices",
	Long: `Seed creates a demo workspace owned by ` + seed.DemoEmail + ` (password
"` + seed.DemoPassword + `") unless that user already exists.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Int("invoices", 12, "number of demo invoices")
	seedCmd.Flags().Int64("rand-seed", 0, "random seed for reproducible data (0 = time based)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	n, _ := cmd.Flags().GetInt("invoices")
	rs, _ := cmd.Flags().GetInt64("rand-seed")
	if n <= 0 {
		return fmt.Errorf("invoices must be positive")
	}

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	res, err := seed.Run(cmd.Context(), db, seed.Options{Invoices: n, RandSeed: rs})
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Println("Demo data already present.")
		return nil
	}
	fmt.Printf("Seeded workspace %s: %d customers, %d invoices.\n", res.WorkspaceID, res.Customers, res.Invoices)
	fmt.Printf("Log in as %s / %s\n", seed.DemoEmail, seed.DemoPassword)
	return nil
}
