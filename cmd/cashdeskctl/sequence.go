package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cashdesk/internal/core/numerator"
	infranumerator "cashdesk/internal/infrastructure/numerator"
	"cashdesk/internal/infrastructure/storage/postgres"
)

var sequenceCmd = &cobra.Command{
	Use:   "sequence <docType> <year>",
	Short: "Show the last number issued for a document type and year",
	Example: `  cashdeskctl sequence CR 2024`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		docType, err := numerator.ParseDocType(args[0])
		if err != nil {
			return err
		}
		year, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid year %q", args[1])
		}

		env, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		txm := postgres.NewTxManager(env.pool)
		allocator := infranumerator.New(infranumerator.NewPostgresStore(txm, env.cfg.Database.LockTimeout))
		last, err := allocator.LastIssued(cmd.Context(), docType, year)
		if err != nil {
			return err
		}
		if last == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s-%04d: no numbers issued\n", docType, year)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d issued\n", numerator.Format(numerator.Key{DocType: docType, Year: year}, last), last)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sequenceCmd)
}
