package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var checkKey string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify a service key against the upstream API",
	Long: `check probes the bid-notice endpoint with a single-row request. With
--key the given key is verified; otherwise the active stored key is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.Context())
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkKey, "key", "", "Service key to verify instead of the stored one")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(ctx context.Context) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.pg.Close()

	key := checkKey
	if key == "" {
		key, err = a.configs.ActiveServiceKey(ctx)
		if err != nil {
			return err
		}
	}

	if err := a.coordinator.VerifyKey(ctx, key); err != nil {
		return fmt.Errorf("service key rejected: %w", err)
	}

	fmt.Println("service key verified")
	return nil
}
