// Command reviewctl administers a review gateway database: provider
// registry, prompts and one-off reviews.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"review_gateway/internal/app"
	"review_gateway/internal/apperr"
	"review_gateway/internal/config"
	"review_gateway/internal/logging"
	"review_gateway/internal/vault"
)

var rootCmd = &cobra.Command{
	Use:           "reviewctl",
	Short:         "Review gateway administration",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Print a new ENCRYPTION_KEY",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := vault.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func main() {
	rootCmd.AddCommand(genkeyCmd, providerCmd, promptCmd, reviewCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", describe(err))
		os.Exit(1)
	}
}

// withApp loads configuration, opens the stores and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Configure(cfg.Log.Level, cfg.Log.Format)

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func describe(err error) string {
	if ae, ok := apperr.As(err); ok {
		return fmt.Sprintf("%s (%s)", ae.Message, ae.Code)
	}
	return err.Error()
}
