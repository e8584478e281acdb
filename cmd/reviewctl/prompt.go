package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"review_gateway/internal/app"
	"review_gateway/internal/storage"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Manage review prompts",
}

var promptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			prompts, err := a.Prompts.List(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDEFAULT")
			for _, p := range prompts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, yesNo(p.IsDefault))
			}
			return w.Flush()
		})
	},
}

var promptSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the built-in prompts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := storage.SeedPrompts(ctx, a.Prompts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d prompt(s)\n", n)
			return nil
		})
	},
}

var promptSetDefaultCmd = &cobra.Command{
	Use:   "set-default <id>",
	Short: "Make a prompt the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Prompts.SetDefault(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default prompt: %s\n", args[0])
			return nil
		})
	},
}

func init() {
	promptCmd.AddCommand(promptListCmd, promptSeedCmd, promptSetDefaultCmd)
}
