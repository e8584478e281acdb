package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"review_gateway/internal/app"
	"review_gateway/internal/models"
	"review_gateway/internal/registry"
	"review_gateway/internal/vault"
)

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Manage registered AI providers",
}

var providerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			items, err := a.Registry.List(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tKEY\tACTIVE\tPASSWORD")
			for _, p := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Kind, maskedKey(ctx, a, p.ID),
					yesNo(p.IsActive), yesNo(p.HasPassword))
			}
			return w.Flush()
		})
	},
}

var providerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		in := registry.CreateInput{}
		in.Name, _ = flags.GetString("name")
		kind, _ := flags.GetString("provider")
		in.Kind = models.ProviderKind(kind)
		in.APIKey, _ = flags.GetString("api-key")
		in.Endpoint, _ = flags.GetString("endpoint")
		in.Deployment, _ = flags.GetString("deployment")
		in.Model, _ = flags.GetString("model")
		in.Password, _ = flags.GetString("password")
		activate, _ := flags.GetBool("activate")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			item, err := a.Registry.Create(ctx, in)
			if err != nil {
				return err
			}
			if activate {
				if item, err = a.Registry.Activate(ctx, item.ID.String()); err != nil {
					return err
				}
			}
			return printJSON(cmd, item)
		})
	},
}

var providerUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a provider; only the given flags are applied",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		in := registry.UpdateInput{}
		for flag, field := range map[string]*registry.Field{
			"name":       &in.Name,
			"provider":   &in.Kind,
			"api-key":    &in.APIKey,
			"endpoint":   &in.Endpoint,
			"deployment": &in.Deployment,
			"model":      &in.Model,
			"password":   &in.Password,
		} {
			if flags.Changed(flag) {
				v, _ := flags.GetString(flag)
				*field = registry.Value(v)
			}
		}
		if clearPassword, _ := flags.GetBool("clear-password"); clearPassword {
			in.Password = registry.Null()
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			item, err := a.Registry.Update(ctx, args[0], in)
			if err != nil {
				return err
			}
			return printJSON(cmd, item)
		})
	},
}

var providerActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Make a provider the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			item, err := a.Registry.Activate(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active provider: %s (%s)\n", item.Name, item.Kind)
			return nil
		})
	},
}

var providerDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an inactive provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Registry.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted provider %s\n", args[0])
			return nil
		})
	},
}

var providerVerifyCmd = &cobra.Command{
	Use:   "verify <id> <password>",
	Short: "Check a provider password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			ok, err := a.Registry.VerifyPassword(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("password does not match")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password OK")
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{providerAddCmd, providerUpdateCmd} {
		c.Flags().String("name", "", "display name")
		c.Flags().String("provider", "", "provider kind: gemini, azure-openai or claude")
		c.Flags().String("api-key", "", "provider API key")
		c.Flags().String("endpoint", "", "API endpoint (required for azure-openai)")
		c.Flags().String("deployment", "", "deployment name (azure-openai)")
		c.Flags().String("model", "", "model name")
		c.Flags().String("password", "", "password gate for this provider")
	}
	providerAddCmd.Flags().Bool("activate", false, "make the new provider active")
	_ = providerAddCmd.MarkFlagRequired("name")
	_ = providerAddCmd.MarkFlagRequired("provider")
	_ = providerAddCmd.MarkFlagRequired("api-key")
	providerUpdateCmd.Flags().Bool("clear-password", false, "remove the password gate")

	providerCmd.AddCommand(providerListCmd, providerAddCmd, providerUpdateCmd,
		providerActivateCmd, providerDeleteCmd, providerVerifyCmd)
}

func maskedKey(ctx context.Context, a *app.App, id uuid.UUID) string {
	rec, err := a.Providers.GetByID(ctx, id)
	if err != nil {
		return "?"
	}
	key, err := a.Registry.DecryptAPIKey(rec)
	if err != nil {
		return "(unreadable)"
	}
	return vault.MaskAPIKey(key)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
