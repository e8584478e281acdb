package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"review_gateway/internal/app"
	"review_gateway/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review --file <path> [--file <path>...]",
	Short: "Review local files with a registered provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		paths, _ := flags.GetStringSlice("file")
		language, _ := flags.GetString("language")

		req := review.Request{}
		req.ProviderID, _ = flags.GetString("provider")
		req.PromptID, _ = flags.GetString("prompt")
		req.Password, _ = flags.GetString("password")

		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			lang := language
			if lang == "" {
				lang = languageFor(p)
			}
			req.Files = append(req.Files, review.File{
				Name:     filepath.Base(p),
				Language: lang,
				Content:  string(data),
			})
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Start(ctx); err != nil {
				return err
			}

			res, err := a.Reviews.Execute(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# Provider: %s (%s), prompt: %s\n", res.ProviderName, res.Provider, res.PromptName)
			for _, f := range res.ReviewedFiles {
				fmt.Fprintf(out, "\n## %s\n%s\n", f.Name, f.Content)
			}
			return nil
		})
	},
}

var extLanguages = map[string]string{
	".go":   "go",
	".java": "java",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".rb":   "ruby",
	".rs":   "rust",
	".c":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".kt":   "kotlin",
	".php":  "php",
	".sql":  "sql",
}

func languageFor(path string) string {
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "text"
}

func init() {
	reviewCmd.Flags().StringSlice("file", nil, "file to review (repeatable)")
	reviewCmd.Flags().String("language", "", "language for every file; detected from the extension when empty")
	reviewCmd.Flags().String("provider", "", "provider id; the active provider when empty")
	reviewCmd.Flags().String("prompt", "", "prompt id; the default prompt when empty")
	reviewCmd.Flags().String("password", "", "provider password")
	_ = reviewCmd.MarkFlagRequired("file")
}
