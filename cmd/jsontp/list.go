package main

import (
	"context"
	"fmt"
	"time"

	"github.com/oukeidos/jsontp/internal/language"
	"github.com/oukeidos/jsontp/internal/metadata"
	"github.com/oukeidos/jsontp/internal/openai"
	"github.com/spf13/cobra"
)

// listModels fetches model IDs from the OpenAI API.
var listModels = func(ctx context.Context, apiKey, baseURL string) ([]string, error) {
	return openai.NewClient(apiKey, "", baseURL).ListModels(ctx)
}

func newLanguagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "languages",
		Aliases: []string{"list"},
		Short:   "List supported languages",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Supported Languages:")
			for _, l := range language.GetSupportedLanguages() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-35s [%s]\n", l.Name, l.ID)
			}
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newModelsCmd(global *globalOptions) *cobra.Command {
	var (
		provider string
		remote   bool
		creds    credentialOptions
	)
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known models and their pricing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider != "" && !metadata.ValidProvider(provider) {
				return fmt.Errorf("invalid provider %q. Must be 'openai' or 'gemini'", provider)
			}
			out := cmd.OutOrStdout()
			if !remote {
				fmt.Fprintf(out, "  %-8s %-22s %12s %12s\n", "PROVIDER", "MODEL", "IN $/1M", "OUT $/1M")
				for _, m := range metadata.Models(provider) {
					marker := " "
					if m.ID == metadata.DefaultModel(m.Provider) {
						marker = "*"
					}
					fmt.Fprintf(out, "%s %-8s %-22s %12.2f %12.2f\n", marker, m.Provider, m.ID, m.InputPerMillion, m.OutputPerMillion)
				}
				return nil
			}

			if provider != "" && provider != metadata.ProviderOpenAI {
				return fmt.Errorf("--remote is only supported for openai")
			}
			settings, err := loadSettings(cmd, global)
			if err != nil {
				return err
			}
			key, _, err := resolveAPIKey(metadata.ProviderOpenAI, creds.allowEnv, creds.envOnly)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			ids, err := listModels(ctx, key, settings.BaseURL)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().StringVar(&provider, "provider", "", "Only list models of this provider")
	cmd.Flags().BoolVar(&remote, "remote", false, "Query the OpenAI API for the models visible to your key")
	cmd.Flags().String("base-url", "", "OpenAI-compatible endpoint URL")
	addCredentialFlags(cmd, &creds)
	return cmd
}
