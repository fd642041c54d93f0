package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/oukeidos/jsontp/internal/auth"
	"github.com/oukeidos/jsontp/internal/metadata"
	"github.com/spf13/cobra"
)

var (
	saveKey   = auth.SaveKey
	deleteKey = auth.DeleteKey
)

type envOptions struct {
	provider string
}

func newEnvCmd() *cobra.Command {
	opts := envOptions{}
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage API keys in OS Keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd, &opts)
		},
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.PersistentFlags().StringVar(&opts.provider, "provider", metadata.ProviderOpenAI, "Provider to manage (openai or gemini)")

	cmd.AddCommand(
		newEnvSetupCmd(&opts),
		newEnvDeleteCmd(&opts),
		newEnvStatusCmd(&opts),
	)
	return cmd
}

func newEnvSetupCmd(opts *envOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Save API key to keychain (prompt only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvSetup(cmd, opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newEnvDeleteCmd(opts *envOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete key from keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvDelete(cmd, opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newEnvStatusCmd(opts *envOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show key status (default if no action given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd, opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func envProvider(opts *envOptions) (string, error) {
	p := strings.ToLower(strings.TrimSpace(opts.provider))
	if !metadata.ValidProvider(p) {
		return "", fmt.Errorf("invalid provider. Must be 'openai' or 'gemini'")
	}
	return p, nil
}

func runEnvSetup(cmd *cobra.Command, opts *envOptions) error {
	p, err := envProvider(opts)
	if err != nil {
		return err
	}
	if !isTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("env setup requires an interactive terminal")
	}
	key, err := promptForKey(cmd.ErrOrStderr(), fmt.Sprintf("%s API Key: ", providerLabel(p)))
	if err != nil {
		return fmt.Errorf("error reading key: %w", err)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("API key is required for setup")
	}
	if err := saveKey(p, key); err != nil {
		return fmt.Errorf("error saving key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s API key to keychain.\n", p)
	return nil
}

func runEnvDelete(cmd *cobra.Command, opts *envOptions) error {
	p, err := envProvider(opts)
	if err != nil {
		return err
	}
	if err := deleteKey(p); err != nil {
		return fmt.Errorf("error deleting key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s API key from keychain.\n", p)
	return nil
}

func runEnvStatus(cmd *cobra.Command, opts *envOptions) error {
	p, err := envProvider(opts)
	if err != nil {
		return err
	}
	if getStatus(p) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s API Key: Found (source=Keychain)\n", p)
		return nil
	}
	if envKey, ok := getEnvKey(p); ok && envKey != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s API Key: Found (source=Environment Variable %s; disabled by default, use --allow-env)\n", p, auth.EnvVar(p))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s API Key: Not Found (keychain empty, %s not set)\n", p, auth.EnvVar(p))
	return nil
}
