package main

import (
	"fmt"
	"os"

	"github.com/oukeidos/jsontp/internal/cleanup"
	"github.com/oukeidos/jsontp/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func execute() {
	cmd := newRootCmd()
	err := cmd.Execute()
	if cleanupErr := cleanup.RunAll(); cleanupErr != nil {
		fmt.Fprintln(os.Stderr, cleanupErr)
		if err == nil {
			err = cleanupErr
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

type globalOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	global := &globalOptions{}
	translateOpts := translateOptions{}

	cmd := &cobra.Command{
		Use:   "jsontp",
		Short: "JSON translation file differ and LLM translator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if hasAnyFlagSet(cmd) {
					_ = cmd.Usage()
					return fmt.Errorf("new.json is required")
				}
				return cmd.Help()
			}
			if isSubcommand(cmd, args[0]) {
				_ = cmd.Usage()
				return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return runTranslate(cmd, args, global, &translateOpts)
		},
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
	}

	cmd.Version = version.Info()
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetUsageTemplate(rootUsageTemplate)

	cmd.PersistentFlags().StringVar(&global.configPath, "config", "", "Config file (default ~/.jsontp.yaml or ./.jsontp.yaml)")
	addTranslateFlags(cmd, &translateOpts)

	cmd.AddCommand(
		newAboutCmd(),
		newTranslateCmd(global),
		newAnalyzeCmd(global),
		newPreviewCmd(global),
		newRetryCmd(global),
		newModelsCmd(global),
		newLanguagesCmd(),
		newEnvCmd(),
		newConfigCmd(global),
	)

	cmd.InitDefaultCompletionCmd()
	for _, sub := range cmd.Commands() {
		if sub.Name() == "completion" {
			sub.SetUsageTemplate(subcommandUsageTemplate)
			break
		}
	}

	return cmd
}

func hasAnyFlagSet(cmd *cobra.Command) bool {
	changed := false
	cmd.Flags().Visit(func(_ *pflag.Flag) {
		changed = true
	})
	return changed
}

func isSubcommand(cmd *cobra.Command, name string) bool {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return true
		}
	}
	return false
}
