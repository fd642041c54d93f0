package main

import (
	"fmt"

	"github.com/oukeidos/jsontp/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.AddCommand(newConfigInitCmd(global), newConfigShowCmd(global))
	return cmd
}

func newConfigInitCmd(global *globalOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file (--config, else ~/.jsontp.yaml)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := global.configPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newConfigShowCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings (file, JSONTP_* environment and defaults)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := config.New()
			s, used, err := config.Load(v, global.configPath)
			if err != nil {
				return err
			}
			data, err := s.Marshal()
			if err != nil {
				return err
			}
			if used == "" {
				used = "(none)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# config file: %s\n", used)
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
