package main

import (
	"fmt"

	"github.com/oukeidos/jsontp/internal/version"
	"github.com/spf13/cobra"
)

func newAboutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "about",
		Short: "Show a short description and link",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "jsontp %s: JSON translation file differ and LLM translator\n", version.Version)
			fmt.Fprintln(out, "Translates only the keys that are new since the previous version of a file.")
			fmt.Fprintln(out, "https://github.com/oukeidos/jsontp")
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
