package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oukeidos/jsontp/internal/jsondoc"
	"github.com/oukeidos/jsontp/internal/logger"
	"github.com/oukeidos/jsontp/internal/pipeline"
	"github.com/oukeidos/jsontp/internal/report"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	selectionOptions
	xlsxPath string
	asJSON   bool
}

// analysisSummary is the machine-readable output of analyze --json.
type analysisSummary struct {
	Added      []string `json:"added"`
	Changed    []string `json:"changed"`
	Removed    []string `json:"removed"`
	Unchanged  int      `json:"unchanged"`
	Selected   []string `json:"selected"`
	Deselected []string `json:"deselected"`
	Batches    int      `json:"batches"`
	Oversized  int      `json:"oversized"`
	InputTok   int      `json:"estimated_input_tokens"`
	OutputTok  int      `json:"estimated_output_tokens"`
	Cost       float64  `json:"estimated_cost"`
}

func newAnalyzeCmd(global *globalOptions) *cobra.Command {
	opts := analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [--old old.json] <new.json>",
		Short: "Show the diff and the cost estimate without translating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, global, &opts)
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addSelectionFlags(cmd, &opts.selectionOptions)
	addSettingsFlags(cmd)
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "Write a review workbook (.xlsx) with added, removed and unchanged keys")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the analysis as JSON")
	return cmd
}

func newPreviewCmd(global *globalOptions) *cobra.Command {
	opts := selectionOptions{}
	var list bool
	cmd := &cobra.Command{
		Use:   "preview [--old old.json] <new.json>",
		Short: "Print the merged document with [translate]/[skip] markers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := analyzeArgs(cmd, args, global, opts)
			if err != nil {
				return err
			}
			if list {
				for _, line := range pipeline.PreviewLines(a) {
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-9s %s = %s\n", "["+line.Mark+"]", line.Class, line.Path, line.Value)
				}
				return nil
			}
			doc, err := pipeline.PreviewDocument(a)
			if err != nil {
				return err
			}
			data, err := jsondoc.Encode(doc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addSelectionFlags(cmd, &opts)
	addSettingsFlags(cmd)
	cmd.Flags().BoolVar(&list, "list", false, "List every key with its diff class instead of printing the document")
	return cmd
}

func analyzeArgs(cmd *cobra.Command, args []string, global *globalOptions, opts selectionOptions) (*pipeline.Analysis, error) {
	if err := validateJSONPath("input", args[0]); err != nil {
		return nil, err
	}
	if err := validateJSONPath("old", opts.oldPath); err != nil {
		return nil, err
	}
	settings, err := loadSettings(cmd, global)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(settings); err != nil {
		return nil, err
	}
	cfg := opts.apply(settings.Apply(pipeline.Config{NewPath: args[0]}))
	return pipeline.Analyze(cfg)
}

func runAnalyze(cmd *cobra.Command, args []string, global *globalOptions, opts *analyzeOptions) error {
	if opts.xlsxPath != "" && !strings.EqualFold(filepath.Ext(opts.xlsxPath), ".xlsx") {
		return fmt.Errorf("review workbook must have the .xlsx extension: %s", opts.xlsxPath)
	}
	a, err := analyzeArgs(cmd, args, global, opts.selectionOptions)
	if err != nil {
		return err
	}

	if opts.xlsxPath != "" {
		if err := report.WriteWorkbook(opts.xlsxPath, pipeline.Review(a)); err != nil {
			return err
		}
		logger.Info("Saved review workbook", "path", opts.xlsxPath)
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summarize(a))
	}
	fmt.Fprintln(out, formatEstimate(a))
	for _, p := range a.Diff.Added {
		fmt.Fprintf(out, "  + %s\n", p)
	}
	for _, p := range a.Diff.Changed {
		fmt.Fprintf(out, "  ~ %s\n", p)
	}
	for _, p := range a.Diff.Removed {
		fmt.Fprintf(out, "  - %s\n", p)
	}
	return nil
}

func summarize(a *pipeline.Analysis) analysisSummary {
	s := analysisSummary{
		Added:      keyStrings(a.Diff.Added),
		Changed:    keyStrings(a.Diff.Changed),
		Removed:    keyStrings(a.Diff.Removed),
		Unchanged:  len(a.Diff.Unchanged),
		Deselected: keyStrings(a.Deselected),
		Batches:    a.Estimate.Batches,
		Oversized:  a.Estimate.Oversized,
		InputTok:   a.Estimate.InputTokens,
		OutputTok:  a.Estimate.OutputTokens,
		Cost:       a.Estimate.Cost,
	}
	s.Selected = make([]string, 0, len(a.Selected))
	for _, e := range a.Selected {
		s.Selected = append(s.Selected, e.Path.String())
	}
	return s
}

func keyStrings(paths []jsondoc.KeyPath) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.String())
	}
	return out
}
