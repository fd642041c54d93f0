package main

import (
	"fmt"

	"github.com/oukeidos/jsontp/internal/logger"
	"github.com/oukeidos/jsontp/internal/pipeline"
	"github.com/oukeidos/jsontp/internal/report"
	"github.com/oukeidos/jsontp/internal/version"
	"github.com/spf13/cobra"
)

var runRetryPipeline = pipeline.RunRetry

type retryOptions struct {
	credentialOptions
	yes bool
}

func newRetryCmd(global *globalOptions) *cobra.Command {
	opts := retryOptions{}
	cmd := &cobra.Command{
		Use:   "retry <report.json>",
		Short: "Retranslate the failed and canceled keys of a previous run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				_ = cmd.Usage()
				return fmt.Errorf("report.json is required")
			}
			return runRetry(cmd, args, global, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	f := cmd.Flags()
	f.String("base-url", "", "OpenAI-compatible endpoint URL")
	f.Int("token-ceiling", 0, "Estimated input tokens per batch")
	f.Int("batch-size", 0, "Maximum keys per batch")
	f.Int("retries", 0, "Attempts per batch for transient errors")
	f.Int("malformed-retries", 0, "Extra attempts after a malformed reply")
	f.Duration("call-timeout", 0, "Timeout of a single provider call")
	f.String("instructions", "", "Extra instructions appended to the system prompt")
	f.String("glossary", "", "JSON glossary of fixed translations keyed by language code")
	f.String("log-file", "", "Path to save machine-readable JSONL logs")
	f.Bool("debug", false, "Enable debug logging")
	addCredentialFlags(cmd, &opts.credentialOptions)
	f.BoolVarP(&opts.yes, "yes", "y", false, "Start the retry without asking")
	return cmd
}

func runRetry(cmd *cobra.Command, args []string, global *globalOptions, opts *retryOptions) error {
	reportPath := args[0]
	settings, err := loadSettings(cmd, global)
	if err != nil {
		return err
	}
	if err := setupLogging(settings); err != nil {
		return err
	}

	// The provider of the original run decides which key is needed.
	rep, err := report.Load(reportPath)
	if err != nil {
		return fmt.Errorf("failed to load run report: %w", err)
	}
	cfg := settings.Apply(pipeline.Config{ToolVersion: version.Short()})
	cfg.Provider = rep.Provider
	if cfg.Glossary, err = loadGlossary(settings.Glossary, rep.SourceLang, rep.TargetLang); err != nil {
		return err
	}
	if err := attachClient(&cfg, opts.credentialOptions); err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	cfg.OnConfirm = func(a *pipeline.Analysis) bool {
		fmt.Fprintf(errOut, "Retrying %d keys in %d batches (estimated cost: $%.5f)\n", a.Pending(), a.Estimate.Batches, a.Estimate.Cost)
		ok, err := confirmer().ConfirmRun("", opts.yes)
		if err != nil {
			logger.Error("Retry confirmation failed", "error", err)
			return false
		}
		return ok
	}
	cfg.OnProgress = func(ev pipeline.Event) { printProgress(errOut, ev) }

	ctx, stop := signalContext()
	defer stop()
	result, err := runRetryPipeline(ctx, cfg, reportPath)
	if err != nil {
		return err
	}
	if result.Status == pipeline.StatusSkipped {
		fmt.Fprintln(cmd.OutOrStdout(), "Retry skipped.")
		return nil
	}
	printSummary(cmd.OutOrStdout(), result, rep.Model)
	return translationStatusError(result)
}
