package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oukeidos/jsontp/internal/config"
	"github.com/oukeidos/jsontp/internal/glossary"
	"github.com/oukeidos/jsontp/internal/logger"
	"github.com/oukeidos/jsontp/internal/pipeline"
	"github.com/oukeidos/jsontp/internal/prompt"
	"github.com/oukeidos/jsontp/internal/version"
	"github.com/spf13/cobra"
)

// selectionOptions are the document and key selection flags shared by
// translate, analyze and preview.
type selectionOptions struct {
	oldPath  string
	include  []string
	exclude  []string
	skipKeys []string
}

type translateOptions struct {
	selectionOptions
	credentialOptions
	outputPath string
	yes        bool
}

func newTranslateCmd(global *globalOptions) *cobra.Command {
	opts := translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate [--old old.json] <new.json>",
		Short: "Translate the new keys of a JSON translation file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				_ = cmd.Usage()
				return fmt.Errorf("new.json is required")
			}
			return runTranslate(cmd, args, global, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTranslateFlags(cmd, &opts)
	return cmd
}

func addSelectionFlags(cmd *cobra.Command, opts *selectionOptions) {
	cmd.Flags().StringVar(&opts.oldPath, "old", "", "Previous version of the file; unchanged keys are carried over")
	cmd.Flags().StringSliceVar(&opts.include, "include", nil, "Only translate keys matching these glob patterns (e.g. 'menu.*')")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "Never translate keys matching these glob patterns")
	cmd.Flags().StringSliceVar(&opts.skipKeys, "skip-key", nil, "Exact dotted key to leave untranslated (repeatable)")
}

// addSettingsFlags declares the flags that override config settings. Their
// names match config.FlagKeys.
func addSettingsFlags(cmd *cobra.Command) {
	d := config.Default()
	f := cmd.Flags()
	f.String("provider", d.Provider, "Provider (openai or gemini)")
	f.String("model", "", "Model name (default depends on provider)")
	f.String("base-url", "", "OpenAI-compatible endpoint URL")
	f.String("source", "", "Source language code (detected by the model when empty)")
	f.String("target", "", "Target language code")
	f.String("output-dir", "", "Directory for the output file (default: next to new.json)")
	f.Int("token-ceiling", d.TokenCeiling, fmt.Sprintf("Estimated input tokens per batch (%d-%d)", pipeline.MinTokenCeiling, pipeline.MaxTokenCeiling))
	f.Int("batch-size", d.BatchSize, fmt.Sprintf("Maximum keys per batch (1-%d)", pipeline.MaxItemsPerBatch))
	f.Float64("temperature", d.Temperature, "Sampling temperature")
	f.Int("max-tokens", d.MaxTokens, "Maximum output tokens per request")
	f.Int("retries", d.Retries, fmt.Sprintf("Attempts per batch for transient errors (max %d)", pipeline.MaxAttemptsLimit))
	f.Int("malformed-retries", d.MalformedRetries, fmt.Sprintf("Extra attempts after a malformed reply (max %d)", pipeline.MaxMalformed))
	f.Duration("call-timeout", d.CallTimeout, "Timeout of a single provider call")
	f.String("instructions", "", "Extra instructions appended to the system prompt")
	f.String("glossary", "", "JSON glossary of fixed translations keyed by language code (requires --source)")
	f.Bool("no-placeholders", false, "Send placeholders such as {name} without protection")
	f.Bool("retranslate-changed", false, "Also translate keys whose source text changed")
	f.Bool("carry-from-old", false, "Carry unchanged values from the old file instead of the new one")
	f.String("log-file", "", "Path to save machine-readable JSONL logs")
	f.Bool("debug", false, "Enable debug logging")
}

func addTranslateFlags(cmd *cobra.Command, opts *translateOptions) {
	addSelectionFlags(cmd, &opts.selectionOptions)
	addSettingsFlags(cmd)
	addCredentialFlags(cmd, &opts.credentialOptions)
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Explicit output file (default: <new>_translated_<timestamp>.json)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Start the translation without asking")
}

func (o selectionOptions) apply(cfg pipeline.Config) pipeline.Config {
	cfg.OldPath = o.oldPath
	cfg.Include = o.include
	cfg.Exclude = o.exclude
	cfg.SkipKeys = o.skipKeys
	return cfg
}

func validateJSONPath(kind, path string) error {
	if path == "" {
		return nil
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		if ext == "" {
			ext = "(none)"
		}
		return fmt.Errorf("unsupported %s extension %q (expected .json)", kind, ext)
	}
	return nil
}

func runTranslate(cmd *cobra.Command, args []string, global *globalOptions, opts *translateOptions) error {
	if len(args) > 1 {
		return fmt.Errorf("expected one input file but got %d; pass the previous version with --old", len(args))
	}
	paths := [][2]string{{"input", args[0]}, {"old", opts.oldPath}, {"output", opts.outputPath}}
	for _, p := range paths {
		if err := validateJSONPath(p[0], p[1]); err != nil {
			return err
		}
	}

	settings, err := loadSettings(cmd, global)
	if err != nil {
		return err
	}
	if err := setupLogging(settings); err != nil {
		return err
	}

	cfg := opts.selectionOptions.apply(settings.Apply(pipeline.Config{
		NewPath:     args[0],
		OutputPath:  opts.outputPath,
		ToolVersion: version.Short(),
	}))
	if cfg.Glossary, err = loadGlossary(settings.Glossary, cfg.SourceLang, cfg.TargetLang); err != nil {
		return err
	}
	if err := attachClient(&cfg, opts.credentialOptions); err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	cfg.OnConfirm = func(a *pipeline.Analysis) bool {
		fmt.Fprintln(errOut, formatEstimate(a))
		if a.Pending() == 0 {
			return true
		}
		ok, err := confirmer().ConfirmRun("", opts.yes)
		if err != nil {
			logger.Error("Run confirmation failed", "error", err)
			return false
		}
		return ok
	}
	cfg.OnProgress = func(ev pipeline.Event) { printProgress(errOut, ev) }

	ctx, stop := signalContext()
	defer stop()
	result, err := pipeline.Run(ctx, cfg)
	if err != nil {
		if result.Analysis != nil {
			printSummary(cmd.OutOrStdout(), result, cfg.Model)
		}
		return err
	}
	if result.Status == pipeline.StatusSkipped {
		fmt.Fprintln(cmd.OutOrStdout(), "Translation skipped.")
		return nil
	}
	printSummary(cmd.OutOrStdout(), result, cfg.Model)
	return translationStatusError(result)
}

func loadGlossary(path, source, target string) ([]glossary.Term, error) {
	if path == "" {
		return nil, nil
	}
	terms, err := glossary.Load(path, source, target)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded glossary", "path", path, "terms", len(terms))
	return terms, nil
}

// attachClient resolves the credential, or installs the test provider.
func attachClient(cfg *pipeline.Config, opts credentialOptions) error {
	if testClient != nil {
		cfg.Client = testClient
		return nil
	}
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = config.Default().Provider
	}
	key, source, err := resolveAPIKey(provider, opts.allowEnv, opts.envOnly)
	if err != nil {
		return err
	}
	logger.Info("Using API Key", "provider", provider, "source", source)
	cfg.APIKey = key
	return nil
}

var confirmer = prompt.DefaultConfirmer
