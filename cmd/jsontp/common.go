package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/oukeidos/jsontp/internal/auth"
	"github.com/oukeidos/jsontp/internal/cleanup"
	"github.com/oukeidos/jsontp/internal/config"
	"github.com/oukeidos/jsontp/internal/files"
	"github.com/oukeidos/jsontp/internal/logger"
	"github.com/oukeidos/jsontp/internal/metadata"
	"github.com/oukeidos/jsontp/internal/pipeline"
	"github.com/oukeidos/jsontp/internal/translator"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	promptForKey = auth.PromptForAPIKey

	// testClient replaces the network provider in command tests.
	testClient translator.Provider
)

func providerLabel(provider string) string {
	if provider == metadata.ProviderGemini {
		return "Gemini"
	}
	return "OpenAI"
}

// resolveAPIKey finds the API key for provider: keychain, then the
// environment when allowed, then a terminal prompt.
func resolveAPIKey(provider string, allowEnv, envOnly bool) (string, string, error) {
	if envOnly {
		if key, ok := getEnvKey(provider); ok {
			return key, auth.SourceEnv, nil
		}
		return "", "", fmt.Errorf("env-only set but %s is not set", auth.EnvVar(provider))
	}

	if key, source := getKey(provider, false); key != "" {
		return key, source, nil
	}

	if allowEnv {
		if key, ok := getEnvKey(provider); ok {
			return key, auth.SourceEnv, nil
		}
	}

	if !isTerminal(int(os.Stdin.Fd())) {
		return "", "", fmt.Errorf("no API key available (non-interactive shell); run 'jsontp env setup' or use --allow-env")
	}
	key, err := promptForKey(os.Stderr, fmt.Sprintf("%s API Key (press Enter to skip): ", providerLabel(provider)))
	if err != nil {
		return "", "", fmt.Errorf("error reading API key: %w", err)
	}
	if strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), "Terminal Prompt", nil
	}
	if allowEnv {
		return "", "", fmt.Errorf("API key is required; not found in keychain or environment")
	}
	return "", "", fmt.Errorf("API key is required; not found in keychain (environment disabled by default; use --allow-env)")
}

// credentialOptions are shared by commands that call a provider.
type credentialOptions struct {
	allowEnv bool
	envOnly  bool
}

func addCredentialFlags(cmd *cobra.Command, opts *credentialOptions) {
	cmd.Flags().BoolVar(&opts.allowEnv, "allow-env", false, "Allow reading API key from environment variables")
	cmd.Flags().BoolVar(&opts.envOnly, "env-only", false, "Use only environment variables for API keys")
}

// loadSettings merges the config file, JSONTP_ variables and the changed
// flags of cmd.
func loadSettings(cmd *cobra.Command, global *globalOptions) (config.Settings, error) {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return config.Settings{}, err
	}
	s, used, err := config.Load(v, global.configPath)
	if err != nil {
		return config.Settings{}, err
	}
	if used != "" {
		logger.Debug("Loaded config file", "path", used)
	}
	return s, nil
}

// setupLogging initializes the global logger from settings. The JSONL log
// file is closed at process exit.
func setupLogging(s config.Settings) error {
	level := logger.LevelInfo
	if s.Debug {
		level = logger.LevelDebug
	}
	var logFileW io.Writer
	if s.LogFile != "" {
		if err := files.RejectSymlinkPath(s.LogFile); err != nil {
			return err
		}
		f, err := os.OpenFile(s.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup.Register(f.Close)
		logFileW = f
	}
	logger.Init(level, logFileW)
	return nil
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Cancellation requested; finishing the current batch")
			cancel()
		case <-ctx.Done():
		}
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}

func formatEstimate(a *pipeline.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Keys: %d added, %d changed, %d unchanged, %d removed\n",
		len(a.Diff.Added), len(a.Diff.Changed), len(a.Diff.Unchanged), len(a.Diff.Removed))
	if len(a.Deselected) > 0 {
		fmt.Fprintf(&b, "Deselected: %d\n", len(a.Deselected))
	}
	fmt.Fprintf(&b, "To translate: %d keys in %d batches", a.Pending(), a.Estimate.Batches)
	if a.Estimate.Oversized > 0 {
		fmt.Fprintf(&b, " (%d oversized)", a.Estimate.Oversized)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Estimated tokens: in=%d out=%d\n", a.Estimate.InputTokens, a.Estimate.OutputTokens)
	fmt.Fprintf(&b, "Estimated cost: $%.5f", a.Estimate.Cost)
	return b.String()
}

func printProgress(w io.Writer, ev pipeline.Event) {
	if ev.Canceled {
		fmt.Fprintln(w, "Run canceled; remaining batches keep their source text.")
		return
	}
	switch ev.State {
	case translator.StateCompleted:
		fmt.Fprintf(w, "[%d/%d] done (tokens=%d cost=$%.5f)\n", ev.Batch+1, ev.Batches, ev.Usage.Total(), ev.Cost)
	case translator.StateFailed:
		fmt.Fprintf(w, "[%d/%d] failed: %v\n", ev.Batch+1, ev.Batches, ev.Err)
	case translator.StateInProgress:
		logger.Warn("Batch retry", "batch", ev.Batch+1, "attempt", ev.Attempt, "error", ev.Err)
	}
}

func printSummary(w io.Writer, result pipeline.Result, model string) {
	fmt.Fprintln(w, "\n--- Summary ---")
	fmt.Fprintf(w, "Status: %s\n", result.Status)
	fmt.Fprintf(w, "Model: %s\n", model)
	fmt.Fprintf(w, "Translated: %d, Carried over: %d, Failed: %d, Canceled: %d\n",
		result.Translated, result.CarriedOver, len(result.FailedKeys()), len(result.CanceledKeys))
	fmt.Fprintf(w, "Tokens: In=%d, Out=%d, Total=%d\n",
		result.Usage.PromptTokens, result.Usage.CompletionTokens, result.Usage.Total())
	fmt.Fprintf(w, "Cost: $%.5f\n", result.Cost)
	for _, fb := range result.FailedBatches {
		fmt.Fprintf(w, "  batch %d (%s): %s\n", fb.Index+1, fb.Kind, fb.Message)
	}
	if result.OutputPath != "" {
		fmt.Fprintf(w, "Output: %s\n", result.OutputPath)
	}
	if result.ReportPath != "" {
		fmt.Fprintf(w, "Report: %s (resume with 'jsontp retry %s')\n", result.ReportPath, result.ReportPath)
	}
}

func translationStatusError(result pipeline.Result) error {
	switch result.Status {
	case pipeline.StatusSuccess, pipeline.StatusSkipped:
		return nil
	case pipeline.StatusPartialSuccess, pipeline.StatusFailure:
		if result.ReportPath != "" {
			return fmt.Errorf("translation finished with status: %s (report: %s)", result.Status, result.ReportPath)
		}
		return fmt.Errorf("translation finished with status: %s", result.Status)
	default:
		return fmt.Errorf("translation finished with unknown status: %q", result.Status)
	}
}
