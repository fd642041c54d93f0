package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oukeidos/jsontp/internal/batcher"
	"github.com/oukeidos/jsontp/internal/files"
	"github.com/oukeidos/jsontp/internal/jsondoc"
	"github.com/oukeidos/jsontp/internal/language"
	"github.com/oukeidos/jsontp/internal/logger"
	"github.com/oukeidos/jsontp/internal/report"
	"github.com/oukeidos/jsontp/internal/translator"
)

// RunRetry translates the failed and canceled keys of a previous run. The
// previous output (or the new file, when no output was written) is the base
// document; the result is written to a new timestamped file. Provider,
// model and languages are taken from the report.
func RunRetry(ctx context.Context, cfg Config, reportPath string) (Result, error) {
	if reportPath == "" {
		return Result{}, fmt.Errorf("report path is required for retry")
	}
	rep, origHash, err := report.LoadWithHash(reportPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load run report: %w", err)
	}
	if err := rep.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid run report: %w", err)
	}
	pending := rep.PendingKeys()
	if len(pending) == 0 {
		return Result{}, fmt.Errorf("run report lists no failed or canceled keys")
	}

	cfg.Provider = rep.Provider
	cfg.Model = rep.Model
	cfg.SourceLang = rep.SourceLang
	cfg.TargetLang = rep.TargetLang
	var notes []string
	cfg, notes = cfg.Normalize()
	for _, note := range notes {
		logger.Warn("Config normalized", "detail", note)
	}
	if err := cfg.ValidateRetryRuntime(); err != nil {
		return Result{}, fmt.Errorf("invalid configuration: %w", err)
	}

	newPath := report.Resolve(reportPath, rep.NewPath)
	basePath := newPath
	if rep.OutputPath != "" {
		basePath = report.Resolve(reportPath, rep.OutputPath)
	}
	if _, err := os.Stat(basePath); err != nil {
		return Result{}, fmt.Errorf("invalid run report: base document not found: %s", basePath)
	}
	base, err := jsondoc.Load(basePath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load base document: %w", err)
	}
	flat := jsondoc.Flatten(base)

	entries, missing := pendingEntries(flat, pending)
	if missing > 0 {
		logger.Warn("Report keys not found in base document; skipping", "missing", missing, "path", basePath)
	}

	source, _ := language.Resolve(rep.SourceLang)
	target, _ := language.Resolve(rep.TargetLang)
	pricing := cfg.pricing()
	opts := cfg.batchOptions()
	batches, err := batcher.Split(batcher.PairsFromEntries(entries), opts)
	if err != nil {
		return Result{}, fmt.Errorf("failed to plan batches: %w", err)
	}
	result := Result{TotalBatches: len(batches), CarriedOver: flat.Len() - len(entries)}
	if len(batches) == 0 {
		return result, fmt.Errorf("none of the report keys can be retried in %s", basePath)
	}

	if cfg.OnConfirm != nil {
		a := &Analysis{
			New:      base,
			NewIndex: flat,
			Selected: entries,
			Batches:  batches,
			Pricing:  pricing,
			Source:   source,
			Target:   target,
			Estimate: batcher.EstimateBatches(batches, promptOverhead(cfg, source, target), pricing, opts),
		}
		result.Analysis = a
		if !cfg.OnConfirm(a) {
			result.Status = StatusSkipped
			return result, nil
		}
	}

	provider, closeProvider, err := newProvider(ctx, cfg)
	if err != nil {
		return result, err
	}
	defer closeProvider()
	tr, err := translator.NewTranslator(provider, cfg.translatorOptions(source))
	if err != nil {
		return result, fmt.Errorf("failed to initialize translator: %w", err)
	}

	logger.Info("Starting retry", "model", cfg.Model, "keys", len(entries), "batches", len(batches))
	out := jsondoc.Seed(flat)
	runner := &batchRun{tr: tr, target: target, pricing: pricing, out: out, onProgress: cfg.OnProgress}
	res, err := runner.run(ctx, batches)
	usage := tr.GetUsage()
	result.Usage = usage
	result.Cost = pricing.Cost(usage.PromptTokens, usage.CompletionTokens)
	result.FailedBatches = res.failed
	if err != nil {
		result.Status = StatusFailure
		return result, fmt.Errorf("retry aborted: %w", err)
	}

	status := statusFromReport(report.CalculateStatus(len(res.failed), res.canceledBatches, len(batches)))
	result.Status = status
	result.Canceled = res.canceled
	result.Translated = res.translated
	result.CanceledKeys = res.canceledKeys
	logger.Info("Retry finished", "status", status, "translated", res.translated)

	now := cfg.Now()
	outputPath, err := files.OutputPath(filepath.Dir(reportPath), newPath, now)
	if err != nil {
		return result, err
	}
	if status != StatusFailure {
		if err := writeDocument(outputPath, base, out); err != nil {
			return result, err
		}
		result.OutputPath = outputPath
		logger.Info("Saved results", "output_path", outputPath)
	}

	if status == StatusSuccess {
		if currentHash, err := report.HashFile(reportPath); err != nil {
			logger.Warn("Failed to read run report for verification", "report_path", reportPath, "error", err)
		} else if currentHash != origHash {
			logger.Warn("Run report content changed; skipping delete", "report_path", reportPath)
		} else if err := os.Remove(reportPath); err != nil {
			logger.Warn("Failed to remove run report after success", "report_path", reportPath, "error", err)
		}
		return result, nil
	}

	next := *rep
	next.RunID = newRunID()
	next.CreatedAt = now.UTC()
	next.ToolVersion = cfg.ToolVersion
	next.Status = string(status)
	next.Canceled = res.canceled
	next.FailedBatches = res.failed
	next.CanceledKeys = res.canceledKeys
	next.Counts.Translated = res.translated
	next.Counts.Failed = len(result.FailedKeys())
	next.Counts.Canceled = len(res.canceledKeys)
	next.Usage = report.Usage{PromptTokens: usage.PromptTokens, CompletionTokens: usage.CompletionTokens, Cost: result.Cost}
	next.OutputPath = ""
	oldPath := report.Resolve(reportPath, rep.OldPath)
	reportOutput := result.OutputPath
	if status == StatusFailure && rep.OutputPath != "" {
		reportOutput = basePath
	}
	path, err := saveReport(files.ReportPath(outputPath), &next, oldPath, newPath, reportOutput)
	if err != nil {
		return result, fmt.Errorf("failed to save run report: %w", err)
	}
	result.ReportPath = path
	logger.Warn("Retry incomplete - run report saved", "report_path", path)
	return result, nil
}

// pendingEntries returns the translatable leaves of flat listed in keys, in
// document order, and the number of keys absent from flat.
func pendingEntries(flat *jsondoc.FlatIndex, keys []jsondoc.KeyPath) ([]jsondoc.Entry, int) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k.Key()] = true
	}
	var entries []jsondoc.Entry
	for _, e := range flat.Entries() {
		if !want[e.Path.Key()] {
			continue
		}
		delete(want, e.Path.Key())
		if !e.Translatable() || strings.TrimSpace(e.Value.Str) == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, len(want)
}
