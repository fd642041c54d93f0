package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/oukeidos/jsontp/internal/files"
	"github.com/oukeidos/jsontp/internal/jsondoc"
	"github.com/oukeidos/jsontp/internal/logger"
	"github.com/oukeidos/jsontp/internal/report"
	"github.com/oukeidos/jsontp/internal/translator"
)

// Run executes the full pipeline: analyze, confirm, translate batch by batch,
// reassemble and write the output and, when not fully successful, the run
// report. Keys of failed or canceled batches keep their source text. Only an
// authentication failure aborts without output. Run blocks until the run
// ends; see Start for background execution.
func Run(ctx context.Context, cfg Config) (Result, error) {
	var notes []string
	cfg, notes = cfg.Normalize()
	for _, note := range notes {
		logger.Warn("Config normalized", "detail", note)
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := checkOutputPath(cfg); err != nil {
		return Result{}, err
	}

	a, err := analyze(cfg)
	if err != nil {
		return Result{}, err
	}
	result := Result{
		Analysis:     a,
		TotalBatches: len(a.Batches),
		CarriedOver:  a.Diff.CarriedOver() + len(a.Deselected),
	}

	if cfg.OnConfirm != nil && !cfg.OnConfirm(a) {
		logger.Info("Run declined before translation", "batches", len(a.Batches))
		result.Status = StatusSkipped
		return result, nil
	}

	out := a.Diff.Seed()
	var res outcome
	var usage translator.Usage
	if len(a.Batches) > 0 {
		provider, closeProvider, err := newProvider(ctx, cfg)
		if err != nil {
			return result, err
		}
		defer closeProvider()

		tr, err := translator.NewTranslator(provider, cfg.translatorOptions(a.Source))
		if err != nil {
			return result, fmt.Errorf("failed to initialize translator: %w", err)
		}

		logger.Info("Starting translation", "provider", cfg.Provider, "model", cfg.Model, "batches", len(a.Batches), "keys", a.Pending())
		runner := &batchRun{tr: tr, target: a.Target, pricing: a.Pricing, out: out, onProgress: cfg.OnProgress}
		res, err = runner.run(ctx, a.Batches)
		usage = tr.GetUsage()
		result.Usage = usage
		result.Cost = a.Pricing.Cost(usage.PromptTokens, usage.CompletionTokens)
		if err != nil {
			result.Status = StatusFailure
			result.FailedBatches = res.failed
			return result, fmt.Errorf("translation aborted: %w", err)
		}
	} else {
		logger.Info("Nothing to translate; writing merged document")
	}

	status := statusFromReport(report.CalculateStatus(len(res.failed), res.canceledBatches, len(a.Batches)))
	result.Status = status
	result.Canceled = res.canceled
	result.Translated = res.translated
	result.FailedBatches = res.failed
	result.CanceledKeys = res.canceledKeys
	logger.Info("Translation finished", "status", status, "translated", res.translated, "failed_batches", len(res.failed), "canceled", res.canceled)

	now := cfg.Now()
	outputPath, err := resolveOutputPath(cfg, now)
	if err != nil {
		return result, err
	}
	if err := writeDocument(outputPath, a.New, out); err != nil {
		return result, err
	}
	result.OutputPath = outputPath
	logger.Info("Saved results", "output_path", outputPath)

	if status != StatusSuccess {
		rep := &report.Run{
			RunID:         newRunID(),
			CreatedAt:     now.UTC(),
			ToolVersion:   cfg.ToolVersion,
			Provider:      cfg.Provider,
			Model:         cfg.Model,
			SourceLang:    a.Source.Code,
			TargetLang:    a.Target.Code,
			Status:        string(status),
			Canceled:      res.canceled,
			FailedBatches: res.failed,
			CanceledKeys:  res.canceledKeys,
			Counts: report.Counts{
				Added:       len(a.Diff.Added),
				Changed:     len(a.Diff.Changed),
				Removed:     len(a.Diff.Removed),
				Unchanged:   len(a.Diff.Unchanged),
				Translated:  res.translated,
				CarriedOver: result.CarriedOver,
				Failed:      len(result.FailedKeys()),
				Canceled:    len(res.canceledKeys),
				Deselected:  len(a.Deselected),
			},
			Usage: report.Usage{
				PromptTokens:     usage.PromptTokens,
				CompletionTokens: usage.CompletionTokens,
				Cost:             result.Cost,
			},
		}
		path, err := saveReport(files.ReportPath(outputPath), rep, cfg.OldPath, cfg.NewPath, result.OutputPath)
		if err != nil {
			logger.Error("Failed to save run report", "error", err)
			return result, fmt.Errorf("failed to save run report: %w", err)
		}
		result.ReportPath = path
		if status == StatusPartialSuccess {
			logger.Warn("Partial success - run report saved", "report_path", path)
		} else {
			logger.Error("Translation failed - run report saved", "report_path", path)
		}
	}
	return result, nil
}

func checkOutputPath(cfg Config) error {
	if cfg.OutputPath == "" {
		return nil
	}
	absOut, err := filepath.Abs(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}
	for _, in := range []string{cfg.NewPath, cfg.OldPath} {
		if in == "" {
			continue
		}
		absIn, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("failed to resolve input path: %w", err)
		}
		if absIn == absOut {
			return fmt.Errorf("input and output files are the same (%s)", absIn)
		}
		if inInfo, err := os.Stat(absIn); err == nil {
			if outInfo, err := os.Stat(absOut); err == nil && os.SameFile(inInfo, outInfo) {
				return fmt.Errorf("input and output files are the same (%s)", absIn)
			}
		}
	}
	return files.RejectSymlinkPath(cfg.OutputPath)
}

func resolveOutputPath(cfg Config, now time.Time) (string, error) {
	if cfg.OutputPath != "" {
		safePath, changed, err := files.SafePath(cfg.OutputPath)
		if err != nil {
			return "", fmt.Errorf("failed to resolve output path: %w", err)
		}
		if changed {
			logger.Warn("Output path adjusted to avoid overwrite", "original", cfg.OutputPath, "effective", safePath)
		}
		return safePath, nil
	}
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return files.OutputPath(cfg.OutputDir, cfg.NewPath, now)
}

func writeDocument(path string, doc *jsondoc.Value, out *jsondoc.OutputIndex) error {
	merged, err := jsondoc.Reassemble(doc, out)
	if err != nil {
		return fmt.Errorf("failed to reassemble output: %w", err)
	}
	data, err := jsondoc.Encode(merged)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if err := files.AtomicWrite(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save output file: %w", err)
	}
	return nil
}

// saveReport stores paths relative to the report and writes it.
func saveReport(reportPath string, rep *report.Run, oldPath, newPath, outputPath string) (string, error) {
	var err error
	if rep.OldPath, err = report.Relative(reportPath, oldPath); err != nil {
		return "", fmt.Errorf("failed to convert old path to relative: %w", err)
	}
	if rep.NewPath, err = report.Relative(reportPath, newPath); err != nil {
		return "", fmt.Errorf("failed to convert new path to relative: %w", err)
	}
	if outputPath != "" {
		if rep.OutputPath, err = report.RelativeOutput(reportPath, outputPath); err != nil {
			return "", fmt.Errorf("failed to convert output path to relative: %w", err)
		}
	}
	return report.Save(reportPath, rep)
}

func newRunID() string {
	if u, err := uuid.NewV7(); err == nil {
		return u.String()
	}
	return uuid.NewString()
}
