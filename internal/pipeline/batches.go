package pipeline

import (
	"context"
	"errors"

	"github.com/oukeidos/jsontp/internal/apperrors"
	"github.com/oukeidos/jsontp/internal/batcher"
	"github.com/oukeidos/jsontp/internal/jsondoc"
	"github.com/oukeidos/jsontp/internal/language"
	"github.com/oukeidos/jsontp/internal/logger"
	"github.com/oukeidos/jsontp/internal/report"
	"github.com/oukeidos/jsontp/internal/translator"
)

// batchRun submits batches one at a time and merges results into out.
type batchRun struct {
	tr         *translator.Translator
	target     language.Language
	pricing    batcher.Pricing
	out        *jsondoc.OutputIndex
	onProgress func(Event)
}

type outcome struct {
	translated      int
	failed          []report.FailedBatch
	canceledKeys    []jsondoc.KeyPath
	canceledBatches int
	canceled        bool
}

// run returns an error only when the run must abort, i.e. on an
// authentication failure. Other batch failures are collected in the outcome
// and the affected keys keep their source text.
func (r *batchRun) run(ctx context.Context, batches []batcher.Batch) (outcome, error) {
	var res outcome
	for i, b := range batches {
		if ctx.Err() != nil {
			r.cancelRemaining(&res, batches[i:])
			logger.Warn("Run canceled", "completed_batches", i, "remaining_batches", len(batches)-i)
			r.emit(Event{Batch: b.Index, Batches: len(batches), State: translator.StateFailed, Err: ctx.Err(), Canceled: true}, res)
			return res, nil
		}

		onAttempt := func(p translator.AttemptProgress) {
			if p.State == translator.StateCompleted || p.State == translator.StateFailed {
				return
			}
			r.emit(Event{Batch: p.BatchIndex, Batches: len(batches), Attempt: p.Attempt, State: p.State, Err: p.Error}, res)
		}
		result, err := r.tr.TranslateBatch(ctx, b, r.target, onAttempt)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				r.cancelRemaining(&res, batches[i:])
				logger.Warn("Run canceled during retry backoff", "batch", b.Index)
				r.emit(Event{Batch: b.Index, Batches: len(batches), State: translator.StateFailed, Err: err, Canceled: true}, res)
				return res, nil
			}
			if apperrors.IsFatal(err) {
				logger.Error("Authentication failed; aborting run", "batch", b.Index, "error", err)
				r.emit(Event{Batch: b.Index, Batches: len(batches), State: translator.StateFailed, Err: err}, res)
				return res, err
			}
			kind := "error"
			if k, ok := apperrors.KindOf(err); ok {
				kind = string(k)
			}
			res.failed = append(res.failed, report.FailedBatch{
				Index:   b.Index,
				Kind:    kind,
				Message: apperrors.PublicMessage(err),
				Keys:    b.Paths(),
			})
			r.emit(Event{Batch: b.Index, Batches: len(batches), State: translator.StateFailed, Err: err}, res)
			continue
		}

		for _, t := range result.Translations {
			r.out.Set(t.Path, jsondoc.String(t.Text))
		}
		res.translated += len(result.Translations)
		logger.Info("Batch translated", "batch", b.Index, "items", len(result.Translations), "attempts", result.Attempts, "tokens", result.Usage.Total())
		r.emit(Event{Batch: b.Index, Batches: len(batches), Attempt: result.Attempts, State: translator.StateCompleted}, res)
	}
	return res, nil
}

func (r *batchRun) cancelRemaining(res *outcome, rest []batcher.Batch) {
	res.canceled = true
	res.canceledBatches += len(rest)
	for _, b := range rest {
		res.canceledKeys = append(res.canceledKeys, b.Paths()...)
	}
}

func (r *batchRun) emit(ev Event, res outcome) {
	if r.onProgress == nil {
		return
	}
	ev.Translated = res.translated
	ev.Failed = len(res.failed)
	ev.Usage = r.tr.GetUsage()
	ev.Cost = r.pricing.Cost(ev.Usage.PromptTokens, ev.Usage.CompletionTokens)
	r.onProgress(ev)
}
