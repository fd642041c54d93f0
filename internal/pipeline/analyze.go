package pipeline

import (
	"fmt"
	"path"

	"github.com/oukeidos/jsontp/internal/batcher"
	"github.com/oukeidos/jsontp/internal/diff"
	"github.com/oukeidos/jsontp/internal/jsondoc"
	"github.com/oukeidos/jsontp/internal/language"
	"github.com/oukeidos/jsontp/internal/logger"
	"github.com/oukeidos/jsontp/internal/translator"
)

// promptWrapTokens approximates the JSON envelope around the items.
const promptWrapTokens = 16

// Analysis is everything known about a run before any request is sent.
type Analysis struct {
	Old      *jsondoc.Value // nil without an old file
	New      *jsondoc.Value
	OldIndex *jsondoc.FlatIndex
	NewIndex *jsondoc.FlatIndex
	Diff     *diff.Result

	// Selected is the work list after include/exclude/skip selection.
	Selected   []jsondoc.Entry
	Deselected []jsondoc.KeyPath

	Batches  []batcher.Batch
	Estimate batcher.Estimate
	Pricing  batcher.Pricing
	Source   language.Language
	Target   language.Language
}

// Pending returns the number of keys that will be sent for translation.
func (a *Analysis) Pending() int {
	return len(a.Selected)
}

// Analyze loads both documents, compares them and plans the batches. It never
// touches the network, so malformed input is reported before any cost.
func Analyze(cfg Config) (*Analysis, error) {
	var notes []string
	cfg, notes = cfg.Normalize()
	for _, note := range notes {
		logger.Warn("Config normalized", "detail", note)
	}
	if err := cfg.ValidateAnalyze(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return analyze(cfg)
}

func analyze(cfg Config) (*Analysis, error) {
	a := &Analysis{Pricing: cfg.pricing()}
	a.Source, _ = language.Resolve(cfg.SourceLang)
	a.Target, _ = language.Resolve(cfg.TargetLang)

	newDoc, err := jsondoc.Load(cfg.NewPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load new file: %w", err)
	}
	a.New = newDoc
	a.NewIndex = jsondoc.Flatten(newDoc)

	if cfg.OldPath != "" {
		oldDoc, err := jsondoc.Load(cfg.OldPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load old file: %w", err)
		}
		a.Old = oldDoc
		a.OldIndex = jsondoc.Flatten(oldDoc)
	}
	logger.Info("Loaded documents", "new_keys", a.NewIndex.Len(), "old_keys", a.OldIndex.Len(), "path", cfg.NewPath)

	a.Diff = diff.Compare(a.OldIndex, a.NewIndex, diff.Options{
		RetranslateChanged: cfg.RetranslateChanged,
		CarryFromOld:       cfg.CarryFromOld,
	})
	a.Selected, a.Deselected = selectEntries(a.Diff.WorkList, cfg)

	opts := cfg.batchOptions()
	a.Batches, err = batcher.Split(batcher.PairsFromEntries(a.Selected), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to plan batches: %w", err)
	}
	a.Estimate = batcher.EstimateBatches(a.Batches, promptOverhead(cfg, a.Source, a.Target), a.Pricing, opts)

	logger.Info("Analysis complete",
		"added", len(a.Diff.Added),
		"changed", len(a.Diff.Changed),
		"unchanged", len(a.Diff.Unchanged),
		"removed", len(a.Diff.Removed),
		"selected", len(a.Selected),
		"batches", len(a.Batches),
	)
	return a, nil
}

func promptOverhead(cfg Config, source, target language.Language) int {
	if target.IsZero() {
		target = language.Language{Name: "the target language"}
	}
	system := translator.GetSystemPrompt(source, target, cfg.instructions())
	return batcher.Estimator{}.Count(system) + promptWrapTokens
}

// selectEntries applies include, exclude and skip rules to the work list.
// Patterns use path.Match syntax against the dotted key.
func selectEntries(entries []jsondoc.Entry, cfg Config) ([]jsondoc.Entry, []jsondoc.KeyPath) {
	if len(cfg.Include) == 0 && len(cfg.Exclude) == 0 && len(cfg.SkipKeys) == 0 {
		return entries, nil
	}
	skip := make(map[string]bool, len(cfg.SkipKeys))
	for _, k := range cfg.SkipKeys {
		skip[k] = true
	}

	var selected []jsondoc.Entry
	var deselected []jsondoc.KeyPath
	for _, e := range entries {
		key := e.Path.String()
		if skip[key] || !matchesAny(cfg.Include, key, true) || matchesAny(cfg.Exclude, key, false) {
			deselected = append(deselected, e.Path)
			continue
		}
		selected = append(selected, e)
	}
	return selected, deselected
}

func matchesAny(patterns []string, key string, empty bool) bool {
	if len(patterns) == 0 {
		return empty
	}
	for _, p := range patterns {
		if ok, _ := path.Match(p, key); ok {
			return true
		}
	}
	return false
}
