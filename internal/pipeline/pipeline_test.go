package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oukeidos/jsontp/internal/apperrors"
	"github.com/oukeidos/jsontp/internal/glossary"
	"github.com/oukeidos/jsontp/internal/jsondoc"
	"github.com/oukeidos/jsontp/internal/report"
	"github.com/oukeidos/jsontp/internal/translator"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)

// fakeProvider answers every item with "FR <text>". fail and malformed select
// calls (1-based) that error or return an unusable reply.
type fakeProvider struct {
	mu        sync.Mutex
	calls     int
	fail      func(call int) error
	malformed func(call int, keys []string) bool
	after     func(call int)
}

func (p *fakeProvider) Complete(ctx context.Context, req translator.Request) (*translator.Completion, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()

	var payload struct {
		Items []struct {
			ID   string `json:"id"`
			Key  string `json:"key"`
			Text string `json:"text"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(req.User), &payload); err != nil {
		return nil, apperrors.BadRequest(err)
	}
	if p.fail != nil {
		if err := p.fail(call); err != nil {
			return nil, err
		}
	}
	keys := make([]string, len(payload.Items))
	for i, it := range payload.Items {
		keys[i] = it.Key
	}
	usage := translator.Usage{PromptTokens: 10, CompletionTokens: 5}
	if p.malformed != nil && p.malformed(call, keys) {
		return &translator.Completion{Text: `{"translations":[]}`, Usage: usage}, nil
	}

	type item struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	var reply struct {
		Translations []item `json:"translations"`
	}
	for _, it := range payload.Items {
		reply.Translations = append(reply.Translations, item{ID: it.ID, Text: "FR " + it.Text})
	}
	data, _ := json.Marshal(reply)
	if p.after != nil {
		p.after(call)
	}
	return &translator.Completion{Text: string(data), Usage: usage}, nil
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func writeJSON(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func readLeaf(t *testing.T, path, key string) string {
	t.Helper()
	doc, err := jsondoc.Load(path)
	if err != nil {
		t.Fatalf("failed to load output: %v", err)
	}
	e, ok := jsondoc.Flatten(doc).Lookup(strings.Split(key, "."))
	if !ok {
		t.Fatalf("key %s missing from output", key)
	}
	return e.Value.Str
}

func baseConfig(newPath string, p translator.Provider) Config {
	return Config{
		NewPath:    newPath,
		SourceLang: "en",
		TargetLang: "fr",
		Client:     p,
		MaxItems:   1,
		Now:        func() time.Time { return fixedNow },
	}
}

func TestRun_Success(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeJSON(t, dir, "old.json", `{"a": "Hi", "b": "Bye"}`)
	newPath := writeJSON(t, dir, "new.json", `{"a": "Hi", "b": "Bye", "c": "New", "n": 3}`)

	p := &fakeProvider{}
	cfg := baseConfig(newPath, p)
	cfg.OldPath = oldPath
	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s", res.Status)
	}
	want := filepath.Join(dir, "new_translated_20240506_070809.json")
	if res.OutputPath != want {
		t.Fatalf("unexpected output path %s", res.OutputPath)
	}
	if res.ReportPath != "" {
		t.Fatalf("successful run must not write a report")
	}
	if got := readLeaf(t, want, "c"); got != "FR New" {
		t.Fatalf("c = %q", got)
	}
	if got := readLeaf(t, want, "a"); got != "Hi" {
		t.Fatalf("unchanged key a was modified: %q", got)
	}
	if res.Translated != 1 || res.CarriedOver != 3 {
		t.Fatalf("unexpected counts translated=%d carried=%d", res.Translated, res.CarriedOver)
	}
	if p.Calls() != 1 {
		t.Fatalf("expected one provider call, got %d", p.Calls())
	}
	if res.Usage.Total() != 15 {
		t.Fatalf("unexpected usage %+v", res.Usage)
	}
}

func TestRun_MalformedBatchKeepsSource(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"a": "Hello", "b": {"c": "Bye"}}`)

	p := &fakeProvider{malformed: func(_ int, keys []string) bool {
		return len(keys) == 1 && keys[0] == "b.c"
	}}
	res, err := Run(context.Background(), baseConfig(newPath, p))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != StatusPartialSuccess {
		t.Fatalf("expected partial success, got %s", res.Status)
	}
	if got := readLeaf(t, res.OutputPath, "b.c"); got != "Bye" {
		t.Fatalf("failed key should keep source text, got %q", got)
	}
	if got := readLeaf(t, res.OutputPath, "a"); got != "FR Hello" {
		t.Fatalf("a = %q", got)
	}
	failed := res.FailedKeys()
	if len(failed) != 1 || !failed[0].Equal(jsondoc.KeyPath{"b", "c"}) {
		t.Fatalf("unexpected failed keys %v", failed)
	}
	if res.FailedBatches[0].Kind != string(apperrors.KindMalformed) {
		t.Fatalf("unexpected failure kind %s", res.FailedBatches[0].Kind)
	}

	rep, err := report.Load(res.ReportPath)
	if err != nil {
		t.Fatalf("report.Load failed: %v", err)
	}
	if err := rep.Validate(); err != nil {
		t.Fatalf("report invalid: %v", err)
	}
	if keys := rep.PendingKeys(); len(keys) != 1 || !keys[0].Equal(jsondoc.KeyPath{"b", "c"}) {
		t.Fatalf("report lists unexpected keys %v", keys)
	}
	if rep.OutputPath != filepath.Base(res.OutputPath) {
		t.Fatalf("report output path should be relative, got %s", rep.OutputPath)
	}
}

func TestRun_AllBatchesFailed(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"only": "Hello"}`)

	p := &fakeProvider{malformed: func(int, []string) bool { return true }}
	res, err := Run(context.Background(), baseConfig(newPath, p))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != StatusFailure {
		t.Fatalf("expected failure, got %s", res.Status)
	}
	if got := readLeaf(t, res.OutputPath, "only"); got != "Hello" {
		t.Fatalf("output should retain source text, got %q", got)
	}
	if res.ReportPath == "" {
		t.Fatalf("expected a run report")
	}
}

func TestRun_CancelAfterFirstBatch(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"a": "One", "b": "Two", "c": "Three"}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &fakeProvider{after: func(call int) {
		if call == 1 {
			cancel()
		}
	}}
	res, err := Run(ctx, baseConfig(newPath, p))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != StatusPartialSuccess || !res.Canceled {
		t.Fatalf("expected canceled partial success, got %s canceled=%v", res.Status, res.Canceled)
	}
	if p.Calls() != 1 {
		t.Fatalf("no batch may be sent after cancellation, got %d calls", p.Calls())
	}
	if got := readLeaf(t, res.OutputPath, "a"); got != "FR One" {
		t.Fatalf("a = %q", got)
	}
	for key, want := range map[string]string{"b": "Two", "c": "Three"} {
		if got := readLeaf(t, res.OutputPath, key); got != want {
			t.Fatalf("%s = %q, want source %q", key, got, want)
		}
	}
	if len(res.CanceledKeys) != 2 {
		t.Fatalf("expected 2 canceled keys, got %v", res.CanceledKeys)
	}
	rep, err := report.Load(res.ReportPath)
	if err != nil {
		t.Fatalf("report.Load failed: %v", err)
	}
	if !rep.Canceled || rep.Status != report.StatusPartialSuccess {
		t.Fatalf("unexpected report status %s canceled=%v", rep.Status, rep.Canceled)
	}
}

func TestRun_CancelBeforeFirstBatchIsFailure(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"a": "One", "b": "Two", "c": "Three"}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &fakeProvider{}
	cfg := baseConfig(newPath, p)
	cfg.OnConfirm = func(*Analysis) bool {
		cancel()
		return true
	}
	res, err := Run(ctx, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != StatusFailure || !res.Canceled || res.Translated != 0 {
		t.Fatalf("expected canceled failure with nothing translated, got %s canceled=%v translated=%d", res.Status, res.Canceled, res.Translated)
	}
	if p.Calls() != 0 {
		t.Fatalf("no batch may be sent, got %d calls", p.Calls())
	}
	if got := readLeaf(t, res.OutputPath, "a"); got != "One" {
		t.Fatalf("a = %q, want source text", got)
	}
	rep, err := report.Load(res.ReportPath)
	if err != nil {
		t.Fatalf("report.Load failed: %v", err)
	}
	if rep.Status != report.StatusFailure || len(rep.CanceledKeys) != 3 {
		t.Fatalf("unexpected report status %s canceled keys %v", rep.Status, rep.CanceledKeys)
	}
}

func TestRun_AuthAborts(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"a": "One", "b": "Two"}`)

	p := &fakeProvider{fail: func(int) error { return apperrors.Auth(errors.New("401")) }}
	res, err := Run(context.Background(), baseConfig(newPath, p))
	if !apperrors.Is(err, apperrors.KindAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if res.Status != StatusFailure || res.OutputPath != "" {
		t.Fatalf("auth failure must not write output, got %+v", res)
	}
	if p.Calls() != 1 {
		t.Fatalf("run must stop at the first auth failure, got %d calls", p.Calls())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the input file, found %d entries", len(entries))
	}
}

func TestRun_FormatErrorBeforeNetwork(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"a": `)

	p := &fakeProvider{}
	_, err := Run(context.Background(), baseConfig(newPath, p))
	if !apperrors.Is(err, apperrors.KindFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	if p.Calls() != 0 {
		t.Fatalf("provider must not be called for malformed input")
	}
}

func TestRun_DeclinedIsSkipped(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"a": "One"}`)

	p := &fakeProvider{}
	cfg := baseConfig(newPath, p)
	var seen *Analysis
	cfg.OnConfirm = func(a *Analysis) bool {
		seen = a
		return false
	}
	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != StatusSkipped || res.OutputPath != "" {
		t.Fatalf("expected skipped run, got %+v", res)
	}
	if seen == nil || seen.Estimate.Batches != 1 {
		t.Fatalf("confirmation should see the estimate")
	}
	if p.Calls() != 0 {
		t.Fatalf("declined run must not call the provider")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"a": "One"}`)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Missing new path", func(c *Config) { c.NewPath = "" }, "new file path is required"},
		{"Missing API key", func(c *Config) { c.Client = nil }, "API key is required"},
		{"Missing target", func(c *Config) { c.TargetLang = "" }, "target language is required"},
		{"Unsupported source language", func(c *Config) { c.SourceLang = "invalid" }, "unsupported source language"},
		{"Same source and target", func(c *Config) { c.SourceLang = "fr" }, "source and target languages must be different"},
		{"Unsupported provider", func(c *Config) { c.Provider = "other" }, "unsupported provider"},
		{"Bad pattern", func(c *Config) { c.Include = []string{"["} }, "invalid key pattern"},
		{"Same input and output", func(c *Config) { c.OutputPath = newPath }, "input and output files are the same"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(newPath, &fakeProvider{})
			tt.mutate(&cfg)
			_, err := Run(context.Background(), cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigNormalize_Clamp(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		check       func(Config) bool
		wantChanged bool
	}{
		{"defaults", Config{}, func(c Config) bool {
			return c.TokenCeiling > 0 && c.MaxItems == 60 && c.Provider == "openai" && c.Model == "gpt-4o-mini"
		}, false},
		{"ceiling_above_max", Config{TokenCeiling: MaxTokenCeiling + 1}, func(c Config) bool { return c.TokenCeiling == MaxTokenCeiling }, true},
		{"ceiling_below_min", Config{TokenCeiling: 1}, func(c Config) bool { return c.TokenCeiling == MinTokenCeiling }, true},
		{"items_above_max", Config{MaxItems: MaxItemsPerBatch + 1}, func(c Config) bool { return c.MaxItems == MaxItemsPerBatch }, true},
		{"attempts_above_max", Config{MaxAttempts: 50}, func(c Config) bool { return c.MaxAttempts == MaxAttemptsLimit }, true},
		{"gemini_default_model", Config{Provider: "Gemini"}, func(c Config) bool { return c.Provider == "gemini" && c.Model == "gemini-2.5-flash" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, notes := tt.cfg.Normalize()
			if !tt.check(got) {
				t.Fatalf("Normalize() produced unexpected config %+v", got)
			}
			if tt.wantChanged && len(notes) == 0 {
				t.Fatalf("Normalize() expected notes for clamped value")
			}
			if !tt.wantChanged && len(notes) != 0 {
				t.Fatalf("Normalize() unexpected notes: %v", notes)
			}
		})
	}
}

func TestAnalyze_Selection(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"menu": {"save": "Save", "open": "Open"}, "help": {"about": "About"}, "blank": " "}`)

	cfg := Config{NewPath: newPath, Include: []string{"menu.*"}, SkipKeys: []string{"menu.open"}}
	a, err := Analyze(cfg)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(a.Diff.Added) != 4 {
		t.Fatalf("expected 4 added keys, got %d", len(a.Diff.Added))
	}
	if len(a.Selected) != 1 || a.Selected[0].Path.String() != "menu.save" {
		t.Fatalf("unexpected selection %v", a.Selected)
	}
	if len(a.Deselected) != 2 {
		t.Fatalf("expected 2 deselected keys, got %v", a.Deselected)
	}
	if a.Estimate.Batches != 1 || a.Estimate.Cost <= 0 {
		t.Fatalf("unexpected estimate %+v", a.Estimate)
	}

	cfg = Config{NewPath: newPath, Exclude: []string{"help.*"}}
	a, err = Analyze(cfg)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(a.Selected) != 2 {
		t.Fatalf("exclude should leave the two menu keys, got %v", a.Selected)
	}
}

func TestPreviewDocument(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeJSON(t, dir, "old.json", `{"a": "Hi"}`)
	newPath := writeJSON(t, dir, "new.json", `{"a": "Hi", "b": "Bye", "c": "Skip me"}`)

	a, err := Analyze(Config{OldPath: oldPath, NewPath: newPath, SkipKeys: []string{"c"}})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	doc, err := PreviewDocument(a)
	if err != nil {
		t.Fatalf("PreviewDocument failed: %v", err)
	}
	want := map[string]string{"a": "Hi", "b": "[translate] Bye", "c": "[skip] Skip me"}
	for key, w := range want {
		v, _ := doc.Get(key)
		if v.Str != w {
			t.Errorf("%s = %q, want %q", key, v.Str, w)
		}
	}

	lines := PreviewLines(a)
	if len(lines) != 3 || lines[0].Mark != MarkCarry || lines[1].Mark != MarkTranslate || lines[2].Mark != MarkSkip {
		t.Fatalf("unexpected preview lines %+v", lines)
	}

	review := Review(a)
	if len(review.Added) != 2 || len(review.Unchanged) != 1 || review.Added[1].Action != MarkSkip {
		t.Fatalf("unexpected review %+v", review)
	}
}

func TestStart_Events(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"a": "One", "b": "Two", "c": "Three"}`)

	task := Start(context.Background(), baseConfig(newPath, &fakeProvider{}))
	var events []Event
	for ev := range task.Events() {
		events = append(events, ev)
	}
	res, err := task.Wait()
	if err != nil {
		t.Fatalf("task failed: %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s", res.Status)
	}

	completed := 0
	lastTokens := 0
	lastBatch := -1
	for _, ev := range events {
		if ev.Usage.Total() < lastTokens {
			t.Fatalf("token totals decreased: %d after %d", ev.Usage.Total(), lastTokens)
		}
		if ev.Batch < lastBatch {
			t.Fatalf("events out of batch order")
		}
		lastTokens, lastBatch = ev.Usage.Total(), ev.Batch
		if ev.State == translator.StateCompleted {
			completed++
		}
	}
	if completed != 3 {
		t.Fatalf("expected 3 completed events, got %d of %d", completed, len(events))
	}
	if last := events[len(events)-1]; last.Translated != 3 || last.Cost <= 0 {
		t.Fatalf("unexpected final event %+v", last)
	}
}

func TestStart_Cancel(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"a": "One", "b": "Two"}`)

	ready := make(chan struct{})
	var task *Task
	p := &fakeProvider{after: func(call int) {
		if call == 1 {
			task.Cancel()
		}
	}}
	cfg := baseConfig(newPath, p)
	cfg.OnConfirm = func(*Analysis) bool {
		<-ready
		return true
	}
	task = Start(context.Background(), cfg)
	close(ready)
	go func() {
		for range task.Events() {
		}
	}()

	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
	}
	res, err := task.Wait()
	if err != nil {
		t.Fatalf("task failed: %v", err)
	}
	if !res.Canceled || res.Translated != 1 {
		t.Fatalf("expected canceled run with one translation, got %+v", res)
	}
}

func TestStart_ReleaseAfterPartialRead(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"a": "One", "b": "Two", "c": "Three"}`)

	task := Start(context.Background(), baseConfig(newPath, &fakeProvider{}))
	if _, ok := <-task.Events(); !ok {
		t.Fatal("expected at least one event")
	}
	task.Release()

	res, err := task.Wait()
	if err != nil {
		t.Fatalf("task failed: %v", err)
	}
	if res.Status != StatusSuccess || res.Translated != 3 {
		t.Fatalf("releasing events must not affect the run, got %+v", res)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-task.Events():
			if !ok {
				task.Release()
				return
			}
		case <-timeout:
			t.Fatal("events channel was not closed after Release")
		}
	}
}

func TestRunRetry(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"a": "Hello", "b": {"c": "Bye"}, "d": "Later"}`)

	first := &fakeProvider{malformed: func(_ int, keys []string) bool { return keys[0] == "b.c" }}
	res, err := Run(context.Background(), baseConfig(newPath, first))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ReportPath == "" {
		t.Fatalf("expected report")
	}

	second := &fakeProvider{}
	cfg := Config{Client: second, Now: func() time.Time { return fixedNow.Add(time.Minute) }}
	retry, err := RunRetry(context.Background(), cfg, res.ReportPath)
	if err != nil {
		t.Fatalf("RunRetry failed: %v", err)
	}
	if retry.Status != StatusSuccess || retry.Translated != 1 {
		t.Fatalf("unexpected retry result %+v", retry)
	}
	if second.Calls() != 1 {
		t.Fatalf("retry should only send the failed key, got %d calls", second.Calls())
	}
	want := filepath.Join(dir, fmt.Sprintf("new_translated_%s.json", fixedNow.Add(time.Minute).Format("20060102_150405")))
	if retry.OutputPath != want {
		t.Fatalf("unexpected retry output %s", retry.OutputPath)
	}
	for key, w := range map[string]string{"a": "FR Hello", "b.c": "FR Bye", "d": "FR Later"} {
		if got := readLeaf(t, retry.OutputPath, key); got != w {
			t.Errorf("%s = %q, want %q", key, got, w)
		}
	}
	if _, err := os.Stat(res.ReportPath); !os.IsNotExist(err) {
		t.Fatalf("report should be removed after a successful retry")
	}
}

func TestRunRetry_Validation(t *testing.T) {
	dir := t.TempDir()
	if _, err := RunRetry(context.Background(), Config{Client: &fakeProvider{}}, ""); err == nil {
		t.Fatalf("expected error for empty report path")
	}
	bad := writeJSON(t, dir, "bad_report.json", `{"version": 1, "new_path": "/abs/new.json", "status": "Failure", "provider": "openai", "model": "m", "target_lang": "fr"}`)
	if _, err := RunRetry(context.Background(), Config{Client: &fakeProvider{}}, bad); err == nil || !strings.Contains(err.Error(), "must be relative") {
		t.Fatalf("expected relative path error, got %v", err)
	}
	rep := writeJSON(t, dir, "empty_report.json", `{"version": 1, "new_path": "new.json", "status": "Failure", "provider": "openai", "model": "m", "target_lang": "fr"}`)
	if _, err := RunRetry(context.Background(), Config{APIKey: ""}, rep); err == nil || !strings.Contains(err.Error(), "no failed or canceled keys") {
		t.Fatalf("expected empty report error, got %v", err)
	}
}

type promptRecorder struct {
	fakeProvider
	system string
}

func (p *promptRecorder) Complete(ctx context.Context, req translator.Request) (*translator.Completion, error) {
	p.system = req.System
	return p.fakeProvider.Complete(ctx, req)
}

func TestRun_GlossaryInPrompt(t *testing.T) {
	dir := t.TempDir()
	newPath := writeJSON(t, dir, "new.json", `{"save":"Save file"}`)
	p := &promptRecorder{}
	cfg := baseConfig(newPath, p)
	cfg.Instructions = "Be brief."
	cfg.Glossary = []glossary.Term{{Source: "file", Target: "fichier"}}

	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(p.system, "Be brief.") || !strings.Contains(p.system, `"file" -> "fichier"`) {
		t.Fatalf("system prompt missing instructions or glossary:\n%s", p.system)
	}
}
