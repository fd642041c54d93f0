package report

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oukeidos/jsontp/internal/files"
	"github.com/oukeidos/jsontp/internal/jsondoc"
	"github.com/oukeidos/jsontp/internal/language"
	"github.com/oukeidos/jsontp/internal/metadata"
)

const CurrentVersion = 1

// Status values recorded in a run report.
const (
	StatusSuccess        = "Success"
	StatusPartialSuccess = "Partial Success"
	StatusFailure        = "Failure"
)

// Counts summarizes what happened to the keys of the new document.
type Counts struct {
	Added       int `json:"added"`
	Changed     int `json:"changed"`
	Removed     int `json:"removed"`
	Unchanged   int `json:"unchanged"`
	Translated  int `json:"translated"`
	CarriedOver int `json:"carried_over"`
	Failed      int `json:"failed"`
	Canceled    int `json:"canceled"`
	Deselected  int `json:"deselected"`
}

type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
}

// FailedBatch describes a batch whose keys kept their source text.
type FailedBatch struct {
	Index   int               `json:"index"`
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Keys    []jsondoc.KeyPath `json:"keys"`
}

// Run is the persisted outcome of a translation run. Paths are stored
// relative to the report file.
type Run struct {
	Version       int               `json:"version"`
	RunID         string            `json:"run_id"`
	CreatedAt     time.Time         `json:"created_at"`
	ToolVersion   string            `json:"tool_version,omitempty"`
	OldPath       string            `json:"old_path,omitempty"`
	NewPath       string            `json:"new_path"`
	OutputPath    string            `json:"output_path,omitempty"`
	Provider      string            `json:"provider"`
	Model         string            `json:"model"`
	SourceLang    string            `json:"source_lang,omitempty"`
	TargetLang    string            `json:"target_lang"`
	Status        string            `json:"status"`
	Canceled      bool              `json:"canceled,omitempty"`
	Counts        Counts            `json:"counts"`
	Usage         Usage             `json:"usage"`
	FailedBatches []FailedBatch     `json:"failed_batches,omitempty"`
	CanceledKeys  []jsondoc.KeyPath `json:"canceled_keys,omitempty"`
}

// PendingKeys returns the failed keys followed by the canceled ones.
func (r *Run) PendingKeys() []jsondoc.KeyPath {
	var keys []jsondoc.KeyPath
	for _, b := range r.FailedBatches {
		keys = append(keys, b.Keys...)
	}
	return append(keys, r.CanceledKeys...)
}

// Validate checks that the report is consistent and safe to retry from.
func (r *Run) Validate() error {
	if r.Version == 0 {
		r.Version = CurrentVersion
	}
	if r.Version != CurrentVersion {
		return fmt.Errorf("unsupported report version: %d", r.Version)
	}
	if r.NewPath == "" {
		return fmt.Errorf("new_path is empty")
	}
	if filepath.IsAbs(r.NewPath) {
		return fmt.Errorf("new_path must be relative, not absolute: %s", r.NewPath)
	}
	if r.OldPath != "" && filepath.IsAbs(r.OldPath) {
		return fmt.Errorf("old_path must be relative, not absolute: %s", r.OldPath)
	}
	if r.OutputPath != "" {
		if filepath.IsAbs(r.OutputPath) {
			return fmt.Errorf("output_path must be relative, not absolute: %s", r.OutputPath)
		}
		if strings.HasPrefix(filepath.Clean(r.OutputPath), "..") {
			return fmt.Errorf("output_path cannot traverse parent directories: %s", r.OutputPath)
		}
	}
	switch r.Status {
	case StatusSuccess, StatusPartialSuccess, StatusFailure:
	case "":
		return fmt.Errorf("status is empty")
	default:
		return fmt.Errorf("invalid status: %s", r.Status)
	}
	if !metadata.ValidProvider(r.Provider) {
		return fmt.Errorf("unsupported provider: %s", r.Provider)
	}
	if r.Model == "" {
		return fmt.Errorf("model name is empty")
	}
	if _, ok := language.Resolve(r.TargetLang); !ok {
		return fmt.Errorf("unsupported target language: %s", r.TargetLang)
	}
	if r.SourceLang != "" {
		if _, ok := language.Resolve(r.SourceLang); !ok {
			return fmt.Errorf("unsupported source language: %s", r.SourceLang)
		}
	}
	for _, b := range r.FailedBatches {
		if b.Index < 0 {
			return fmt.Errorf("failed batch index out of range: %d", b.Index)
		}
		if len(b.Keys) == 0 {
			return fmt.Errorf("failed batch %d lists no keys", b.Index)
		}
		for _, k := range b.Keys {
			if len(k) == 0 {
				return fmt.Errorf("failed batch %d contains an empty key path", b.Index)
			}
		}
	}
	return nil
}

// Save writes the report without replacing an existing file and returns the
// path written. Paths in r are expected to be relative already.
func Save(path string, r *Run) (string, error) {
	if r.Version == 0 {
		r.Version = CurrentVersion
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return files.AtomicWriteExclusive(path, append(data, '\n'), 0600)
}

// Load reads a report from disk.
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report is not valid JSON: %w", err)
	}
	if r.Version == 0 {
		r.Version = CurrentVersion
	}
	return &r, nil
}

// LoadWithHash loads the report and returns a hash of its content.
func LoadWithHash(path string) (*Run, [32]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, [32]byte{}, err
	}
	var r Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, [32]byte{}, fmt.Errorf("report is not valid JSON: %w", err)
	}
	if r.Version == 0 {
		r.Version = CurrentVersion
	}
	return &r, sha256.Sum256(data), nil
}

// HashFile returns a SHA-256 hash of the given file contents.
func HashFile(path string) ([32]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// Resolve returns path relative to the directory of reportPath, or path
// itself when it is absolute or empty.
func Resolve(reportPath, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(reportPath), path)
}

// Relative converts target to a path relative to the report location.
func Relative(reportPath, target string) (string, error) {
	if target == "" {
		return "", nil
	}
	absDir, err := filepath.Abs(filepath.Dir(reportPath))
	if err != nil {
		return "", err
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	return filepath.Rel(absDir, absTarget)
}

// RelativeOutput is Relative restricted to the report directory.
func RelativeOutput(reportPath, outputPath string) (string, error) {
	rel, err := Relative(reportPath, outputPath)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("output path is not within report directory")
	}
	return rel, nil
}

// CalculateStatus determines the run status from batch counts. A run is
// partial only if at least one batch completed.
func CalculateStatus(failed, canceled, total int) string {
	if failed == 0 && canceled == 0 {
		return StatusSuccess
	}
	if failed+canceled < total {
		return StatusPartialSuccess
	}
	return StatusFailure
}
