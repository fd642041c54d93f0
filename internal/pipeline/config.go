package pipeline

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/oukeidos/jsontp/internal/batcher"
	"github.com/oukeidos/jsontp/internal/glossary"
	"github.com/oukeidos/jsontp/internal/language"
	"github.com/oukeidos/jsontp/internal/metadata"
	"github.com/oukeidos/jsontp/internal/translator"
)

// Config holds everything a run needs. Nothing is read from process-wide
// state; the credential and settings travel with the Config.
type Config struct {
	// IO Paths
	OldPath    string // Optional: previous version of the file
	NewPath    string
	OutputDir  string // Optional: defaults to the directory of NewPath
	OutputPath string // Optional: explicit output file, overrides the generated name

	// API Configuration
	Provider string
	APIKey   string
	Model    string
	BaseURL  string // Optional: OpenAI-compatible endpoint

	// Languages
	SourceLang string // Optional: the model detects the language when empty
	TargetLang string

	// Diff policy
	RetranslateChanged bool
	CarryFromOld       bool

	// Selection, matched against dotted key paths
	Include  []string
	Exclude  []string
	SkipKeys []string

	// Batching
	TokenCeiling int
	MaxItems     int
	Pricing      *batcher.Pricing // Optional: defaults to the model table

	// Translation Parameters
	Instructions        string
	Glossary            []glossary.Term
	Temperature         float32
	MaxTokens           int
	MaxAttempts         int
	MalformedRetries    int
	CallTimeout         time.Duration
	DisablePlaceholders bool
	BreakerFailures     int
	BreakerTimeout      time.Duration

	ToolVersion string

	// Client replaces the provider built from Provider/APIKey/Model.
	Client translator.Provider

	// Callbacks
	// OnConfirm is called with the analysis before any request is sent.
	// Returning false ends the run with StatusSkipped.
	OnConfirm func(*Analysis) bool
	// OnProgress is called after each attempt and batch.
	OnProgress func(Event)

	// Now is used for output names. Defaults to time.Now.
	Now func() time.Time
}

const (
	MinTokenCeiling  = 100
	MaxTokenCeiling  = 100_000
	MaxItemsPerBatch = 500
	MaxAttemptsLimit = 10
	MaxMalformed     = 5
)

// Normalize applies defaults and safe bounds and returns any adjustments.
func (c Config) Normalize() (Config, []string) {
	var notes []string
	if c.Provider == "" {
		c.Provider = metadata.ProviderOpenAI
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Model == "" {
		c.Model = metadata.DefaultModel(c.Provider)
	}
	if c.TokenCeiling <= 0 {
		c.TokenCeiling = batcher.DefaultTokenCeiling
	} else if c.TokenCeiling < MinTokenCeiling {
		notes = append(notes, fmt.Sprintf("token-ceiling raised from %d to %d (min %d)", c.TokenCeiling, MinTokenCeiling, MinTokenCeiling))
		c.TokenCeiling = MinTokenCeiling
	} else if c.TokenCeiling > MaxTokenCeiling {
		notes = append(notes, fmt.Sprintf("token-ceiling clamped from %d to %d (max %d)", c.TokenCeiling, MaxTokenCeiling, MaxTokenCeiling))
		c.TokenCeiling = MaxTokenCeiling
	}
	if c.MaxItems <= 0 {
		c.MaxItems = batcher.DefaultMaxItems
	} else if c.MaxItems > MaxItemsPerBatch {
		notes = append(notes, fmt.Sprintf("batch-size clamped from %d to %d (max %d)", c.MaxItems, MaxItemsPerBatch, MaxItemsPerBatch))
		c.MaxItems = MaxItemsPerBatch
	}
	if c.MaxAttempts > MaxAttemptsLimit {
		notes = append(notes, fmt.Sprintf("retries clamped from %d to %d (max %d)", c.MaxAttempts, MaxAttemptsLimit, MaxAttemptsLimit))
		c.MaxAttempts = MaxAttemptsLimit
	}
	if c.MalformedRetries > MaxMalformed {
		notes = append(notes, fmt.Sprintf("malformed-retries clamped from %d to %d (max %d)", c.MalformedRetries, MaxMalformed, MaxMalformed))
		c.MalformedRetries = MaxMalformed
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, notes
}

// ValidateAnalyze checks the settings needed to analyze without translating.
func (c Config) ValidateAnalyze() error {
	if strings.TrimSpace(c.NewPath) == "" {
		return fmt.Errorf("new file path is required")
	}
	if c.TokenCeiling <= 0 {
		return fmt.Errorf("token ceiling must be greater than 0, got %d", c.TokenCeiling)
	}
	if c.MaxItems <= 0 {
		return fmt.Errorf("batch size must be greater than 0, got %d", c.MaxItems)
	}
	if !metadata.ValidProvider(c.Provider) {
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
	if c.Pricing != nil && (c.Pricing.InputPerMillion < 0 || c.Pricing.OutputPerMillion < 0) {
		return fmt.Errorf("pricing must not be negative")
	}
	for _, p := range append(append([]string{}, c.Include...), c.Exclude...) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid key pattern %q: %w", p, err)
		}
	}
	if c.SourceLang != "" {
		if _, ok := language.Resolve(c.SourceLang); !ok {
			return fmt.Errorf("unsupported source language: %s", c.SourceLang)
		}
	}
	if c.TargetLang != "" {
		if _, ok := language.Resolve(c.TargetLang); !ok {
			return fmt.Errorf("unsupported target language: %s", c.TargetLang)
		}
	}
	return nil
}

// Validate checks if the configuration is valid for a translation run.
func (c Config) Validate() error {
	if err := c.ValidateAnalyze(); err != nil {
		return err
	}
	if err := c.ValidateRetryRuntime(); err != nil {
		return err
	}
	if c.TargetLang == "" {
		return fmt.Errorf("target language is required")
	}
	if c.SourceLang != "" {
		src, _ := language.Resolve(c.SourceLang)
		tgt, _ := language.Resolve(c.TargetLang)
		if src.Code == tgt.Code {
			return fmt.Errorf("source and target languages must be different (%s)", src.Code)
		}
	}
	return nil
}

// ValidateRetryRuntime checks only runtime config required for a retry.
// Languages, provider and model come from the report.
func (c Config) ValidateRetryRuntime() error {
	if c.APIKey == "" && c.Client == nil {
		return fmt.Errorf("API key is required")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("retries must be 0 or greater, got %d", c.MaxAttempts)
	}
	if c.MalformedRetries < 0 {
		return fmt.Errorf("malformed retries must be 0 or greater, got %d", c.MalformedRetries)
	}
	return nil
}

func (c Config) pricing() batcher.Pricing {
	if c.Pricing != nil {
		return *c.Pricing
	}
	m, _ := metadata.Lookup(c.Provider, c.Model)
	return m.Pricing()
}

func (c Config) batchOptions() batcher.Options {
	return batcher.Options{
		TokenCeiling:    c.TokenCeiling,
		MaxItems:        c.MaxItems,
		PerItemOverhead: batcher.DefaultPerItemOverhead,
	}
}

// instructions returns the extra prompt text including glossary terms.
func (c Config) instructions() string {
	return glossary.Instructions(c.Instructions, c.Glossary)
}

func (c Config) translatorOptions(source language.Language) translator.Options {
	return translator.Options{
		Source:              source,
		Instructions:        c.instructions(),
		MaxAttempts:         c.MaxAttempts,
		MalformedRetries:    c.MalformedRetries,
		Temperature:         c.Temperature,
		MaxTokens:           c.MaxTokens,
		CallTimeout:         c.CallTimeout,
		DisablePlaceholders: c.DisablePlaceholders,
	}
}
