package translator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oukeidos/jsontp/internal/apperrors"
	"github.com/oukeidos/jsontp/internal/batcher"
	"github.com/oukeidos/jsontp/internal/jsondoc"
	"github.com/oukeidos/jsontp/internal/language"
	"github.com/oukeidos/jsontp/internal/logger"
	"github.com/oukeidos/jsontp/internal/placeholder"
)

const (
	DefaultMaxAttempts = 3
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 2000
	DefaultCallTimeout = 3 * time.Minute
)

// Options configures a Translator. Zero values select defaults.
type Options struct {
	Source language.Language
	// Instructions are appended to the system prompt.
	Instructions string
	MaxAttempts  int
	// MalformedRetries allows extra attempts after a malformed reply.
	MalformedRetries int
	Temperature      float32
	MaxTokens        int
	// CallTimeout bounds a single provider call. Calls already in flight
	// are not interrupted by cancellation of the run.
	CallTimeout time.Duration
	// DisablePlaceholders sends text without shielding placeholders.
	DisablePlaceholders bool
	BaseBackoff         time.Duration
	MaxBackoff          time.Duration
}

// Translation is one translated leaf.
type Translation struct {
	Path jsondoc.KeyPath
	Text string
}

// Result is the outcome of one successful batch.
type Result struct {
	Translations []Translation
	Usage        Usage
	Attempts     int
}

// TranslationState represents the current state of a batch translation.
type TranslationState int

const (
	StateStarted TranslationState = iota
	StateInProgress
	StateCompleted
	StateFailed
)

func (s TranslationState) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateInProgress:
		return "retrying"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AttemptProgress is reported before each attempt and when a batch finishes.
type AttemptProgress struct {
	BatchIndex int
	Attempt    int
	State      TranslationState
	Error      error
}

// Translator turns batches into validated translations through a Provider.
type Translator struct {
	provider Provider
	opts     Options
	usage    Usage
	usageMu  sync.Mutex
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewTranslator creates a new Translator instance.
func NewTranslator(p Provider, opts Options) (*Translator, error) {
	if p == nil {
		return nil, fmt.Errorf("provider must not be nil")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.MalformedRetries < 0 {
		return nil, fmt.Errorf("malformed retries must not be negative, got %d", opts.MalformedRetries)
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 1 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 20 * time.Second
	}
	return &Translator{provider: p, opts: opts, sleep: sleepCtx}, nil
}

// TranslateBatch translates every pair of b into target. Transient failures
// are retried with backoff; the returned error carries an apperrors kind.
func (t *Translator) TranslateBatch(ctx context.Context, b batcher.Batch, target language.Language, onProgress func(AttemptProgress)) (*Result, error) {
	if len(b.Pairs) == 0 {
		return &Result{}, nil
	}

	sources := make([]string, len(b.Pairs))
	protected := make([]placeholder.Protected, len(b.Pairs))
	for i, p := range b.Pairs {
		if t.opts.DisablePlaceholders {
			protected[i] = placeholder.Protected{Text: p.Text}
		} else {
			protected[i] = placeholder.Protect(p.Text)
		}
		sources[i] = protected[i].Text
	}

	user, err := buildUserPayload(b, sources)
	if err != nil {
		return nil, err
	}
	req := Request{
		System:      GetSystemPrompt(t.opts.Source, target, t.opts.Instructions),
		User:        user,
		MaxTokens:   t.opts.MaxTokens,
		Temperature: t.opts.Temperature,
		JSON:        true,
	}

	var batchUsage Usage
	malformed := 0
	maxAttempts := t.opts.MaxAttempts + t.opts.MalformedRetries
	for attempt := 1; ; attempt++ {
		if onProgress != nil {
			state := StateStarted
			if attempt > 1 {
				state = StateInProgress
			}
			onProgress(AttemptProgress{BatchIndex: b.Index, Attempt: attempt, State: state, Error: err})
		}

		var texts []string
		texts, err = t.attempt(ctx, req, sources, &batchUsage)
		if err == nil {
			result := &Result{Translations: make([]Translation, len(texts)), Usage: batchUsage, Attempts: attempt}
			for i, text := range texts {
				if missing := protected[i].Missing(text); len(missing) > 0 {
					logger.Warn("Translation dropped protected tokens", "batch", b.Index, "path", b.Pairs[i].Path.String(), "missing", len(missing))
				}
				result.Translations[i] = Translation{Path: b.Pairs[i].Path, Text: protected[i].Restore(text)}
			}
			if onProgress != nil {
				onProgress(AttemptProgress{BatchIndex: b.Index, Attempt: attempt, State: StateCompleted})
			}
			return result, nil
		}

		if apperrors.Is(err, apperrors.KindMalformed) {
			malformed++
		}
		retry, backoff := t.retryDecision(err, attempt, maxAttempts, malformed)
		if !retry {
			if attempt > 1 && apperrors.IsRetryable(err) {
				logger.Error("Batch failed after maximum retries", "batch", b.Index, "attempts", attempt, "error", err)
			} else {
				logger.Error("Batch failed without retry", "batch", b.Index, "attempts", attempt, "error", err)
			}
			if onProgress != nil {
				onProgress(AttemptProgress{BatchIndex: b.Index, Attempt: attempt, State: StateFailed, Error: err})
			}
			return nil, err
		}
		logger.Warn("Retrying batch", "batch", b.Index, "attempt", attempt, "backoff", backoff.String(), "error", err)
		if serr := t.sleep(ctx, backoff); serr != nil {
			if onProgress != nil {
				onProgress(AttemptProgress{BatchIndex: b.Index, Attempt: attempt, State: StateFailed, Error: serr})
			}
			return nil, serr
		}
	}
}

func (t *Translator) attempt(ctx context.Context, req Request, sources []string, batchUsage *Usage) ([]string, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.opts.CallTimeout)
	defer cancel()

	comp, err := t.provider.Complete(callCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !apperrors.IsRetryable(err) {
			return nil, apperrors.Network(err)
		}
		return nil, err
	}
	if comp == nil {
		return nil, apperrors.Malformed(fmt.Errorf("provider returned no completion"))
	}

	t.usageMu.Lock()
	t.usage.Add(comp.Usage)
	t.usageMu.Unlock()
	batchUsage.Add(comp.Usage)

	items, err := parseResponse(comp.Text)
	if err != nil {
		return nil, apperrors.Malformed(err)
	}
	texts, err := matchResults(sources, items)
	if err != nil {
		return nil, apperrors.Malformed(err)
	}
	return texts, nil
}

func (t *Translator) retryDecision(err error, attempt, maxAttempts, malformed int) (bool, time.Duration) {
	if err == nil {
		return false, 0
	}
	if attempt >= maxAttempts {
		return false, 0
	}
	if errors.Is(err, context.Canceled) {
		return false, 0
	}
	switch {
	case apperrors.Is(err, apperrors.KindMalformed):
		if malformed > t.opts.MalformedRetries {
			return false, 0
		}
	case apperrors.IsRetryable(err):
		if attempt-malformed >= t.opts.MaxAttempts {
			return false, 0
		}
	default:
		return false, 0
	}

	backoff := t.opts.BaseBackoff << (attempt - 1)
	if apperrors.IsRateLimit(err) {
		backoff = backoff * 2
	}
	if backoff > t.opts.MaxBackoff {
		backoff = t.opts.MaxBackoff
	}
	jitterMax := t.opts.BaseBackoff
	jitter := time.Duration(rand.Int63n(int64(jitterMax)))
	return true, backoff + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetUsage returns the total token usage of all attempts, including failed ones.
func (t *Translator) GetUsage() Usage {
	t.usageMu.Lock()
	defer t.usageMu.Unlock()
	return t.usage
}
