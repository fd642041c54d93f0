package translator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oukeidos/jsontp/internal/apperrors"
)

const okReply = `{"translations":[{"id":"1","text":"ok"}]}`

func TestRetryPolicy_TransientRetries(t *testing.T) {
	p := &sequenceProvider{responses: []sequenceResponse{
		{err: apperrors.Network(errors.New("temporary"))},
		{err: apperrors.RateLimit(errors.New("slow down"))},
		{text: okReply},
	}}
	tr := newTestTranslator(t, p, Options{})

	res, err := tr.TranslateBatch(context.Background(), testBatch("hello"), french(), nil)
	if err != nil {
		t.Fatalf("TranslateBatch failed: %v", err)
	}
	if p.calls != 3 || res.Attempts != 3 {
		t.Fatalf("expected 3 attempts for transient errors, got calls=%d attempts=%d", p.calls, res.Attempts)
	}
}

func TestRetryPolicy_GivesUpAfterMaxAttempts(t *testing.T) {
	p := &sequenceProvider{responses: []sequenceResponse{
		{err: apperrors.Network(errors.New("down"))},
	}}
	tr := newTestTranslator(t, p, Options{})

	_, err := tr.TranslateBatch(context.Background(), testBatch("hello"), french(), nil)
	if !apperrors.Is(err, apperrors.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if p.calls != DefaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", DefaultMaxAttempts, p.calls)
	}
}

func TestRetryPolicy_NotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperrors.Kind
	}{
		{"auth", apperrors.Auth(errors.New("401")), apperrors.KindAuth},
		{"bad request", apperrors.BadRequest(errors.New("400")), apperrors.KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &sequenceProvider{responses: []sequenceResponse{{err: tt.err}, {text: okReply}}}
			tr := newTestTranslator(t, p, Options{})
			_, err := tr.TranslateBatch(context.Background(), testBatch("hello"), french(), nil)
			if !apperrors.Is(err, tt.kind) {
				t.Fatalf("expected %s error, got %v", tt.kind, err)
			}
			if p.calls != 1 {
				t.Fatalf("expected a single attempt, got %d", p.calls)
			}
		})
	}
}

func TestRetryPolicy_MalformedRetriesOptIn(t *testing.T) {
	p := &sequenceProvider{responses: []sequenceResponse{
		{text: `not json`},
		{text: okReply},
	}}
	tr := newTestTranslator(t, p, Options{MalformedRetries: 1})

	res, err := tr.TranslateBatch(context.Background(), testBatch("hello"), french(), nil)
	if err != nil {
		t.Fatalf("TranslateBatch failed: %v", err)
	}
	if p.calls != 2 || res.Translations[0].Text != "ok" {
		t.Fatalf("expected recovery on second attempt, calls=%d", p.calls)
	}
	if res.Usage.Total() != 30 {
		t.Fatalf("batch usage should include the malformed attempt, got %+v", res.Usage)
	}

	p = &sequenceProvider{responses: []sequenceResponse{{text: `not json`}}}
	tr = newTestTranslator(t, p, Options{MalformedRetries: 1})
	if _, err := tr.TranslateBatch(context.Background(), testBatch("hello"), french(), nil); !apperrors.Is(err, apperrors.KindMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if p.calls != 2 {
		t.Fatalf("expected exactly one extra attempt, got %d calls", p.calls)
	}
}

func TestRetryDecision_Backoff(t *testing.T) {
	tr, err := NewTranslator(&echoProvider{}, Options{MaxAttempts: 10})
	if err != nil {
		t.Fatalf("NewTranslator failed: %v", err)
	}

	retry, d := tr.retryDecision(apperrors.Network(errors.New("x")), 1, 3, 0)
	if !retry || d < time.Second || d >= 2*time.Second {
		t.Fatalf("unexpected network backoff: %v %v", retry, d)
	}
	retry, d = tr.retryDecision(apperrors.RateLimit(errors.New("x")), 2, 3, 0)
	if !retry || d < 4*time.Second || d >= 5*time.Second {
		t.Fatalf("rate limit backoff should double: %v %v", retry, d)
	}
	retry, d = tr.retryDecision(apperrors.Network(errors.New("x")), 6, 10, 0)
	if !retry || d < 20*time.Second || d >= 21*time.Second {
		t.Fatalf("backoff should be capped: %v %v", retry, d)
	}
	if retry, _ := tr.retryDecision(context.Canceled, 1, 3, 0); retry {
		t.Fatal("canceled context must not be retried")
	}
	if retry, _ := tr.retryDecision(apperrors.Network(errors.New("x")), 3, 3, 0); retry {
		t.Fatal("must not retry past the attempt budget")
	}
}
