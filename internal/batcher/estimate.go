package batcher

import (
	"github.com/rivo/uniseg"
)

// Counter approximates the number of tokens a provider bills for a text.
type Counter interface {
	Count(s string) int
}

// Estimator is the default Counter. ASCII text is counted at about four
// bytes per token and each non-ASCII grapheme cluster as one token.
// Results are advisory.
type Estimator struct{}

func (Estimator) Count(s string) int {
	if s == "" {
		return 0
	}
	ascii := 0
	other := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		b := g.Bytes()
		if len(b) == 1 && b[0] < 0x80 {
			ascii++
			continue
		}
		other++
	}
	return (ascii+3)/4 + other
}

// Pricing is expressed in currency units per million tokens.
type Pricing struct {
	InputPerMillion  float64 `json:"input_per_million" yaml:"input_per_million" mapstructure:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million" yaml:"output_per_million" mapstructure:"output_per_million"`
}

// Cost returns the price of the given token counts.
func (p Pricing) Cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1_000_000*p.InputPerMillion +
		float64(completionTokens)/1_000_000*p.OutputPerMillion
}

// Estimate is the pre-flight projection shown before a run.
type Estimate struct {
	Batches      int
	Items        int
	Oversized    int
	InputTokens  int
	OutputTokens int
	Cost         float64
}

func (e Estimate) TotalTokens() int {
	return e.InputTokens + e.OutputTokens
}

// EstimateBatches projects token use and cost. promptOverhead is added once
// per batch for the instructions; output is approximated by the source text
// plus the per-item JSON wrapping.
func EstimateBatches(batches []Batch, promptOverhead int, pricing Pricing, opts Options) Estimate {
	opts = opts.normalized()
	var est Estimate
	est.Batches = len(batches)
	for _, b := range batches {
		est.Items += len(b.Pairs)
		if b.Oversized {
			est.Oversized++
		}
		est.InputTokens += b.Tokens + promptOverhead
		for _, p := range b.Pairs {
			est.OutputTokens += opts.Counter.Count(p.Text) + opts.PerItemOverhead
		}
	}
	est.Cost = pricing.Cost(est.InputTokens, est.OutputTokens)
	return est
}
