package batcher

import (
	"fmt"

	"github.com/oukeidos/jsontp/internal/jsondoc"
)

const (
	DefaultTokenCeiling    = 2000
	DefaultMaxItems        = 60
	DefaultPerItemOverhead = 12
)

// Pair is one key path and the source text to translate.
type Pair struct {
	Path jsondoc.KeyPath
	Text string
}

// Batch is a group of pairs submitted in a single request.
type Batch struct {
	Index  int
	Pairs  []Pair
	Tokens int
	// Oversized is set when the batch holds one pair whose own cost exceeds
	// the ceiling.
	Oversized bool
}

// Paths returns the key paths of the batch in order.
func (b Batch) Paths() []jsondoc.KeyPath {
	out := make([]jsondoc.KeyPath, len(b.Pairs))
	for i, p := range b.Pairs {
		out[i] = p.Path
	}
	return out
}

// Options bounds the batches produced by Split.
type Options struct {
	TokenCeiling int
	MaxItems     int
	// PerItemOverhead is the token cost of wrapping one pair in the request.
	PerItemOverhead int
	Counter         Counter
}

func (o Options) normalized() Options {
	if o.MaxItems <= 0 {
		o.MaxItems = DefaultMaxItems
	}
	if o.PerItemOverhead < 0 {
		o.PerItemOverhead = 0
	}
	if o.Counter == nil {
		o.Counter = Estimator{}
	}
	return o
}

// PairsFromEntries converts translatable entries to pairs, keeping order.
func PairsFromEntries(entries []jsondoc.Entry) []Pair {
	pairs := make([]Pair, 0, len(entries))
	for _, e := range entries {
		if !e.Translatable() {
			continue
		}
		pairs = append(pairs, Pair{Path: e.Path, Text: e.Value.Str})
	}
	return pairs
}

// Cost returns the estimated token cost of one pair.
func Cost(p Pair, opts Options) int {
	opts = opts.normalized()
	return opts.Counter.Count(p.Path.String()) + opts.Counter.Count(p.Text) + opts.PerItemOverhead
}

// Split groups pairs greedily in order. A batch is closed when adding the
// next pair would exceed TokenCeiling or MaxItems. A pair that alone exceeds
// the ceiling becomes its own oversized batch.
func Split(pairs []Pair, opts Options) ([]Batch, error) {
	if opts.TokenCeiling <= 0 {
		return nil, fmt.Errorf("token ceiling must be greater than 0, got %d", opts.TokenCeiling)
	}
	opts = opts.normalized()

	var batches []Batch
	var current Batch
	flush := func() {
		if len(current.Pairs) == 0 {
			return
		}
		current.Index = len(batches)
		batches = append(batches, current)
		current = Batch{}
	}

	for _, p := range pairs {
		cost := Cost(p, opts)
		if cost > opts.TokenCeiling {
			flush()
			current = Batch{Pairs: []Pair{p}, Tokens: cost, Oversized: true}
			flush()
			continue
		}
		if current.Tokens+cost > opts.TokenCeiling || len(current.Pairs)+1 > opts.MaxItems {
			flush()
		}
		current.Pairs = append(current.Pairs, p)
		current.Tokens += cost
	}
	flush()
	return batches, nil
}
