package batcher

import (
	"fmt"
	"strings"
	"testing"

	"github.com/oukeidos/jsontp/internal/jsondoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lenCounter counts one token per byte so costs are easy to reason about.
type lenCounter struct{}

func (lenCounter) Count(s string) int { return len(s) }

func pair(key, text string) Pair {
	return Pair{Path: jsondoc.KeyPath{key}, Text: text}
}

func TestEstimator_Count(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"こんにちは", 5},
		{"hi 世界", 3},
		{"👍🏽", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Estimator{}.Count(tt.in), "Count(%q)", tt.in)
	}
}

func TestSplit_RespectsCeiling(t *testing.T) {
	var pairs []Pair
	for i := 0; i < 10; i++ {
		pairs = append(pairs, pair(fmt.Sprintf("k%d", i), "12345678"))
	}
	opts := Options{TokenCeiling: 25, Counter: lenCounter{}}

	batches, err := Split(pairs, opts)
	require.NoError(t, err)
	require.Len(t, batches, 5)

	total := 0
	for i, b := range batches {
		assert.Equal(t, i, b.Index)
		assert.LessOrEqual(t, b.Tokens, 25)
		assert.False(t, b.Oversized)
		total += len(b.Pairs)
	}
	assert.Equal(t, 10, total)
	assert.Equal(t, "k0", batches[0].Pairs[0].Path.String())
	assert.Equal(t, "k9", batches[4].Pairs[1].Path.String())
}

func TestSplit_OversizedPairIsSingleton(t *testing.T) {
	pairs := []Pair{
		pair("a", "short"),
		pair("big", strings.Repeat("x", 100)),
		pair("b", "short"),
	}
	batches, err := Split(pairs, Options{TokenCeiling: 20, Counter: lenCounter{}})
	require.NoError(t, err)
	require.Len(t, batches, 3)

	assert.False(t, batches[0].Oversized)
	assert.True(t, batches[1].Oversized)
	require.Len(t, batches[1].Pairs, 1)
	assert.Equal(t, "big", batches[1].Pairs[0].Path.String())
	assert.Equal(t, 103, batches[1].Tokens)
	assert.Equal(t, "b", batches[2].Pairs[0].Path.String())
}

func TestSplit_MaxItems(t *testing.T) {
	var pairs []Pair
	for i := 0; i < 130; i++ {
		pairs = append(pairs, pair("k", "v"))
	}
	batches, err := Split(pairs, Options{TokenCeiling: 1_000_000})
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0].Pairs, DefaultMaxItems)
	assert.Len(t, batches[1].Pairs, DefaultMaxItems)
	assert.Len(t, batches[2].Pairs, 10)
}

func TestSplit_Invariant(t *testing.T) {
	var pairs []Pair
	for i := 0; i < 40; i++ {
		pairs = append(pairs, pair(fmt.Sprintf("key.%d", i), strings.Repeat("word ", i%9)))
	}
	opts := Options{TokenCeiling: 30, PerItemOverhead: 2}
	batches, err := Split(pairs, opts)
	require.NoError(t, err)
	for _, b := range batches {
		sum := 0
		for _, p := range b.Pairs {
			sum += Cost(p, opts)
		}
		assert.Equal(t, sum, b.Tokens)
		if b.Oversized {
			assert.Len(t, b.Pairs, 1)
			continue
		}
		assert.LessOrEqual(t, b.Tokens, 30)
	}
}

func TestSplit_Errors(t *testing.T) {
	_, err := Split([]Pair{pair("a", "b")}, Options{})
	assert.Error(t, err)

	batches, err := Split(nil, Options{TokenCeiling: 10})
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestPairsFromEntries(t *testing.T) {
	doc, err := jsondoc.Parse([]byte(`{"a": "x", "n": 1, "b": {"c": "y"}}`))
	require.NoError(t, err)
	pairs := PairsFromEntries(jsondoc.Flatten(doc).Entries())
	require.Len(t, pairs, 2)
	assert.Equal(t, "b.c", pairs[1].Path.String())
	assert.Equal(t, "y", pairs[1].Text)
}

func TestEstimateBatches(t *testing.T) {
	opts := Options{TokenCeiling: 100, Counter: lenCounter{}}
	batches, err := Split([]Pair{pair("a", "1234"), pair("b", "56")}, opts)
	require.NoError(t, err)

	pricing := Pricing{InputPerMillion: 0.15, OutputPerMillion: 0.60}
	est := EstimateBatches(batches, 100, pricing, opts)
	assert.Equal(t, 1, est.Batches)
	assert.Equal(t, 2, est.Items)
	assert.Equal(t, 8+100, est.InputTokens)
	assert.Equal(t, 6, est.OutputTokens)
	assert.InDelta(t, 108*0.15/1e6+6*0.60/1e6, est.Cost, 1e-12)
	assert.Equal(t, 114, est.TotalTokens())
}

func TestPricingCost(t *testing.T) {
	p := Pricing{InputPerMillion: 0.15, OutputPerMillion: 0.60}
	assert.InDelta(t, 0.75, p.Cost(1_000_000, 1_000_000), 1e-9)
	assert.Zero(t, Pricing{}.Cost(500, 500))
}
