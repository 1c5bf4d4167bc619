package language

import (
	"io"
	"math"
	"strings"
)

// Builder accumulates sentences and builds an N-gram language model with
// Witten-Bell discounting.
type Builder struct {
	order  int
	counts []map[string]int // counts[n-1] holds n-gram counts
}

// NewBuilder creates a new N-gram builder. Orders below 2 are raised to 2.
func NewBuilder(order int) *Builder {
	if order < 2 {
		order = 2
	}
	b := &Builder{order: order, counts: make([]map[string]int, order)}
	for i := range b.counts {
		b.counts[i] = make(map[string]int)
	}
	return b
}

// Order returns the model order being built.
func (b *Builder) Order() int { return b.order }

// AddSentence adds a tokenized sentence. <s> and </s> are added automatically.
func (b *Builder) AddSentence(words []string) {
	if len(words) == 0 {
		return
	}
	seq := make([]string, 0, len(words)+2)
	seq = append(seq, StartToken)
	seq = append(seq, words...)
	seq = append(seq, EndToken)

	for i := range seq {
		for n := 1; n <= b.order && n <= i+1; n++ {
			b.counts[n-1][strings.Join(seq[i-n+1:i+1], keySep)]++
		}
	}
}

// Build estimates the model.
//
// Unigrams are maximum likelihood estimates. An n-gram (h, w) seen in the
// data gets C(h,w) / (N(h) + T(h)), where N(h) counts the tokens and T(h)
// the distinct words following h. The backoff weight of h renormalizes the
// remaining mass over the lower-order distribution.
func (b *Builder) Build() *NGramModel {
	m := NewNGramModel(b.order)

	total := 0
	for _, c := range b.counts[0] {
		total += c
	}
	for key, c := range b.counts[0] {
		m.Set([]string{key}, math.Log(float64(c)/float64(total)), 0)
	}

	// followers[k-1][h] lists the words seen after the k-word history h.
	ctxTotal := make([]map[string]int, b.order)
	followers := make([]map[string][]string, b.order)
	for n := 2; n <= b.order; n++ {
		ctxTotal[n-2] = make(map[string]int)
		followers[n-2] = make(map[string][]string)
		for key, c := range b.counts[n-1] {
			i := strings.LastIndex(key, keySep)
			ctx := key[:i]
			ctxTotal[n-2][ctx] += c
			followers[n-2][ctx] = append(followers[n-2][ctx], key[i+len(keySep):])
		}
	}
	for n := 2; n <= b.order; n++ {
		for key, c := range b.counts[n-1] {
			ctx := key[:strings.LastIndex(key, keySep)]
			denom := ctxTotal[n-2][ctx] + len(followers[n-2][ctx])
			m.Set(strings.Split(key, keySep), math.Log(float64(c)/float64(denom)), 0)
		}
	}

	// Backoff weights, shortest histories first: the lower-order
	// probabilities below use the weights already assigned.
	for k := 1; k < b.order; k++ {
		for ctx, words := range followers[k-1] {
			history := strings.Split(ctx, keySep)
			sumHigh, sumLow := 0.0, 0.0
			for _, w := range words {
				e, _ := m.lookup(history, w)
				sumHigh += math.Exp(e.LogProb)
				sumLow += math.Exp(m.LogProb(history[1:], w))
			}
			if sumHigh >= 1 || sumLow >= 1 {
				continue
			}
			e := m.grams[k-1][ctx]
			e.LogBackoff = math.Log((1 - sumHigh) / (1 - sumLow))
			m.grams[k-1][ctx] = e
		}
	}
	return m
}

// WriteARPA builds the model and writes it in ARPA format to w.
func (b *Builder) WriteARPA(w io.Writer) error {
	return b.Build().WriteARPA(w)
}
