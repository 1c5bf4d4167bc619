// Package language provides the backoff n-gram model and the scorer that
// applies it to word-completing beam extensions.
package language

import (
	"sort"
	"strings"

	"github.com/ieee0824/ctcdecode-go/internal/mathutil"
)

const (
	StartToken = "<s>"
	EndToken   = "</s>"
	UnkToken   = "<unk>"
)

// keySep joins the words of an n-gram into a map key. It cannot occur in a
// whitespace-separated ARPA word.
const keySep = "\x00"

// NGramModel is a backoff n-gram language model of any order. Probabilities
// are natural logs.
type NGramModel struct {
	Order int
	grams []map[string]ngramEntry // grams[n-1] holds the n-grams
}

type ngramEntry struct {
	LogProb    float64
	LogBackoff float64
}

// NewNGramModel creates an empty n-gram model.
func NewNGramModel(order int) *NGramModel {
	m := &NGramModel{}
	m.grow(max(order, 1))
	return m
}

func (m *NGramModel) grow(order int) {
	for len(m.grams) < order {
		m.grams = append(m.grams, make(map[string]ngramEntry))
	}
	if order > m.Order {
		m.Order = order
	}
}

// Set stores the log probability and backoff weight of an n-gram.
func (m *NGramModel) Set(words []string, logProb, logBackoff float64) {
	m.grow(len(words))
	m.grams[len(words)-1][strings.Join(words, keySep)] = ngramEntry{LogProb: logProb, LogBackoff: logBackoff}
}

func (m *NGramModel) lookup(history []string, word string) (ngramEntry, bool) {
	n := len(history)
	if word != "" {
		n++
	}
	if n == 0 || n > len(m.grams) {
		return ngramEntry{}, false
	}
	key := strings.Join(history, keySep)
	if word != "" {
		if len(history) > 0 {
			key += keySep
		}
		key += word
	}
	e, ok := m.grams[n-1][key]
	return e, ok
}

// Count returns the number of stored n-grams of order n.
func (m *NGramModel) Count(n int) int {
	if n < 1 || n > len(m.grams) {
		return 0
	}
	return len(m.grams[n-1])
}

// Contains reports whether word is a unigram of the model.
func (m *NGramModel) Contains(word string) bool {
	_, ok := m.lookup(nil, word)
	return ok
}

// LogProb returns the log probability of a word given its history, backing
// off to shorter histories when the full n-gram is not stored. Only the
// last Order-1 history words are used. An unknown word yields
// mathutil.LogZero.
func (m *NGramModel) LogProb(history []string, word string) float64 {
	if len(history) > m.Order-1 {
		history = history[len(history)-(m.Order-1):]
	}
	backoff := 0.0
	for {
		if e, ok := m.lookup(history, word); ok {
			return backoff + e.LogProb
		}
		if len(history) == 0 {
			return mathutil.LogZero
		}
		if e, ok := m.lookup(history, ""); ok {
			backoff += e.LogBackoff
		}
		history = history[1:]
	}
}

// SentenceLogProb returns the total log probability of a sentence (word sequence).
// Automatically adds <s> at the beginning and </s> at the end.
func (m *NGramModel) SentenceLogProb(words []string) float64 {
	total := 0.0
	history := []string{StartToken}
	for _, w := range words {
		total += m.LogProb(history, w)
		history = append(history, w)
	}
	total += m.LogProb(history, EndToken)
	return total
}

// Vocab returns all words in the unigram vocabulary, sorted.
func (m *NGramModel) Vocab() []string {
	if len(m.grams) == 0 {
		return nil
	}
	words := make([]string, 0, len(m.grams[0]))
	for w := range m.grams[0] {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// ngrams returns the stored n-grams of order n in lexical order.
func (m *NGramModel) ngrams(n int) [][]string {
	keys := make([]string, 0, m.Count(n))
	if n >= 1 && n <= len(m.grams) {
		for k := range m.grams[n-1] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([][]string, len(keys))
	for i, k := range keys {
		out[i] = strings.Split(k, keySep)
	}
	return out
}
