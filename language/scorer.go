package language

import (
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/ieee0824/ctcdecode-go/fst"
	"github.com/ieee0824/ctcdecode-go/vocab"
)

// ScorerConfig describes a Scorer.
type ScorerConfig struct {
	Alpha float64 // language model weight
	Beta  float64 // word insertion bonus
	// LMPath is an ARPA model file.
	LMPath      string
	Granularity vocab.Granularity
	// LexiconFSTPath optionally names a lexicon FST restricting the output
	// to known words.
	LexiconFSTPath string
	// BuildDictionary spells every model word with the vocabulary's
	// graphemes into a lexicon FST when no LexiconFSTPath is given. Only
	// word granularity models use it.
	BuildDictionary bool
	// TokenSeparator marks the word-initial tokens of sub-word vocabularies.
	TokenSeparator rune
}

// Scorer scores word-completing extensions with alpha*log P(word|history)
// + beta. Alpha and beta may be changed with ResetParams between decode
// calls; all other state is read-only.
type Scorer struct {
	mu          sync.RWMutex
	alpha, beta float64

	model       *NGramModel
	vocab       *vocab.Vocabulary
	granularity vocab.Granularity
	separator   rune
	dict        *fst.Fst
	lexiconSize int
	logger      logr.Logger
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithLogger sets the logger used during construction.
func WithLogger(l logr.Logger) ScorerOption {
	return func(s *Scorer) { s.logger = l }
}

// NewScorer loads the model at cfg.LMPath.
func NewScorer(cfg ScorerConfig, v *vocab.Vocabulary, opts ...ScorerOption) (*Scorer, error) {
	model, err := LoadARPAFile(cfg.LMPath)
	if err != nil {
		return nil, err
	}
	return NewScorerFromModel(model, cfg, v, opts...)
}

// NewScorerFromModel builds a Scorer around an already loaded model.
// cfg.LMPath is ignored.
func NewScorerFromModel(model *NGramModel, cfg ScorerConfig, v *vocab.Vocabulary, opts ...ScorerOption) (*Scorer, error) {
	if v == nil {
		return nil, errors.New("language: scorer needs a vocabulary")
	}
	s := &Scorer{
		alpha:       cfg.Alpha,
		beta:        cfg.Beta,
		model:       model,
		vocab:       v,
		granularity: cfg.Granularity,
		separator:   cfg.TokenSeparator,
		logger:      logr.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	for _, w := range model.Vocab() {
		if w != StartToken && w != EndToken && w != UnkToken {
			s.lexiconSize++
		}
	}

	switch {
	case cfg.LexiconFSTPath != "":
		dict, err := fst.ReadFile(cfg.LexiconFSTPath)
		if err != nil {
			return nil, errors.Wrap(err, "load lexicon FST")
		}
		dict.ArcSort()
		s.dict = dict
	case cfg.BuildDictionary && cfg.Granularity == vocab.Word:
		dict, err := s.buildDictionary()
		if err != nil {
			return nil, err
		}
		s.dict = dict
	case cfg.BuildDictionary:
		s.logger.Info("dictionary construction needs a word granularity model, skipping", "granularity", cfg.Granularity)
	}

	kv := []any{
		"order", model.Order,
		"lexiconSize", s.lexiconSize,
		"granularity", s.granularity,
		"alpha", s.alpha,
		"beta", s.beta,
	}
	if s.dict != nil {
		kv = append(kv, "dictionaryStates", s.dict.NumStates())
	}
	s.logger.Info("language model scorer ready", kv...)
	return s, nil
}

// buildDictionary spells each model word with vocabulary graphemes. Words
// containing a grapheme outside the vocabulary are left out.
func (s *Scorer) buildDictionary() (*fst.Fst, error) {
	f := fst.New()
	skipped := 0
	for _, w := range s.model.Vocab() {
		if w == StartToken || w == EndToken || w == UnkToken {
			continue
		}
		g := vocab.SplitGraphemes(vocab.Normalize(w))
		labels := make([]int, 0, len(g))
		for _, ch := range g {
			id, ok := s.vocab.ID(ch)
			if !ok {
				break
			}
			labels = append(labels, id+1)
		}
		if len(labels) != len(g) {
			skipped++
			continue
		}
		f.AddPath(labels)
	}
	s.logger.V(1).Info("built dictionary", "states", f.NumStates(), "skippedWords", skipped)
	if f.NumStates() == 0 {
		return f, nil
	}
	opt, err := fst.Optimize(f)
	if err != nil {
		return nil, errors.Wrap(err, "optimize dictionary")
	}
	return opt, nil
}

// Alpha returns the language model weight.
func (s *Scorer) Alpha() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alpha
}

// Beta returns the word insertion bonus.
func (s *Scorer) Beta() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.beta
}

// ResetParams replaces alpha and beta. It must not run concurrently with a
// decode that uses the scorer.
func (s *Scorer) ResetParams(alpha, beta float64) {
	s.mu.Lock()
	s.alpha, s.beta = alpha, beta
	s.mu.Unlock()
}

func (s *Scorer) MaxOrder() int                  { return s.model.Order }
func (s *Scorer) LexiconSize() int               { return s.lexiconSize }
func (s *Scorer) Granularity() vocab.Granularity { return s.granularity }
func (s *Scorer) IsCharacterBased() bool         { return s.granularity == vocab.Character }
func (s *Scorer) IsBPEBased() bool               { return s.granularity == vocab.BPE }

// Dictionary returns the lexicon FST, or nil if the scorer has none.
func (s *Scorer) Dictionary() *fst.Fst { return s.dict }

// LogCondProb returns log P(last word | preceding words) for an n-gram as
// returned by MakeNgram. ok is false when the last word is not in the
// model.
func (s *Scorer) LogCondProb(ngram []string) (lp float64, ok bool) {
	if len(ngram) == 0 {
		return 0, false
	}
	word := ngram[len(ngram)-1]
	if !s.model.Contains(word) {
		return 0, false
	}
	return s.model.LogProb(ngram[:len(ngram)-1], word), true
}

// MakeNgram returns the last MaxOrder words, padded on the left with <s>
// when the sentence is shorter.
func (s *Scorer) MakeNgram(words []string) []string {
	order := s.model.Order
	ngram := make([]string, 0, order)
	for i := len(words); i < order; i++ {
		ngram = append(ngram, StartToken)
	}
	if len(words) > order {
		words = words[len(words)-order:]
	}
	return append(ngram, words...)
}

// Words splits a token id sequence into language model words according to
// the scorer granularity. Character models treat every non-space token as a
// word; word models split on the space token; sub-word models join
// unmarked tokens onto the preceding word.
func (s *Scorer) Words(ids []int) []string {
	var words []string
	switch s.granularity {
	case vocab.Character:
		for _, id := range ids {
			if id != s.vocab.SpaceID() {
				words = append(words, s.vocab.Token(id))
			}
		}
	case vocab.BPE:
		var cur strings.Builder
		parent := -1
		for _, id := range ids {
			tok := s.vocab.Token(id)
			if parent >= 0 && !vocab.IsMergeableSubword(tok, id, parent, s.vocab.ApostropheID(), s.separator) {
				words = append(words, cur.String())
				cur.Reset()
			}
			cur.WriteString(s.vocab.Concat([]int{id}, s.separator))
			parent = id
		}
		if cur.Len() > 0 {
			words = append(words, cur.String())
		}
	default:
		var cur strings.Builder
		for _, id := range ids {
			if id == s.vocab.SpaceID() {
				if cur.Len() > 0 {
					words = append(words, cur.String())
					cur.Reset()
				}
				continue
			}
			cur.WriteString(s.vocab.Token(id))
		}
		if cur.Len() > 0 {
			words = append(words, cur.String())
		}
	}
	return words
}
