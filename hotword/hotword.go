// Package hotword biases beam search toward configured phrases.
//
// Phrases are stored in a token trie. A hypothesis carries a State that
// tracks the trie node reached by the phrase it is currently spelling and the
// summed weight of the phrases it has already completed. A match may only
// begin at a word start, using the same sub-word merge rule as the language
// model scorer, and a completed phrase only counts once its last word ends,
// either at a word boundary or at the end of the hypothesis.
package hotword

import (
	"github.com/pkg/errors"

	"github.com/ieee0824/ctcdecode-go/fst"
	"github.com/ieee0824/ctcdecode-go/vocab"
)

var (
	ErrWeightCount = errors.New("hotword: phrase and weight counts differ")
	ErrEmptyPhrase = errors.New("hotword: empty phrase")
	ErrUnknown     = errors.New("hotword: token not in vocabulary")
)

// Scorer is immutable after New and safe for concurrent use.
type Scorer struct {
	vocab     *vocab.Vocabulary
	bpe       bool
	separator rune
	trie      *fst.Fst
	// potential[s] is the best weight*depth/len over the phrases through s,
	// taken as a running maximum from the root so it never drops along a
	// path. At a phrase's final state it is at least the phrase weight.
	potential []float64
	phrases   int
}

// New builds a Scorer. Each phrase is a sequence of vocabulary tokens and
// weights[i] is the bonus for spelling phrases[i]. Partial matches earn the
// matched fraction of the weight. Weights should be positive; a phrase with
// a non-positive weight earns nothing.
func New(v *vocab.Vocabulary, phrases [][]string, weights []float64, separator rune, bpe bool) (*Scorer, error) {
	if len(phrases) != len(weights) {
		return nil, errors.Wrapf(ErrWeightCount, "%d phrases, %d weights", len(phrases), len(weights))
	}
	s := &Scorer{vocab: v, bpe: bpe, separator: separator, trie: fst.New(), phrases: len(phrases)}
	s.trie.SetStart(s.trie.AddState())

	own := []float64{0}
	for i, phrase := range phrases {
		if len(phrase) == 0 {
			return nil, errors.Wrapf(ErrEmptyPhrase, "phrase %d", i)
		}
		labels := make([]int, len(phrase))
		for j, tok := range phrase {
			id, ok := v.ID(tok)
			if !ok {
				return nil, errors.Wrapf(ErrUnknown, "%q in phrase %d", tok, i)
			}
			labels[j] = id + 1
		}
		s.trie.AddPath(labels)
		for len(own) < s.trie.NumStates() {
			own = append(own, 0)
		}

		w, n := weights[i], float64(len(labels))
		cur := s.trie.Start()
		for depth, l := range labels {
			arc, _ := s.trie.Find(cur, l)
			cur = arc.NextState
			own[cur] = max(own[cur], w*float64(depth+1)/n)
		}
	}

	s.potential = make([]float64, s.trie.NumStates())
	stack := []fst.StateID{s.trie.Start()}
	for len(stack) > 0 {
		st := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, arc := range s.trie.Arcs(st) {
			s.potential[arc.NextState] = max(s.potential[st], own[arc.NextState])
			stack = append(stack, arc.NextState)
		}
	}
	return s, nil
}

// Len returns the number of configured phrases.
func (s *Scorer) Len() int { return s.phrases }

// State is the hotword progress of one hypothesis. The zero State is not
// valid; use Scorer.Start.
type State struct {
	node fst.StateID
	// completed sums the credit of finished matches.
	completed float64
	// matched is the credit of the phrase ending at node. It only counts
	// once the word containing the phrase ends.
	matched float64
	// pending is the best credit of the active match whose word has ended,
	// kept if the match later runs off the trie.
	pending float64
}

// Start returns the state of an empty hypothesis.
func (s *Scorer) Start() State { return State{node: fst.NoState} }

// Bonus returns the score adjustment for st. A match still open at the end
// of the hypothesis keeps its partial credit.
func (s *Scorer) Bonus(st State) float64 {
	if st.node == fst.NoState {
		return st.completed
	}
	return st.completed + s.potential[st.node]
}

// Next advances st by token id emitted after parent (-1 at the start of the
// hypothesis).
func (s *Scorer) Next(st State, parent, id int) State {
	start := s.wordStart(parent, id)
	if st.node != fst.NoState {
		if start || id == s.vocab.SpaceID() {
			st.pending = max(st.pending, st.matched)
		}
		st.matched = 0
		if arc, ok := s.trie.Find(st.node, id+1); ok {
			return s.enter(st, arc.NextState)
		}
		st.completed += st.pending
		st.pending = 0
		st.node = fst.NoState
	}
	if !start {
		return st
	}
	if arc, ok := s.trie.Find(s.trie.Start(), id+1); ok {
		return s.enter(st, arc.NextState)
	}
	return st
}

func (s *Scorer) enter(st State, node fst.StateID) State {
	st.node = node
	if s.trie.IsFinal(node) {
		st.matched = s.potential[node]
	}
	return st
}

func (s *Scorer) wordStart(parent, id int) bool {
	if parent < 0 {
		return true
	}
	if s.bpe {
		return !vocab.IsMergeableSubword(s.vocab.Token(id), id, parent, s.vocab.ApostropheID(), s.separator)
	}
	space := s.vocab.SpaceID()
	return space < 0 || parent == space
}

// Score returns the bonus of a whole token sequence.
func (s *Scorer) Score(ids []int) float64 {
	st := s.Start()
	parent := -1
	for _, id := range ids {
		st = s.Next(st, parent, id)
		parent = id
	}
	return s.Bonus(st)
}
