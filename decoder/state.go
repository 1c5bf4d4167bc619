package decoder

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ieee0824/ctcdecode-go/fst"
	"github.com/ieee0824/ctcdecode-go/hotword"
	"github.com/ieee0824/ctcdecode-go/internal/mathutil"
	"github.com/ieee0824/ctcdecode-go/vocab"
)

// State is the search frontier of one utterance. It carries the beam across
// calls so that audio can be decoded chunk by chunk.
//
// A State must not be used by two decode calls at the same time, and must
// not be used at all after Release; both are caller errors and the latter
// panics. The zero State is invalid; create one with Decoder.NewState.
type State struct {
	id       uuid.UUID
	d        *Decoder
	hotwords *hotword.Scorer
	root     *node
	prefixes []*node // live prefixes, best first
	time     int     // frames consumed so far
	released bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithHotwords boosts hypotheses spelling the scorer's phrases.
func WithHotwords(h *hotword.Scorer) StateOption {
	return func(s *State) { s.hotwords = h }
}

func newState(d *Decoder, opts ...StateOption) *State {
	s := &State{id: uuid.New(), d: d, root: newRoot()}
	for _, o := range opts {
		o(s)
	}
	if dict := d.dictionary(); dict != nil {
		s.root.dictState = dict.Start()
	}
	if s.hotwords != nil {
		s.root.hotword = s.hotwords.Start()
	}
	s.prefixes = []*node{s.root}
	return s
}

// ID identifies the state in log records.
func (s *State) ID() uuid.UUID { return s.id }

// Frames returns the number of timesteps consumed so far.
func (s *State) Frames() int {
	s.check()
	return s.time
}

// Release frees the search trie. The State must not be used afterwards.
func (s *State) Release() {
	s.check()
	s.released = true
	s.root = nil
	s.prefixes = nil
}

func (s *State) check() {
	if s == nil || s.d == nil {
		panic("decoder: use of uninitialized State; create one with Decoder.NewState")
	}
	if s.released {
		panic(fmt.Sprintf("decoder: use of released State %s", s.id))
	}
}

// rank is the ordering key of a prefix: its search score plus the hotword
// bonus.
func (s *State) rank(n *node) float64 {
	if s.hotwords == nil {
		return n.score
	}
	return n.score + s.hotwords.Bonus(n.hotword)
}

func (s *State) sortPrefixes(prefixes []*node) {
	sort.SliceStable(prefixes, func(i, j int) bool {
		return CompareScores(s.rank(prefixes[i]), s.rank(prefixes[j])) < 0
	})
}

// Next extends the beam by the given timesteps.
func (s *State) Next(probs [][]float64) {
	s.check()
	size := s.d.opts.Vocabulary.Size()
	for _, row := range probs {
		if len(row) != size {
			panic(fmt.Sprintf("decoder: probability row has %d classes, vocabulary has %d", len(row), size))
		}
		s.step(row, s.time)
		s.time++
	}
}

func (s *State) step(probs []float64, t int) {
	o := &s.d.opts
	scorer := s.d.scorer

	minCutoff := mathutil.LogZero
	fullBeam := false
	if scorer != nil && len(s.prefixes) > 0 {
		last := s.prefixes[len(s.prefixes)-1]
		blank := probs[o.BlankID]
		if !o.LogProbsInput {
			blank = mathutil.SafeLog(blank)
		}
		minCutoff = s.rank(last) + blank - max(0, scorer.Beta())
		fullBeam = len(s.prefixes) == o.BeamWidth
	}

	for _, cand := range PruneTimestep(probs, o.CutoffProb, o.CutoffTopN, o.LogProbsInput) {
		c, logp := cand.ID, cand.LogProb
		for _, p := range s.prefixes {
			if fullBeam && logp+s.rank(p) < minCutoff {
				break
			}
			if c == o.BlankID {
				p.bCur = mathutil.LogSumExp(p.bCur, logp+p.score)
				continue
			}
			if c == p.id {
				// repeated token without a blank in between collapses
				p.nbCur = mathutil.LogSumExp(p.nbCur, logp+p.nbPrev)
			}
			child := s.extend(p, c, t, logp)
			if child == nil {
				continue
			}
			logP := mathutil.LogZero
			if c == p.id {
				if p.bPrev > mathutil.LogZero {
					logP = logp + p.bPrev
				}
			} else {
				logP = logp + p.score
			}
			if scorer != nil {
				logP += s.boundaryScore(p, child, c)
			}
			child.nbCur = mathutil.LogSumExp(child.nbCur, logP)
		}
	}

	prefixes := s.root.collect(make([]*node, 0, len(s.prefixes)*2))
	s.sortPrefixes(prefixes)
	if len(prefixes) > o.BeamWidth {
		for _, p := range prefixes[o.BeamWidth:] {
			p.remove()
		}
		prefixes = prefixes[:o.BeamWidth]
	}
	s.prefixes = prefixes
}

// extend returns the child of p for token c, creating it if the lexicon
// allows. It returns nil when c would spell a word outside the lexicon.
func (s *State) extend(p *node, c, t int, logp float64) *node {
	if child := p.child(c); child != nil {
		child.revive()
		child.observe(t, logp)
		return child
	}
	dictState := fst.NoState
	if dict := s.d.dictionary(); dict != nil {
		next, ok := s.nextDictState(dict, p, c)
		if !ok {
			return nil
		}
		dictState = next
	}
	child := p.addChild(c, t, logp)
	child.dictState = dictState
	if s.hotwords != nil {
		child.hotword = s.hotwords.Next(p.hotword, p.id, c)
	}
	return child
}

// nextDictState walks the lexicon FST. Labels are token ids plus one. A new
// word may only begin where the previous one reached a final state.
func (s *State) nextDictState(dict *fst.Fst, p *node, c int) (fst.StateID, bool) {
	o := &s.d.opts
	v := o.Vocabulary
	atBoundary := func() bool {
		return p.dictState == dict.Start() || dict.IsFinal(p.dictState)
	}
	switch s.d.scorer.Granularity() {
	case vocab.Character:
		return p.dictState, true
	case vocab.BPE:
		if !p.isRoot() && vocab.IsMergeableSubword(v.Token(c), c, p.id, v.ApostropheID(), o.TokenSeparator) {
			arc, ok := dict.Find(p.dictState, c+1)
			return arc.NextState, ok
		}
		if !atBoundary() {
			return fst.NoState, false
		}
		arc, ok := dict.Find(dict.Start(), c+1)
		return arc.NextState, ok
	default:
		if c == v.SpaceID() {
			return dict.Start(), atBoundary()
		}
		arc, ok := dict.Find(p.dictState, c+1)
		return arc.NextState, ok
	}
}

// boundaryScore returns the language model adjustment for extending p by c
// into child, which is nonzero only when the extension completes a word.
func (s *State) boundaryScore(p, child *node, c int) float64 {
	o := &s.d.opts
	v := o.Vocabulary
	scorer := s.d.scorer
	switch scorer.Granularity() {
	case vocab.Character:
		if c == v.SpaceID() {
			return 0
		}
		ids, _ := child.path()
		return s.wordScore(scorer.Words(ids))
	case vocab.BPE:
		if p.isRoot() || vocab.IsMergeableSubword(v.Token(c), c, p.id, v.ApostropheID(), o.TokenSeparator) {
			return 0
		}
	default:
		if c != v.SpaceID() || p.isRoot() || p.id == v.SpaceID() {
			return 0
		}
	}
	ids, _ := p.path()
	return s.wordScore(scorer.Words(ids))
}

// wordScore scores the last of words given the ones before it:
// alpha*log P + beta, with UnkScore standing in for alpha*log P when the
// word is unknown to the model.
func (s *State) wordScore(words []string) float64 {
	scorer := s.d.scorer
	if len(words) == 0 {
		return 0
	}
	lp, ok := scorer.LogCondProb(scorer.MakeNgram(words))
	if !ok {
		return s.d.opts.UnkScore + scorer.Beta()
	}
	return scorer.Alpha()*lp + scorer.Beta()
}

// Decode returns the current beam, best first, without consuming the state.
// With eos set, hypotheses whose last word is still open get its language
// model score, since no later token can complete it.
func (s *State) Decode(eos bool) []ScoredOutput {
	s.check()
	o := &s.d.opts
	scorer := s.d.scorer

	n := min(len(s.prefixes), o.BeamWidth)
	out := make([]ScoredOutput, n)
	for i, p := range s.prefixes[:n] {
		score := s.rank(p)
		if eos && scorer != nil && !scorer.IsCharacterBased() && !p.isRoot() && p.id != o.Vocabulary.SpaceID() {
			ids, _ := p.path()
			score += s.wordScore(scorer.Words(ids))
		}
		tokens, timesteps := p.path()
		out[i] = ScoredOutput{Score: score, Output: Output{Tokens: tokens, Timesteps: timesteps}}
	}
	SortHypotheses(out)
	return out
}
