// Package decoder implements CTC prefix beam search over per-timestep class
// probabilities, with optional language model rescoring, lexicon
// constraints and hotword boosting.
package decoder

import (
	"fmt"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/ieee0824/ctcdecode-go/fst"
	"github.com/ieee0824/ctcdecode-go/language"
)

// Decoder holds validated options and the optional language model scorer.
// Decode methods are safe for concurrent use as long as ResetLMWeights is
// not called at the same time.
type Decoder struct {
	opts   Options
	scorer *language.Scorer
	logger logr.Logger
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithScorer attaches a language model scorer.
func WithScorer(s *language.Scorer) Option {
	return func(d *Decoder) { d.scorer = s }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logr.Logger) Option {
	return func(d *Decoder) { d.logger = l }
}

// New validates opts and returns a Decoder.
func New(opts Options, options ...Option) (*Decoder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	d := &Decoder{opts: opts.normalized(), logger: logr.Discard()}
	for _, o := range options {
		o(d)
	}
	d.logger.Info("decoder created",
		"vocabularySize", d.opts.Vocabulary.Size(),
		"cutoffTopN", d.opts.CutoffTopN,
		"cutoffProb", d.opts.CutoffProb,
		"beamWidth", d.opts.BeamWidth,
		"numProcesses", d.opts.NumProcesses,
		"blankID", d.opts.BlankID,
		"logProbsInput", d.opts.LogProbsInput,
		"isBPEBased", d.opts.IsBPEBased,
		"unkScore", d.opts.UnkScore,
		"tokenSeparator", string(d.opts.TokenSeparator),
		"languageModel", d.scorer != nil,
	)
	return d, nil
}

// Options returns the options in effect.
func (d *Decoder) Options() Options { return d.opts }

// Scorer returns the attached scorer, or nil.
func (d *Decoder) Scorer() *language.Scorer { return d.scorer }

func (d *Decoder) dictionary() *fst.Fst {
	if d.scorer == nil {
		return nil
	}
	dict := d.scorer.Dictionary()
	if dict == nil || dict.Start() == fst.NoState {
		return nil
	}
	return dict
}

// NewState allocates an empty streaming state. The caller owns it and
// should Release it when the utterance is done.
func (d *Decoder) NewState(opts ...StateOption) *State {
	return newState(d, opts...)
}

// Decode decodes one utterance given as [time][class] probabilities.
func (d *Decoder) Decode(probs [][]float64, hotwords ...StateOption) []ScoredOutput {
	s := d.NewState(hotwords...)
	defer s.Release()
	s.Next(probs)
	return s.Decode(true)
}

// DecodeBatch decodes each utterance independently on up to NumProcesses
// goroutines. The result is index-aligned with batch.
func (d *Decoder) DecodeBatch(batch [][][]float64, opts ...StateOption) BatchResult {
	out := make(BatchResult, len(batch))
	var g errgroup.Group
	g.SetLimit(d.opts.NumProcesses)
	for i, probs := range batch {
		i, probs := i, probs // per-iteration copies for pre-1.22 loop semantics
		g.Go(func() error {
			out[i] = d.Decode(probs, opts...)
			return nil
		})
	}
	_ = g.Wait() // workers always return nil
	d.logger.V(1).Info("decoded batch", "utterances", len(batch))
	return out
}

// DecodeBatchStreaming continues each utterance from states[i] with the
// chunk batch[i]. A nil entry in states is replaced by a new State.
// eos[i] marks the last chunk of utterance i. states, eos and batch must
// have equal length.
func (d *Decoder) DecodeBatchStreaming(batch [][][]float64, states []*State, eos []bool) BatchResult {
	if len(states) != len(batch) || len(eos) != len(batch) {
		panic(fmt.Sprintf("decoder: misaligned streaming batch: %d chunks, %d states, %d end-of-stream flags",
			len(batch), len(states), len(eos)))
	}
	for i := range states {
		if states[i] == nil {
			states[i] = d.NewState()
		}
		states[i].check()
	}

	out := make(BatchResult, len(batch))
	var g errgroup.Group
	g.SetLimit(d.opts.NumProcesses)
	for i, probs := range batch {
		i, probs := i, probs // per-iteration copies for pre-1.22 loop semantics
		g.Go(func() error {
			s := states[i]
			s.Next(probs)
			out[i] = s.Decode(eos[i])
			d.logger.V(1).Info("decoded chunk", "state", s.ID(), "frames", len(probs), "total", s.time, "eos", eos[i])
			return nil
		})
	}
	_ = g.Wait() // workers always return nil
	return out
}

// ResetLMWeights changes the scorer's alpha and beta for later decodes.
func (d *Decoder) ResetLMWeights(alpha, beta float64) {
	d.mustScorer().ResetParams(alpha, beta)
	d.logger.Info("language model weights reset", "alpha", alpha, "beta", beta)
}

func (d *Decoder) IsCharacterBased() bool { return d.mustScorer().IsCharacterBased() }
func (d *Decoder) IsBPEBased() bool       { return d.mustScorer().IsBPEBased() }
func (d *Decoder) MaxOrder() int          { return d.mustScorer().MaxOrder() }
func (d *Decoder) LexiconSize() int       { return d.mustScorer().LexiconSize() }

func (d *Decoder) mustScorer() *language.Scorer {
	if d.scorer == nil {
		panic("decoder: no language model scorer attached")
	}
	return d.scorer
}
