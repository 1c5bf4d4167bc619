package decoder

import (
	"github.com/pkg/errors"

	"github.com/ieee0824/ctcdecode-go/vocab"
)

var (
	ErrInvalidNumProcesses = errors.New("decoder: num_processes must be at least 1")
	ErrInvalidBeamWidth    = errors.New("decoder: beam_width must be at least 1")
	ErrInvalidCutoffProb   = errors.New("decoder: cutoff_prob must be in (0, 1]")
	ErrInvalidCutoffTopN   = errors.New("decoder: cutoff_top_n must be at least 1")
	ErrInvalidBlankID      = errors.New("decoder: blank_id is not a vocabulary id")
)

// Options holds beam search parameters. Options are read-only once a
// Decoder is built and shared by all workers.
type Options struct {
	Vocabulary *vocab.Vocabulary
	// CutoffTopN caps the classes considered per timestep. Values above the
	// vocabulary size are clamped.
	CutoffTopN int
	// CutoffProb is the probability mass kept per timestep.
	CutoffProb    float64
	BeamWidth     int
	NumProcesses  int
	BlankID       int
	LogProbsInput bool // rows hold log probabilities
	IsBPEBased    bool
	// UnkScore replaces alpha*log P for words missing from the language model.
	UnkScore       float64
	TokenSeparator rune
}

// DefaultOptions returns the default parameters for v.
func DefaultOptions(v *vocab.Vocabulary) Options {
	return Options{
		Vocabulary:     v,
		CutoffTopN:     40,
		CutoffProb:     1.0,
		BeamWidth:      100,
		NumProcesses:   4,
		BlankID:        0,
		UnkScore:       -5.0,
		TokenSeparator: '#',
	}
}

// Validate reports the first invalid parameter.
func (o Options) Validate() error {
	switch {
	case o.Vocabulary == nil || o.Vocabulary.Size() == 0:
		return vocab.ErrEmpty
	case o.NumProcesses < 1:
		return errors.Wrapf(ErrInvalidNumProcesses, "got %d", o.NumProcesses)
	case o.BeamWidth < 1:
		return errors.Wrapf(ErrInvalidBeamWidth, "got %d", o.BeamWidth)
	case !(o.CutoffProb > 0 && o.CutoffProb <= 1):
		return errors.Wrapf(ErrInvalidCutoffProb, "got %g", o.CutoffProb)
	case o.CutoffTopN < 1:
		return errors.Wrapf(ErrInvalidCutoffTopN, "got %d", o.CutoffTopN)
	case !o.Vocabulary.Valid(o.BlankID):
		return errors.Wrapf(ErrInvalidBlankID, "got %d for %d tokens", o.BlankID, o.Vocabulary.Size())
	}
	return nil
}

func (o Options) normalized() Options {
	o.CutoffTopN = min(o.CutoffTopN, o.Vocabulary.Size())
	return o
}
