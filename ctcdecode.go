// Package ctcdecode ties a vocabulary, a beam search decoder, an optional
// language model and hotwords into a single Recognizer.
package ctcdecode

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/ieee0824/ctcdecode-go/decoder"
	"github.com/ieee0824/ctcdecode-go/hotword"
	"github.com/ieee0824/ctcdecode-go/internal/config"
	"github.com/ieee0824/ctcdecode-go/language"
	"github.com/ieee0824/ctcdecode-go/vocab"
)

// Recognizer decodes probability sequences into ranked token sequences.
type Recognizer struct {
	Vocab    *vocab.Vocabulary
	Decoder  *decoder.Decoder
	Hotwords *hotword.Scorer

	opts    *decoder.Options
	lmCfg   *language.ScorerConfig
	phrases [][]string
	weights []float64
	logger  logr.Logger
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithDecoderOptions sets the beam search parameters. The Vocabulary field
// is replaced by the recognizer's vocabulary.
func WithDecoderOptions(o decoder.Options) Option {
	return func(r *Recognizer) {
		r.opts = &o
	}
}

// WithLanguageModel attaches an n-gram scorer built from cfg.
func WithLanguageModel(cfg language.ScorerConfig) Option {
	return func(r *Recognizer) {
		r.lmCfg = &cfg
	}
}

// WithHotwords boosts the given token phrases by their weights.
func WithHotwords(phrases [][]string, weights []float64) Option {
	return func(r *Recognizer) {
		r.phrases = phrases
		r.weights = weights
	}
}

// WithHotwordScorer uses an already built hotword scorer. WithHotwords
// takes precedence when both are given.
func WithHotwordScorer(h *hotword.Scorer) Option {
	return func(r *Recognizer) {
		r.Hotwords = h
	}
}

// WithLogger sets the logger passed to every component.
func WithLogger(l logr.Logger) Option {
	return func(r *Recognizer) {
		r.logger = l
	}
}

// NewRecognizer loads the vocabulary file and builds a Recognizer.
func NewRecognizer(vocabPath string, opts ...Option) (*Recognizer, error) {
	v, err := vocab.LoadFile(vocabPath)
	if err != nil {
		return nil, err
	}
	return NewRecognizerFromVocabulary(v, opts...)
}

// NewRecognizerFromConfig builds a Recognizer from a configuration file's
// settings. opts are applied after the configured ones.
func NewRecognizerFromConfig(cfg config.Config, opts ...Option) (*Recognizer, error) {
	if cfg.Decoder.Vocabulary == "" {
		return nil, errors.New("config: decoder.vocabulary is required")
	}
	v, err := vocab.LoadFile(cfg.Decoder.Vocabulary)
	if err != nil {
		return nil, err
	}
	base := []Option{WithDecoderOptions(cfg.Options(v))}
	if cfg.LM.Path != "" {
		base = append(base, WithLanguageModel(cfg.ScorerConfig()))
	}
	hw, err := cfg.HotwordScorer(v)
	if err != nil {
		return nil, errors.Wrap(err, "build hotwords")
	}
	if hw != nil {
		base = append(base, WithHotwordScorer(hw))
	}
	return NewRecognizerFromVocabulary(v, append(base, opts...)...)
}

// NewRecognizerFromVocabulary builds a Recognizer around a loaded
// vocabulary.
func NewRecognizerFromVocabulary(v *vocab.Vocabulary, opts ...Option) (*Recognizer, error) {
	r := &Recognizer{Vocab: v, logger: logr.Discard()}
	for _, opt := range opts {
		opt(r)
	}

	o := decoder.DefaultOptions(v)
	if r.opts != nil {
		o = *r.opts
		o.Vocabulary = v
	}

	var dopts []decoder.Option
	dopts = append(dopts, decoder.WithLogger(r.logger.WithName("decoder")))
	if r.lmCfg != nil {
		scorer, err := language.NewScorer(*r.lmCfg, v, language.WithLogger(r.logger.WithName("scorer")))
		if err != nil {
			return nil, errors.Wrap(err, "load language model")
		}
		dopts = append(dopts, decoder.WithScorer(scorer))
	}

	d, err := decoder.New(o, dopts...)
	if err != nil {
		return nil, err
	}
	r.Decoder = d

	if len(r.phrases) > 0 {
		r.Hotwords, err = hotword.New(v, r.phrases, r.weights, o.TokenSeparator, o.IsBPEBased)
		if err != nil {
			return nil, errors.Wrap(err, "build hotwords")
		}
	}
	return r, nil
}

func (r *Recognizer) stateOptions() []decoder.StateOption {
	if r.Hotwords == nil {
		return nil
	}
	return []decoder.StateOption{decoder.WithHotwords(r.Hotwords)}
}

// Decode decodes one utterance.
func (r *Recognizer) Decode(probs [][]float64) []decoder.ScoredOutput {
	return r.Decoder.Decode(probs, r.stateOptions()...)
}

// DecodeBatch decodes utterances in parallel.
func (r *Recognizer) DecodeBatch(batch [][][]float64) decoder.BatchResult {
	return r.Decoder.DecodeBatch(batch, r.stateOptions()...)
}

// DecodeFile decodes a probability file written in the ReadProbs format.
func (r *Recognizer) DecodeFile(path string) ([]decoder.ScoredOutput, error) {
	probs, err := ReadProbsFile(path)
	if err != nil {
		return nil, err
	}
	return r.Decode(probs), nil
}

// Text renders a hypothesis with the recognizer's vocabulary.
func (r *Recognizer) Text(o decoder.Output) string {
	opts := r.Decoder.Options()
	return o.Text(r.Vocab, opts.IsBPEBased, opts.TokenSeparator)
}

// Stream decodes one utterance chunk by chunk.
type Stream struct {
	r     *Recognizer
	state *decoder.State
}

// NewStream starts a streaming utterance. Call Close when the audio ends.
func (r *Recognizer) NewStream() *Stream {
	return &Stream{r: r, state: r.Decoder.NewState(r.stateOptions()...)}
}

// Feed consumes the next chunk and returns the current beam. The last word
// of each hypothesis is still open and not scored by the language model.
func (s *Stream) Feed(chunk [][]float64) []decoder.ScoredOutput {
	s.state.Next(chunk)
	return s.state.Decode(false)
}

// Close returns the final beam and releases the stream.
func (s *Stream) Close() []decoder.ScoredOutput {
	out := s.state.Decode(true)
	s.state.Release()
	return out
}

// ReadProbs reads one timestep per line, each line holding the
// whitespace-separated class values. Blank lines and lines starting with
// '#' are skipped. Every row must have the same width.
func ReadProbs(rd io.Reader) ([][]float64, error) {
	var probs [][]float64
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			row[i] = v
		}
		if len(probs) > 0 && len(row) != len(probs[0]) {
			return nil, errors.Errorf("line %d: %d values, previous rows have %d", lineNo, len(row), len(probs[0]))
		}
		probs = append(probs, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read probabilities")
	}
	return probs, nil
}

// ReadProbsFile is a convenience wrapper that opens a file path.
func ReadProbsFile(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open probabilities")
	}
	defer f.Close()
	probs, err := ReadProbs(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return probs, nil
}
