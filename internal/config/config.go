// Package config loads decoder and runtime settings from YAML.
package config

import (
	"bytes"
	"io"
	"os"
	"unicode/utf8"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ieee0824/ctcdecode-go/decoder"
	"github.com/ieee0824/ctcdecode-go/hotword"
	"github.com/ieee0824/ctcdecode-go/internal/logging"
	"github.com/ieee0824/ctcdecode-go/language"
	"github.com/ieee0824/ctcdecode-go/vocab"
)

// Config is the top-level configuration file.
type Config struct {
	Decoder  DecoderConfig `yaml:"decoder"`
	LM       LMConfig      `yaml:"lm"`
	Hotwords []Hotword     `yaml:"hotwords"`
	Log      LogConfig     `yaml:"log"`
}

// DecoderConfig mirrors decoder.Options. Vocabulary is a file path.
type DecoderConfig struct {
	Vocabulary     string  `yaml:"vocabulary"`
	CutoffTopN     int     `yaml:"cutoff_top_n"`
	CutoffProb     float64 `yaml:"cutoff_prob"`
	BeamWidth      int     `yaml:"beam_width"`
	NumProcesses   int     `yaml:"num_processes"`
	BlankID        int     `yaml:"blank_id"`
	LogProbsInput  bool    `yaml:"log_probs_input"`
	IsBPEBased     bool    `yaml:"is_bpe_based"`
	UnkScore       float64 `yaml:"unk_score"`
	TokenSeparator string  `yaml:"token_separator"`
}

// LMConfig configures the language model scorer. An empty Path disables it.
type LMConfig struct {
	Path            string            `yaml:"path"`
	Alpha           float64           `yaml:"alpha"`
	Beta            float64           `yaml:"beta"`
	Type            vocab.Granularity `yaml:"type"`
	LexiconFST      string            `yaml:"lexicon_fst"`
	BuildDictionary bool              `yaml:"build_dictionary"`
}

// Hotword is one boosted phrase, given as vocabulary tokens.
type Hotword struct {
	Tokens []string `yaml:"tokens,flow"`
	Weight float64  `yaml:"weight"`
}

// LogConfig selects the diagnostic log. An empty File logs to stderr.
type LogConfig struct {
	Level    string `yaml:"level"`
	File     string `yaml:"file"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// Default returns the built-in defaults.
func Default() Config {
	o := decoder.DefaultOptions(nil)
	return Config{
		Decoder: DecoderConfig{
			CutoffTopN:     o.CutoffTopN,
			CutoffProb:     o.CutoffProb,
			BeamWidth:      o.BeamWidth,
			NumProcesses:   o.NumProcesses,
			BlankID:        o.BlankID,
			UnkScore:       o.UnkScore,
			TokenSeparator: string(o.TokenSeparator),
		},
		LM: LMConfig{
			Alpha: 0.5,
			Beta:  1.0,
			Type:  vocab.Word,
		},
		Log: LogConfig{
			Level:    logging.LevelNone.String(),
			MaxBytes: logging.DefaultMaxBytes,
		},
	}
}

// Parse reads YAML from r on top of Default. Unknown keys are errors.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "config: decode")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: read")
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, errors.Wrap(err, path)
	}
	return cfg, nil
}

// Validate checks the fields decoder.Options cannot check on its own.
func (c Config) Validate() error {
	if _, err := c.Separator(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "config")
	}
	for i, h := range c.Hotwords {
		if len(h.Tokens) == 0 {
			return errors.Errorf("config: hotword %d has no tokens", i)
		}
	}
	return nil
}

// Separator returns the token separator rune.
func (c Config) Separator() (rune, error) {
	s := c.Decoder.TokenSeparator
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, errors.Errorf("config: token_separator must be a single character, got %q", s)
	}
	return r, nil
}

// Options returns decoder options for v.
func (c Config) Options(v *vocab.Vocabulary) decoder.Options {
	sep, _ := c.Separator()
	return decoder.Options{
		Vocabulary:     v,
		CutoffTopN:     c.Decoder.CutoffTopN,
		CutoffProb:     c.Decoder.CutoffProb,
		BeamWidth:      c.Decoder.BeamWidth,
		NumProcesses:   c.Decoder.NumProcesses,
		BlankID:        c.Decoder.BlankID,
		LogProbsInput:  c.Decoder.LogProbsInput,
		IsBPEBased:     c.Decoder.IsBPEBased,
		UnkScore:       c.Decoder.UnkScore,
		TokenSeparator: sep,
	}
}

// ScorerConfig returns the language model scorer settings.
func (c Config) ScorerConfig() language.ScorerConfig {
	sep, _ := c.Separator()
	return language.ScorerConfig{
		Alpha:           c.LM.Alpha,
		Beta:            c.LM.Beta,
		LMPath:          c.LM.Path,
		Granularity:     c.LM.Type,
		LexiconFSTPath:  c.LM.LexiconFST,
		BuildDictionary: c.LM.BuildDictionary,
		TokenSeparator:  sep,
	}
}

// HotwordScorer builds the hotword scorer, or returns nil when no hotwords
// are configured.
func (c Config) HotwordScorer(v *vocab.Vocabulary) (*hotword.Scorer, error) {
	if len(c.Hotwords) == 0 {
		return nil, nil
	}
	sep, err := c.Separator()
	if err != nil {
		return nil, err
	}
	phrases := make([][]string, len(c.Hotwords))
	weights := make([]float64, len(c.Hotwords))
	for i, h := range c.Hotwords {
		phrases[i] = h.Tokens
		weights[i] = h.Weight
	}
	return hotword.New(v, phrases, weights, sep, c.Decoder.IsBPEBased)
}

// LogLevel returns the parsed log level.
func (c Config) LogLevel() logging.Level {
	l, _ := logging.ParseLevel(c.Log.Level)
	return l
}
