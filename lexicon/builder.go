package lexicon

import (
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/ieee0824/ctcdecode-go/fst"
	"github.com/ieee0824/ctcdecode-go/vocab"
)

// OptimizedSuffix is appended to the output path of the optimized automaton.
const OptimizedSuffix = ".opt"

// ErrBuilderState is returned when a Builder method is called out of order
// or after an earlier failure.
var ErrBuilderState = errors.New("lexicon: invalid builder state")

// Stage is the position of a Builder in its pipeline. Stages only move
// forward.
type Stage int

const (
	StageEmpty Stage = iota
	StageLoading
	StageBuilding
	StageWritten
	StageOptimized
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageEmpty:
		return "empty"
	case StageLoading:
		return "loading"
	case StageBuilding:
		return "building"
	case StageWritten:
		return "written"
	case StageOptimized:
		return "written+optimized"
	case StageFailed:
		return "failed"
	}
	return "unknown"
}

// Builder inserts lexicon words into a trie-shaped acceptor.
//
//	b := lexicon.NewBuilder(lexicon.WithThreshold(2))
//	b.LoadVocabularyFile("tokens.txt")
//	b.AddLexiconFile("lexicon.txt")
//	b.Write("lexicon.fst", true)
type Builder struct {
	stage     Stage
	vocab     *vocab.Vocabulary
	fst       *fst.Fst
	threshold int
	logger    logr.Logger
	added     int
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithThreshold skips entries whose frequency is below t. NoThreshold
// disables filtering.
func WithThreshold(t int) BuilderOption {
	return func(b *Builder) { b.threshold = t }
}

// WithLogger sets the logger for progress records.
func WithLogger(l logr.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		stage:     StageEmpty,
		fst:       fst.New(),
		threshold: NoThreshold,
		logger:    logr.Discard(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Stage returns the current pipeline stage.
func (b *Builder) Stage() Stage { return b.stage }

// Fst returns the automaton built so far.
func (b *Builder) Fst() *fst.Fst { return b.fst }

// WordsAdded returns the number of entries that changed the automaton.
func (b *Builder) WordsAdded() int { return b.added }

// Vocabulary returns the loaded vocabulary, or nil before LoadVocabulary.
func (b *Builder) Vocabulary() *vocab.Vocabulary { return b.vocab }

func (b *Builder) expect(stages ...Stage) error {
	for _, s := range stages {
		if b.stage == s {
			return nil
		}
	}
	return errors.Wrapf(ErrBuilderState, "stage is %s", b.stage)
}

func (b *Builder) fail(err error) error {
	b.stage = StageFailed
	b.logger.Error(err, "lexicon FST build aborted")
	return err
}

// LoadVocabulary sets the token table.
func (b *Builder) LoadVocabulary(v *vocab.Vocabulary) error {
	if err := b.expect(StageEmpty); err != nil {
		return err
	}
	b.vocab = v
	b.stage = StageLoading
	b.logger.Info("loaded vocabulary", "size", v.Size())
	return nil
}

// LoadVocabularyFile reads the token table from path.
func (b *Builder) LoadVocabularyFile(path string) error {
	if err := b.expect(StageEmpty); err != nil {
		return err
	}
	v, err := LoadVocabularyFile(path)
	if err != nil {
		return b.fail(err)
	}
	return b.LoadVocabulary(v)
}

// LoadFst replaces the empty automaton with one read from path so that
// further lexicons grow it. An automaton that is not a trie, such as the
// optimized output, is unfolded first. It must be called after the
// vocabulary is loaded and before any lexicon is added.
func (b *Builder) LoadFst(path string) error {
	if err := b.expect(StageLoading); err != nil {
		return err
	}
	start := time.Now()
	f, err := fst.ReadFile(path)
	if err != nil {
		return b.fail(err)
	}
	b.logger.Info("read FST", "path", path, "states", f.NumStates(), "elapsed", time.Since(start))
	if !f.IsTrie() {
		// Suffixes of a minimized automaton are shared, so new paths must
		// not branch from them.
		f = fst.Unfold(f)
		b.logger.Info("unfolded FST into a trie", "states", f.NumStates())
	}
	b.fst = f
	return nil
}

// AddLexicon inserts every entry read from r. name identifies the source in
// diagnostics. It returns the number of entries that changed the automaton.
func (b *Builder) AddLexicon(r io.Reader, name string) (int, error) {
	if err := b.expect(StageLoading, StageBuilding); err != nil {
		return 0, err
	}
	b.stage = StageBuilding
	added, lines := 0, 0
	err := scan(r, func(e Entry) error {
		lines++
		if b.threshold != NoThreshold && e.Frequency < b.threshold {
			return nil
		}
		labels, err := Labels(b.vocab, e.Tokens)
		if err != nil {
			return errors.Wrapf(err, "%s:%d: word %q", name, e.Line, e.Word)
		}
		if b.fst.AddPath(labels) {
			added++
		}
		if lines%100000 == 0 {
			b.logger.V(1).Info("processed lexicon records", "count", lines)
		}
		return nil
	})
	if err != nil {
		return added, b.fail(errors.Wrap(err, name))
	}
	b.added += added
	b.logger.Info("added lexicon", "path", name, "entries", lines, "added", added)
	return added, nil
}

// AddLexiconFile inserts the entries of the lexicon at path.
func (b *Builder) AddLexiconFile(path string) (int, error) {
	if err := b.expect(StageLoading, StageBuilding); err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, b.fail(errors.Wrap(err, "open lexicon"))
	}
	defer f.Close()
	return b.AddLexicon(f, path)
}

// Write persists the automaton to path. With optimize set, the automaton is
// also epsilon-removed, determinized and minimized and written to
// path+OptimizedSuffix.
func (b *Builder) Write(path string, optimize bool) error {
	if err := b.expect(StageBuilding); err != nil {
		return err
	}
	start := time.Now()
	if err := b.fst.WriteFile(path); err != nil {
		return b.fail(err)
	}
	b.logger.Info("wrote FST", "path", path, "states", b.fst.NumStates(), "arcs", b.fst.NumArcs(), "elapsed", time.Since(start))
	b.stage = StageWritten
	if !optimize {
		return nil
	}

	start = time.Now()
	opt, err := fst.Optimize(b.fst)
	if err != nil {
		return b.fail(err)
	}
	b.logger.Info("optimized FST", "states", opt.NumStates(), "arcs", opt.NumArcs(), "elapsed", time.Since(start))
	if err := opt.WriteFile(path + OptimizedSuffix); err != nil {
		return b.fail(err)
	}
	b.stage = StageOptimized
	return nil
}

// BuildConfig describes one offline build run.
type BuildConfig struct {
	VocabPath    string
	LexiconPaths []string
	// FstPath, if set, names an existing automaton to extend.
	FstPath    string
	OutputPath string
	Threshold  int
	Optimize   bool
}

// Build runs the whole pipeline for cfg.
func Build(cfg BuildConfig, logger logr.Logger) (*Builder, error) {
	b := NewBuilder(WithThreshold(cfg.Threshold), WithLogger(logger))
	if err := b.LoadVocabularyFile(cfg.VocabPath); err != nil {
		return b, err
	}
	if cfg.FstPath != "" {
		if err := b.LoadFst(cfg.FstPath); err != nil {
			return b, err
		}
	}
	if len(cfg.LexiconPaths) == 0 {
		return b, b.fail(errors.New("lexicon: no lexicon files"))
	}
	for _, p := range cfg.LexiconPaths {
		if _, err := b.AddLexiconFile(p); err != nil {
			return b, err
		}
	}
	return b, b.Write(cfg.OutputPath, cfg.Optimize)
}
