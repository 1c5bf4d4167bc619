package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	ctcdecode "github.com/ieee0824/ctcdecode-go"
	"github.com/ieee0824/ctcdecode-go/decoder"
	"github.com/ieee0824/ctcdecode-go/internal/config"
	"github.com/ieee0824/ctcdecode-go/internal/logging"
	"github.com/ieee0824/ctcdecode-go/internal/mathutil"
	"github.com/ieee0824/ctcdecode-go/vocab"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file; flags override its values")
	vocabPath := flag.String("vocab", "", "token vocabulary file (one token per line)")
	lmPath := flag.String("lm", "", "language model (ARPA format)")
	alpha := flag.Float64("alpha", 0.5, "language model weight")
	beta := flag.Float64("beta", 1.0, "word insertion bonus")
	lmType := flag.String("lm-type", "word", "language model granularity: character, bpe or word")
	lexiconFst := flag.String("lexicon-fst", "", "lexicon automaton constraining the output words")
	buildDict := flag.Bool("build-dict", false, "build a lexicon automaton from the language model words")
	beam := flag.Int("beam", 100, "beam width")
	cutoffTopN := flag.Int("cutoff-top-n", 40, "classes considered per timestep")
	cutoffProb := flag.Float64("cutoff-prob", 1.0, "probability mass kept per timestep")
	workers := flag.Int("workers", 4, "parallel decode workers")
	blank := flag.Int("blank", 0, "blank token id")
	logProbs := flag.Bool("log-probs", false, "input files hold log probabilities")
	bpe := flag.Bool("bpe", false, "vocabulary holds sub-word tokens")
	unkScore := flag.Float64("unk-score", -5.0, "score of words unknown to the language model")
	separator := flag.String("separator", "#", "marker of word-initial sub-word tokens")
	hotwords := flag.String("hotwords", "", "comma-separated \"token token...:weight\" phrases")
	chunk := flag.Int("chunk", 0, "decode in chunks of this many frames (0 = whole file)")
	nbest := flag.Int("n", 1, "hypotheses to print per file")
	logLevel := flag.String("log-level", "none", "log level: none, error, info, debug")
	logFile := flag.String("log-file", "", "log file with size rotation (default: stderr)")
	verbose := flag.Bool("v", false, "print scores, timesteps and partial results")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: ctcdecode [-config FILE] -vocab TOKENS [options] PROBS [PROBS...]")
		fmt.Fprintln(os.Stderr, "  Each PROBS file holds one timestep per line of whitespace-separated class values.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	override := func(name string, apply func()) {
		if set[name] || *configPath == "" {
			apply()
		}
	}
	override("vocab", func() { cfg.Decoder.Vocabulary = *vocabPath })
	override("beam", func() { cfg.Decoder.BeamWidth = *beam })
	override("cutoff-top-n", func() { cfg.Decoder.CutoffTopN = *cutoffTopN })
	override("cutoff-prob", func() { cfg.Decoder.CutoffProb = *cutoffProb })
	override("workers", func() { cfg.Decoder.NumProcesses = *workers })
	override("blank", func() { cfg.Decoder.BlankID = *blank })
	override("log-probs", func() { cfg.Decoder.LogProbsInput = *logProbs })
	override("bpe", func() { cfg.Decoder.IsBPEBased = *bpe })
	override("unk-score", func() { cfg.Decoder.UnkScore = *unkScore })
	override("separator", func() { cfg.Decoder.TokenSeparator = *separator })
	override("lm", func() { cfg.LM.Path = *lmPath })
	override("alpha", func() { cfg.LM.Alpha = *alpha })
	override("beta", func() { cfg.LM.Beta = *beta })
	override("lexicon-fst", func() { cfg.LM.LexiconFST = *lexiconFst })
	override("build-dict", func() { cfg.LM.BuildDictionary = *buildDict })
	override("log-level", func() { cfg.Log.Level = *logLevel })
	override("log-file", func() { cfg.Log.File = *logFile })
	override("lm-type", func() {
		g, err := vocab.ParseGranularity(*lmType)
		if err != nil {
			fatal(err)
		}
		cfg.LM.Type = g
	})
	if *hotwords != "" {
		hw, err := parseHotwords(*hotwords)
		if err != nil {
			fatal(err)
		}
		cfg.Hotwords = hw
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	if cfg.Decoder.Vocabulary == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	logger, closer, err := logging.Open(cfg.LogLevel(), cfg.Log.File, cfg.Log.MaxBytes)
	if err != nil {
		fatal(err)
	}
	defer closer.Close()

	rec, err := ctcdecode.NewRecognizerFromConfig(cfg, ctcdecode.WithLogger(logger))
	if err != nil {
		fatal(err)
	}

	paths := flag.Args()
	batch := make([][][]float64, len(paths))
	for i, p := range paths {
		batch[i], err = ctcdecode.ReadProbsFile(p)
		if err != nil {
			fatal(err)
		}
	}

	var results decoder.BatchResult
	if *chunk > 0 {
		results = make(decoder.BatchResult, len(batch))
		for i, probs := range batch {
			results[i] = decodeChunked(rec, probs, *chunk, *verbose)
		}
	} else {
		results = rec.DecodeBatch(batch)
	}

	for i, hyps := range results {
		if len(hyps) == 0 {
			fmt.Printf("%s\t\n", paths[i])
			continue
		}
		fmt.Printf("%s\t%s\n", paths[i], rec.Text(hyps[0].Output))
		for k := 1; k < min(*nbest, len(hyps)); k++ {
			fmt.Printf("  %d\t%s\n", k+1, rec.Text(hyps[k].Output))
		}
		if *verbose {
			h := hyps[0]
			fmt.Fprintf(os.Stderr, "Score: %.4f\n", h.Score)
			for j, id := range h.Tokens {
				fmt.Fprintf(os.Stderr, "  [%d] %s\n", h.Timesteps[j], rec.Vocab.Token(id))
			}
		}
	}
}

func decodeChunked(rec *ctcdecode.Recognizer, probs [][]float64, size int, verbose bool) []decoder.ScoredOutput {
	s := rec.NewStream()
	for start := 0; start < len(probs); start += size {
		partial := s.Feed(mathutil.SliceRows(probs, start, min(start+size, len(probs))))
		if verbose && len(partial) > 0 {
			fmt.Fprintf(os.Stderr, "  partial @%d: %s\n", min(start+size, len(probs)), rec.Text(partial[0].Output))
		}
	}
	return s.Close()
}

func parseHotwords(s string) ([]config.Hotword, error) {
	var out []config.Hotword
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.LastIndex(part, ":")
		if i < 0 {
			return nil, errors.Errorf("hotword %q: missing :weight", part)
		}
		w, err := strconv.ParseFloat(part[i+1:], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "hotword %q", part)
		}
		out = append(out, config.Hotword{Tokens: strings.Fields(part[:i]), Weight: w})
	}
	return out, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
