package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"

	ctcdecode "github.com/ieee0824/ctcdecode-go"
	"github.com/ieee0824/ctcdecode-go/decoder"
	"github.com/ieee0824/ctcdecode-go/internal/logging"
	"github.com/ieee0824/ctcdecode-go/language"
	"github.com/ieee0824/ctcdecode-go/lexicon"
	"github.com/ieee0824/ctcdecode-go/vocab"
)

type testCase struct {
	probs    [][]float64
	expected string
}

type paramSet struct {
	Alpha float64
	Beta  float64
}

type result struct {
	params  paramSet
	errRate float64
	correct int
	total   int
}

func main() {
	vocabPath := flag.String("vocab", "", "token vocabulary file")
	lmPath := flag.String("lm", "", "path to LM (ARPA)")
	lmType := flag.String("lm-type", "word", "language model granularity: character, bpe or word")
	lexiconFst := flag.String("lexicon-fst", "", "lexicon automaton (optional)")
	manifests := flag.String("manifest", "", "comma-separated manifest.tsv paths (probs file <TAB> reference)")
	beam := flag.Int("beam", 100, "beam width (fixed)")
	alphasStr := flag.String("alphas", "0,0.25,0.5,0.75,1,1.5,2", "comma-separated LM weights")
	betasStr := flag.String("betas", "-1,0,0.5,1,2", "comma-separated word bonuses")
	workers := flag.Int("workers", 0, "parallel workers (default: NumCPU)")
	blank := flag.Int("blank", 0, "blank token id")
	logProbs := flag.Bool("log-probs", false, "probability files hold log probabilities")
	bpe := flag.Bool("bpe", false, "vocabulary holds sub-word tokens")
	logLevel := flag.String("log-level", "none", "log level: none, error, info, debug")

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tuner -vocab TOKENS -lm LM -manifest M1,M2,...")
		fmt.Fprintln(os.Stderr, "  Grid search language model alpha and beta against test manifests.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *vocabPath == "" || *lmPath == "" || *manifests == "" {
		flag.Usage()
		os.Exit(1)
	}

	if *workers <= 0 {
		*workers = runtime.NumCPU()
	}

	alphas := parseFloats(*alphasStr)
	betas := parseFloats(*betasStr)
	fmt.Fprintf(os.Stderr, "Grid: %d alpha × %d beta = %d combos\n", len(alphas), len(betas), len(alphas)*len(betas))

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(level, os.Stderr)

	fmt.Fprintln(os.Stderr, "Loading models...")
	v, err := vocab.LoadFile(*vocabPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load vocabulary: %v\n", err)
		os.Exit(1)
	}
	granularity, err := vocab.ParseGranularity(*lmType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts := decoder.DefaultOptions(v)
	opts.BeamWidth = *beam
	opts.NumProcesses = *workers
	opts.BlankID = *blank
	opts.LogProbsInput = *logProbs
	opts.IsBPEBased = *bpe

	scorer, err := language.NewScorer(language.ScorerConfig{
		LMPath:         *lmPath,
		Granularity:    granularity,
		LexiconFSTPath: *lexiconFst,
		TokenSeparator: opts.TokenSeparator,
	}, v, language.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load LM: %v\n", err)
		os.Exit(1)
	}
	dec, err := decoder.New(opts, decoder.WithScorer(scorer), decoder.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var tests []testCase
	for _, mpath := range strings.Split(*manifests, ",") {
		mpath = strings.TrimSpace(mpath)
		if mpath == "" {
			continue
		}
		tests = append(tests, loadManifest(mpath)...)
	}
	fmt.Fprintf(os.Stderr, "Loaded %d test files\n", len(tests))
	if len(tests) == 0 {
		os.Exit(1)
	}
	batch := make([][][]float64, len(tests))
	for i, tc := range tests {
		batch[i] = tc.probs
	}

	var grid []paramSet
	for _, a := range alphas {
		for _, b := range betas {
			grid = append(grid, paramSet{Alpha: a, Beta: b})
		}
	}

	// The scorer weights are shared by every worker, so grid points run one
	// after another and each batch is decoded in parallel.
	fmt.Fprintf(os.Stderr, "Running %d combinations on %d workers...\n", len(grid), *workers)
	results := make([]result, len(grid))
	for gi, ps := range grid {
		dec.ResetLMWeights(ps.Alpha, ps.Beta)
		out := dec.DecodeBatch(batch)
		r := result{params: ps, total: len(tests)}
		var errs, words int
		for i, tc := range tests {
			hyp := ""
			if len(out[i]) > 0 {
				hyp = out[i][0].Text(v, opts.IsBPEBased, opts.TokenSeparator)
			}
			if hyp == tc.expected {
				r.correct++
			}
			h, ref := internWords(hyp, tc.expected)
			errs += lexicon.TokenEditDistance(h, ref)
			words += len(ref)
		}
		if words > 0 {
			r.errRate = float64(errs) / float64(words)
		}
		results[gi] = r
	}

	// Sort by word error rate ascending, then by alpha ascending for ties
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].errRate != results[j].errRate {
			return results[i].errRate < results[j].errRate
		}
		return results[i].params.Alpha < results[j].params.Alpha
	})

	fmt.Printf("%-8s %-8s %8s %8s %6s %8s\n", "Alpha", "Beta", "WER", "Correct", "Total", "Accuracy")
	fmt.Println(strings.Repeat("-", 52))
	for _, r := range results {
		acc := float64(r.correct) / float64(r.total) * 100
		fmt.Printf("%-8.2f %-8.2f %7.2f%% %8d %6d %7.1f%%\n",
			r.params.Alpha, r.params.Beta, r.errRate*100, r.correct, r.total, acc)
	}
}

// internWords maps the words of both texts to shared integer ids.
func internWords(hyp, ref string) ([]int, []int) {
	ids := make(map[string]int)
	conv := func(s string) []int {
		words := strings.Fields(s)
		out := make([]int, len(words))
		for i, w := range words {
			id, ok := ids[w]
			if !ok {
				id = len(ids)
				ids[w] = id
			}
			out[i] = id
		}
		return out
	}
	return conv(hyp), conv(ref)
}

func loadManifest(path string) []testCase {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open manifest %s: %v\n", path, err)
		return nil
	}
	defer f.Close()

	var cases []testCase
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		probs, err := ctcdecode.ReadProbsFile(parts[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", parts[0], err)
			continue
		}
		cases = append(cases, testCase{probs: probs, expected: parts[1]})
	}
	return cases
}

func parseFloats(s string) []float64 {
	var vals []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid float %q: %v\n", part, err)
			continue
		}
		vals = append(vals, v)
	}
	return vals
}
