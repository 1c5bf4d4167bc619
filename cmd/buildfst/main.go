package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ieee0824/ctcdecode-go/internal/logging"
	"github.com/ieee0824/ctcdecode-go/lexicon"
)

func main() {
	vocabPath := flag.String("vocab", "", "token vocabulary file (one token per line)")
	fstPath := flag.String("fst", "", "existing automaton to extend (optional)")
	output := flag.String("output", "lexicon.fst", "output automaton; the optimized copy gets the .opt suffix")
	threshold := flag.Int("threshold", lexicon.NoThreshold, "skip entries with a lower frequency (-1 keeps all)")
	optimize := flag.Bool("optimize", true, "also write the epsilon-free, determinized, minimized automaton")
	logLevel := flag.String("log-level", "info", "log level: none, error, info, debug")
	logFile := flag.String("log-file", "", "log file with size rotation (default: stderr)")
	verbose := flag.Bool("v", false, "print automaton statistics and sample paths")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: buildfst -vocab TOKENS [options] LEXICON [LEXICON...]")
		fmt.Fprintln(os.Stderr, "  Builds a lexicon automaton from lines of \"<frequency> <word> <token>...\".")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *vocabPath == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger, closer, err := logging.Open(level, *logFile, logging.DefaultMaxBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	b, err := lexicon.Build(lexicon.BuildConfig{
		VocabPath:    *vocabPath,
		LexiconPaths: flag.Args(),
		FstPath:      *fstPath,
		OutputPath:   *output,
		Threshold:    *threshold,
		Optimize:     *optimize,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error (stage %s): %v\n", b.Stage(), err)
		closer.Close()
		os.Exit(1)
	}

	f := b.Fst()
	fmt.Fprintf(os.Stderr, "Added %d words: %d states, %d arcs -> %s\n",
		b.WordsAdded(), f.NumStates(), f.NumArcs(), *output)
	if *verbose {
		v := b.Vocabulary()
		for _, path := range f.Paths(10) {
			tokens := make([]string, len(path))
			for i, l := range path {
				tokens[i] = v.Token(l - 1)
			}
			fmt.Fprintf(os.Stderr, "  %s\n", strings.Join(tokens, " "))
		}
	}
}
