package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/ieee0824/ctcdecode-go/internal/logging"
	"github.com/ieee0824/ctcdecode-go/language"
	"github.com/ieee0824/ctcdecode-go/vocab"
)

type options struct {
	order  int
	output string
	chars  bool
	vocab  *vocab.Vocabulary
}

func main() {
	var opts options
	flag.IntVar(&opts.order, "order", 3, "N-gram order (2=bigram, 3=trigram, ...)")
	flag.StringVar(&opts.output, "output", "", "output file (default: stdout)")
	flag.BoolVar(&opts.chars, "chars", false, "split each word into characters for a character-granularity scorer")
	vocabPath := flag.String("vocab", "", "token vocabulary; with -chars, characters outside it are dropped")
	logLevel := flag.String("log-level", "info", "log level: none, error, info, debug")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: lmbuild [options] [input-files...]")
		fmt.Fprintln(os.Stderr, "  Builds a Witten-Bell ARPA language model from tokenized text.")
		fmt.Fprintln(os.Stderr, "  Input: one sentence per line, words separated by spaces.")
		fmt.Fprintln(os.Stderr, "  If no input files given, reads from stdin.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fatal(err)
	}
	logger := logging.New(level, os.Stderr).WithName("lmbuild")

	if *vocabPath != "" {
		if opts.vocab, err = vocab.LoadFile(*vocabPath); err != nil {
			fatal(err)
		}
	}

	model, sentences, err := build(opts, flag.Args())
	if err != nil {
		fatal(err)
	}
	if err := writeModel(model, opts.output); err != nil {
		fatal(err)
	}
	logger.Info("built language model", "order", opts.order, "sentences", sentences,
		"unigrams", model.Count(1), "output", opts.output)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func build(opts options, paths []string) (*language.NGramModel, int, error) {
	if opts.order < 2 {
		return nil, 0, errors.Errorf("order must be at least 2, got %d", opts.order)
	}
	b := language.NewBuilder(opts.order)
	if len(paths) == 0 {
		n, err := readSentences(b, os.Stdin, opts)
		return b.Build(), n, errors.Wrap(err, "read stdin")
	}
	total := 0
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "open %s", path)
		}
		n, err := readSentences(b, f, opts)
		f.Close()
		if err != nil {
			return nil, 0, errors.Wrapf(err, "read %s", path)
		}
		total += n
	}
	return b.Build(), total, nil
}

func writeModel(model *language.NGramModel, path string) error {
	if path == "" {
		return model.WriteARPA(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := model.WriteARPA(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}

func readSentences(b *language.Builder, r io.Reader, opts options) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	count := 0
	for scanner.Scan() {
		if words := tokenize(scanner.Text(), opts); len(words) > 0 {
			b.AddSentence(words)
			count++
		}
	}
	return count, scanner.Err()
}

// tokenize turns one corpus line into the units the model is built over.
func tokenize(line string, opts options) []string {
	line = vocab.Normalize(strings.TrimSpace(line))
	if !opts.chars {
		return strings.Fields(line)
	}
	var units []string
	for _, g := range vocab.SplitGraphemes(line) {
		if strings.TrimSpace(g) == "" {
			continue
		}
		if opts.vocab != nil {
			if _, ok := opts.vocab.ID(g); !ok {
				continue
			}
		}
		units = append(units, g)
	}
	return units
}
