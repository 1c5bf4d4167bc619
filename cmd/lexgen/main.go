package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ieee0824/ctcdecode-go/lexicon"
	"github.com/ieee0824/ctcdecode-go/vocab"
)

func main() {
	vocabPath := flag.String("vocab", "", "token vocabulary file (required)")
	corpusGlob := flag.String("corpus", "", "glob pattern for corpus files (e.g. 'training/corpus*.txt')")
	maxWords := flag.Int("max", 0, "maximum lexicon size, most frequent first (0 = no limit)")
	minCount := flag.Int("min-count", 1, "skip words seen fewer times")
	bpe := flag.Bool("bpe", false, "spell words with sub-word tokens")
	separator := flag.String("separator", "#", "marker of word-initial sub-word tokens")
	basePath := flag.String("base", "", "existing lexicon whose entries and spellings are kept")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: lexgen -vocab TOKENS -corpus 'GLOB' > lexicon.txt")
		fmt.Fprintln(os.Stderr, "  Counts corpus words and spells them with vocabulary tokens,")
		fmt.Fprintln(os.Stderr, "  writing \"<frequency> <word> <token>...\" lines for buildfst.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *vocabPath == "" || *corpusGlob == "" {
		flag.Usage()
		os.Exit(1)
	}
	sep := []rune(*separator)
	if len(sep) != 1 {
		fmt.Fprintf(os.Stderr, "separator must be one character, got %q\n", *separator)
		os.Exit(1)
	}

	v, err := vocab.LoadFile(*vocabPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	files, err := filepath.Glob(*corpusGlob)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corpus glob: %v\n", err)
		os.Exit(1)
	}
	counts := make(map[string]int)
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open %s: %v\n", path, err)
			continue
		}
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 1024*1024), 1024*1024)
		for sc.Scan() {
			for _, w := range strings.Fields(vocab.Normalize(sc.Text())) {
				counts[w]++
			}
		}
		f.Close()
	}
	fmt.Fprintf(os.Stderr, "Corpus words: %d unique in %d files\n", len(counts), len(files))

	var base []lexicon.Entry
	if *basePath != "" {
		if base, err = lexicon.LoadFile(*basePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Base lexicon: %d entries\n", len(base))
	}

	entries, skipped := collect(base, counts, *minCount, func(w string) ([]string, bool) {
		return lexicon.Spell(v, w, *bpe, sep[0])
	})
	if *maxWords > 0 && len(entries) > *maxWords {
		entries = entries[:*maxWords]
	}

	w := bufio.NewWriter(os.Stdout)
	if err := lexicon.WriteEntries(w, entries); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d entries (%d words not spellable with the vocabulary)\n", len(entries), skipped)
}

// collect merges base entries with corpus word counts, most frequent first.
// Base entries keep their spelling and gain the corpus count of their word;
// other words seen at least minCount times are spelled with spell. skipped
// counts the words spell rejected.
func collect(base []lexicon.Entry, counts map[string]int, minCount int, spell func(string) ([]string, bool)) (entries []lexicon.Entry, skipped int) {
	listed := make(map[string]bool, len(base))
	for _, e := range base {
		if listed[e.Word] {
			continue
		}
		listed[e.Word] = true
		e.Frequency += counts[e.Word]
		entries = append(entries, e)
	}
	for w, n := range counts {
		if n < minCount || listed[w] {
			continue
		}
		tokens, ok := spell(w)
		if !ok {
			skipped++
			continue
		}
		entries = append(entries, lexicon.Entry{Frequency: n, Word: w, Tokens: tokens})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Frequency != entries[j].Frequency {
			return entries[i].Frequency > entries[j].Frequency
		}
		return entries[i].Word < entries[j].Word
	})
	return entries, skipped
}
