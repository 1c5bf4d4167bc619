// Package lexicon builds the lexicon FST that restricts decoding to a known
// word list. A lexicon file holds one entry per line:
//
//	<frequency> <word> <token_1> <token_2> ... <token_k>
//
// Each word is inserted into the automaton as the path of its token labels,
// where a token's label is its 1-based position in the vocabulary file.
package lexicon

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ieee0824/ctcdecode-go/vocab"
)

// NoThreshold disables frequency filtering.
const NoThreshold = -1

// ErrUnknownToken is returned when a lexicon entry spells a word with a token
// that is not in the vocabulary.
var ErrUnknownToken = errors.New("lexicon: token not in vocabulary")

// Entry is one lexicon line.
type Entry struct {
	Line      int
	Frequency int
	Word      string
	Tokens    []string
}

// Load reads lexicon entries. Blank lines and lines starting with "#" are
// ignored.
func Load(r io.Reader) ([]Entry, error) {
	var entries []Entry
	err := scan(r, func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open lexicon")
	}
	defer f.Close()
	return Load(f)
}

func scan(r io.Reader, fn func(Entry) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return errors.Errorf("line %d: expected frequency, word and at least one token, got %d fields", lineNum, len(fields))
		}
		freq, err := strconv.Atoi(fields[0])
		if err != nil {
			return errors.Wrapf(err, "line %d: bad frequency", lineNum)
		}
		if err := fn(Entry{Line: lineNum, Frequency: freq, Word: fields[1], Tokens: fields[2:]}); err != nil {
			return err
		}
	}
	return errors.Wrap(scanner.Err(), "read lexicon")
}

// LoadVocabularyFile reads a token vocabulary, one token per line. Token
// labels in the automaton are the vocabulary ids plus one; label 0 is
// epsilon.
func LoadVocabularyFile(path string) (*vocab.Vocabulary, error) {
	return vocab.LoadFile(path)
}

// Label returns the automaton label of tok.
func Label(v *vocab.Vocabulary, tok string) (int, bool) {
	id, ok := v.ID(vocab.Normalize(tok))
	if !ok {
		return 0, false
	}
	return id + 1, true
}

// Labels maps a spelling to automaton labels.
func Labels(v *vocab.Vocabulary, tokens []string) ([]int, error) {
	labels := make([]int, len(tokens))
	for i, tok := range tokens {
		l, ok := Label(v, tok)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownToken, "%q", tok)
		}
		labels[i] = l
	}
	return labels, nil
}
