package lexicon

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ieee0824/ctcdecode-go/vocab"
)

// Spell splits word into vocabulary tokens. Character vocabularies use one
// token per grapheme. With bpe set, pieces are matched greedily longest
// first; the first piece must be a word-initial token (prefixed by the
// separator) and the others unmarked tokens. ok is false when some part of
// the word has no token.
func Spell(v *vocab.Vocabulary, word string, bpe bool, separator rune) (tokens []string, ok bool) {
	g := vocab.SplitGraphemes(vocab.Normalize(word))
	if !bpe {
		for _, ch := range g {
			if _, ok := v.ID(ch); !ok {
				return nil, false
			}
		}
		return g, true
	}

	sep := string(separator)
	for start := 0; start < len(g); {
		found := false
		for end := len(g); end > start; end-- {
			piece := strings.Join(g[start:end], "")
			if start == 0 {
				piece = sep + piece
			}
			if _, ok := v.ID(piece); ok {
				tokens = append(tokens, piece)
				start = end
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return tokens, len(tokens) > 0
}

// WriteEntries writes entries in the lexicon file format, most frequent
// first and then by word.
func WriteEntries(w io.Writer, entries []Entry) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Frequency != sorted[j].Frequency {
			return sorted[i].Frequency > sorted[j].Frequency
		}
		return sorted[i].Word < sorted[j].Word
	})
	for _, e := range sorted {
		if _, err := fmt.Fprintf(w, "%d %s %s\n", e.Frequency, e.Word, strings.Join(e.Tokens, " ")); err != nil {
			return err
		}
	}
	return nil
}
