package vocab

import (
	"strings"

	"github.com/pkg/errors"
)

// Granularity is the unit a language model scores: single characters,
// sub-word pieces merged into words, or space-delimited words.
type Granularity int

const (
	Character Granularity = iota
	BPE
	Word
)

var granularityNames = map[Granularity]string{
	Character: "character",
	BPE:       "bpe",
	Word:      "word",
}

func (g Granularity) String() string {
	if s, ok := granularityNames[g]; ok {
		return s
	}
	return "unknown"
}

// ParseGranularity accepts "character", "bpe" or "word".
func ParseGranularity(s string) (Granularity, error) {
	for g, name := range granularityNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return g, nil
		}
	}
	return 0, errors.Errorf("vocab: unknown granularity %q (want character, bpe or word)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (g Granularity) MarshalText() ([]byte, error) {
	if _, ok := granularityNames[g]; !ok {
		return nil, errors.Errorf("vocab: invalid granularity %d", int(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Granularity) UnmarshalText(text []byte) error {
	parsed, err := ParseGranularity(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
