// Package vocab holds the token table shared by the decoder, the language
// model scorer, the hotword scorer and the lexicon FST builder.
package vocab

import (
	"bufio"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

const (
	// SpaceToken is the token that separates words in character vocabularies.
	SpaceToken = " "
	// ApostropheToken never forces a word boundary in sub-word vocabularies.
	ApostropheToken = "'"
)

var (
	ErrEmpty          = errors.New("vocab: empty vocabulary")
	ErrDuplicateToken = errors.New("vocab: duplicate token")
)

// Vocabulary is an ordered, unique token table. The index of a token is its id.
// A Vocabulary is immutable and safe for concurrent use.
type Vocabulary struct {
	tokens       []string
	ids          map[string]int
	spaceID      int
	apostropheID int
}

// New builds a Vocabulary from tokens in id order. Tokens are NFC-normalized
// so that lexicon and hotword lookups match regardless of input normalization.
func New(tokens []string) (*Vocabulary, error) {
	if len(tokens) == 0 {
		return nil, ErrEmpty
	}
	v := &Vocabulary{
		tokens:       make([]string, len(tokens)),
		ids:          make(map[string]int, len(tokens)),
		spaceID:      -1,
		apostropheID: -1,
	}
	for i, tok := range tokens {
		tok = Normalize(tok)
		if prev, ok := v.ids[tok]; ok {
			return nil, errors.Wrapf(ErrDuplicateToken, "%q at ids %d and %d", tok, prev, i)
		}
		v.tokens[i] = tok
		v.ids[tok] = i
		switch tok {
		case SpaceToken:
			v.spaceID = i
		case ApostropheToken:
			v.apostropheID = i
		}
	}
	return v, nil
}

// MustNew is like New but panics on error. Intended for tests and fixed tables.
func MustNew(tokens []string) *Vocabulary {
	v, err := New(tokens)
	if err != nil {
		panic(err)
	}
	return v
}

// Load reads one token per line. Lines are kept verbatim apart from the line
// terminator, so a line holding a single space yields the space token.
func Load(r io.Reader) (*Vocabulary, error) {
	var tokens []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		tokens = append(tokens, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read vocabulary")
	}
	return New(tokens)
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open vocabulary")
	}
	defer f.Close()
	v, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load vocabulary %s", path)
	}
	return v, nil
}

// Size returns the number of tokens.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// Token returns the token for id, or "" if id is out of range.
func (v *Vocabulary) Token(id int) string {
	if id < 0 || id >= len(v.tokens) {
		return ""
	}
	return v.tokens[id]
}

// ID returns the id of tok.
func (v *Vocabulary) ID(tok string) (int, bool) {
	id, ok := v.ids[Normalize(tok)]
	return id, ok
}

// Tokens returns a copy of the token table.
func (v *Vocabulary) Tokens() []string {
	out := make([]string, len(v.tokens))
	copy(out, v.tokens)
	return out
}

// SpaceID returns the id of the space token, or -1.
func (v *Vocabulary) SpaceID() int { return v.spaceID }

// ApostropheID returns the id of the apostrophe token, or -1.
func (v *Vocabulary) ApostropheID() int { return v.apostropheID }

// Valid reports whether id indexes a token.
func (v *Vocabulary) Valid(id int) bool { return id >= 0 && id < len(v.tokens) }

// Concat joins the tokens for ids into one word, dropping the separator
// runes that mark word starts.
func (v *Vocabulary) Concat(ids []int, separator rune) string {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(trimSeparator(v.Token(id), separator))
	}
	return b.String()
}

// Text renders ids as display text. In sub-word mode a token that starts
// with the separator begins a new word and any other token extends the
// current one.
func (v *Vocabulary) Text(ids []int, bpe bool, separator rune) string {
	var b strings.Builder
	for _, id := range ids {
		tok := v.Token(id)
		if bpe && startsWithSeparator(tok, separator) {
			tok = trimSeparator(tok, separator)
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		}
		b.WriteString(tok)
	}
	return strings.TrimSpace(b.String())
}

// IsMergeableSubword reports whether the sub-word token with symbolID
// continues the word ended by parentID rather than starting a new one.
// Word-initial tokens carry a leading separator ("#hel" with separator
// '#'); every other token extends the current word. An apostrophe on either
// side never forces a boundary.
func IsMergeableSubword(token string, symbolID, parentID, apostropheID int, separator rune) bool {
	if apostropheID >= 0 && (symbolID == apostropheID || parentID == apostropheID) {
		return true
	}
	return !startsWithSeparator(token, separator)
}

// Normalize returns the NFC form of s.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// SplitGraphemes splits s into user-perceived characters.
func SplitGraphemes(s string) []string {
	out := make([]string, 0, utf8.RuneCountInString(s))
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		out = append(out, gr.Str())
	}
	return out
}

func startsWithSeparator(tok string, separator rune) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return r != utf8.RuneError && r == separator
}

func trimSeparator(tok string, separator rune) string {
	return strings.TrimLeft(tok, string(separator))
}
