package ctcdecode

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ieee0824/ctcdecode-go/decoder"
	"github.com/ieee0824/ctcdecode-go/internal/config"
	"github.com/ieee0824/ctcdecode-go/language"
	"github.com/ieee0824/ctcdecode-go/vocab"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const peakedProbs = `# a _ b
0.01 0.97 0.01 0.01
0.97 0.01 0.01 0.01

0.01 0.01 0.97 0.01
`

func newTestRecognizer(t *testing.T, opts ...Option) *Recognizer {
	t.Helper()
	dir := t.TempDir()
	path := writeFile(t, dir, "tokens.txt", "_\na\nb\nc\n")
	v, err := vocab.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	o := decoder.DefaultOptions(v)
	o.BeamWidth = 5
	r, err := NewRecognizer(path, append([]Option{WithDecoderOptions(o)}, opts...)...)
	if err != nil {
		t.Fatalf("NewRecognizer error: %v", err)
	}
	return r
}

func TestDecodeFile(t *testing.T) {
	r := newTestRecognizer(t)
	path := writeFile(t, t.TempDir(), "probs.txt", peakedProbs)
	hyps, err := r.DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile error: %v", err)
	}
	if got := r.Text(hyps[0].Output); got != "ab" {
		t.Errorf("Text = %q, want ab", got)
	}
	if !reflect.DeepEqual(hyps[0].Timesteps, []int{0, 2}) {
		t.Errorf("Timesteps = %v, want [0 2]", hyps[0].Timesteps)
	}
	if r.Decoder.Options().BeamWidth != 5 {
		t.Errorf("BeamWidth = %d, want 5", r.Decoder.Options().BeamWidth)
	}

	if _, err := r.DecodeFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStream(t *testing.T) {
	r := newTestRecognizer(t)
	probs, err := ReadProbs(strings.NewReader(peakedProbs))
	if err != nil {
		t.Fatal(err)
	}
	want := r.Decode(probs)

	s := r.NewStream()
	if partial := s.Feed(probs[:1]); r.Text(partial[0].Output) != "a" {
		t.Errorf("partial = %q, want a", r.Text(partial[0].Output))
	}
	s.Feed(probs[1:])
	got := s.Close()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("stream = %v, want %v", got, want)
	}
}

func TestHotwords(t *testing.T) {
	probs := [][]float64{{0.05, 0.05, 0.5, 0.4}}
	if got := newTestRecognizer(t).Decode(probs); len(got) == 0 || got[0].Tokens[0] != 2 {
		t.Fatalf("without hotwords = %v", got)
	}
	r := newTestRecognizer(t, WithHotwords([][]string{{"c"}}, []float64{2}))
	if r.Hotwords == nil {
		t.Fatal("no hotword scorer")
	}
	batch := r.DecodeBatch([][][]float64{probs})
	if got := r.Text(batch[0][0].Output); got != "c" {
		t.Errorf("Text = %q, want c", got)
	}

	dir := t.TempDir()
	path := writeFile(t, dir, "tokens.txt", "_\na\nb\nc\n")
	if _, err := NewRecognizer(path, WithHotwords([][]string{{"z"}}, []float64{1})); err == nil {
		t.Error("expected error for unknown hotword token")
	}
}

func TestLanguageModel(t *testing.T) {
	dir := t.TempDir()
	vocabPath := writeFile(t, dir, "tokens.txt", "_\n \na\nb\n")
	lmPath := writeFile(t, dir, "lm.arpa", `\data\
ngram 1=4

\1-grams:
-1.0	<s>
-1.0	</s>
-0.05	a
-2.0	b

\end\
`)
	probs := [][]float64{{0, 0, 0.45, 0.55}}

	plain, err := NewRecognizer(vocabPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := plain.Text(plain.Decode(probs)[0].Output); got != "b" {
		t.Errorf("without LM = %q, want b", got)
	}

	r, err := NewRecognizer(vocabPath, WithLanguageModel(language.ScorerConfig{
		Alpha: 1, LMPath: lmPath, Granularity: vocab.Word,
	}))
	if err != nil {
		t.Fatalf("NewRecognizer error: %v", err)
	}
	if got := r.Text(r.Decode(probs)[0].Output); got != "a" {
		t.Errorf("with LM = %q, want a", got)
	}
	if r.Decoder.MaxOrder() != 1 {
		t.Errorf("MaxOrder = %d, want 1", r.Decoder.MaxOrder())
	}

	if _, err := NewRecognizer(vocabPath, WithLanguageModel(language.ScorerConfig{
		LMPath: filepath.Join(dir, "missing.arpa"),
	})); err == nil {
		t.Error("expected error for missing model")
	}
}

func TestNewRecognizerFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Decoder.Vocabulary = writeFile(t, dir, "tokens.txt", "_\na\nb\nc\n")
	cfg.Decoder.BeamWidth = 3
	cfg.Hotwords = []config.Hotword{{Tokens: []string{"c"}, Weight: 2}}

	r, err := NewRecognizerFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewRecognizerFromConfig error: %v", err)
	}
	if r.Decoder.Options().BeamWidth != 3 || r.Hotwords == nil {
		t.Errorf("options = %+v, hotwords = %v", r.Decoder.Options(), r.Hotwords)
	}
	if r.Decoder.Scorer() != nil {
		t.Error("scorer attached without lm.path")
	}
	if got := r.Text(r.Decode([][]float64{{0.05, 0.05, 0.5, 0.4}})[0].Output); got != "c" {
		t.Errorf("configured hotword ignored: Text = %q, want c", got)
	}

	cfg.Hotwords = []config.Hotword{{Tokens: []string{"z"}, Weight: 1}}
	if _, err := NewRecognizerFromConfig(cfg); err == nil {
		t.Error("expected error for unknown hotword token")
	}

	cfg.Decoder.Vocabulary = ""
	if _, err := NewRecognizerFromConfig(cfg); err == nil {
		t.Error("expected error without vocabulary")
	}
	if _, err := NewRecognizer(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing vocabulary")
	}
}

func TestReadProbsErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"ragged", "0.5 0.5\n0.2 0.3 0.5\n"},
		{"not a number", "0.5 x\n"},
	}
	for _, tt := range tests {
		if _, err := ReadProbs(strings.NewReader(tt.in)); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
	probs, err := ReadProbs(strings.NewReader(""))
	if err != nil || len(probs) != 0 {
		t.Errorf("empty input = %v, %v", probs, err)
	}
}
