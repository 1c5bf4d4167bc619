package decoder

import (
	"math"
	"math/rand"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/ieee0824/ctcdecode-go/fst"
	"github.com/ieee0824/ctcdecode-go/hotword"
	"github.com/ieee0824/ctcdecode-go/internal/mathutil"
	"github.com/ieee0824/ctcdecode-go/language"
	"github.com/ieee0824/ctcdecode-go/vocab"
)

var abcVocab = vocab.MustNew([]string{"_", "a", "b", "c"})

// peaked builds a probability sequence putting p on ids[t] at each step and
// spreading the rest evenly.
func peaked(classes int, ids []int, p float64) [][]float64 {
	m := mathutil.NewMat(len(ids), classes)
	for t, id := range ids {
		for c := range m[t] {
			m[t][c] = (1 - p) / float64(classes-1)
		}
		m[t][id] = p
	}
	return m
}

func randomProbs(rng *rand.Rand, steps, classes int) [][]float64 {
	m := mathutil.NewMat(steps, classes)
	for t := range m {
		sum := 0.0
		for c := range m[t] {
			m[t][c] = math.Exp(3 * rng.NormFloat64())
			sum += m[t][c]
		}
		for c := range m[t] {
			m[t][c] /= sum
		}
	}
	return m
}

func newTestDecoder(t *testing.T, v *vocab.Vocabulary, mutate func(*Options), opts ...Option) *Decoder {
	t.Helper()
	o := DefaultOptions(v)
	o.BeamWidth = 5
	if mutate != nil {
		mutate(&o)
	}
	d, err := New(o, opts...)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return d
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func newScorer(t *testing.T, v *vocab.Vocabulary, arpa string, cfg language.ScorerConfig) *language.Scorer {
	t.Helper()
	model, err := language.LoadARPA(strings.NewReader(arpa))
	if err != nil {
		t.Fatal(err)
	}
	s, err := language.NewScorerFromModel(model, cfg, v)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newWordScorer(t *testing.T, v *vocab.Vocabulary, arpa string, cfg language.ScorerConfig) *language.Scorer {
	t.Helper()
	if cfg.Alpha == 0 && cfg.Beta == 0 {
		cfg.Alpha = 1
	}
	cfg.Granularity = vocab.Word
	return newScorer(t, v, arpa, cfg)
}

func TestDecodePeaked(t *testing.T) {
	d := newTestDecoder(t, abcVocab, nil)
	probs := peaked(4, []int{1, 0, 2}, 0.97)

	got := d.Decode(probs)
	if len(got) == 0 {
		t.Fatal("no hypotheses")
	}
	top := got[0]
	if !reflect.DeepEqual(top.Tokens, []int{1, 2}) {
		t.Errorf("Tokens = %v, want [1 2]", top.Tokens)
	}
	if !reflect.DeepEqual(top.Timesteps, []int{0, 2}) {
		t.Errorf("Timesteps = %v, want [0 2]", top.Timesteps)
	}
	if text := top.Text(abcVocab, false, '#'); text != "ab" {
		t.Errorf("Text = %q, want ab", text)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		want   error
	}{
		{"num_processes zero", func(o *Options) { o.NumProcesses = 0 }, ErrInvalidNumProcesses},
		{"beam zero", func(o *Options) { o.BeamWidth = 0 }, ErrInvalidBeamWidth},
		{"cutoff prob zero", func(o *Options) { o.CutoffProb = 0 }, ErrInvalidCutoffProb},
		{"cutoff prob above one", func(o *Options) { o.CutoffProb = 1.5 }, ErrInvalidCutoffProb},
		{"cutoff top n zero", func(o *Options) { o.CutoffTopN = 0 }, ErrInvalidCutoffTopN},
		{"blank out of range", func(o *Options) { o.BlankID = 4 }, ErrInvalidBlankID},
		{"no vocabulary", func(o *Options) { o.Vocabulary = nil }, vocab.ErrEmpty},
	}
	for _, tt := range tests {
		o := DefaultOptions(abcVocab)
		tt.mutate(&o)
		if _, err := New(o); !errors.Is(err, tt.want) {
			t.Errorf("%s: New err = %v, want %v", tt.name, err, tt.want)
		}
	}

	d := newTestDecoder(t, abcVocab, nil)
	if got := d.Options().CutoffTopN; got != 4 {
		t.Errorf("CutoffTopN = %d, want clamped to 4", got)
	}
}

func checkResult(t *testing.T, r BatchResult, batch int, beam int) {
	t.Helper()
	if len(r) != batch {
		t.Fatalf("len(result) = %d, want %d", len(r), batch)
	}
	for b, hyps := range r {
		if len(hyps) == 0 || len(hyps) > beam {
			t.Errorf("utterance %d: %d hypotheses, beam %d", b, len(hyps), beam)
		}
		seen := make(map[string]bool)
		for k, h := range hyps {
			if k > 0 && h.Score > hyps[k-1].Score {
				t.Errorf("utterance %d: score[%d] = %v > score[%d] = %v", b, k, h.Score, k-1, hyps[k-1].Score)
			}
			if len(h.Tokens) != len(h.Timesteps) {
				t.Errorf("utterance %d/%d: %d tokens, %d timesteps", b, k, len(h.Tokens), len(h.Timesteps))
			}
			for i := 1; i < len(h.Timesteps); i++ {
				if h.Timesteps[i] < h.Timesteps[i-1] {
					t.Errorf("utterance %d/%d: timesteps decrease: %v", b, k, h.Timesteps)
				}
			}
			key := formatInts(h.Tokens)
			if seen[key] {
				t.Errorf("utterance %d: duplicate hypothesis %v", b, h.Tokens)
			}
			seen[key] = true
		}
	}
}

func formatInts(ids []int) string {
	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString(string(rune('A' + id)))
	}
	return sb.String()
}

func TestDecodeBatchProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	v := vocab.MustNew([]string{"_", "a", "b", "c", "d", "e"})
	batch := make([][][]float64, 7)
	for i := range batch {
		batch[i] = randomProbs(rng, 3+rng.Intn(12), v.Size())
	}
	batch = append(batch, nil) // empty utterance

	d := newTestDecoder(t, v, func(o *Options) { o.BeamWidth = 4; o.NumProcesses = 3 })
	r := d.DecodeBatch(batch)
	checkResult(t, r, len(batch), 4)

	again := d.DecodeBatch(batch)
	if !reflect.DeepEqual(r, again) {
		t.Error("decoding the same batch twice gave different results")
	}

	serial := newTestDecoder(t, v, func(o *Options) { o.BeamWidth = 4; o.NumProcesses = 1 })
	if !reflect.DeepEqual(r, serial.DecodeBatch(batch)) {
		t.Error("result depends on the number of workers")
	}

	if last := r[len(r)-1]; len(last) != 1 || len(last[0].Tokens) != 0 {
		t.Errorf("empty utterance = %v, want one empty hypothesis", last)
	}
}

func TestLogProbsInput(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	probs := randomProbs(rng, 10, abcVocab.Size())
	logs := mathutil.NewMat(len(probs), abcVocab.Size())
	for i := range probs {
		for j := range probs[i] {
			logs[i][j] = math.Log(probs[i][j])
		}
	}
	lin := newTestDecoder(t, abcVocab, nil).Decode(probs)
	lg := newTestDecoder(t, abcVocab, func(o *Options) { o.LogProbsInput = true }).Decode(logs)
	if len(lin) != len(lg) {
		t.Fatalf("linear %d hypotheses, log %d", len(lin), len(lg))
	}
	for i := range lin {
		if !reflect.DeepEqual(lin[i].Tokens, lg[i].Tokens) || math.Abs(lin[i].Score-lg[i].Score) > 1e-6 {
			t.Errorf("[%d] linear %v, log %v", i, lin[i], lg[i])
		}
	}
}

func TestStreamingEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	d := newTestDecoder(t, abcVocab, func(o *Options) { o.BeamWidth = 8 })
	for iter := 0; iter < 10; iter++ {
		probs := randomProbs(rng, 12, abcVocab.Size())
		full := d.Decode(probs)

		split := 1 + rng.Intn(len(probs)-1)
		states := make([]*State, 1)
		first := d.DecodeBatchStreaming([][][]float64{mathutil.SliceRows(probs, 0, split)}, states, []bool{false})
		if states[0] == nil {
			t.Fatal("streaming did not allocate a state")
		}
		if len(first[0]) == 0 {
			t.Fatal("no hypotheses after first chunk")
		}
		second := d.DecodeBatchStreaming([][][]float64{mathutil.SliceRows(probs, split, len(probs))}, states, []bool{true})
		if states[0].Frames() != len(probs) {
			t.Errorf("Frames = %d, want %d", states[0].Frames(), len(probs))
		}
		if !reflect.DeepEqual(full[0], second[0][0]) {
			t.Errorf("iter %d: streaming top %v, full top %v", iter, second[0][0], full[0])
		}
		if !reflect.DeepEqual(full, second[0]) {
			t.Errorf("iter %d: streaming beam differs from full decode", iter)
		}
		states[0].Release()
	}
}

func TestStatePreconditions(t *testing.T) {
	d := newTestDecoder(t, abcVocab, nil)

	s := d.NewState()
	if s.ID() == d.NewState().ID() {
		t.Error("states share an id")
	}
	s.Release()
	mustPanic(t, "Next after Release", func() { s.Next(peaked(4, []int{1}, 0.9)) })
	mustPanic(t, "Decode after Release", func() { s.Decode(true) })
	mustPanic(t, "streaming with released state", func() {
		d.DecodeBatchStreaming([][][]float64{nil}, []*State{s}, []bool{true})
	})

	var zero State
	mustPanic(t, "zero State", func() { zero.Decode(true) })

	mustPanic(t, "misaligned states", func() {
		d.DecodeBatchStreaming(make([][][]float64, 2), make([]*State, 1), make([]bool, 2))
	})
	mustPanic(t, "misaligned flags", func() {
		d.DecodeBatchStreaming(make([][][]float64, 2), make([]*State, 2), make([]bool, 3))
	})
	mustPanic(t, "row width", func() {
		st := d.NewState()
		st.Next([][]float64{{0.5, 0.5}})
	})
}

func TestScorerAccessors(t *testing.T) {
	d := newTestDecoder(t, abcVocab, nil)
	mustPanic(t, "IsCharacterBased", func() { d.IsCharacterBased() })
	mustPanic(t, "IsBPEBased", func() { d.IsBPEBased() })
	mustPanic(t, "MaxOrder", func() { d.MaxOrder() })
	mustPanic(t, "LexiconSize", func() { d.LexiconSize() })
	mustPanic(t, "ResetLMWeights", func() { d.ResetLMWeights(1, 1) })

	v := vocab.MustNew([]string{"_", " ", "a", "b"})
	lm := newWordScorer(t, v, unigramARPA, language.ScorerConfig{})
	d = newTestDecoder(t, v, nil, WithScorer(lm))
	if d.IsCharacterBased() || d.IsBPEBased() {
		t.Error("word scorer reported as character or bpe based")
	}
	if d.MaxOrder() != 1 || d.LexiconSize() != 2 {
		t.Errorf("MaxOrder = %d, LexiconSize = %d", d.MaxOrder(), d.LexiconSize())
	}
}

const unigramARPA = `\data\
ngram 1=4

\1-grams:
-1.0	<s>
-1.0	</s>
-0.05	a
-2.0	b

\end\
`

func TestLanguageModelFinalWord(t *testing.T) {
	v := vocab.MustNew([]string{"_", " ", "a", "b"})
	probs := [][]float64{{0, 0, 0.45, 0.55}}

	plain := newTestDecoder(t, v, nil)
	if top := plain.Decode(probs)[0]; !reflect.DeepEqual(top.Tokens, []int{3}) {
		t.Errorf("without LM top = %v, want [3]", top.Tokens)
	}

	lm := newWordScorer(t, v, unigramARPA, language.ScorerConfig{Alpha: 1})
	d := newTestDecoder(t, v, nil, WithScorer(lm))
	top := d.Decode(probs)[0]
	if !reflect.DeepEqual(top.Tokens, []int{2}) {
		t.Errorf("with LM top = %v, want [2]", top.Tokens)
	}
	want := math.Log(0.45+fltMin) - 0.05*math.Ln10
	if math.Abs(top.Score-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", top.Score, want)
	}

	// The open word is only scored at end of stream.
	s := d.NewState()
	s.Next(probs)
	if top := s.Decode(false)[0]; !reflect.DeepEqual(top.Tokens, []int{3}) {
		t.Errorf("before end of stream top = %v, want [3]", top.Tokens)
	}
	s.Release()

	d.ResetLMWeights(0, 0)
	if top := d.Decode(probs)[0]; !reflect.DeepEqual(top.Tokens, []int{3}) {
		t.Errorf("alpha 0 top = %v, want [3]", top.Tokens)
	}
}

func TestLanguageModelWordBoundary(t *testing.T) {
	v := vocab.MustNew([]string{"_", " ", "a", "b"})
	probs := [][]float64{
		{0, 0, 0.45, 0.55},
		{0.01, 0.97, 0.01, 0.01},
	}

	plain := newTestDecoder(t, v, nil)
	if top := plain.Decode(probs)[0]; !reflect.DeepEqual(top.Tokens, []int{3, 1}) {
		t.Errorf("without LM top = %v, want [3 1]", top.Tokens)
	}

	lm := newWordScorer(t, v, unigramARPA, language.ScorerConfig{Alpha: 1})
	d := newTestDecoder(t, v, nil, WithScorer(lm))
	s := d.NewState()
	defer s.Release()
	s.Next(probs)
	if top := s.Decode(false)[0]; !reflect.DeepEqual(top.Tokens, []int{2, 1}) {
		t.Errorf("with LM top = %v, want [2 1]", top.Tokens)
	}
}

const bigramARPA = `\data\
ngram 1=4
ngram 2=2

\1-grams:
-1.0	<s>	-0.3
-1.0	</s>
-0.5	ab	-0.2
-0.7	ba	-0.2

\2-grams:
-0.1	<s>	ab
-0.2	ab	ba

\end\
`

func TestGranularityScoring(t *testing.T) {
	ln10 := math.Ln10
	tests := []struct {
		name        string
		tokens      []string
		granularity vocab.Granularity
		arpa        string
		beta        float64
		probs       [][]float64
		// best hypothesis before and at end of stream
		wantOpen       []int
		wantOpenScore  float64
		wantFinal      []int
		wantFinalScore float64
	}{
		{
			name:           "bpe open word scored at end",
			tokens:         []string{"_", "#a", "#b"},
			granularity:    vocab.BPE,
			arpa:           unigramARPA,
			probs:          [][]float64{{0, 0.45, 0.55}},
			wantOpen:       []int{2},
			wantOpenScore:  math.Log(0.55 + fltMin),
			wantFinal:      []int{1},
			wantFinalScore: math.Log(0.45+fltMin) - 0.05*ln10,
		},
		{
			name:           "bpe word boundary on marked token",
			tokens:         []string{"_", "#a", "b", "#b", "a"},
			granularity:    vocab.BPE,
			arpa:           bigramARPA,
			beta:           0.5,
			probs:          peaked(5, []int{1, 2, 3, 4}, 1),
			wantOpen:       []int{1, 2, 3, 4},
			wantOpenScore:  -0.1*ln10 + 0.5,
			wantFinal:      []int{1, 2, 3, 4},
			wantFinalScore: -0.1*ln10 + 0.5 - 0.2*ln10 + 0.5,
		},
		{
			name:           "character scored on emission",
			tokens:         []string{"_", " ", "a", "b"},
			granularity:    vocab.Character,
			arpa:           unigramARPA,
			probs:          [][]float64{{0, 0, 0.45, 0.55}},
			wantOpen:       []int{2},
			wantOpenScore:  math.Log(0.45+fltMin) - 0.05*ln10,
			wantFinal:      []int{2},
			wantFinalScore: math.Log(0.45+fltMin) - 0.05*ln10,
		},
		{
			name:           "character space not scored",
			tokens:         []string{"_", " ", "a", "b"},
			granularity:    vocab.Character,
			arpa:           unigramARPA,
			probs:          peaked(4, []int{2, 1}, 1),
			wantOpen:       []int{2, 1},
			wantOpenScore:  -0.05 * ln10,
			wantFinal:      []int{2, 1},
			wantFinalScore: -0.05 * ln10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := vocab.MustNew(tt.tokens)
			lm := newScorer(t, v, tt.arpa, language.ScorerConfig{
				Alpha:          1,
				Beta:           tt.beta,
				Granularity:    tt.granularity,
				TokenSeparator: '#',
			})
			d := newTestDecoder(t, v, func(o *Options) { o.IsBPEBased = tt.granularity == vocab.BPE }, WithScorer(lm))

			s := d.NewState()
			defer s.Release()
			s.Next(tt.probs)
			open := s.Decode(false)[0]
			if !reflect.DeepEqual(open.Tokens, tt.wantOpen) {
				t.Errorf("open top = %v, want %v", open.Tokens, tt.wantOpen)
			}
			if math.Abs(open.Score-tt.wantOpenScore) > 1e-9 {
				t.Errorf("open Score = %v, want %v", open.Score, tt.wantOpenScore)
			}
			final := s.Decode(true)[0]
			if !reflect.DeepEqual(final.Tokens, tt.wantFinal) {
				t.Errorf("final top = %v, want %v", final.Tokens, tt.wantFinal)
			}
			if math.Abs(final.Score-tt.wantFinalScore) > 1e-9 {
				t.Errorf("final Score = %v, want %v", final.Score, tt.wantFinalScore)
			}
			if got := d.Decode(tt.probs)[0]; !reflect.DeepEqual(got, final) {
				t.Errorf("Decode = %v, streaming end = %v", got, final)
			}
		})
	}
}

func TestSubwordLexiconConstraint(t *testing.T) {
	v := vocab.MustNew([]string{"_", "#a", "b", "#b", "a"})
	// labels are token ids plus one: ab = #a b, ba = #b a
	lex := fst.New()
	lex.AddPath([]int{2, 3})
	lex.AddPath([]int{4, 5})
	opt, err := fst.Optimize(lex)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "lexicon.fst.opt")
	if err := opt.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	arpa := `\data\
ngram 1=4

\1-grams:
-1.0	<s>
-1.0	</s>
-0.3	ab
-0.3	ba

\end\
`
	probs := [][]float64{
		{0, 0.6, 0, 0.4, 0},
		{0, 0, 0.45, 0, 0.55},
	}

	plain := newTestDecoder(t, v, func(o *Options) { o.IsBPEBased = true })
	if top := plain.Decode(probs)[0]; !reflect.DeepEqual(top.Tokens, []int{1, 4}) {
		t.Errorf("without lexicon top = %v, want [1 4]", top.Tokens)
	}

	lm := newScorer(t, v, arpa, language.ScorerConfig{
		Alpha:          1,
		Granularity:    vocab.BPE,
		LexiconFSTPath: path,
		TokenSeparator: '#',
	})
	if lm.Dictionary() == nil {
		t.Fatal("no dictionary")
	}
	d := newTestDecoder(t, v, func(o *Options) { o.IsBPEBased = true }, WithScorer(lm))
	hyps := d.Decode(probs)
	if !reflect.DeepEqual(hyps[0].Tokens, []int{1, 2}) {
		t.Errorf("with lexicon top = %v, want [1 2]", hyps[0].Tokens)
	}
	if want := math.Log(0.6+fltMin) + math.Log(0.45+fltMin) - 0.3*math.Ln10; math.Abs(hyps[0].Score-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", hyps[0].Score, want)
	}
	for _, h := range hyps {
		text := h.Text(v, true, '#')
		for _, word := range strings.Fields(text) {
			if !strings.HasPrefix("ab", word) && !strings.HasPrefix("ba", word) {
				t.Errorf("hypothesis %q (%v) leaves the lexicon", text, h.Tokens)
			}
		}
	}
}

func TestUnknownWordScore(t *testing.T) {
	v := vocab.MustNew([]string{"_", " ", "a", "b", "c"})
	lm := newWordScorer(t, v, unigramARPA, language.ScorerConfig{Alpha: 1, Beta: 0.5})
	d := newTestDecoder(t, v, func(o *Options) { o.UnkScore = -7 }, WithScorer(lm))
	top := d.Decode([][]float64{{0, 0, 0, 0, 1}})[0]
	if !reflect.DeepEqual(top.Tokens, []int{4}) {
		t.Fatalf("top = %v, want [4]", top.Tokens)
	}
	if want := math.Log(1+fltMin) - 7 + 0.5; math.Abs(top.Score-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", top.Score, want)
	}
}

func TestLexiconConstraint(t *testing.T) {
	v := vocab.MustNew([]string{"_", " ", "a", "b"})
	arpa := `\data\
ngram 1=3

\1-grams:
-1.0	<s>
-1.0	</s>
-0.1	ab

\end\
`
	probs := [][]float64{
		{0, 0, 0.4, 0.6},
		{0, 0, 0.1, 0.9},
	}

	plain := newTestDecoder(t, v, nil)
	if top := plain.Decode(probs)[0]; !reflect.DeepEqual(top.Tokens, []int{3}) {
		t.Errorf("without lexicon top = %v, want [3]", top.Tokens)
	}

	lm := newWordScorer(t, v, arpa, language.ScorerConfig{Alpha: 1, BuildDictionary: true})
	if lm.Dictionary() == nil {
		t.Fatal("no dictionary")
	}
	d := newTestDecoder(t, v, nil, WithScorer(lm))
	hyps := d.Decode(probs)
	if !reflect.DeepEqual(hyps[0].Tokens, []int{2, 3}) {
		t.Errorf("with lexicon top = %v, want [2 3]", hyps[0].Tokens)
	}
	for _, h := range hyps {
		for _, word := range strings.Fields(h.Text(v, false, '#')) {
			if !strings.HasPrefix("ab", word) {
				t.Errorf("hypothesis %q leaves the lexicon", h.Text(v, false, '#'))
			}
		}
	}
}

func TestHotwords(t *testing.T) {
	probs := [][][]float64{{{0.05, 0.05, 0.5, 0.4}}}
	d := newTestDecoder(t, abcVocab, nil)
	if top := d.DecodeBatch(probs)[0][0]; !reflect.DeepEqual(top.Tokens, []int{2}) {
		t.Errorf("without hotwords top = %v, want [2]", top.Tokens)
	}

	hw, err := hotword.New(abcVocab, [][]string{{"c"}}, []float64{2}, '#', false)
	if err != nil {
		t.Fatal(err)
	}
	top := d.DecodeBatch(probs, WithHotwords(hw))[0][0]
	if !reflect.DeepEqual(top.Tokens, []int{3}) {
		t.Errorf("with hotword top = %v, want [3]", top.Tokens)
	}
	if want := math.Log(0.4+fltMin) + 2; math.Abs(top.Score-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", top.Score, want)
	}
}

func TestBatchFromDense(t *testing.T) {
	data := make([]float32, 2*3*2)
	for i := range data {
		data[i] = float32(i)
	}
	batch, err := BatchFromDense(data, 2, 3, 2, []int{5, 1})
	if err != nil {
		t.Fatalf("BatchFromDense error: %v", err)
	}
	want := [][][]float64{
		{{0, 1}, {2, 3}, {4, 5}},
		{{6, 7}},
	}
	if !reflect.DeepEqual(batch, want) {
		t.Errorf("batch = %v, want %v", batch, want)
	}

	if b, err := BatchFromDense(data, 2, 3, 2, []int{-1, 0}); err != nil || len(b[0]) != 0 || len(b[1]) != 0 {
		t.Errorf("negative lengths: %v, %v", b, err)
	}
	if _, err := BatchFromDense(data[:5], 2, 3, 2, []int{1, 1}); err == nil {
		t.Error("expected error for short buffer")
	}
	if _, err := BatchFromDense(data, 2, 3, 2, []int{1}); err == nil {
		t.Error("expected error for missing length")
	}
}

func TestPadBatch(t *testing.T) {
	r := BatchResult{
		{
			{Score: -1, Output: Output{Tokens: []int{1, 2}, Timesteps: []int{0, 2}}},
			{Score: -3, Output: Output{Tokens: []int{1}, Timesteps: []int{0}}},
		},
		{},
	}
	p := PadBatch(r, 3)
	if len(p.Tokens) != 2 || len(p.Tokens[0]) != 3 || len(p.Tokens[0][0]) != 2 {
		t.Fatalf("shape = %d x %d x %d", len(p.Tokens), len(p.Tokens[0]), len(p.Tokens[0][0]))
	}
	if !reflect.DeepEqual(p.Tokens[0][1], []int{1, 0}) || !reflect.DeepEqual(p.Timesteps[0][0], []int{0, 2}) {
		t.Errorf("tokens %v timesteps %v", p.Tokens[0], p.Timesteps[0])
	}
	if !reflect.DeepEqual(p.Lengths, [][]int{{2, 1, 0}, {0, 0, 0}}) {
		t.Errorf("Lengths = %v", p.Lengths)
	}
	if !reflect.DeepEqual(p.Scores[0], []float64{-1, -3, 0}) {
		t.Errorf("Scores = %v", p.Scores[0])
	}
	if !reflect.DeepEqual(p.Tokens[1][2], []int{0, 0}) {
		t.Errorf("padding = %v, want zeros", p.Tokens[1][2])
	}
}
