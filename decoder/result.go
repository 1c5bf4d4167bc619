package decoder

import (
	"github.com/ieee0824/ctcdecode-go/vocab"
)

// Output is one decoded hypothesis. Timesteps[i] is the frame at which
// Tokens[i] was emitted.
type Output struct {
	Tokens    []int
	Timesteps []int
}

// Text renders the tokens with v.
func (o Output) Text(v *vocab.Vocabulary, bpe bool, separator rune) string {
	return v.Text(o.Tokens, bpe, separator)
}

// ScoredOutput pairs a hypothesis with its log-domain score; higher is
// better.
type ScoredOutput struct {
	Score float64
	Output
}

// BatchResult holds the ranked hypotheses of each utterance, index-aligned
// with the input batch.
type BatchResult [][]ScoredOutput

// Padded is a BatchResult laid out as dense arrays. Slots past a
// hypothesis' length, and hypotheses past an utterance's beam, are zero;
// Lengths tells how many token slots are valid.
type Padded struct {
	Tokens    [][][]int   // [batch][beam][maxLen]
	Timesteps [][][]int   // [batch][beam][maxLen]
	Scores    [][]float64 // [batch][beam]
	Lengths   [][]int     // [batch][beam]
}

// PadBatch lays r out as dense [batch][beamWidth][maxLen] arrays, where
// maxLen is the longest hypothesis in r.
func PadBatch(r BatchResult, beamWidth int) Padded {
	maxLen := 0
	for _, hyps := range r {
		for _, h := range hyps {
			maxLen = max(maxLen, len(h.Tokens))
		}
	}

	p := Padded{
		Tokens:    make([][][]int, len(r)),
		Timesteps: make([][][]int, len(r)),
		Scores:    make([][]float64, len(r)),
		Lengths:   make([][]int, len(r)),
	}
	for b, hyps := range r {
		p.Tokens[b] = make([][]int, beamWidth)
		p.Timesteps[b] = make([][]int, beamWidth)
		p.Scores[b] = make([]float64, beamWidth)
		p.Lengths[b] = make([]int, beamWidth)
		for k := 0; k < beamWidth; k++ {
			p.Tokens[b][k] = make([]int, maxLen)
			p.Timesteps[b][k] = make([]int, maxLen)
			if k >= len(hyps) {
				continue
			}
			h := hyps[k]
			copy(p.Tokens[b][k], h.Tokens)
			copy(p.Timesteps[b][k], h.Timesteps)
			p.Scores[b][k] = h.Score
			p.Lengths[b][k] = len(h.Tokens)
		}
	}
	return p
}
