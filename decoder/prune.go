package decoder

import (
	"math"
	"sort"
)

// fltMin is the smallest normal float32. It keeps log(p) finite for
// zero-probability classes in linear input.
const fltMin = 1.17549435082228750797e-38

// Candidate is one class kept by PruneTimestep.
type Candidate struct {
	ID      int
	LogProb float64
}

// PruneTimestep returns at most cutoffTopN classes of one timestep, most
// probable first. Classes are added until their accumulated probability
// reaches cutoffProb; with cutoffProb >= 1 only the cutoffTopN cap applies.
// probs holds log probabilities when logInput is set and linear
// probabilities otherwise. Mass is always accumulated in linear space.
// Equal probabilities keep class id order.
func PruneTimestep(probs []float64, cutoffProb float64, cutoffTopN int, logInput bool) []Candidate {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})

	n := min(cutoffTopN, len(idx))
	if cutoffProb < 1.0 {
		cum := 0.0
		for i := 0; i < n; i++ {
			p := probs[idx[i]]
			if logInput {
				p = math.Exp(p)
			}
			cum += p
			if cum >= cutoffProb {
				n = i + 1
				break
			}
		}
	}

	out := make([]Candidate, n)
	for i := range out {
		id := idx[i]
		lp := probs[id]
		if !logInput {
			lp = math.Log(lp + fltMin)
		}
		out[i] = Candidate{ID: id, LogProb: lp}
	}
	return out
}

// CompareScores orders hypotheses by score, highest first. It returns a
// negative number when a ranks before b and zero for ties, which callers
// resolve with a stable sort.
func CompareScores(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

// SortHypotheses sorts h by descending score. Hypotheses with equal scores
// keep their relative order.
func SortHypotheses(h []ScoredOutput) {
	sort.SliceStable(h, func(i, j int) bool {
		return CompareScores(h[i].Score, h[j].Score) < 0
	})
}
