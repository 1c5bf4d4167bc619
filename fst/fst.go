// Package fst implements a small weighted finite-state acceptor over integer
// labels in the tropical semiring, enough to build, optimize, persist and
// query lexicon automata. Label 0 is epsilon.
package fst

import (
	"math"
	"sort"
)

// StateID identifies a state. NoState marks an absent state.
type StateID = int

const (
	NoState StateID = -1
	Epsilon         = 0
)

// Weight is a tropical semiring weight: Plus is min, Times is +.
type Weight float32

// One is the multiplicative identity (a free transition or final state).
const One Weight = 0

// Zero is the additive identity (no path).
func Zero() Weight { return Weight(math.Inf(1)) }

// IsZero reports whether w is the semiring zero.
func (w Weight) IsZero() bool { return math.IsInf(float64(w), 1) }

func plus(a, b Weight) Weight {
	if a < b {
		return a
	}
	return b
}

// Arc is a transition. Acceptors built by this package keep ILabel == OLabel.
type Arc struct {
	ILabel    int
	OLabel    int
	Weight    Weight
	NextState StateID
}

type state struct {
	final Weight
	arcs  []Arc
}

// Fst is a mutable automaton. It is not safe for concurrent mutation, but
// concurrent reads of a fully built Fst are safe.
type Fst struct {
	start  StateID
	states []state
	sorted bool
}

// New returns an empty automaton with no states.
func New() *Fst {
	return &Fst{start: NoState, sorted: true}
}

// AddState appends a non-final state and returns its id.
func (f *Fst) AddState() StateID {
	f.states = append(f.states, state{final: Zero()})
	return len(f.states) - 1
}

// SetStart sets the initial state.
func (f *Fst) SetStart(s StateID) { f.start = s }

// Start returns the initial state, or NoState.
func (f *Fst) Start() StateID { return f.start }

// SetFinal sets the final weight of s. Zero() makes s non-final.
func (f *Fst) SetFinal(s StateID, w Weight) { f.states[s].final = w }

// Final returns the final weight of s.
func (f *Fst) Final(s StateID) Weight { return f.states[s].final }

// IsFinal reports whether s has a non-zero final weight.
func (f *Fst) IsFinal(s StateID) bool { return !f.states[s].final.IsZero() }

// AddArc appends an arc leaving s.
func (f *Fst) AddArc(s StateID, arc Arc) {
	f.states[s].arcs = append(f.states[s].arcs, arc)
	f.sorted = false
}

// Arcs returns the arcs leaving s. The slice must not be modified.
func (f *Fst) Arcs(s StateID) []Arc { return f.states[s].arcs }

// NumStates returns the number of states.
func (f *Fst) NumStates() int { return len(f.states) }

// NumArcs returns the total number of arcs.
func (f *Fst) NumArcs() int {
	n := 0
	for i := range f.states {
		n += len(f.states[i].arcs)
	}
	return n
}

// ArcSort orders the arcs of every state by input label so Find can use
// binary search.
func (f *Fst) ArcSort() {
	for i := range f.states {
		arcs := f.states[i].arcs
		sort.SliceStable(arcs, func(a, b int) bool { return arcs[a].ILabel < arcs[b].ILabel })
	}
	f.sorted = true
}

// Find returns the first arc leaving s with the given input label.
func (f *Fst) Find(s StateID, label int) (Arc, bool) {
	if s < 0 || s >= len(f.states) {
		return Arc{}, false
	}
	arcs := f.states[s].arcs
	if f.sorted {
		i := sort.Search(len(arcs), func(i int) bool { return arcs[i].ILabel >= label })
		if i < len(arcs) && arcs[i].ILabel == label {
			return arcs[i], true
		}
		return Arc{}, false
	}
	for _, a := range arcs {
		if a.ILabel == label {
			return a, true
		}
	}
	return Arc{}, false
}

// AddPath inserts labels as a path from the start state, sharing any
// existing prefix, and marks the last state final with weight One. A start
// state is created if the automaton is empty. It reports whether the path
// was not already accepted.
func (f *Fst) AddPath(labels []int) bool {
	if f.start == NoState {
		f.SetStart(f.AddState())
	}
	cur := f.start
	added := false
	for _, l := range labels {
		if arc, ok := f.Find(cur, l); ok {
			cur = arc.NextState
			continue
		}
		next := f.AddState()
		f.AddArc(cur, Arc{ILabel: l, OLabel: l, Weight: One, NextState: next})
		cur = next
		added = true
	}
	if !f.IsFinal(cur) {
		added = true
	}
	f.SetFinal(cur, One)
	return added
}

// Accepts reports whether the label sequence is in the automaton's language.
// Epsilon arcs are followed.
func (f *Fst) Accepts(labels []int) bool {
	if f.start == NoState {
		return false
	}
	cur := f.epsClosure(map[StateID]bool{f.start: true})
	for _, l := range labels {
		next := make(map[StateID]bool)
		for s := range cur {
			for _, a := range f.states[s].arcs {
				if a.ILabel == l && l != Epsilon {
					next[a.NextState] = true
				}
			}
		}
		if len(next) == 0 {
			return false
		}
		cur = f.epsClosure(next)
	}
	for s := range cur {
		if f.IsFinal(s) {
			return true
		}
	}
	return false
}

func (f *Fst) epsClosure(set map[StateID]bool) map[StateID]bool {
	stack := make([]StateID, 0, len(set))
	for s := range set {
		stack = append(stack, s)
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, a := range f.states[s].arcs {
			if a.ILabel == Epsilon && !set[a.NextState] {
				set[a.NextState] = true
				stack = append(stack, a.NextState)
			}
		}
	}
	return set
}

// Paths enumerates accepted label sequences (epsilons dropped) in
// depth-first arc order, stopping after limit paths when limit > 0.
// The automaton must be acyclic.
func (f *Fst) Paths(limit int) [][]int {
	var out [][]int
	if f.start == NoState {
		return out
	}
	var walk func(s StateID, prefix []int) bool
	walk = func(s StateID, prefix []int) bool {
		if f.IsFinal(s) {
			out = append(out, append([]int(nil), prefix...))
			if limit > 0 && len(out) >= limit {
				return false
			}
		}
		for _, a := range f.states[s].arcs {
			p := prefix
			if a.ILabel != Epsilon {
				p = append(prefix, a.ILabel)
			}
			if !walk(a.NextState, p) {
				return false
			}
		}
		return true
	}
	walk(f.start, nil)
	return out
}

// IsTrie reports whether f is a prefix tree: no epsilon arcs, nothing
// enters the start state, and every other state has at most one incoming
// arc. AddPath only shares prefixes correctly on a trie.
func (f *Fst) IsTrie() bool {
	in := make([]int, len(f.states))
	for i := range f.states {
		for _, a := range f.states[i].arcs {
			if a.ILabel == Epsilon {
				return false
			}
			in[a.NextState]++
		}
	}
	for s, n := range in {
		if n > 1 || (s == f.start && n > 0) {
			return false
		}
	}
	return true
}

// Unfold returns a trie accepting the same language as the acyclic f.
func Unfold(f *Fst) *Fst {
	t := New()
	if f.start == NoState {
		return t
	}
	t.SetStart(t.AddState())
	for _, p := range f.Paths(0) {
		t.AddPath(p)
	}
	t.ArcSort()
	return t
}

// Copy returns a deep copy of f.
func (f *Fst) Copy() *Fst {
	c := &Fst{start: f.start, sorted: f.sorted, states: make([]state, len(f.states))}
	for i, s := range f.states {
		c.states[i] = state{final: s.final, arcs: append([]Arc(nil), s.arcs...)}
	}
	return c
}

// Equal reports whether a and b are identical state by state and arc by arc.
func Equal(a, b *Fst) bool {
	if a.start != b.start || len(a.states) != len(b.states) {
		return false
	}
	for i := range a.states {
		sa, sb := a.states[i], b.states[i]
		if sa.final != sb.final && !(sa.final.IsZero() && sb.final.IsZero()) {
			return false
		}
		if len(sa.arcs) != len(sb.arcs) {
			return false
		}
		for j := range sa.arcs {
			if sa.arcs[j] != sb.arcs[j] {
				return false
			}
		}
	}
	return true
}
