package fst

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotDeterministic is returned by Minimize for automata with epsilon
// arcs or with two arcs sharing a label at one state.
var ErrNotDeterministic = errors.New("fst: automaton is not deterministic")

// Optimize returns an epsilon-free, deterministic, minimal equivalent of f.
// f is left untouched.
func Optimize(f *Fst) (*Fst, error) {
	c := f.Copy()
	RmEpsilon(c)
	d := Determinize(c)
	m, err := Minimize(d)
	if err != nil {
		return nil, errors.Wrap(err, "optimize")
	}
	return m, nil
}

// Connect removes states that are unreachable from the start state or
// cannot reach a final state. Surviving states keep their relative order.
func Connect(f *Fst) {
	n := len(f.states)
	if f.start == NoState || n == 0 {
		f.states = nil
		f.start = NoState
		return
	}
	access := make([]bool, n)
	stack := []StateID{f.start}
	access[f.start] = true
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, a := range f.states[s].arcs {
			if !access[a.NextState] {
				access[a.NextState] = true
				stack = append(stack, a.NextState)
			}
		}
	}

	reverse := make([][]StateID, n)
	for s := range f.states {
		for _, a := range f.states[s].arcs {
			reverse[a.NextState] = append(reverse[a.NextState], s)
		}
	}
	coaccess := make([]bool, n)
	stack = stack[:0]
	for s := range f.states {
		if f.IsFinal(s) {
			coaccess[s] = true
			stack = append(stack, s)
		}
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range reverse[s] {
			if !coaccess[p] {
				coaccess[p] = true
				stack = append(stack, p)
			}
		}
	}

	remap := make([]StateID, n)
	kept := 0
	for s := range f.states {
		if access[s] && coaccess[s] {
			remap[s] = kept
			kept++
		} else {
			remap[s] = NoState
		}
	}
	if remap[f.start] == NoState {
		f.states = nil
		f.start = NoState
		return
	}
	states := make([]state, 0, kept)
	for s := range f.states {
		if remap[s] == NoState {
			continue
		}
		st := state{final: f.states[s].final}
		for _, a := range f.states[s].arcs {
			if remap[a.NextState] == NoState {
				continue
			}
			a.NextState = remap[a.NextState]
			st.arcs = append(st.arcs, a)
		}
		states = append(states, st)
	}
	f.states = states
	f.start = remap[f.start]
}

// RmEpsilon removes epsilon arcs in place. Every state receives the
// non-epsilon arcs and final weight of its epsilon closure, weighted by the
// shortest epsilon distance.
func RmEpsilon(f *Fst) {
	if !f.hasEpsilon() {
		return
	}
	states := make([]state, len(f.states))
	for s := range f.states {
		dist := f.epsDistances(s)
		reach := make([]StateID, 0, len(dist))
		for q := range dist {
			reach = append(reach, q)
		}
		sort.Ints(reach)

		st := state{final: Zero()}
		for _, q := range reach {
			d := dist[q]
			if fq := f.states[q].final; !fq.IsZero() {
				st.final = plus(st.final, d+fq)
			}
			for _, a := range f.states[q].arcs {
				if a.ILabel == Epsilon {
					continue
				}
				a.Weight += d
				st.arcs = append(st.arcs, a)
			}
		}
		states[s] = st
	}
	f.states = states
	f.sorted = false
	Connect(f)
}

func (f *Fst) hasEpsilon() bool {
	for s := range f.states {
		for _, a := range f.states[s].arcs {
			if a.ILabel == Epsilon {
				return true
			}
		}
	}
	return false
}

// epsDistances returns the shortest epsilon-path distance from s to every
// state in its epsilon closure, s included.
func (f *Fst) epsDistances(s StateID) map[StateID]Weight {
	dist := map[StateID]Weight{s: One}
	queue := []StateID{s}
	for len(queue) > 0 {
		q := queue[0]
		queue = queue[1:]
		for _, a := range f.states[q].arcs {
			if a.ILabel != Epsilon {
				continue
			}
			nd := dist[q] + a.Weight
			if old, ok := dist[a.NextState]; !ok || nd < old {
				dist[a.NextState] = nd
				queue = append(queue, a.NextState)
			}
		}
	}
	return dist
}

type element struct {
	state    StateID
	residual Weight
}

func subsetKey(subset []element) string {
	var b strings.Builder
	for _, e := range subset {
		b.WriteString(strconv.Itoa(e.state))
		b.WriteByte(':')
		b.WriteString(formatWeight(e.residual))
		b.WriteByte(';')
	}
	return b.String()
}

func formatWeight(w Weight) string {
	if w.IsZero() {
		return "inf"
	}
	return strconv.FormatFloat(float64(w), 'g', 6, 32)
}

// Determinize returns a deterministic acceptor equivalent to f using
// weighted subset construction. Epsilon arcs are removed first on a copy.
// f must be determinizable; lexicon tries and other acyclic acceptors
// always are.
func Determinize(f *Fst) *Fst {
	if f.hasEpsilon() {
		f = f.Copy()
		RmEpsilon(f)
	}
	out := New()
	if f.start == NoState {
		return out
	}

	ids := make(map[string]StateID)
	var subsets [][]element
	add := func(subset []element) StateID {
		key := subsetKey(subset)
		if id, ok := ids[key]; ok {
			return id
		}
		id := out.AddState()
		ids[key] = id
		subsets = append(subsets, subset)
		return id
	}
	out.SetStart(add([]element{{state: f.start, residual: One}}))

	for id := 0; id < len(subsets); id++ {
		subset := subsets[id]
		final := Zero()
		type pending struct {
			weight Weight
			next   map[StateID]Weight
		}
		byLabel := make(map[int]*pending)
		var labels []int
		for _, e := range subset {
			if fw := f.states[e.state].final; !fw.IsZero() {
				final = plus(final, e.residual+fw)
			}
			for _, a := range f.states[e.state].arcs {
				p, ok := byLabel[a.ILabel]
				if !ok {
					p = &pending{weight: Zero(), next: make(map[StateID]Weight)}
					byLabel[a.ILabel] = p
					labels = append(labels, a.ILabel)
				}
				w := e.residual + a.Weight
				p.weight = plus(p.weight, w)
				if old, ok := p.next[a.NextState]; !ok || w < old {
					p.next[a.NextState] = w
				}
			}
		}
		out.SetFinal(id, final)

		sort.Ints(labels)
		for _, l := range labels {
			p := byLabel[l]
			next := make([]element, 0, len(p.next))
			for s, w := range p.next {
				next = append(next, element{state: s, residual: w - p.weight})
			}
			sort.Slice(next, func(i, j int) bool { return next[i].state < next[j].state })
			to := add(next)
			out.states[id].arcs = append(out.states[id].arcs, Arc{ILabel: l, OLabel: l, Weight: p.weight, NextState: to})
		}
	}
	out.sorted = true
	return out
}

// Minimize returns the minimal deterministic acceptor equivalent to f by
// partition refinement. Arc weights are compared as part of the label, so
// the result is minimal for unweighted automata such as lexicons. States of
// the result are numbered in breadth-first order from the start state.
func Minimize(f *Fst) (*Fst, error) {
	if err := f.checkDeterministic(); err != nil {
		return nil, err
	}
	c := f.Copy()
	Connect(c)
	c.ArcSort()
	out := New()
	if c.start == NoState {
		return out, nil
	}

	n := len(c.states)
	class := make([]int, n)
	numClasses := assignClasses(class, func(s StateID) string {
		return formatWeight(c.states[s].final)
	})
	for {
		prev := append([]int(nil), class...)
		next := assignClasses(class, func(s StateID) string {
			var b strings.Builder
			b.WriteString(strconv.Itoa(prev[s]))
			for _, a := range c.states[s].arcs {
				b.WriteByte('|')
				b.WriteString(strconv.Itoa(a.ILabel))
				b.WriteByte(',')
				b.WriteString(formatWeight(a.Weight))
				b.WriteByte(',')
				b.WriteString(strconv.Itoa(prev[a.NextState]))
			}
			return b.String()
		})
		if next == numClasses {
			break
		}
		numClasses = next
	}

	rep := make([]StateID, numClasses)
	for i := range rep {
		rep[i] = NoState
	}
	for s := 0; s < n; s++ {
		if rep[class[s]] == NoState {
			rep[class[s]] = s
		}
	}

	newID := make([]StateID, numClasses)
	for i := range newID {
		newID[i] = NoState
	}
	order := []int{class[c.start]}
	newID[class[c.start]] = out.AddState()
	for i := 0; i < len(order); i++ {
		for _, a := range c.states[rep[order[i]]].arcs {
			k := class[a.NextState]
			if newID[k] == NoState {
				newID[k] = out.AddState()
				order = append(order, k)
			}
		}
	}
	for _, k := range order {
		r := rep[k]
		id := newID[k]
		out.SetFinal(id, c.states[r].final)
		for _, a := range c.states[r].arcs {
			a.NextState = newID[class[a.NextState]]
			out.states[id].arcs = append(out.states[id].arcs, a)
		}
	}
	out.SetStart(newID[class[c.start]])
	out.sorted = true
	return out, nil
}

// assignClasses numbers states by first appearance of their signature and
// returns the number of distinct classes.
func assignClasses(class []int, signature func(StateID) string) int {
	ids := make(map[string]int)
	for s := range class {
		sig := signature(s)
		id, ok := ids[sig]
		if !ok {
			id = len(ids)
			ids[sig] = id
		}
		class[s] = id
	}
	return len(ids)
}

func (f *Fst) checkDeterministic() error {
	for s := range f.states {
		seen := make(map[int]bool, len(f.states[s].arcs))
		for _, a := range f.states[s].arcs {
			if a.ILabel == Epsilon {
				return errors.Wrapf(ErrNotDeterministic, "epsilon arc at state %d", s)
			}
			if seen[a.ILabel] {
				return errors.Wrapf(ErrNotDeterministic, "duplicate label %d at state %d", a.ILabel, s)
			}
			seen[a.ILabel] = true
		}
	}
	return nil
}
