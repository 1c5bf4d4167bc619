package fst

import (
	"bufio"
	"encoding/gob"
	"io"
	"os"

	"github.com/pkg/errors"
)

const formatVersion = 1

// serializable types for gob encoding
type serializedFst struct {
	Version int
	Start   int
	Sorted  bool
	States  []serializedState
}

type serializedState struct {
	Final float32
	IsFin bool
	Arcs  []Arc
}

// Write serializes f using gob encoding.
func (f *Fst) Write(w io.Writer) error {
	sf := serializedFst{
		Version: formatVersion,
		Start:   f.start,
		Sorted:  f.sorted,
		States:  make([]serializedState, len(f.states)),
	}
	for i, s := range f.states {
		ss := serializedState{Arcs: s.arcs}
		if !s.final.IsZero() {
			ss.IsFin = true
			ss.Final = float32(s.final)
		}
		sf.States[i] = ss
	}
	if err := gob.NewEncoder(w).Encode(&sf); err != nil {
		return errors.Wrap(err, "encode fst")
	}
	return nil
}

// Read deserializes an automaton written by Write.
func Read(r io.Reader) (*Fst, error) {
	var sf serializedFst
	if err := gob.NewDecoder(r).Decode(&sf); err != nil {
		return nil, errors.Wrap(err, "decode fst")
	}
	if sf.Version != formatVersion {
		return nil, errors.Errorf("fst: unsupported format version %d", sf.Version)
	}
	f := &Fst{start: sf.Start, sorted: sf.Sorted, states: make([]state, len(sf.States))}
	for i, ss := range sf.States {
		st := state{final: Zero(), arcs: ss.Arcs}
		if ss.IsFin {
			st.final = Weight(ss.Final)
		}
		for _, a := range ss.Arcs {
			if a.NextState < 0 || a.NextState >= len(sf.States) {
				return nil, errors.Errorf("fst: state %d has arc to invalid state %d", i, a.NextState)
			}
		}
		f.states[i] = st
	}
	if f.start != NoState && (f.start < 0 || f.start >= len(f.states)) {
		return nil, errors.Errorf("fst: invalid start state %d", f.start)
	}
	return f, nil
}

// WriteFile writes f to path, replacing any existing file.
func (f *Fst) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create fst file")
	}
	w := bufio.NewWriter(file)
	if err := f.Write(w); err != nil {
		file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return errors.Wrap(err, "flush fst file")
	}
	return errors.Wrap(file.Close(), "close fst file")
}

// ReadFile is a convenience wrapper that opens a file path.
func ReadFile(path string) (*Fst, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open fst file")
	}
	defer file.Close()
	f, err := Read(bufio.NewReader(file))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return f, nil
}
