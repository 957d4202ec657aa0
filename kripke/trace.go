package kripke

import (
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/pkg/errors"

	"github.com/rfielding/kripke-bmc/oracle"
)

// Trace is a counterexample: one full assignment of the model variables,
// read back from a satisfying oracle model and grouped by family.
type Trace struct {
	Bounds   Bounds
	FlagName string

	Init    []bool          // [i-1]
	Alive   [][]bool        // [i-1][t]
	Flag    [][]bool        // [i-1][t]
	Deliver map[Edge][]bool // [t-1]
	Decide  []bool          // [i-1]

	// Assignment is the raw model keyed by variable name.
	Assignment *immutable.SortedMap[string, bool]

	byVar map[oracle.Var]bool
}

type nameComparer struct{}

func (nameComparer) Compare(a, b string) int { return strings.Compare(a, b) }

// extractTrace reads every variable of v from the current model of o.
func extractTrace(o oracle.Oracle, v *Vars) (*Trace, error) {
	b := v.Bounds()
	n, last := b.Nodes, b.Last()
	tr := &Trace{
		Bounds:   b,
		FlagName: v.FlagName(),
		Init:     make([]bool, n),
		Alive:    make([][]bool, n),
		Flag:     make([][]bool, n),
		Deliver:  make(map[Edge][]bool, n*(n-1)),
		Decide:   make([]bool, n),
		byVar:    make(map[oracle.Var]bool, v.Counts().Total()),
	}
	assign := immutable.NewSortedMapBuilder[string, bool](nameComparer{})

	read := func(x oracle.Var) (bool, error) {
		val, err := o.Value(x)
		if err != nil {
			return false, errors.Wrapf(err, "read %s", o.Name(x))
		}
		tr.byVar[x] = val
		assign.Set(o.Name(x), val)
		return val, nil
	}

	var err error
	for _, i := range b.NodeIDs() {
		k := int(i) - 1
		if tr.Init[k], err = read(v.Init(i)); err != nil {
			return nil, err
		}
		tr.Alive[k] = make([]bool, last+1)
		tr.Flag[k] = make([]bool, last+1)
		for t := Round(0); t <= last; t++ {
			if tr.Alive[k][t], err = read(v.Alive(i, t)); err != nil {
				return nil, err
			}
			if tr.Flag[k][t], err = read(v.Flag(i, t)); err != nil {
				return nil, err
			}
		}
		if tr.Decide[k], err = read(v.Decide(i)); err != nil {
			return nil, err
		}
	}
	for _, e := range b.Edges() {
		row := make([]bool, last)
		for t := Round(1); t <= last; t++ {
			if row[t-1], err = read(v.Deliver(e, t)); err != nil {
				return nil, err
			}
		}
		tr.Deliver[e] = row
	}
	tr.Assignment = assign.Map()
	return tr, nil
}

// Satisfies evaluates f under the trace. Variables outside the trace are false.
func (tr *Trace) Satisfies(f oracle.Formula) bool {
	return oracle.Eval(f, func(x oracle.Var) bool { return tr.byVar[x] })
}

// Value looks a variable up by its declared name.
func (tr *Trace) Value(name string) (bool, bool) {
	return tr.Assignment.Get(name)
}

// CrashRound is the first round at whose end i is dead. ok is false when i
// survives the horizon.
func (tr *Trace) CrashRound(i NodeID) (t Round, ok bool) {
	for r, alive := range tr.Alive[int(i)-1] {
		if !alive {
			return Round(r), true
		}
	}
	return 0, false
}

// Survivors lists the nodes alive at the end of round R.
func (tr *Trace) Survivors() []NodeID {
	var out []NodeID
	last := tr.Bounds.Last()
	for _, i := range tr.Bounds.NodeIDs() {
		if tr.Alive[int(i)-1][last] {
			out = append(out, i)
		}
	}
	return out
}

// Delivered reports whether the round-t message on e arrived.
func (tr *Trace) Delivered(e Edge, t Round) bool {
	row, ok := tr.Deliver[e]
	if !ok || t < 1 || int(t) > len(row) {
		return false
	}
	return row[t-1]
}

// DeliveryMatrix is the round-t delivery relation indexed [from-1][to-1].
func (tr *Trace) DeliveryMatrix(t Round) [][]bool {
	n := tr.Bounds.Nodes
	m := make([][]bool, n)
	for k := range m {
		m[k] = make([]bool, n)
	}
	for e := range tr.Deliver {
		m[e.From-1][e.To-1] = tr.Delivered(e, t)
	}
	return m
}
