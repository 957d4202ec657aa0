package kripke

// Fixpoint CTL evaluation over an explicit, finite state graph. The explicit
// checker in explicit.go builds such a graph for small bounds and evaluates
// each property as AG(horizon ⇒ ¬violation) as an independent cross-check of
// the oracle verdicts.

// StateID indexes a state of a Graph.
type StateID int

// Graph is a finite Kripke structure: states 0..Len()-1, a successor
// relation and a set of initial states. Labels live outside the graph, in
// the predicates given to Atom.
type Graph struct {
	Succ    [][]StateID
	Initial []StateID
}

// AddState appends a state with no successors.
func (g *Graph) AddState() StateID {
	g.Succ = append(g.Succ, nil)
	return StateID(len(g.Succ) - 1)
}

func (g *Graph) AddEdge(from, to StateID) {
	g.Succ[from] = append(g.Succ[from], to)
}

func (g *Graph) Len() int { return len(g.Succ) }

// StateSet is a dense set of states of one graph.
type StateSet []bool

func NewStateSet(g *Graph) StateSet { return make(StateSet, g.Len()) }

func Universe(g *Graph) StateSet {
	s := NewStateSet(g)
	for i := range s {
		s[i] = true
	}
	return s
}

func (s StateSet) Has(id StateID) bool { return s[id] }

func (s StateSet) Count() int {
	n := 0
	for _, in := range s {
		if in {
			n++
		}
	}
	return n
}

func (s StateSet) Equal(o StateSet) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

func (s StateSet) combine(o StateSet, f func(a, b bool) bool) StateSet {
	out := make(StateSet, len(s))
	for i := range s {
		out[i] = f(s[i], o[i])
	}
	return out
}

func (s StateSet) Intersect(o StateSet) StateSet {
	return s.combine(o, func(a, b bool) bool { return a && b })
}

func (s StateSet) Union(o StateSet) StateSet {
	return s.combine(o, func(a, b bool) bool { return a || b })
}

func (s StateSet) Complement() StateSet {
	return s.combine(s, func(a, _ bool) bool { return !a })
}

// preE: states with at least one successor in y.
func preE(g *Graph, y StateSet) StateSet {
	out := NewStateSet(g)
	for s, succ := range g.Succ {
		for _, t := range succ {
			if y[t] {
				out[s] = true
				break
			}
		}
	}
	return out
}

// preA: states whose successors are all in y. Dead ends count, so AX
// holds vacuously at the horizon.
func preA(g *Graph, y StateSet) StateSet {
	out := NewStateSet(g)
	for s, succ := range g.Succ {
		out[s] = true
		for _, t := range succ {
			if !y[t] {
				out[s] = false
				break
			}
		}
	}
	return out
}

// CTL is a state formula evaluated to the set of states satisfying it.
type CTL interface {
	Sat(g *Graph) StateSet
	String() string
}

// Atom holds in the states accepted by Holds.
type Atom struct {
	Name  string
	Holds func(StateID) bool
}

func (a Atom) String() string { return a.Name }

func (a Atom) Sat(g *Graph) StateSet {
	s := NewStateSet(g)
	for i := range s {
		s[i] = a.Holds(StateID(i))
	}
	return s
}

type Not struct{ F CTL }

func (n Not) Sat(g *Graph) StateSet { return n.F.Sat(g).Complement() }
func (n Not) String() string        { return "¬" + n.F.String() }

type And struct{ L, R CTL }

func (a And) Sat(g *Graph) StateSet { return a.L.Sat(g).Intersect(a.R.Sat(g)) }
func (a And) String() string        { return "(" + a.L.String() + " ∧ " + a.R.String() + ")" }

type Or struct{ L, R CTL }

func (o Or) Sat(g *Graph) StateSet { return o.L.Sat(g).Union(o.R.Sat(g)) }
func (o Or) String() string        { return "(" + o.L.String() + " ∨ " + o.R.String() + ")" }

type EX struct{ F CTL }

func (e EX) Sat(g *Graph) StateSet { return preE(g, e.F.Sat(g)) }
func (e EX) String() string        { return "EX " + e.F.String() }

type AX struct{ F CTL }

func (a AX) Sat(g *Graph) StateSet { return preA(g, a.F.Sat(g)) }
func (a AX) String() string        { return "AX " + a.F.String() }

// EU: E[L U R], least fixpoint Z = R ∪ (L ∩ preE(Z)).
type EU struct{ L, R CTL }

func (e EU) String() string { return "E[" + e.L.String() + " U " + e.R.String() + "]" }

func (e EU) Sat(g *Graph) StateSet {
	l, z := e.L.Sat(g), e.R.Sat(g)
	for {
		next := z.Union(l.Intersect(preE(g, z)))
		if next.Equal(z) {
			return z
		}
		z = next
	}
}

// EG: greatest fixpoint Z = F ∩ preE(Z). On a graph with dead ends EG
// only holds along infinite paths, so it is empty on an acyclic graph.
type EG struct{ F CTL }

func (e EG) String() string { return "EG " + e.F.String() }

func (e EG) Sat(g *Graph) StateSet {
	f := e.F.Sat(g)
	z := f
	for {
		next := f.Intersect(preE(g, z))
		if next.Equal(z) {
			return z
		}
		z = next
	}
}

// EF F = E[true U F]
type EF struct{ F CTL }

func (e EF) Sat(g *Graph) StateSet {
	return EU{L: Atom{Name: "true", Holds: func(StateID) bool { return true }}, R: e.F}.Sat(g)
}

func (e EF) String() string { return "EF " + e.F.String() }

// AG F = ¬EF¬F
type AG struct{ F CTL }

func (a AG) Sat(g *Graph) StateSet { return Not{EF{Not{a.F}}}.Sat(g) }
func (a AG) String() string        { return "AG " + a.F.String() }

// AF: least fixpoint Z = F ∪ (nonterminal ∩ preA(Z)).
type AF struct{ F CTL }

func (a AF) String() string { return "AF " + a.F.String() }

func (a AF) Sat(g *Graph) StateSet {
	z := a.F.Sat(g)
	for {
		next := NewStateSet(g)
		pa := preA(g, z)
		for s := range next {
			next[s] = z[s] || (len(g.Succ[s]) > 0 && pa[s])
		}
		if next.Equal(z) {
			return z
		}
		z = next
	}
}

// SatInitial reports whether f holds in every initial state of g.
func SatInitial(g *Graph, f CTL) bool {
	sat := f.Sat(g)
	for _, s := range g.Initial {
		if !sat[s] {
			return false
		}
	}
	return true
}
