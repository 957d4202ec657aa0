package oracle

import (
	"fmt"
	"strings"
)

// Formula is a propositional formula over variables declared on one session.
// Formulas are plain values; an Oracle lowers them into its own representation.
type Formula interface {
	String() string
	isFormula()
}

// Var is a handle to a Boolean unknown returned by Oracle.DeclareBool.
// The zero Var is not a valid handle.
type Var struct {
	id   int
	name string
}

// ID returns the session-local index of the variable (1-based).
func (v Var) ID() int { return v.id }

// Valid reports whether v was produced by DeclareBool.
func (v Var) Valid() bool { return v.id > 0 }

func (v Var) String() string {
	if v.name == "" {
		return fmt.Sprintf("v%d", v.id)
	}
	return v.name
}

// Const is the constant true or false.
type Const bool

const (
	True  = Const(true)
	False = Const(false)
)

func (c Const) String() string {
	if c {
		return "⊤"
	}
	return "⊥"
}

// Not: ¬F
type Not struct {
	F Formula
}

func (n Not) String() string { return "¬" + n.F.String() }

// And is the conjunction of its members. An empty And is true.
type And []Formula

func (a And) String() string { return joinFormulas([]Formula(a), " ∧ ", "⊤") }

// Or is the disjunction of its members. An empty Or is false.
type Or []Formula

func (o Or) String() string { return joinFormulas([]Formula(o), " ∨ ", "⊥") }

// Implies: If ⇒ Then
type Implies struct {
	If, Then Formula
}

func (i Implies) String() string { return "(" + i.If.String() + " ⇒ " + i.Then.String() + ")" }

// Iff: Left = Right
type Iff struct {
	Left, Right Formula
}

func (i Iff) String() string { return "(" + i.Left.String() + " ⇔ " + i.Right.String() + ")" }

// Xor: Left ≠ Right
type Xor struct {
	Left, Right Formula
}

func (x Xor) String() string { return "(" + x.Left.String() + " ⊕ " + x.Right.String() + ")" }

func (Var) isFormula()     {}
func (Const) isFormula()   {}
func (Not) isFormula()     {}
func (And) isFormula()     {}
func (Or) isFormula()      {}
func (Implies) isFormula() {}
func (Iff) isFormula()     {}
func (Xor) isFormula()     {}

func joinFormulas(fs []Formula, sep, empty string) string {
	if len(fs) == 0 {
		return empty
	}
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// Ands folds fs into a conjunction, collapsing the empty and singleton cases.
func Ands(fs ...Formula) Formula {
	switch len(fs) {
	case 0:
		return True
	case 1:
		return fs[0]
	}
	return And(fs)
}

// Ors folds fs into a disjunction, collapsing the empty and singleton cases.
func Ors(fs ...Formula) Formula {
	switch len(fs) {
	case 0:
		return False
	case 1:
		return fs[0]
	}
	return Or(fs)
}

// Eval evaluates f under the assignment given by value.
// It is used to re-check witnesses outside the oracle.
func Eval(f Formula, value func(Var) bool) bool {
	switch f := f.(type) {
	case Var:
		return value(f)
	case Const:
		return bool(f)
	case Not:
		return !Eval(f.F, value)
	case And:
		for _, g := range f {
			if !Eval(g, value) {
				return false
			}
		}
		return true
	case Or:
		for _, g := range f {
			if Eval(g, value) {
				return true
			}
		}
		return false
	case Implies:
		return !Eval(f.If, value) || Eval(f.Then, value)
	case Iff:
		return Eval(f.Left, value) == Eval(f.Right, value)
	case Xor:
		return Eval(f.Left, value) != Eval(f.Right, value)
	default:
		panic(fmt.Sprintf("oracle: unknown formula type %T", f))
	}
}

// Vars returns the distinct variables occurring in f, in first-occurrence order.
func Vars(f Formula) []Var {
	var out []Var
	seen := make(map[int]bool)
	var walk func(Formula)
	walk = func(f Formula) {
		switch f := f.(type) {
		case Var:
			if !seen[f.id] {
				seen[f.id] = true
				out = append(out, f)
			}
		case Not:
			walk(f.F)
		case And:
			for _, g := range f {
				walk(g)
			}
		case Or:
			for _, g := range f {
				walk(g)
			}
		case Implies:
			walk(f.If)
			walk(f.Then)
		case Iff:
			walk(f.Left)
			walk(f.Right)
		case Xor:
			walk(f.Left)
			walk(f.Right)
		}
	}
	walk(f)
	return out
}
