package oracle

import (
	"context"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
)

// Gini solver result codes.
const (
	giniSat     = 1
	giniUnknown = 0
	giniUnsat   = -1
)

// DefaultPoll is how often a running gini search is polled for
// completion while a cancellable context is attached to Check.
const DefaultPoll = 2 * time.Millisecond

// Gini is an Oracle backed by github.com/go-air/gini.
//
// Formulas are lowered into a single logic.C circuit owned by the session.
// Each Check builds a fresh solver, Tseitin-translates the circuit into it
// and adds the root literal of every constraint in every open scope as a
// unit clause. Gates created inside a scope that is later popped stay in the
// circuit; they only define auxiliary variables and constrain nothing.
type Gini struct {
	c      *logic.C
	lits   []z.Lit // indexed by Var.id
	names  []string
	frames frames[z.Lit]
	model  *gini.Gini
	closed bool

	// Poll is the completion polling interval used with cancellable contexts.
	Poll time.Duration
}

var _ Oracle = (*Gini)(nil)

// NewGini opens an empty gini session.
func NewGini() *Gini {
	return &Gini{
		c:      logic.NewC(),
		lits:   []z.Lit{z.LitNull},
		names:  []string{""},
		frames: newFrames[z.Lit](),
		Poll:   DefaultPoll,
	}
}

func (s *Gini) DeclareBool(name string) Var {
	s.model = nil
	s.lits = append(s.lits, s.c.Lit())
	s.names = append(s.names, name)
	return Var{id: len(s.lits) - 1, name: name}
}

func (s *Gini) Assert(f Formula) error {
	if s.closed {
		return ErrClosed
	}
	s.model = nil
	m, err := s.lower(f)
	if err != nil {
		return errors.Wrapf(err, "assert %s", f)
	}
	s.frames.add(m)
	return nil
}

func (s *Gini) Push() {
	s.model = nil
	s.frames.push()
}

func (s *Gini) Pop() error {
	s.model = nil
	return s.frames.pop()
}

func (s *Gini) Depth() int {
	return s.frames.depth()
}

func (s *Gini) Check(ctx context.Context) (Result, error) {
	if s.closed {
		return Unknown, ErrClosed
	}
	s.model = nil
	if ctx.Err() != nil {
		return Unknown, nil
	}

	g := gini.New()
	s.c.ToCnf(g)
	g.Add(s.c.T)
	g.Add(z.LitNull)
	for _, m := range s.frames.all() {
		g.Add(m)
		g.Add(z.LitNull)
	}

	res := s.solve(ctx, g)
	if res == Sat {
		s.model = g
	}
	return res, nil
}

func (s *Gini) solve(ctx context.Context, g *gini.Gini) Result {
	if ctx.Done() == nil {
		return fromGini(g.Solve())
	}
	run := g.GoSolve()
	poll := s.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}
	tick := time.NewTicker(poll)
	defer tick.Stop()
	for {
		if r, done := run.Test(); done {
			return fromGini(r)
		}
		select {
		case <-ctx.Done():
			return fromGini(run.Stop())
		case <-tick.C:
		}
	}
}

func fromGini(code int) Result {
	switch code {
	case giniSat:
		return Sat
	case giniUnsat:
		return Unsat
	default:
		return Unknown
	}
}

func (s *Gini) Value(v Var) (bool, error) {
	if s.model == nil {
		return false, ErrNoModel
	}
	m, err := s.lit(v)
	if err != nil {
		return false, err
	}
	// A variable the solver never saw is unconstrained; any value satisfies.
	if m.Var() > s.model.MaxVar() {
		return false, nil
	}
	return s.model.Value(m), nil
}

func (s *Gini) Name(v Var) string {
	if v.id <= 0 || v.id >= len(s.names) {
		return v.String()
	}
	return s.names[v.id]
}

func (s *Gini) Close() error {
	s.closed = true
	s.model = nil
	s.frames = newFrames[z.Lit]()
	return nil
}

func (s *Gini) lit(v Var) (z.Lit, error) {
	if v.id <= 0 || v.id >= len(s.lits) || s.names[v.id] != v.name {
		return z.LitNull, errors.Wrapf(ErrUnknownVar, "%s", v)
	}
	return s.lits[v.id], nil
}

func (s *Gini) lower(f Formula) (z.Lit, error) {
	switch f := f.(type) {
	case Var:
		return s.lit(f)
	case Const:
		if f {
			return s.c.T, nil
		}
		return s.c.F, nil
	case Not:
		m, err := s.lower(f.F)
		if err != nil {
			return z.LitNull, err
		}
		return m.Not(), nil
	case And:
		ms, err := s.lowerAll(f)
		if err != nil {
			return z.LitNull, err
		}
		switch len(ms) {
		case 0:
			return s.c.T, nil
		case 1:
			return ms[0], nil
		}
		return s.c.Ands(ms...), nil
	case Or:
		ms, err := s.lowerAll(f)
		if err != nil {
			return z.LitNull, err
		}
		switch len(ms) {
		case 0:
			return s.c.F, nil
		case 1:
			return ms[0], nil
		}
		return s.c.Ors(ms...), nil
	case Implies:
		a, b, err := s.lowerPair(f.If, f.Then)
		if err != nil {
			return z.LitNull, err
		}
		return s.c.Or(a.Not(), b), nil
	case Iff:
		a, b, err := s.lowerPair(f.Left, f.Right)
		if err != nil {
			return z.LitNull, err
		}
		return s.iff(a, b), nil
	case Xor:
		a, b, err := s.lowerPair(f.Left, f.Right)
		if err != nil {
			return z.LitNull, err
		}
		return s.iff(a, b).Not(), nil
	case nil:
		return z.LitNull, errors.New("oracle: nil formula")
	default:
		return z.LitNull, errors.Errorf("oracle: unsupported formula %T", f)
	}
}

func (s *Gini) iff(a, b z.Lit) z.Lit {
	return s.c.And(s.c.Or(a.Not(), b), s.c.Or(a, b.Not()))
}

func (s *Gini) lowerAll(fs []Formula) ([]z.Lit, error) {
	ms := make([]z.Lit, len(fs))
	for i, g := range fs {
		m, err := s.lower(g)
		if err != nil {
			return nil, err
		}
		ms[i] = m
	}
	return ms, nil
}

func (s *Gini) lowerPair(a, b Formula) (z.Lit, z.Lit, error) {
	x, err := s.lower(a)
	if err != nil {
		return z.LitNull, z.LitNull, err
	}
	y, err := s.lower(b)
	if err != nil {
		return z.LitNull, z.LitNull, err
	}
	return x, y, nil
}
