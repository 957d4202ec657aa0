//go:build z3

package oracle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	z3 "github.com/mitchellh/go-z3"
	"github.com/pkg/errors"
)

func init() {
	Register("z3", func() Oracle { return NewZ3() })
}

// Z3 is an Oracle backed by libz3 through cgo.
//
// The session keeps its own frame stack of formulas; each Check creates a
// fresh Z3 context and solver, asserts the open frames and reads back the
// full assignment on Sat. A context deadline becomes the Z3 timeout.
type Z3 struct {
	names  []string
	frames frames[Formula]
	model  map[string]bool
	closed bool
}

var _ Oracle = (*Z3)(nil)

// NewZ3 opens an empty Z3 session.
func NewZ3() *Z3 {
	return &Z3{
		names:  []string{""},
		frames: newFrames[Formula](),
	}
}

func (s *Z3) DeclareBool(name string) Var {
	s.model = nil
	s.names = append(s.names, name)
	return Var{id: len(s.names) - 1, name: name}
}

func (s *Z3) Assert(f Formula) error {
	if s.closed {
		return ErrClosed
	}
	s.model = nil
	for _, v := range Vars(f) {
		if err := s.known(v); err != nil {
			return errors.Wrapf(err, "assert %s", f)
		}
	}
	s.frames.add(f)
	return nil
}

func (s *Z3) Push() {
	s.model = nil
	s.frames.push()
}

func (s *Z3) Pop() error {
	s.model = nil
	return s.frames.pop()
}

func (s *Z3) Depth() int { return s.frames.depth() }

func (s *Z3) Check(ctx context.Context) (Result, error) {
	if s.closed {
		return Unknown, ErrClosed
	}
	s.model = nil
	if ctx.Err() != nil {
		return Unknown, nil
	}

	config := z3.NewConfig()
	if deadline, ok := ctx.Deadline(); ok {
		ms := time.Until(deadline).Milliseconds()
		if ms <= 0 {
			config.Close()
			return Unknown, nil
		}
		config.SetParamValue("timeout", strconv.FormatInt(ms, 10))
	}
	zctx := z3.NewContext(config)
	config.Close()
	defer zctx.Close()

	solver := zctx.NewSolver()
	defer solver.Close()

	consts := make(map[int]*z3.AST)
	for _, f := range s.frames.all() {
		solver.Assert(s.lower(zctx, consts, f))
	}

	switch solver.Check() {
	case z3.True:
	case z3.False:
		return Unsat, nil
	default:
		return Unknown, nil
	}

	m := solver.Model()
	defer m.Close()
	assignments := m.Assignments()
	s.model = make(map[string]bool, len(assignments))
	for name, ast := range assignments {
		s.model[name] = ast.String() == "true"
	}
	return Sat, nil
}

func (s *Z3) Value(v Var) (bool, error) {
	if s.model == nil {
		return false, ErrNoModel
	}
	if err := s.known(v); err != nil {
		return false, err
	}
	return s.model[symbol(v)], nil
}

func (s *Z3) Name(v Var) string {
	if v.id <= 0 || v.id >= len(s.names) {
		return v.String()
	}
	return s.names[v.id]
}

func (s *Z3) Close() error {
	s.closed = true
	s.model = nil
	s.frames = newFrames[Formula]()
	return nil
}

func (s *Z3) known(v Var) error {
	if v.id <= 0 || v.id >= len(s.names) || s.names[v.id] != v.name {
		return errors.Wrapf(ErrUnknownVar, "%s", v)
	}
	return nil
}

// symbol keeps Z3 symbols unique even if two variables share a name.
func symbol(v Var) string {
	return fmt.Sprintf("%s#%d", v.name, v.id)
}

func (s *Z3) lower(ctx *z3.Context, consts map[int]*z3.AST, f Formula) *z3.AST {
	switch f := f.(type) {
	case Var:
		c, ok := consts[f.id]
		if !ok {
			c = ctx.Const(ctx.Symbol(symbol(f)), ctx.BoolSort())
			consts[f.id] = c
		}
		return c
	case Const:
		if f {
			return ctx.True()
		}
		return ctx.False()
	case Not:
		return s.lower(ctx, consts, f.F).Not()
	case And:
		if len(f) == 0 {
			return ctx.True()
		}
		args := s.lowerAll(ctx, consts, f)
		return args[0].And(args[1:]...)
	case Or:
		if len(f) == 0 {
			return ctx.False()
		}
		args := s.lowerAll(ctx, consts, f)
		return args[0].Or(args[1:]...)
	case Implies:
		return s.lower(ctx, consts, f.If).Not().Or(s.lower(ctx, consts, f.Then))
	case Iff:
		return s.lower(ctx, consts, f.Left).Eq(s.lower(ctx, consts, f.Right))
	case Xor:
		return s.lower(ctx, consts, f.Left).Eq(s.lower(ctx, consts, f.Right)).Not()
	default:
		panic(fmt.Sprintf("oracle: unsupported formula %T", f))
	}
}

func (s *Z3) lowerAll(ctx *z3.Context, consts map[int]*z3.AST, fs []Formula) []*z3.AST {
	out := make([]*z3.AST, len(fs))
	for i, g := range fs {
		out[i] = s.lower(ctx, consts, g)
	}
	return out
}
