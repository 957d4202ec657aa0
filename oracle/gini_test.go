package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGiniSatAndModel(t *testing.T) {
	s := NewGini()
	a := s.DeclareBool("a")
	b := s.DeclareBool("b")

	require.NoError(t, s.Assert(Implies{If: a, Then: b}))
	require.NoError(t, s.Assert(a))

	res, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sat, res)

	va, err := s.Value(a)
	require.NoError(t, err)
	vb, err := s.Value(b)
	require.NoError(t, err)
	assert.True(t, va)
	assert.True(t, vb)
}

func TestGiniUnsat(t *testing.T) {
	s := NewGini()
	a := s.DeclareBool("a")
	require.NoError(t, s.Assert(Xor{Left: a, Right: a}))

	res, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unsat, res)

	_, err = s.Value(a)
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestGiniScopesRestoreBase(t *testing.T) {
	s := NewGini()
	a := s.DeclareBool("a")
	require.NoError(t, s.Assert(a))

	s.Push()
	require.Equal(t, 1, s.Depth())
	require.NoError(t, s.Assert(Not{F: a}))
	res, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unsat, res)
	require.NoError(t, s.Pop())
	require.Equal(t, 0, s.Depth())

	res, err = s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Sat, res)
}

func TestGiniNestedScopes(t *testing.T) {
	s := NewGini()
	a := s.DeclareBool("a")
	b := s.DeclareBool("b")

	s.Push()
	require.NoError(t, s.Assert(a))
	s.Push()
	require.NoError(t, s.Assert(Iff{Left: a, Right: Not{F: b}}))

	res, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sat, res)
	vb, err := s.Value(b)
	require.NoError(t, err)
	assert.False(t, vb)

	require.NoError(t, s.Pop())
	require.NoError(t, s.Assert(b))
	res, err = s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Sat, res)

	require.NoError(t, s.Pop())
	assert.ErrorIs(t, s.Pop(), ErrPopWithoutPush)
}

func TestGiniModelWindowClosesOnMutation(t *testing.T) {
	s := NewGini()
	a := s.DeclareBool("a")
	res, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sat, res)

	_, err = s.Value(a)
	require.NoError(t, err)

	s.Push()
	_, err = s.Value(a)
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestGiniRejectsForeignVar(t *testing.T) {
	s1 := NewGini()
	s2 := NewGini()
	s1.DeclareBool("x")
	y := s2.DeclareBool("y")

	err := s1.Assert(y)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownVar))
}

func TestGiniConstants(t *testing.T) {
	s := NewGini()
	require.NoError(t, s.Assert(Ands()))
	res, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Sat, res)

	s.Push()
	require.NoError(t, s.Assert(Ors()))
	res, err = s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unsat, res)
	require.NoError(t, s.Pop())
}

func TestGiniCancelledContextIsUnknown(t *testing.T) {
	s := NewGini()
	s.DeclareBool("a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, Unknown, res)
}

func TestGiniWithDeadline(t *testing.T) {
	s := NewGini()
	a := s.DeclareBool("a")
	b := s.DeclareBool("b")
	require.NoError(t, s.Assert(Or{a, b}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := s.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, Sat, res)
}

func TestGiniClosed(t *testing.T) {
	s := NewGini()
	a := s.DeclareBool("a")
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Assert(a), ErrClosed)
	_, err := s.Check(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenBackends(t *testing.T) {
	o, err := Open("gini")
	require.NoError(t, err)
	assert.IsType(t, &Gini{}, o)
	assert.Contains(t, Backends(), "gini")

	_, err = Open("minisat")
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}
