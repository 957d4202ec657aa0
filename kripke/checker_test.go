package kripke

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfielding/kripke-bmc/oracle"
)

func verdicts(t *testing.T, m *Model, props ...Property) map[string]Verdict {
	t.Helper()
	results, err := m.CheckAll(context.Background(), props...)
	require.NoError(t, err)
	out := make(map[string]Verdict, len(results))
	for _, r := range results {
		out[r.Property] = r.Verdict
	}
	return out
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name      string
		n, r      int
		agreement Verdict
	}{
		{"two nodes two rounds", 2, 2, Pass},
		{"three nodes one round", 3, 1, Fail},
		{"three nodes two rounds", 3, 2, Pass},
		{"three nodes three rounds", 3, 3, Pass},
		{"two nodes no rounds", 2, 0, Fail},
		{"single node", 1, 0, Pass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := verdicts(t, build(t, tt.n, tt.r))
			assert.Equal(t, Pass, got[ValidityZero])
			assert.Equal(t, Pass, got[ValidityOne])
			assert.Equal(t, tt.agreement, got[Agreement])
		})
	}
}

// Agreement needs a chain of R crashing relays plus two survivors to fail,
// so it fails exactly while R <= N-2.
func TestAgreementBoundIsMonotone(t *testing.T) {
	for _, n := range []int{3, 4} {
		passed := false
		for r := 0; r <= n+1; r++ {
			res, err := build(t, n, r).CheckAgreement(context.Background())
			require.NoError(t, err)

			want := Pass
			if r <= n-2 {
				want = Fail
			}
			assert.Equal(t, want, res.Verdict, "N=%d R=%d", n, r)
			if passed {
				assert.Equal(t, Pass, res.Verdict, "N=%d R=%d passed at a smaller R", n, r)
			}
			passed = passed || res.Verdict == Pass
		}
	}
}

func TestValidityHoldsForEveryN(t *testing.T) {
	for n := 1; n <= 4; n++ {
		for r := 1; r <= 3; r++ {
			m := build(t, n, r)
			got := verdicts(t, m, ValidityZeroProperty, ValidityOneProperty)
			assert.Equal(t, Pass, got[ValidityZero], "N=%d R=%d", n, r)
			assert.Equal(t, Pass, got[ValidityOne], "N=%d R=%d", n, r)
		}
	}
}

func TestChecksAreIdempotentInAnyOrder(t *testing.T) {
	orders := [][]Property{
		{ValidityZeroProperty, ValidityOneProperty, AgreementProperty},
		{AgreementProperty, ValidityOneProperty, ValidityZeroProperty},
		{ValidityOneProperty, AgreementProperty, ValidityZeroProperty, AgreementProperty},
	}
	for _, n := range []int{2, 3} {
		m := build(t, n, 1)
		want := verdicts(t, m)
		for i, order := range orders {
			got := verdicts(t, m, order...)
			assert.Equal(t, want, got, "N=%d order %d", n, i)
		}
		assert.Zero(t, m.Oracle().Depth())
	}
}

func TestAgreementWitness(t *testing.T) {
	m := build(t, 3, 1)
	res, err := m.CheckAgreement(context.Background())
	require.NoError(t, err)
	require.Equal(t, Fail, res.Verdict)
	require.NotNil(t, res.Trace)
	tr := res.Trace

	for _, c := range m.Constraints() {
		assert.True(t, tr.Satisfies(c.Formula), "witness violates %s: %s", c.Label, c.Formula)
	}
	assert.True(t, tr.Satisfies(AgreementProperty.Violation(m.Vars)))

	survivors := tr.Survivors()
	require.Len(t, survivors, 2)
	a, b := survivors[0], survivors[1]
	assert.NotEqual(t, tr.Decide[a-1], tr.Decide[b-1])

	// The third node is the one that crashed mid-round and was only partly heard.
	var crashed NodeID
	for _, i := range m.Bounds.NodeIDs() {
		if i != a && i != b {
			crashed = i
		}
	}
	round, ok := tr.CrashRound(crashed)
	assert.True(t, ok)
	assert.Equal(t, Round(1), round)
	assert.NotEqual(t, tr.Delivered(Edge{From: crashed, To: a}, 1), tr.Delivered(Edge{From: crashed, To: b}, 1))

	assert.Equal(t, m.Vars.Counts().Total(), tr.Assignment.Len())
	v, ok := tr.Value(fmt.Sprintf("decide[%d]", a))
	assert.True(t, ok)
	assert.Equal(t, tr.Decide[a-1], v)
}

func TestPassCarriesNoTrace(t *testing.T) {
	res, err := build(t, 2, 2).CheckValidityZero(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Pass, res.Verdict)
	assert.Nil(t, res.Trace)
	assert.Equal(t, Bounds{Nodes: 2, Rounds: 2}, res.Bounds)
}

func TestCancelledContextIsUnknown(t *testing.T) {
	m := build(t, 3, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := m.CheckAgreement(ctx)
	require.NoError(t, err)
	assert.Equal(t, Unknown, res.Verdict)
	assert.Nil(t, res.Trace)
	assert.Zero(t, m.Oracle().Depth())
}

type failingCheck struct {
	oracle.Oracle
}

func (failingCheck) Check(context.Context) (oracle.Result, error) {
	return oracle.Unknown, oracle.ErrNoModel
}

type failingPop struct {
	oracle.Oracle
}

func (f failingPop) Pop() error {
	if err := f.Oracle.Pop(); err != nil {
		return err
	}
	return oracle.ErrPopWithoutPush
}

type skippedPop struct {
	oracle.Oracle
}

func (skippedPop) Pop() error { return nil }

func TestScopeClosedOnOracleFault(t *testing.T) {
	o := failingCheck{Oracle: oracle.NewGini()}
	m, err := Build(o, Bounds{Nodes: 2, Rounds: 1}, SeenZeroFlood{})
	require.NoError(t, err)

	res, err := m.CheckAgreement(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, oracle.ErrNoModel))
	assert.Equal(t, Unknown, res.Verdict)
	assert.Zero(t, o.Depth())
}

func TestScopeClosedOnPanic(t *testing.T) {
	m := build(t, 2, 1)
	boom := Property{
		Name:      "boom",
		Violation: func(*Vars) oracle.Formula { panic("boom") },
	}
	assert.Panics(t, func() { _, _ = m.Scoped(context.Background(), boom) })
	assert.Zero(t, m.Oracle().Depth())

	res, err := m.CheckAgreement(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Pass, res.Verdict)
}

func TestPopErrorIsFatal(t *testing.T) {
	m, err := Build(failingPop{Oracle: oracle.NewGini()}, Bounds{Nodes: 3, Rounds: 1}, SeenZeroFlood{})
	require.NoError(t, err)

	res, err := m.CheckAgreement(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, oracle.ErrPopWithoutPush))
	assert.Equal(t, Unknown, res.Verdict)
	assert.Nil(t, res.Trace)
}

func TestScopeLeakDetected(t *testing.T) {
	m, err := Build(skippedPop{Oracle: oracle.NewGini()}, Bounds{Nodes: 2, Rounds: 1}, SeenZeroFlood{})
	require.NoError(t, err)

	results, err := m.CheckAll(context.Background())
	assert.True(t, errors.Is(err, ErrScopeLeak))
	assert.Empty(t, results)
}

func TestSeenOneRule(t *testing.T) {
	m, err := Build(oracle.NewGini(), Bounds{Nodes: 3, Rounds: 2}, SeenOneFlood{})
	require.NoError(t, err)
	got := verdicts(t, m)
	assert.Equal(t, Pass, got[ValidityZero])
	assert.Equal(t, Pass, got[ValidityOne])
	assert.Equal(t, Pass, got[Agreement])

	m, err = Build(oracle.NewGini(), Bounds{Nodes: 3, Rounds: 1}, SeenOneFlood{})
	require.NoError(t, err)
	assert.Equal(t, Fail, verdicts(t, m, AgreementProperty)[Agreement])
}

func TestPropertyByName(t *testing.T) {
	p, err := PropertyByName(Agreement)
	require.NoError(t, err)
	assert.Equal(t, Agreement, p.Name)

	_, err = PropertyByName("termination")
	assert.True(t, errors.Is(err, ErrUnknownProperty))
}
