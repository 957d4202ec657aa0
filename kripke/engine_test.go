package kripke

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfielding/kripke-bmc/oracle"
)

func build(t *testing.T, n, r int) *Model {
	t.Helper()
	m, err := Build(oracle.NewGini(), Bounds{Nodes: n, Rounds: r}, SeenZeroFlood{})
	require.NoError(t, err)
	return m
}

func TestBuildAssertsBaseOnce(t *testing.T) {
	o := &countingOracle{Oracle: oracle.NewGini()}
	m, err := Build(o, Bounds{Nodes: 3, Rounds: 2}, SeenZeroFlood{})
	require.NoError(t, err)

	assert.Equal(t, len(m.Constraints()), o.asserted)
	assert.Equal(t, m.Vars.Counts().Total(), o.declared)
	assert.Zero(t, o.Depth())
	assert.Same(t, o, m.Oracle())
}

func TestBuildConstraintCounts(t *testing.T) {
	m := build(t, 3, 2)
	count := make(map[string]int)
	for _, c := range m.Constraints() {
		count[c.Label]++
	}

	n, r, edges := 3, 2, 6
	assert.Equal(t, n, count[LabelNoInitialCrash])
	assert.Equal(t, n*r, count[LabelCrashPermanence])
	assert.Equal(t, 1, count[LabelSurvivor])
	assert.Equal(t, edges*r, count[LabelReliableLink])
	assert.Equal(t, edges*r, count[LabelSenderAlive])
	assert.Equal(t, edges*r, count[LabelReceiverAlive])
	assert.Equal(t, n, count[LabelFlagInitial])
	assert.Equal(t, n*r, count[LabelFlagStep])
	assert.Equal(t, n, count[LabelDecision])
}

func TestBuildDefaultsRule(t *testing.T) {
	m, err := Build(oracle.NewGini(), Bounds{Nodes: 2, Rounds: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, "seen-zero", m.Rule.Name())
	assert.Equal(t, DefaultFlag, m.Vars.FlagName())
}

func TestBuildLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)

	m, err := Build(oracle.NewGini(), Bounds{Nodes: 2, Rounds: 1}, SeenZeroFlood{}, WithLogger(logrus.NewEntry(l)))
	require.NoError(t, err)
	_, err = m.CheckAgreement(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "model built")
	assert.Contains(t, out, "nodes=2")
	assert.Contains(t, out, "property=agreement")
	assert.Contains(t, out, "verdict=PASS")
}

func TestRuleByName(t *testing.T) {
	r, err := RuleByName("seen-one")
	require.NoError(t, err)
	assert.Equal(t, "seenOne", r.FlagName())

	_, err = RuleByName("majority")
	assert.ErrorIs(t, err, ErrUnknownRule)
	assert.Equal(t, []string{"seen-one", "seen-zero"}, RuleNames())
}
