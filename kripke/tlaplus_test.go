package kripke

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTLAPlus(t *testing.T) {
	tla, err := GenerateTLAPlus("CrashConsensus", Bounds{Nodes: 3, Rounds: 2}, SeenZeroFlood{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(tla, "---- MODULE CrashConsensus ----\n"))
	assert.True(t, strings.HasSuffix(tla, "====\n"))
	assert.Contains(t, tla, "N == 3\n")
	assert.Contains(t, tla, "R == 2\n")
	assert.Contains(t, tla, "seenZero = [i \\in Nodes |-> ~init[i]]")
	assert.Contains(t, tla, "Decide(i) == ~seenZero[i]")
	for _, inv := range []string{"ValidityZero ==", "ValidityOne ==", "Agreement =="} {
		assert.Contains(t, tla, inv)
	}
}

func TestGenerateTLAPlusSeenOne(t *testing.T) {
	tla, err := GenerateTLAPlus("Dual", Bounds{Nodes: 2, Rounds: 1}, SeenOneFlood{})
	require.NoError(t, err)
	assert.Contains(t, tla, "seenOne = [i \\in Nodes |-> init[i]]")
	assert.Contains(t, tla, "Decide(i) == seenOne[i]")
}

type customRule struct{ SeenZeroFlood }

func (customRule) Name() string { return "custom" }

func TestGenerateTLAPlusErrors(t *testing.T) {
	_, err := GenerateTLAPlus("M", Bounds{Nodes: 0, Rounds: 1}, SeenZeroFlood{})
	assert.True(t, errors.Is(err, ErrConfig))

	_, err = GenerateTLAPlus("M", Bounds{Nodes: 2, Rounds: 1}, customRule{})
	assert.True(t, errors.Is(err, ErrUnknownRule))
}
