package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfielding/kripke-bmc/config"
	"github.com/rfielding/kripke-bmc/kripke"
)

func scenarioConfig(t *testing.T, name string) config.Root {
	t.Helper()
	c := config.Defaults()
	c.Scenario = name
	require.NoError(t, applyScenario(&c))
	return c
}

func TestRunScenarios(t *testing.T) {
	tests := []struct {
		scenario string
		code     int
	}{
		{"two-node", ExitPass},
		{"three-node", ExitPass},
		{"three-node-one-round", ExitFail},
	}
	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			report, err := NewModelChecker(scenarioConfig(t, tt.scenario)).Run(context.Background())
			require.NoError(t, err)
			require.Len(t, report.Results, 3)
			assert.Equal(t, tt.code, report.ExitCode())
		})
	}
}

func TestRunSubsetOfChecks(t *testing.T) {
	c := scenarioConfig(t, "three-node-one-round")
	c.Checks = []string{kripke.Agreement}
	report, err := NewModelChecker(c).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, kripke.Fail, report.Results[0].Verdict)
	assert.NotNil(t, report.Results[0].Trace)
}

func TestRunCrossCheck(t *testing.T) {
	for _, scenario := range []string{"two-node", "three-node-one-round"} {
		c := scenarioConfig(t, scenario)
		c.CrossCheck = true
		_, err := NewModelChecker(c).Run(context.Background())
		assert.NoError(t, err, scenario)
	}
}

func TestRunCancelledIsUnknown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := NewModelChecker(config.Defaults()).Run(ctx)
	require.NoError(t, err)
	for _, r := range report.Results {
		assert.Equal(t, kripke.Unknown, r.Verdict)
	}
	assert.Equal(t, ExitUnknown, report.ExitCode())
}

func TestRunRejectsConfig(t *testing.T) {
	c := config.Defaults()
	c.Nodes = 0
	report, err := NewModelChecker(c).Run(context.Background())
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, kripke.ErrConfig))
}

func TestExitCodePrecedence(t *testing.T) {
	r := &Report{Results: []kripke.Result{{Verdict: kripke.Unknown}, {Verdict: kripke.Fail}, {Verdict: kripke.Pass}}}
	assert.Equal(t, ExitFail, r.ExitCode())
	r = &Report{Results: []kripke.Result{{Verdict: kripke.Pass}, {Verdict: kripke.Unknown}}}
	assert.Equal(t, ExitUnknown, r.ExitCode())
	assert.Equal(t, ExitPass, (&Report{}).ExitCode())
}

func TestRenderFormats(t *testing.T) {
	report, err := NewModelChecker(scenarioConfig(t, "three-node-one-round")).Run(context.Background())
	require.NoError(t, err)

	render := func(format string) string {
		var buf bytes.Buffer
		require.NoError(t, report.Render(&buf, format))
		return buf.String()
	}

	text := render(config.FormatText)
	assert.Contains(t, text, "N=3 R=1, rule seen-zero")
	assert.Contains(t, text, "agreement      FAIL")
	assert.Contains(t, text, "counterexample:")
	assert.Contains(t, text, "crashed in round 1")
	assert.Equal(t, 1, strings.Count(text, "counterexample:"))

	md := render(config.FormatMarkdown)
	assert.Contains(t, md, "❌ FAIL")
	assert.Contains(t, md, "```mermaid\nsequenceDiagram")

	dot := render(config.FormatDOT)
	assert.Contains(t, dot, "// agreement at N=3 R=1: FAIL")
	assert.Contains(t, dot, `digraph "agreement"`)

	tla := render(config.FormatTLA)
	assert.Contains(t, tla, "---- MODULE CrashConsensus ----")
	assert.Contains(t, tla, `\* validity-zero at N=3 R=1: PASS`)

	assert.Error(t, report.Render(&bytes.Buffer{}, "svg"))
}

func TestScenarioByName(t *testing.T) {
	s, err := ScenarioByName("ten-node")
	require.NoError(t, err)
	assert.Equal(t, kripke.Bounds{Nodes: 10, Rounds: 8}, s.Bounds)

	_, err = ScenarioByName("eleven-node")
	assert.True(t, errors.Is(err, kripke.ErrConfig))
}
