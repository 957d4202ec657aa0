package main

import (
	"github.com/pkg/errors"

	"github.com/rfielding/kripke-bmc/config"
	"github.com/rfielding/kripke-bmc/kripke"
)

// Scenario is a named (N, R) instance with a known expected outcome.
type Scenario struct {
	Name        string
	Description string
	Bounds      kripke.Bounds
}

// Scenarios returns the built-in presets.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:        "two-node",
			Description: "2 nodes, 2 rounds: every check passes",
			Bounds:      kripke.Bounds{Nodes: 2, Rounds: 2},
		},
		{
			Name:        "three-node",
			Description: "3 nodes, 3 rounds: every check passes",
			Bounds:      kripke.Bounds{Nodes: 3, Rounds: 3},
		},
		{
			Name:        "three-node-one-round",
			Description: "3 nodes, 1 round: agreement fails on a partial broadcast by a crashing node",
			Bounds:      kripke.Bounds{Nodes: 3, Rounds: 1},
		},
		{
			Name:        "ten-node",
			Description: "10 nodes, 8 rounds: agreement fails on a chain of 8 crashing relays",
			Bounds:      kripke.Bounds{Nodes: 10, Rounds: 8},
		},
	}
}

// ScenarioByName looks up a preset.
func ScenarioByName(name string) (Scenario, error) {
	for _, s := range Scenarios() {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, errors.Wrapf(kripke.ErrConfig, "unknown scenario %q", name)
}

// applyScenario replaces nodes and rounds with the preset named in c, if any.
func applyScenario(c *config.Root) error {
	if c.Scenario == "" {
		return nil
	}
	s, err := ScenarioByName(c.Scenario)
	if err != nil {
		return err
	}
	c.Nodes, c.Rounds = s.Bounds.Nodes, s.Bounds.Rounds
	return nil
}
