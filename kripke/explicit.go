package kripke

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/rfielding/kripke-bmc/oracle"
)

// MaxExplicitNodes bounds the explicit checker; its state space grows
// exponentially in N.
const MaxExplicitNodes = 5

// ErrMismatch is returned by CrossCheck when the explicit and symbolic
// verdicts disagree on a decided property.
var ErrMismatch = errors.New("kripke: explicit and symbolic verdicts disagree")

// ExplicitResult is the verdict of one property on the explicit state graph.
type ExplicitResult struct {
	Property string
	Formula  string
	Verdict  Verdict
	Bounds   Bounds
	States   int
	Elapsed  time.Duration
}

// global is one explicit configuration: the round, the initial bits, the
// alive set and the flags, as node bitmasks (bit i-1 is node i).
type global struct {
	round              Round
	init, alive, flags uint32
}

// explorer enumerates the reachable configurations of rule under the fault
// model. Rules are evaluated as formulas over a throwaway variable table,
// so the explicit graph and the oracle encoding share only the rule itself.
type explorer struct {
	b     Bounds
	rule  TransitionRule
	v     *Vars
	env   []bool
	g     *Graph
	nodes []global
	index map[global]StateID
}

func (x *explorer) value(v oracle.Var) bool { return x.env[v.ID()] }

func (x *explorer) eval(f oracle.Formula) bool { return oracle.Eval(f, x.value) }

func (x *explorer) reset() {
	for i := range x.env {
		x.env[i] = false
	}
}

func (x *explorer) set(v oracle.Var, b bool) { x.env[v.ID()] = b }

func has(mask uint32, i NodeID) bool { return mask&(1<<(i-1)) != 0 }

func (x *explorer) intern(s global) (StateID, bool) {
	if id, ok := x.index[s]; ok {
		return id, false
	}
	id := x.g.AddState()
	x.nodes = append(x.nodes, s)
	x.index[s] = id
	return id, true
}

func (x *explorer) initial() []global {
	full := uint32(1)<<x.b.Nodes - 1
	var out []global
	for bitsIn := uint32(0); bitsIn <= full; bitsIn++ {
		x.reset()
		for _, i := range x.b.NodeIDs() {
			x.set(x.v.Init(i), has(bitsIn, i))
		}
		var flags uint32
		for _, i := range x.b.NodeIDs() {
			if x.eval(x.rule.Initial(x.v, i)) {
				flags |= 1 << (i - 1)
			}
		}
		out = append(out, global{init: bitsIn, alive: full, flags: flags})
	}
	return out
}

// successors applies one round: a nonempty subset of the alive nodes
// survives, links between survivors deliver, and each message from a node
// crashing in this round reaches any subset of the survivors.
func (x *explorer) successors(s global) []global {
	t := s.round + 1
	var out []global
	for next := s.alive; next != 0; next = (next - 1) & s.alive {
		var optional []Edge
		for _, e := range x.b.Edges() {
			if has(s.alive, e.From) && !has(next, e.From) && has(next, e.To) {
				optional = append(optional, e)
			}
		}
		for choice := 0; choice < 1<<len(optional); choice++ {
			x.reset()
			for _, i := range x.b.NodeIDs() {
				x.set(x.v.Init(i), has(s.init, i))
				x.set(x.v.Alive(i, t-1), has(s.alive, i))
				x.set(x.v.Alive(i, t), has(next, i))
				x.set(x.v.Flag(i, t-1), has(s.flags, i))
			}
			for _, e := range x.b.Edges() {
				x.set(x.v.Deliver(e, t), has(next, e.From) && has(next, e.To))
			}
			for k, e := range optional {
				x.set(x.v.Deliver(e, t), choice&(1<<k) != 0)
			}
			var flags uint32
			for _, i := range x.b.NodeIDs() {
				if x.eval(x.rule.Step(x.v, i, t)) {
					flags |= 1 << (i - 1)
				}
			}
			out = append(out, global{round: t, init: s.init, alive: next, flags: flags})
		}
	}
	return out
}

func (x *explorer) explore(ctx context.Context) error {
	var frontier []StateID
	for _, s := range x.initial() {
		id, _ := x.intern(s)
		x.g.Initial = append(x.g.Initial, id)
		frontier = append(frontier, id)
	}
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		from := frontier[0]
		frontier = frontier[1:]
		s := x.nodes[from]
		if s.round == x.b.Last() {
			continue
		}
		seen := make(map[StateID]bool)
		for _, succ := range x.successors(s) {
			to, fresh := x.intern(succ)
			if fresh {
				frontier = append(frontier, to)
			}
			if !seen[to] {
				seen[to] = true
				x.g.AddEdge(from, to)
			}
		}
	}
	return nil
}

// violates evaluates p on a horizon configuration.
func (x *explorer) violates(s global, p Property) bool {
	last := x.b.Last()
	x.reset()
	for _, i := range x.b.NodeIDs() {
		x.set(x.v.Init(i), has(s.init, i))
		x.set(x.v.Alive(i, last), has(s.alive, i))
		x.set(x.v.Flag(i, last), has(s.flags, i))
	}
	for _, i := range x.b.NodeIDs() {
		x.set(x.v.Decide(i), x.eval(x.rule.Decide(x.v, i)))
	}
	return x.eval(p.Violation(x.v))
}

// ExplicitCheck enumerates the reachable configurations for b and checks
// each property as AG(round = R ⇒ ¬violation). A cancelled ctx yields
// Unknown verdicts. Bounds above MaxExplicitNodes are rejected.
func ExplicitCheck(ctx context.Context, b Bounds, rule TransitionRule, props ...Property) ([]ExplicitResult, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.Nodes > MaxExplicitNodes {
		return nil, errors.Wrapf(ErrConfig, "explicit check supports at most %d nodes, got %d", MaxExplicitNodes, b.Nodes)
	}
	if rule == nil {
		rule = SeenZeroFlood{}
	}
	if len(props) == 0 {
		props = Properties()
	}

	table := oracle.NewGini()
	defer table.Close()
	v, err := NewVars(table, b, rule.FlagName())
	if err != nil {
		return nil, err
	}
	x := &explorer{
		b:     b,
		rule:  rule,
		v:     v,
		env:   make([]bool, len(v.All())+1),
		g:     &Graph{},
		index: make(map[global]StateID),
	}

	start := time.Now()
	results := make([]ExplicitResult, 0, len(props))
	if err := x.explore(ctx); err != nil {
		for _, p := range props {
			results = append(results, ExplicitResult{Property: p.Name, Verdict: Unknown, Bounds: b, Elapsed: time.Since(start)})
		}
		return results, nil
	}

	for _, p := range props {
		pstart := time.Now()
		safe := Atom{
			Name: fmt.Sprintf("(round=%d ⇒ ¬%s)", b.Rounds, p.Name),
			Holds: func(id StateID) bool {
				s := x.nodes[id]
				return s.round != b.Last() || !x.violates(s, p)
			},
		}
		f := AG{F: safe}
		verdict := Fail
		if SatInitial(x.g, f) {
			verdict = Pass
		}
		results = append(results, ExplicitResult{
			Property: p.Name,
			Formula:  f.String(),
			Verdict:  verdict,
			Bounds:   b,
			States:   x.g.Len(),
			Elapsed:  time.Since(pstart),
		})
	}
	return results, nil
}

// CrossCheck compares symbolic results with the explicit verdicts at the
// same bound. Unknown on either side is not a disagreement.
func CrossCheck(symbolic []Result, explicit []ExplicitResult) error {
	byName := make(map[string]Verdict, len(explicit))
	for _, e := range explicit {
		byName[e.Property] = e.Verdict
	}
	for _, r := range symbolic {
		e, ok := byName[r.Property]
		if !ok || e == Unknown || r.Verdict == Unknown {
			continue
		}
		if e != r.Verdict {
			return errors.Wrapf(ErrMismatch, "%s at %s: symbolic %s, explicit %s", r.Property, r.Bounds, r.Verdict, e)
		}
	}
	return nil
}
