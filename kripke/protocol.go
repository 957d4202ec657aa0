package kripke

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/rfielding/kripke-bmc/oracle"
)

// Protocol constraint labels.
const (
	LabelFlagInitial = "flag-initial"
	LabelFlagStep    = "flag-step"
	LabelDecision    = "decision"
)

// ErrUnknownRule is returned by RuleByName.
var ErrUnknownRule = errors.New("kripke: unknown transition rule")

// TransitionRule is the protocol under test. It defines a node's round-0
// flag, its round-t flag from the round-(t-1) flags and the round-t
// deliveries, and its decision from the flag at the horizon. The fault
// model does not depend on the rule.
type TransitionRule interface {
	Name() string
	// FlagName names the per-round flag family in variable names.
	FlagName() string
	Initial(v *Vars, i NodeID) oracle.Formula
	Step(v *Vars, i NodeID, t Round) oracle.Formula
	Decide(v *Vars, i NodeID) oracle.Formula
}

// ProtocolConstraints returns the rule's constraints over v:
// flag[i][0], flag[i][t] for t in 1..R, and decide[i].
func ProtocolConstraints(v *Vars, rule TransitionRule) []Constraint {
	b := v.Bounds()
	var cs []Constraint
	for _, i := range b.NodeIDs() {
		cs = append(cs, Constraint{LabelFlagInitial, oracle.Iff{Left: v.Flag(i, 0), Right: rule.Initial(v, i)}})
		for t := Round(1); t <= b.Last(); t++ {
			cs = append(cs, Constraint{LabelFlagStep, oracle.Iff{Left: v.Flag(i, t), Right: rule.Step(v, i, t)}})
		}
		cs = append(cs, Constraint{LabelDecision, oracle.Iff{Left: v.Decide(i), Right: rule.Decide(v, i)}})
	}
	return cs
}

// EncodeProtocol asserts the rule's constraints into the current scope of o.
func EncodeProtocol(o oracle.Oracle, v *Vars, rule TransitionRule) error {
	return assertAll(o, ProtocolConstraints(v, rule))
}

// flood is the monotone relay step: i holds the flag at the end of round t
// if it held it before, or some j delivered to i in round t while holding it.
func flood(v *Vars, i NodeID, t Round) oracle.Formula {
	terms := []oracle.Formula{v.Flag(i, t-1)}
	for _, j := range v.Bounds().NodeIDs() {
		if j == i {
			continue
		}
		terms = append(terms, oracle.And{v.Deliver(Edge{From: j, To: i}, t), v.Flag(j, t-1)})
	}
	return oracle.Ors(terms...)
}

// SeenZeroFlood floods "has observed a 0" and decides 1 only if no 0 was
// ever observed: AND-consensus over the initial bits.
type SeenZeroFlood struct{}

func (SeenZeroFlood) Name() string     { return "seen-zero" }
func (SeenZeroFlood) FlagName() string { return "seenZero" }

func (SeenZeroFlood) Initial(v *Vars, i NodeID) oracle.Formula {
	return oracle.Not{F: v.Init(i)}
}

func (SeenZeroFlood) Step(v *Vars, i NodeID, t Round) oracle.Formula {
	return flood(v, i, t)
}

func (SeenZeroFlood) Decide(v *Vars, i NodeID) oracle.Formula {
	return oracle.Not{F: v.Flag(i, v.Bounds().Last())}
}

// SeenOneFlood is the dual rule: flood "has observed a 1" and decide 1 as
// soon as any 1 was observed (OR-consensus).
type SeenOneFlood struct{}

func (SeenOneFlood) Name() string     { return "seen-one" }
func (SeenOneFlood) FlagName() string { return "seenOne" }

func (SeenOneFlood) Initial(v *Vars, i NodeID) oracle.Formula {
	return v.Init(i)
}

func (SeenOneFlood) Step(v *Vars, i NodeID, t Round) oracle.Formula {
	return flood(v, i, t)
}

func (SeenOneFlood) Decide(v *Vars, i NodeID) oracle.Formula {
	return v.Flag(i, v.Bounds().Last())
}

var rules = map[string]TransitionRule{
	SeenZeroFlood{}.Name(): SeenZeroFlood{},
	SeenOneFlood{}.Name():  SeenOneFlood{},
}

// RuleByName looks up a built-in transition rule.
func RuleByName(name string) (TransitionRule, error) {
	r, ok := rules[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownRule, "%q (available: %v)", name, RuleNames())
	}
	return r, nil
}

// RuleNames lists the built-in transition rules.
func RuleNames() []string {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
