package kripke

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// tlaRule gives the round-0 flag and the decision of a built-in rule as
// TLA+ expressions over node i. Both rules share the flood step.
func tlaRule(rule TransitionRule) (initial, decide string, err error) {
	flag := rule.FlagName()
	switch rule.(type) {
	case SeenZeroFlood:
		return "~init[i]", fmt.Sprintf("~%s[i]", flag), nil
	case SeenOneFlood:
		return "init[i]", fmt.Sprintf("%s[i]", flag), nil
	default:
		return "", "", errors.Wrapf(ErrUnknownRule, "no TLA+ rendering for %q", rule.Name())
	}
}

// GenerateTLAPlus generates a TLA+ module of the same bounded system for
// cross-checking with TLC. The horizon is the explicit round counter and the
// three properties are state invariants that only constrain round = R.
func GenerateTLAPlus(moduleName string, b Bounds, rule TransitionRule) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	initial, decide, err := tlaRule(rule)
	if err != nil {
		return "", err
	}
	flag := rule.FlagName()
	var tla strings.Builder

	tla.WriteString(fmt.Sprintf("---- MODULE %s ----\n", moduleName))
	tla.WriteString("EXTENDS Naturals, FiniteSets\n\n")

	tla.WriteString(fmt.Sprintf("\\* Rule %s at %s\n", rule.Name(), b))
	tla.WriteString(fmt.Sprintf("N == %d\n", b.Nodes))
	tla.WriteString(fmt.Sprintf("R == %d\n\n", b.Rounds))
	tla.WriteString("Nodes == 1..N\n")
	tla.WriteString("Edges == {e \\in Nodes \\X Nodes : e[1] # e[2]}\n\n")

	tla.WriteString(fmt.Sprintf("VARIABLES round, init, alive, %s\n\n", flag))
	tla.WriteString(fmt.Sprintf("vars == <<round, init, alive, %s>>\n\n", flag))

	tla.WriteString("TypeOK ==\n")
	tla.WriteString("    /\\ round \\in 0..R\n")
	tla.WriteString("    /\\ init \\in [Nodes -> BOOLEAN]\n")
	tla.WriteString("    /\\ alive \\in [Nodes -> BOOLEAN]\n")
	tla.WriteString(fmt.Sprintf("    /\\ %s \\in [Nodes -> BOOLEAN]\n\n", flag))

	tla.WriteString("Init ==\n")
	tla.WriteString("    /\\ round = 0\n")
	tla.WriteString("    /\\ init \\in [Nodes -> BOOLEAN]\n")
	tla.WriteString("    /\\ alive = [i \\in Nodes |-> TRUE]\n")
	tla.WriteString(fmt.Sprintf("    /\\ %s = [i \\in Nodes |-> %s]\n\n", flag, initial))

	tla.WriteString("\\* next is the set alive at the end of the round; it never grows and is\n")
	tla.WriteString("\\* never empty. Messages between two members of next always arrive.\n")
	tla.WriteString("\\* A message may arrive only from a node alive entering the round and\n")
	tla.WriteString("\\* only to a member of next.\n")
	tla.WriteString("Step ==\n")
	tla.WriteString("    /\\ round < R\n")
	tla.WriteString("    /\\ \\E next \\in SUBSET {i \\in Nodes : alive[i]} :\n")
	tla.WriteString("       \\E deliver \\in SUBSET Edges :\n")
	tla.WriteString("          /\\ next # {}\n")
	tla.WriteString("          /\\ \\A e \\in Edges : (e[1] \\in next /\\ e[2] \\in next) => e \\in deliver\n")
	tla.WriteString("          /\\ \\A e \\in deliver : alive[e[1]] /\\ e[2] \\in next\n")
	tla.WriteString("          /\\ alive' = [i \\in Nodes |-> i \\in next]\n")
	tla.WriteString(fmt.Sprintf("          /\\ %s' = [i \\in Nodes |-> %s[i] \\/ \\E j \\in Nodes : <<j, i>> \\in deliver /\\ %s[j]]\n", flag, flag, flag))
	tla.WriteString("    /\\ round' = round + 1\n")
	tla.WriteString("    /\\ UNCHANGED init\n\n")

	tla.WriteString("Done == round = R /\\ UNCHANGED vars\n\n")
	tla.WriteString("Next == Step \\/ Done\n\n")
	tla.WriteString("Spec == Init /\\ [][Next]_vars\n\n")

	tla.WriteString(fmt.Sprintf("Decide(i) == %s\n\n", decide))

	tla.WriteString("\\* Safety: checked as invariants, meaningful at the horizon\n")
	tla.WriteString("ValidityZero ==\n")
	tla.WriteString("    (round = R /\\ \\A i \\in Nodes : ~init[i]) => \\A i \\in Nodes : alive[i] => ~Decide(i)\n\n")
	tla.WriteString("ValidityOne ==\n")
	tla.WriteString("    (round = R /\\ \\A i \\in Nodes : init[i]) => \\A i \\in Nodes : alive[i] => Decide(i)\n\n")
	tla.WriteString("Agreement ==\n")
	tla.WriteString("    round = R => \\A i, j \\in Nodes : (alive[i] /\\ alive[j]) => Decide(i) = Decide(j)\n\n")

	tla.WriteString("====\n")

	return tla.String(), nil
}
