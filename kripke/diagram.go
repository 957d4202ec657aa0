package kripke

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// WriteMermaidStateDiagram writes node i's run through the trace as a
// Mermaid stateDiagram-v2: one state per round named by the node's alive
// bit and flag, ending in its decision or a crash.
func WriteMermaidStateDiagram(tr *Trace, i NodeID, w io.Writer) error {
	k := int(i) - 1
	if k < 0 || k >= tr.Bounds.Nodes {
		return errors.Errorf("kripke: node %d out of range 1..%d", i, tr.Bounds.Nodes)
	}
	if _, err := fmt.Fprintln(w, "stateDiagram-v2"); err != nil {
		return err
	}

	state := func(t Round) string { return fmt.Sprintf("n%d_t%d", i, t) }
	fmt.Fprintf(w, "  [*] --> %s\n", state(0))

	last := tr.Bounds.Last()
	for t := Round(0); t <= last; t++ {
		fmt.Fprintf(w, "  %s: t=%d alive=%s %s=%s\n", state(t), t, bit(tr.Alive[k][t]), tr.FlagName, bit(tr.Flag[k][t]))
		if !tr.Alive[k][t] {
			fmt.Fprintf(w, "  %s --> [*]: crashed\n", state(t))
			return nil
		}
		if t < last {
			fmt.Fprintf(w, "  %s --> %s\n", state(t), state(t+1))
		}
	}
	_, err := fmt.Fprintf(w, "  %s --> [*]: decide %s\n", state(last), bit(tr.Decide[k]))
	return err
}
