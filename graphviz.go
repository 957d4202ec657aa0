package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rfielding/kripke-bmc/kripke"
)

// GenerateGraphviz generates a Graphviz DOT representation of a counterexample.
// There is one vertex per node and round, laid out in round columns. Solid
// edges are delivered messages, dashed edges are a node staying alive.
// Vertices holding the flag are filled; dead ones are grey.
func GenerateGraphviz(name string, tr *kripke.Trace) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("digraph %q {\n", name))
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=circle];\n")
	sb.WriteString("\n")

	last := tr.Bounds.Last()
	for t := kripke.Round(0); t <= last; t++ {
		sb.WriteString(fmt.Sprintf("  subgraph \"cluster_t%d\" {\n", t))
		sb.WriteString(fmt.Sprintf("    label=\"round %d\";\n", t))
		for _, i := range tr.Bounds.NodeIDs() {
			k := int(i) - 1
			attrs := []string{fmt.Sprintf("label=\"%d\\n%s=%s\"", i, tr.FlagName, bit(tr.Flag[k][t]))}
			if tr.Flag[k][t] {
				attrs = append(attrs, "style=filled", "fillcolor=lightblue")
			}
			if !tr.Alive[k][t] {
				attrs = append(attrs, "color=grey", "fontcolor=grey")
			}
			sb.WriteString(fmt.Sprintf("    %s [%s];\n", vertex(i, t), strings.Join(attrs, ", ")))
		}
		sb.WriteString("  }\n")
	}
	sb.WriteString("\n")

	for t := kripke.Round(1); t <= last; t++ {
		for _, i := range tr.Bounds.NodeIDs() {
			if tr.Alive[int(i)-1][t] {
				sb.WriteString(fmt.Sprintf("  %s -> %s [style=dashed];\n", vertex(i, t-1), vertex(i, t)))
			}
		}
		for _, e := range tr.Bounds.Edges() {
			if tr.Delivered(e, t) {
				sb.WriteString(fmt.Sprintf("  %s -> %s;\n", vertex(e.From, t-1), vertex(e.To, t)))
			}
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func vertex(i kripke.NodeID, t kripke.Round) string {
	return fmt.Sprintf("n%d_t%d", i, t)
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// SaveGraphviz writes the DOT rendering of tr to filename.
func SaveGraphviz(filename, name string, tr *kripke.Trace) error {
	return os.WriteFile(filename, []byte(GenerateGraphviz(name, tr)), 0o644)
}
