package kripke

import (
	"fmt"
	"strings"
	"time"
)

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Table renders every variable of the trace as plain text, grouped by node
// and then by round. The recv column lists each sender's round-t delivery
// to the node as sender:bit.
func (tr *Trace) Table() string {
	var sb strings.Builder
	last := tr.Bounds.Last()
	for _, i := range tr.Bounds.NodeIDs() {
		k := int(i) - 1
		status := "survives"
		if t, ok := tr.CrashRound(i); ok {
			status = fmt.Sprintf("crashed in round %d", t)
		}
		sb.WriteString(fmt.Sprintf("node %d: init=%s decide=%s %s\n", i, bit(tr.Init[k]), bit(tr.Decide[k]), status))
		sb.WriteString(fmt.Sprintf("  %-5s  %-5s  %-*s  %s\n", "round", "alive", len(tr.FlagName), tr.FlagName, "recv"))
		for t := Round(0); t <= last; t++ {
			var recv []string
			if t > 0 {
				for _, j := range tr.Bounds.NodeIDs() {
					if j != i {
						recv = append(recv, fmt.Sprintf("%d:%s", j, bit(tr.Delivered(Edge{From: j, To: i}, t))))
					}
				}
			}
			if len(recv) == 0 {
				recv = []string{"-"}
			}
			sb.WriteString(fmt.Sprintf("  %-5d  %-5s  %-*s  %s\n", t, bit(tr.Alive[k][t]), len(tr.FlagName), bit(tr.Flag[k][t]), strings.Join(recv, " ")))
		}
	}
	return sb.String()
}

// MarkdownTables renders the trace as three markdown tables: per-node
// summary, per-round node state and per-round delivery matrices.
func (tr *Trace) MarkdownTables() string {
	var sb strings.Builder
	last := tr.Bounds.Last()

	sb.WriteString("| Node | init | crash round | decide |\n")
	sb.WriteString("|------|------|-------------|--------|\n")
	for _, i := range tr.Bounds.NodeIDs() {
		k := int(i) - 1
		crash := "-"
		if t, ok := tr.CrashRound(i); ok {
			crash = fmt.Sprintf("%d", t)
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n", i, bit(tr.Init[k]), crash, bit(tr.Decide[k])))
	}

	sb.WriteString("\n| Node |")
	for t := Round(0); t <= last; t++ {
		sb.WriteString(fmt.Sprintf(" t=%d |", t))
	}
	sb.WriteString("\n|------|")
	for t := Round(0); t <= last; t++ {
		sb.WriteString("-----|")
	}
	sb.WriteString("\n")
	for _, i := range tr.Bounds.NodeIDs() {
		k := int(i) - 1
		sb.WriteString(fmt.Sprintf("| %d |", i))
		for t := Round(0); t <= last; t++ {
			sb.WriteString(fmt.Sprintf(" alive=%s %s=%s |", bit(tr.Alive[k][t]), tr.FlagName, bit(tr.Flag[k][t])))
		}
		sb.WriteString("\n")
	}

	for t := Round(1); t <= last; t++ {
		sb.WriteString(fmt.Sprintf("\nRound %d deliveries (row = sender, column = receiver):\n\n", t))
		sb.WriteString("| from \\ to |")
		for _, j := range tr.Bounds.NodeIDs() {
			sb.WriteString(fmt.Sprintf(" %d |", j))
		}
		sb.WriteString("\n|-----------|")
		for range tr.Bounds.NodeIDs() {
			sb.WriteString("---|")
		}
		sb.WriteString("\n")
		m := tr.DeliveryMatrix(t)
		for _, i := range tr.Bounds.NodeIDs() {
			sb.WriteString(fmt.Sprintf("| %d |", i))
			for _, j := range tr.Bounds.NodeIDs() {
				if i == j {
					sb.WriteString(" - |")
					continue
				}
				sb.WriteString(fmt.Sprintf(" %s |", bit(m[i-1][j-1])))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// DiagramOption configures diagram generation
type DiagramOption func(*diagramOptions)

type diagramOptions struct {
	showLost  bool
	maxRounds int
}

// WithLostMessages toggles arrows for messages a live sender sent that never arrived.
func WithLostMessages(show bool) DiagramOption {
	return func(opts *diagramOptions) {
		opts.showLost = show
	}
}

// WithMaxRounds truncates the diagram after n rounds.
func WithMaxRounds(n int) DiagramOption {
	return func(opts *diagramOptions) {
		opts.maxRounds = n
	}
}

// MermaidSequence renders the trace as a Mermaid sequence diagram: one
// arrow per round-t message labelled with the sender's flag entering the
// round, and a note where a node crashes.
func (tr *Trace) MermaidSequence(options ...DiagramOption) string {
	opts := &diagramOptions{showLost: true}
	for _, opt := range options {
		opt(opts)
	}

	var sb strings.Builder
	sb.WriteString("sequenceDiagram\n")
	ids := tr.Bounds.NodeIDs()
	for _, i := range ids {
		k := int(i) - 1
		sb.WriteString(fmt.Sprintf("    participant N%d as node %d (init=%s)\n", i, i, bit(tr.Init[k])))
	}

	span := fmt.Sprintf("N%d", ids[0])
	if len(ids) > 1 {
		span += fmt.Sprintf(",N%d", ids[len(ids)-1])
	}

	last := tr.Bounds.Last()
	limit := last
	if opts.maxRounds > 0 && Round(opts.maxRounds) < last {
		limit = Round(opts.maxRounds)
	}
	for t := Round(1); t <= limit; t++ {
		sb.WriteString(fmt.Sprintf("    Note over %s: round %d\n", span, t))
		for _, e := range tr.Bounds.Edges() {
			from := int(e.From) - 1
			if !tr.Alive[from][t-1] {
				continue
			}
			label := fmt.Sprintf("%s=%s", tr.FlagName, bit(tr.Flag[from][t-1]))
			switch {
			case tr.Delivered(e, t):
				sb.WriteString(fmt.Sprintf("    N%d->>N%d: %s\n", e.From, e.To, label))
			case opts.showLost:
				sb.WriteString(fmt.Sprintf("    N%d--xN%d: lost\n", e.From, e.To))
			}
		}
		for _, i := range ids {
			k := int(i) - 1
			if tr.Alive[k][t-1] && !tr.Alive[k][t] {
				sb.WriteString(fmt.Sprintf("    Note over N%d: crashed\n", i))
			}
		}
	}
	if limit < last {
		sb.WriteString(fmt.Sprintf("    Note over %s: ... (%d more rounds)\n", span, last-limit))
	}

	var decided []string
	for _, i := range tr.Survivors() {
		decided = append(decided, fmt.Sprintf("N%d=%s", i, bit(tr.Decide[int(i)-1])))
	}
	if len(decided) > 0 {
		sb.WriteString(fmt.Sprintf("    Note over %s: decide %s\n", span, strings.Join(decided, " ")))
	}
	return sb.String()
}

// GenerateVerdictTable generates a markdown table of check results
func GenerateVerdictTable(results []Result) string {
	var sb strings.Builder
	sb.WriteString("| Property | N | R | Result | Time | Witness |\n")
	sb.WriteString("|----------|---|---|--------|------|---------|\n")

	for _, r := range results {
		result := "❓ UNKNOWN"
		switch r.Verdict {
		case Pass:
			result = "✅ PASS"
		case Fail:
			result = "❌ FAIL"
		}
		witness := "-"
		if r.Trace != nil {
			witness = witnessSummary(r.Trace)
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %v | %s |\n",
			r.Property, r.Bounds.Nodes, r.Bounds.Rounds, result, r.Elapsed.Round(time.Microsecond), witness))
	}

	return sb.String()
}

func witnessSummary(tr *Trace) string {
	var parts []string
	for _, i := range tr.Bounds.NodeIDs() {
		if t, ok := tr.CrashRound(i); ok {
			parts = append(parts, fmt.Sprintf("node %d crashes in round %d", i, t))
		}
	}
	var decided []string
	for _, i := range tr.Survivors() {
		decided = append(decided, fmt.Sprintf("%d→%s", i, bit(tr.Decide[int(i)-1])))
	}
	parts = append(parts, "survivors decide "+strings.Join(decided, ", "))
	return strings.Join(parts, "; ")
}

// GenerateConstraintTable generates a markdown table of the base
// constraints, one row per label with its instance count and an example.
func GenerateConstraintTable(cs []Constraint) string {
	var sb strings.Builder
	sb.WriteString("| Constraint | Instances | Example |\n")
	sb.WriteString("|------------|-----------|---------|\n")

	var order []string
	count := make(map[string]int)
	example := make(map[string]string)
	for _, c := range cs {
		if count[c.Label] == 0 {
			order = append(order, c.Label)
			example[c.Label] = c.Formula.String()
		}
		count[c.Label]++
	}
	for _, label := range order {
		sb.WriteString(fmt.Sprintf("| %s | %d | `%s` |\n", label, count[label], example[label]))
	}

	return sb.String()
}
