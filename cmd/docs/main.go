// Command docs writes a markdown verification report: the base constraints,
// the verdict table, every counterexample as tables and Mermaid diagrams,
// the explicit-state cross-check for small N, the checker metrics and the
// TLA+ rendering of the model.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/rfielding/kripke-bmc/config"
	"github.com/rfielding/kripke-bmc/kripke"
	"github.com/rfielding/kripke-bmc/oracle"
)

func report(ctx context.Context, c config.Root) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	rule, err := kripke.RuleByName(c.Rule)
	if err != nil {
		return "", err
	}
	props, err := c.Properties()
	if err != nil {
		return "", err
	}
	o, err := oracle.Open(c.Solver)
	if err != nil {
		return "", err
	}
	defer o.Close()

	mt := kripke.NewMetrics(prometheus.NewRegistry())
	m, err := kripke.Build(o, c.Bounds(), rule, kripke.WithMetrics(mt))
	if err != nil {
		return "", err
	}
	results, err := m.CheckAll(ctx, props...)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Crash-fault consensus at %s\n\n", c.Bounds()))
	sb.WriteString(fmt.Sprintf("Transition rule `%s`, solver `%s`.\n\n", rule.Name(), c.Solver))

	sb.WriteString("## Model\n\n")
	sb.WriteString(kripke.GenerateConstraintTable(m.Constraints()))

	sb.WriteString("\n## Results\n\n")
	sb.WriteString(kripke.GenerateVerdictTable(results))

	for _, r := range results {
		if r.Trace == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n## Counterexample: %s\n\n", r.Property))
		sb.WriteString(r.Trace.MarkdownTables())
		sb.WriteString("\n```mermaid\n")
		sb.WriteString(r.Trace.MermaidSequence())
		sb.WriteString("```\n")
		for _, i := range r.Trace.Bounds.NodeIDs() {
			sb.WriteString(fmt.Sprintf("\nNode %d:\n\n```mermaid\n", i))
			if err := kripke.WriteMermaidStateDiagram(r.Trace, i, &sb); err != nil {
				return "", err
			}
			sb.WriteString("```\n")
		}
	}

	if c.Nodes <= kripke.MaxExplicitNodes {
		explicit, err := kripke.ExplicitCheck(ctx, c.Bounds(), rule, props...)
		if err != nil {
			return "", err
		}
		if err := kripke.CrossCheck(results, explicit); err != nil {
			return "", err
		}
		sb.WriteString("\n## Explicit state graph\n\n")
		sb.WriteString("| Formula | Result | States |\n|---------|--------|--------|\n")
		for _, e := range explicit {
			sb.WriteString(fmt.Sprintf("| `%s` | %s | %d |\n", e.Formula, e.Verdict, e.States))
		}
	}

	table, err := mt.GenerateMetricsTable()
	if err != nil {
		return "", errors.Wrap(err, "gather metrics")
	}
	sb.WriteString("\n## Metrics\n\n")
	sb.WriteString(table)

	tla, err := kripke.GenerateTLAPlus("CrashConsensus", c.Bounds(), rule)
	if err != nil {
		return "", err
	}
	sb.WriteString("\n## TLA+\n\n```tla\n")
	sb.WriteString(tla)
	sb.WriteString("```\n")
	return sb.String(), nil
}

func main() {
	fs := pflag.NewFlagSet("docs", pflag.ExitOnError)
	config.Flags(fs)
	out := fs.StringP("out", "o", "-", "output file, - for stdout")
	_ = fs.Parse(os.Args[1:])

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	c, err := config.Load(config.New(), fs)
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}
	md, err := report(context.Background(), c)
	if err != nil {
		log.Fatalf("report: %v", err)
	}

	if *out == "-" {
		fmt.Print(md)
		return
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("create %s: %v", filepath.Dir(*out), err)
	}
	if err := os.WriteFile(*out, []byte(md), 0o644); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	log.Infof("wrote %s", *out)
}
