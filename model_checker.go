package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rfielding/kripke-bmc/config"
	"github.com/rfielding/kripke-bmc/kripke"
	"github.com/rfielding/kripke-bmc/oracle"
)

// Exit codes.
const (
	ExitPass    = 0
	ExitFail    = 1
	ExitUnknown = 2
	ExitError   = 3
)

// Report is the outcome of one run: every requested check at one bound.
type Report struct {
	Bounds  kripke.Bounds
	Rule    kripke.TransitionRule
	Model   *kripke.Model
	Results []kripke.Result
}

// ModelChecker runs the configured checks on a fresh oracle session.
type ModelChecker struct {
	Config  config.Root
	Log     *log.Entry
	Metrics *kripke.Metrics
}

// NewModelChecker creates a new model checker
func NewModelChecker(c config.Root) *ModelChecker {
	return &ModelChecker{
		Config: c,
		Log:    log.NewEntry(log.StandardLogger()),
	}
}

// Run validates the configuration, encodes the model once and runs each
// requested check in its own scope. Configuration errors wrap
// kripke.ErrConfig and are returned before the oracle is opened.
func (mc *ModelChecker) Run(ctx context.Context) (*Report, error) {
	c := mc.Config
	if err := c.Validate(); err != nil {
		return nil, err
	}
	props, err := c.Properties()
	if err != nil {
		return nil, err
	}
	rule, err := kripke.RuleByName(c.Rule)
	if err != nil {
		return nil, errors.Wrap(kripke.ErrConfig, err.Error())
	}

	o, err := oracle.Open(c.Solver)
	if err != nil {
		return nil, errors.Wrap(kripke.ErrConfig, err.Error())
	}
	defer o.Close()

	entry := mc.Log.WithField("solver", c.Solver)
	m, err := kripke.Build(o, c.Bounds(), rule, kripke.WithLogger(entry), kripke.WithMetrics(mc.Metrics))
	if err != nil {
		return nil, err
	}

	report := &Report{Bounds: c.Bounds(), Rule: rule, Model: m}
	for _, p := range props {
		checkCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.Timeout > 0 {
			checkCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		}
		res, err := m.Scoped(checkCtx, p)
		cancel()
		if err != nil {
			return report, errors.Wrapf(err, "%s at %s", p.Name, c.Bounds())
		}
		if res.Verdict == kripke.Unknown {
			entry.WithField("property", p.Name).Warn("solver gave up; property neither proved nor refuted")
		}
		report.Results = append(report.Results, res)
	}

	if c.CrossCheck {
		explicit, err := kripke.ExplicitCheck(ctx, c.Bounds(), rule, props...)
		if err != nil {
			return report, err
		}
		if err := kripke.CrossCheck(report.Results, explicit); err != nil {
			return report, err
		}
		entry.WithField("states", explicit[0].States).Info("explicit state graph agrees")
	}
	return report, nil
}

// ExitCode maps the verdicts to a process exit status.
func (r *Report) ExitCode() int {
	code := ExitPass
	for _, res := range r.Results {
		switch res.Verdict {
		case kripke.Fail:
			return ExitFail
		case kripke.Unknown:
			code = ExitUnknown
		}
	}
	return code
}

// Render writes the report in one of the config.Format* formats.
func (r *Report) Render(w io.Writer, format string) error {
	var out string
	switch format {
	case config.FormatText, "":
		out = r.text()
	case config.FormatMarkdown:
		out = r.markdown()
	case config.FormatDOT:
		out = r.dot()
	case config.FormatTLA:
		tla, err := kripke.GenerateTLAPlus("CrashConsensus", r.Bounds, r.Rule)
		if err != nil {
			return err
		}
		out = tla + r.comments(`\* `)
	default:
		return errors.Wrapf(kripke.ErrConfig, "format %q", format)
	}
	_, err := io.WriteString(w, out)
	return err
}

func (r *Report) text() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s, rule %s\n", r.Bounds, r.Rule.Name()))
	for _, res := range r.Results {
		sb.WriteString(fmt.Sprintf("%-14s %s (%v)\n", res.Property, res.Verdict, res.Elapsed))
		if res.Trace != nil {
			sb.WriteString("counterexample:\n")
			sb.WriteString(res.Trace.Table())
		}
	}
	return sb.String()
}

func (r *Report) markdown() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Verification at %s (rule %s)\n\n", r.Bounds, r.Rule.Name()))
	sb.WriteString(kripke.GenerateVerdictTable(r.Results))
	for _, res := range r.Results {
		if res.Trace == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n### Counterexample: %s\n\n", res.Property))
		sb.WriteString(res.Trace.MarkdownTables())
		sb.WriteString("\n```mermaid\n")
		sb.WriteString(res.Trace.MermaidSequence())
		sb.WriteString("```\n")
	}
	return sb.String()
}

func (r *Report) dot() string {
	var sb strings.Builder
	sb.WriteString(r.comments("// "))
	for _, res := range r.Results {
		if res.Trace != nil {
			sb.WriteString(GenerateGraphviz(res.Property, res.Trace))
		}
	}
	return sb.String()
}

func (r *Report) comments(prefix string) string {
	var sb strings.Builder
	for _, res := range r.Results {
		sb.WriteString(fmt.Sprintf("%s%s at %s: %s\n", prefix, res.Property, res.Bounds, res.Verdict))
	}
	return sb.String()
}
