// Command sweep checks one property over a grid of node and round counts,
// one independent oracle session per cell, and prints the verdict grid with
// the smallest passing round count per node count.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/rfielding/kripke-bmc/kripke"
	"github.com/rfielding/kripke-bmc/oracle"
)

type options struct {
	MinNodes, MaxNodes int
	MaxRounds          int
	Property           string
	Rule               string
	Solver             string
	Timeout            time.Duration
	Parallel           int
}

// grid holds one verdict per (N, R) cell, indexed [N-MinNodes][R].
type grid struct {
	opts     options
	verdicts [][]kripke.Verdict
}

func sweep(ctx context.Context, opts options) (*grid, error) {
	prop, err := kripke.PropertyByName(opts.Property)
	if err != nil {
		return nil, err
	}
	rule, err := kripke.RuleByName(opts.Rule)
	if err != nil {
		return nil, err
	}
	if opts.MinNodes < 1 || opts.MaxNodes < opts.MinNodes || opts.MaxRounds < 0 {
		return nil, errors.Wrapf(kripke.ErrConfig, "empty grid N=%d..%d R=0..%d", opts.MinNodes, opts.MaxNodes, opts.MaxRounds)
	}

	g := &grid{opts: opts, verdicts: make([][]kripke.Verdict, opts.MaxNodes-opts.MinNodes+1)}
	for k := range g.verdicts {
		g.verdicts[k] = make([]kripke.Verdict, opts.MaxRounds+1)
	}

	eg, ctx := errgroup.WithContext(ctx)
	if opts.Parallel > 0 {
		eg.SetLimit(opts.Parallel)
	}
	for n := opts.MinNodes; n <= opts.MaxNodes; n++ {
		for r := 0; r <= opts.MaxRounds; r++ {
			n, r := n, r
			eg.Go(func() error {
				v, err := checkCell(ctx, opts, rule, prop, kripke.Bounds{Nodes: n, Rounds: r})
				if err != nil {
					return err
				}
				// Each goroutine owns exactly one cell.
				g.verdicts[n-opts.MinNodes][r] = v
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return g, nil
}

func checkCell(ctx context.Context, opts options, rule kripke.TransitionRule, p kripke.Property, b kripke.Bounds) (kripke.Verdict, error) {
	o, err := oracle.Open(opts.Solver)
	if err != nil {
		return kripke.Unknown, err
	}
	defer o.Close()

	entry := log.WithFields(log.Fields{"nodes": b.Nodes, "rounds": b.Rounds})
	m, err := kripke.Build(o, b, rule, kripke.WithLogger(entry))
	if err != nil {
		return kripke.Unknown, err
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	res, err := m.Scoped(ctx, p)
	if err != nil {
		return kripke.Unknown, errors.Wrapf(err, "%s at %s", p.Name, b)
	}
	return res.Verdict, nil
}

// Threshold is the smallest R from which every larger checked R passes
// for n nodes, or -1 when the last column does not pass.
func (g *grid) Threshold(n int) int {
	row := g.verdicts[n-g.opts.MinNodes]
	t := -1
	for r := len(row) - 1; r >= 0 && row[r] == kripke.Pass; r-- {
		t = r
	}
	return t
}

// Monotone reports whether no row passes at some R and fails at a larger R.
func (g *grid) Monotone() bool {
	for _, row := range g.verdicts {
		passed := false
		for _, v := range row {
			if passed && v == kripke.Fail {
				return false
			}
			passed = passed || v == kripke.Pass
		}
	}
	return true
}

func (g *grid) write(w io.Writer) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (rule %s)\n\n", g.opts.Property, g.opts.Rule))
	sb.WriteString("| N |")
	for r := 0; r <= g.opts.MaxRounds; r++ {
		sb.WriteString(fmt.Sprintf(" R=%d |", r))
	}
	sb.WriteString(" passes from |\n|---|")
	for r := 0; r <= g.opts.MaxRounds; r++ {
		sb.WriteString("-----|")
	}
	sb.WriteString("-------------|\n")
	for n := g.opts.MinNodes; n <= g.opts.MaxNodes; n++ {
		sb.WriteString(fmt.Sprintf("| %d |", n))
		for _, v := range g.verdicts[n-g.opts.MinNodes] {
			sb.WriteString(fmt.Sprintf(" %s |", v))
		}
		from := "-"
		if t := g.Threshold(n); t >= 0 {
			from = fmt.Sprintf("R=%d", t)
		}
		sb.WriteString(fmt.Sprintf(" %s |\n", from))
	}
	io.WriteString(w, sb.String())
}

func main() {
	var opts options
	fs := pflag.NewFlagSet("sweep", pflag.ExitOnError)
	fs.IntVar(&opts.MinNodes, "min-nodes", 1, "smallest node count")
	fs.IntVar(&opts.MaxNodes, "max-nodes", 5, "largest node count")
	fs.IntVar(&opts.MaxRounds, "max-rounds", 5, "largest round count")
	fs.StringVar(&opts.Property, "property", kripke.Agreement, "property to sweep")
	fs.StringVar(&opts.Rule, "rule", kripke.SeenZeroFlood{}.Name(), "transition rule")
	fs.StringVar(&opts.Solver, "solver", "gini", "satisfiability backend")
	fs.DurationVar(&opts.Timeout, "timeout", 0, "per-cell solver timeout")
	fs.IntVar(&opts.Parallel, "parallel", 4, "concurrent sessions, 0 for unlimited")
	verbose := fs.BoolP("verbose", "v", false, "debug logging")
	_ = fs.Parse(os.Args[1:])

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	g, err := sweep(ctx, opts)
	if err != nil {
		log.Fatalf("sweep: %v", err)
	}
	g.write(os.Stdout)
	log.Infof("swept %d cells in %v", (opts.MaxNodes-opts.MinNodes+1)*(opts.MaxRounds+1), time.Since(start))
	if !g.Monotone() {
		log.Error("verdicts are not monotone in R")
		os.Exit(1)
	}
}
