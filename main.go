// Command kripke-bmc is a bounded model checker for synchronous binary
// consensus under crash faults. It encodes N nodes over R rounds as a
// propositional formula and asks a SAT solver for violations of validity
// and agreement among the nodes that survive round R.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/rfielding/kripke-bmc/config"
	"github.com/rfielding/kripke-bmc/kripke"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("kripke-bmc", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.Flags(fs)
	listScenarios := fs.Bool("list-scenarios", false, "print the scenario presets and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitPass
		}
		return ExitError
	}
	if *listScenarios {
		for _, s := range Scenarios() {
			fmt.Fprintf(stdout, "%-22s %s\n", s.Name, s.Description)
		}
		return ExitPass
	}

	log.SetOutput(stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	c, err := config.Load(config.New(), fs)
	if err == nil {
		err = applyScenario(&c)
	}
	if err == nil {
		err = c.Validate()
	}
	if err != nil {
		log.Errorf("configuration: %v", err)
		return ExitError
	}
	level, _ := log.ParseLevel(c.LogLevel)
	log.SetLevel(level)

	mc := NewModelChecker(c)
	if c.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		mc.Metrics = kripke.NewMetrics(reg)
		srv := serveMetrics(c.MetricsAddr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.WithFields(log.Fields{"nodes": c.Nodes, "rounds": c.Rounds, "rule": c.Rule}).Info("checking")
	report, err := mc.Run(ctx)
	if err != nil {
		log.Errorf("run: %v", err)
		return ExitError
	}
	if err := report.Render(stdout, c.Format); err != nil {
		log.Errorf("render: %v", err)
		return ExitError
	}
	return report.ExitCode()
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warnf("metrics server: %v", err)
		}
	}()
	log.Infof("serving metrics on %s/metrics", addr)
	return srv
}
