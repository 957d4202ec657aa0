// Package config loads the run configuration from an optional config file,
// KRIPKE_BMC_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rfielding/kripke-bmc/kripke"
	"github.com/rfielding/kripke-bmc/oracle"
)

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "KRIPKE_BMC"

// Output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatDOT      = "dot"
	FormatTLA      = "tla"
)

var formats = []string{FormatText, FormatMarkdown, FormatDOT, FormatTLA}

type Root struct {
	Nodes    int
	Rounds   int
	Scenario string
	Rule     string
	Solver   string
	Timeout  time.Duration
	Format   string
	Checks   []string

	CrossCheck  bool   `mapstructure:"cross-check"`
	LogLevel    string `mapstructure:"log-level"`
	MetricsAddr string `mapstructure:"metrics-addr"`
}

// Defaults is the configuration used when nothing overrides it.
func Defaults() Root {
	return Root{
		Nodes:    3,
		Rounds:   3,
		Rule:     kripke.SeenZeroFlood{}.Name(),
		Solver:   "gini",
		Format:   FormatText,
		Checks:   []string{kripke.ValidityZero, kripke.ValidityOne, kripke.Agreement},
		LogLevel: "info",
	}
}

// New returns a viper instance carrying the defaults and bound to the
// environment.
func New() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault("nodes", d.Nodes)
	v.SetDefault("rounds", d.Rounds)
	v.SetDefault("scenario", d.Scenario)
	v.SetDefault("rule", d.Rule)
	v.SetDefault("solver", d.Solver)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("format", d.Format)
	v.SetDefault("checks", d.Checks)
	v.SetDefault("cross-check", d.CrossCheck)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("metrics-addr", d.MetricsAddr)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Flags registers one flag per configuration key on fs.
func Flags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.IntP("nodes", "n", d.Nodes, "number of nodes N (>= 1)")
	fs.IntP("rounds", "r", d.Rounds, "number of synchronous rounds R (>= 0)")
	fs.String("scenario", "", "named preset overriding nodes and rounds")
	fs.String("rule", d.Rule, "transition rule: "+strings.Join(kripke.RuleNames(), "|"))
	fs.String("solver", d.Solver, "satisfiability backend: "+strings.Join(oracle.Backends(), "|"))
	fs.Duration("timeout", d.Timeout, "per-check solver timeout, 0 for none")
	fs.StringP("format", "f", d.Format, "output format: "+strings.Join(formats, "|"))
	fs.StringSlice("checks", d.Checks, "properties to check")
	fs.Bool("cross-check", d.CrossCheck, "re-check every verdict on the explicit state graph")
	fs.String("log-level", d.LogLevel, "log level")
	fs.String("metrics-addr", d.MetricsAddr, "serve Prometheus metrics on this address")
}

// Load merges the config file named by the --config flag (if any), the
// environment and the flags in fs, then validates the result.
func Load(v *viper.Viper, fs *pflag.FlagSet) (Root, error) {
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Root{}, errors.Wrap(err, "bind flags")
		}
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Root{}, errors.Wrapf(kripke.ErrConfig, "read %s: %v", path, err)
		}
	}
	var c Root
	if err := v.Unmarshal(&c); err != nil {
		return Root{}, errors.Wrapf(kripke.ErrConfig, "decode: %v", err)
	}
	return c, nil
}

// ReadConfig reads a config file on top of the defaults and the environment.
func ReadConfig(path string) (Root, error) {
	v := New()
	v.Set("config", path)
	c, err := Load(v, nil)
	if err != nil {
		return Root{}, err
	}
	return c, c.Validate()
}

// Bounds is the (N, R) horizon of the run.
func (c Root) Bounds() kripke.Bounds {
	return kripke.Bounds{Nodes: c.Nodes, Rounds: c.Rounds}
}

// Properties resolves Checks, dropping duplicates and keeping the
// reporting order of kripke.Properties.
func (c Root) Properties() ([]kripke.Property, error) {
	want := make(map[string]bool, len(c.Checks))
	for _, name := range c.Checks {
		name = strings.TrimSpace(name)
		if _, err := kripke.PropertyByName(name); err != nil {
			return nil, errors.Wrapf(kripke.ErrConfig, "checks: %v", err)
		}
		want[name] = true
	}
	var props []kripke.Property
	for _, p := range kripke.Properties() {
		if want[p.Name] {
			props = append(props, p)
		}
	}
	if len(props) == 0 {
		return nil, errors.Wrap(kripke.ErrConfig, "checks: nothing to check")
	}
	return props, nil
}

// Validate reports every configuration error that would stop a run before
// any encoding. Errors wrap kripke.ErrConfig.
func (c Root) Validate() error {
	if err := c.Bounds().Validate(); err != nil {
		return err
	}
	if _, err := kripke.RuleByName(c.Rule); err != nil {
		return errors.Wrapf(kripke.ErrConfig, "rule: %v", err)
	}
	if !contains(oracle.Backends(), c.Solver) {
		return errors.Wrapf(kripke.ErrConfig, "solver %q not available (have %v)", c.Solver, oracle.Backends())
	}
	if !contains(formats, c.Format) {
		return errors.Wrapf(kripke.ErrConfig, "format %q not one of %v", c.Format, formats)
	}
	if c.Timeout < 0 {
		return errors.Wrapf(kripke.ErrConfig, "timeout must be >= 0, got %v", c.Timeout)
	}
	if c.CrossCheck && c.Nodes > kripke.MaxExplicitNodes {
		return errors.Wrapf(kripke.ErrConfig, "cross-check supports at most %d nodes, got %d", kripke.MaxExplicitNodes, c.Nodes)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(kripke.ErrConfig, "log-level: %v", err)
	}
	if _, err := c.Properties(); err != nil {
		return err
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
