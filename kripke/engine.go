package kripke

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rfielding/kripke-bmc/oracle"
)

// Model is the encoded system of one verification run: the variable table,
// the fault model and one transition rule, asserted once into the base scope
// of an oracle session the Model owns for its lifetime.
type Model struct {
	Bounds Bounds
	Vars   *Vars
	Rule   TransitionRule

	o       oracle.Oracle
	log     *logrus.Entry
	metrics *Metrics
	base    []Constraint
}

// Option configures Build.
type Option func(*Model)

// WithLogger routes debug logging through l.
func WithLogger(l *logrus.Entry) Option {
	return func(m *Model) { m.log = l }
}

// WithMetrics records checks and model sizes on mt.
func WithMetrics(mt *Metrics) Option {
	return func(m *Model) { m.metrics = mt }
}

// Build declares the variables of b on o and asserts the fault model and the
// rule into the base scope. Bounds are validated before o is touched.
func Build(o oracle.Oracle, b Bounds, rule TransitionRule, opts ...Option) (*Model, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if rule == nil {
		rule = SeenZeroFlood{}
	}
	m := &Model{
		Bounds: b,
		Rule:   rule,
		o:      o,
		log:    logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithFields(logrus.Fields{"nodes": b.Nodes, "rounds": b.Rounds})

	v, err := NewVars(o, b, rule.FlagName())
	if err != nil {
		return nil, err
	}
	m.Vars = v

	m.base = append(FaultModel{}.Constraints(v), ProtocolConstraints(v, rule)...)
	if err := assertAll(o, m.base); err != nil {
		return nil, errors.Wrap(err, "encode base constraints")
	}

	c := v.Counts()
	m.metrics.RecordModel(c)
	m.log.WithFields(logrus.Fields{
		"rule":        rule.Name(),
		"variables":   c.Total(),
		"constraints": len(m.base),
	}).Debug("model built")
	return m, nil
}

// Constraints returns the base constraints in assertion order.
func (m *Model) Constraints() []Constraint {
	return append([]Constraint(nil), m.base...)
}

// Oracle is the session the model is encoded on.
func (m *Model) Oracle() oracle.Oracle { return m.o }
