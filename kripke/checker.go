package kripke

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/rfielding/kripke-bmc/oracle"
)

// Verdict is the outcome of one property check.
type Verdict int

const (
	// Unknown means the oracle gave up; the property is neither proved nor refuted.
	Unknown Verdict = iota
	Pass
	Fail
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// ErrScopeLeak is returned when a check leaves the oracle at a different
// scope depth than it found it.
var ErrScopeLeak = errors.New("kripke: oracle scope depth changed across a check")

// ErrUnknownProperty is returned by PropertyByName.
var ErrUnknownProperty = errors.New("kripke: unknown property")

// Property is a safety property checked by searching for its violation.
type Property struct {
	Name        string
	Description string
	// Violation is satisfiable together with the base constraints exactly
	// when the property fails at the model's bounds.
	Violation func(v *Vars) oracle.Formula
}

// Property names.
const (
	ValidityZero = "validity-zero"
	ValidityOne  = "validity-one"
	Agreement    = "agreement"
)

// ValidityZeroProperty: unanimous 0 input, yet some survivor decides 1.
var ValidityZeroProperty = Property{
	Name:        ValidityZero,
	Description: "all inputs 0 implies every survivor decides 0",
	Violation: func(v *Vars) oracle.Formula {
		b := v.Bounds()
		var zeros, bad []oracle.Formula
		for _, i := range b.NodeIDs() {
			zeros = append(zeros, oracle.Not{F: v.Init(i)})
			bad = append(bad, oracle.And{v.Alive(i, b.Last()), v.Decide(i)})
		}
		return oracle.And{oracle.Ands(zeros...), oracle.Ors(bad...)}
	},
}

// ValidityOneProperty: unanimous 1 input, yet some survivor decides 0.
var ValidityOneProperty = Property{
	Name:        ValidityOne,
	Description: "all inputs 1 implies every survivor decides 1",
	Violation: func(v *Vars) oracle.Formula {
		b := v.Bounds()
		var ones, bad []oracle.Formula
		for _, i := range b.NodeIDs() {
			ones = append(ones, v.Init(i))
			bad = append(bad, oracle.And{v.Alive(i, b.Last()), oracle.Not{F: v.Decide(i)}})
		}
		return oracle.And{oracle.Ands(ones...), oracle.Ors(bad...)}
	},
}

// AgreementProperty: two survivors decide differently, over every input.
var AgreementProperty = Property{
	Name:        Agreement,
	Description: "no two survivors decide differently",
	Violation: func(v *Vars) oracle.Formula {
		b := v.Bounds()
		last := b.Last()
		var pairs []oracle.Formula
		for _, i := range b.NodeIDs() {
			for _, j := range b.NodeIDs() {
				if j <= i {
					continue
				}
				pairs = append(pairs, oracle.And{
					v.Alive(i, last),
					v.Alive(j, last),
					oracle.Xor{Left: v.Decide(i), Right: v.Decide(j)},
				})
			}
		}
		return oracle.Ors(pairs...)
	},
}

// Properties lists the built-in properties in reporting order.
func Properties() []Property {
	return []Property{ValidityZeroProperty, ValidityOneProperty, AgreementProperty}
}

// PropertyByName looks up a built-in property.
func PropertyByName(name string) (Property, error) {
	for _, p := range Properties() {
		if p.Name == name {
			return p, nil
		}
	}
	return Property{}, errors.Wrapf(ErrUnknownProperty, "%q", name)
}

// Result is the outcome of one property check at one bound.
type Result struct {
	Property string
	Verdict  Verdict
	Bounds   Bounds
	Elapsed  time.Duration
	// Trace is the counterexample; set only when Verdict is Fail.
	Trace *Trace
}

// Scoped checks p inside its own oracle scope. The scope is closed on every
// exit path, panics included, so the base encoding is unchanged afterwards.
// A non-nil error is an internal fault and the verdict must be discarded.
func (m *Model) Scoped(ctx context.Context, p Property) (res Result, err error) {
	res = Result{Property: p.Name, Bounds: m.Bounds}
	start := time.Now()
	depth := m.o.Depth()

	m.o.Push()
	defer func() {
		err = multierr.Append(err, errors.Wrapf(m.o.Pop(), "close %s scope", p.Name))
		if d := m.o.Depth(); err == nil && d != depth {
			err = errors.Wrapf(ErrScopeLeak, "%s: depth %d, want %d", p.Name, d, depth)
		}
		res.Elapsed = time.Since(start)
		if err != nil {
			res.Verdict, res.Trace = Unknown, nil
			return
		}
		m.metrics.RecordCheck(p.Name, res.Verdict, res.Elapsed)
		m.log.WithFields(logrus.Fields{
			"property": p.Name,
			"verdict":  res.Verdict,
			"elapsed":  res.Elapsed,
		}).Debug("check finished")
	}()

	if err = m.o.Assert(p.Violation(m.Vars)); err != nil {
		return res, errors.Wrapf(err, "assert %s violation", p.Name)
	}
	sat, err := m.o.Check(ctx)
	if err != nil {
		return res, errors.Wrapf(err, "check %s", p.Name)
	}
	switch sat {
	case oracle.Unsat:
		res.Verdict = Pass
	case oracle.Sat:
		res.Verdict = Fail
		if res.Trace, err = extractTrace(m.o, m.Vars); err != nil {
			return res, errors.Wrapf(err, "extract %s witness", p.Name)
		}
	default:
		res.Verdict = Unknown
	}
	return res, nil
}

// CheckValidityZero checks that a unanimous 0 input forces every survivor to decide 0.
func (m *Model) CheckValidityZero(ctx context.Context) (Result, error) {
	return m.Scoped(ctx, ValidityZeroProperty)
}

// CheckValidityOne checks that a unanimous 1 input forces every survivor to decide 1.
func (m *Model) CheckValidityOne(ctx context.Context) (Result, error) {
	return m.Scoped(ctx, ValidityOneProperty)
}

// CheckAgreement checks that no two survivors decide differently.
func (m *Model) CheckAgreement(ctx context.Context) (Result, error) {
	return m.Scoped(ctx, AgreementProperty)
}

// CheckAll runs props in order, or every built-in property when props is
// empty. It stops at the first internal fault and returns the results so far.
func (m *Model) CheckAll(ctx context.Context, props ...Property) ([]Result, error) {
	if len(props) == 0 {
		props = Properties()
	}
	results := make([]Result, 0, len(props))
	for _, p := range props {
		r, err := m.Scoped(ctx, p)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}
