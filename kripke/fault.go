package kripke

import (
	"github.com/pkg/errors"

	"github.com/rfielding/kripke-bmc/oracle"
)

// Constraint is one labelled base assertion of the model.
type Constraint struct {
	Label   string
	Formula oracle.Formula
}

// Fault model constraint labels.
const (
	LabelNoInitialCrash  = "no-initial-crash"
	LabelCrashPermanence = "crash-permanence"
	LabelSurvivor        = "final-survivor"
	LabelReliableLink    = "reliable-delivery"
	LabelSenderAlive     = "delivery-sender-alive"
	LabelReceiverAlive   = "delivery-receiver-alive"
)

// FaultModel is crash-stop failure with crash-correlated message loss.
//
// Any number of nodes may crash at any round as long as one survives the
// horizon. A message is guaranteed only between two nodes that are both
// alive at the end of its round; a message touching a node that crashes in
// that round may or may not arrive. No crash bound f is imposed.
type FaultModel struct{}

// Constraints returns the fault model over v.
func (FaultModel) Constraints(v *Vars) []Constraint {
	b := v.Bounds()
	last := b.Last()
	var cs []Constraint

	survivors := make([]oracle.Formula, 0, b.Nodes)
	for _, i := range b.NodeIDs() {
		cs = append(cs, Constraint{LabelNoInitialCrash, v.Alive(i, 0)})
		for t := Round(1); t <= last; t++ {
			cs = append(cs, Constraint{LabelCrashPermanence, oracle.Implies{If: v.Alive(i, t), Then: v.Alive(i, t-1)}})
		}
		survivors = append(survivors, v.Alive(i, last))
	}
	cs = append(cs, Constraint{LabelSurvivor, oracle.Ors(survivors...)})

	for _, e := range b.Edges() {
		for t := Round(1); t <= last; t++ {
			m := v.Deliver(e, t)
			cs = append(cs,
				Constraint{LabelReliableLink, oracle.Implies{
					If:   oracle.And{v.Alive(e.From, t), v.Alive(e.To, t)},
					Then: m,
				}},
				Constraint{LabelSenderAlive, oracle.Implies{If: m, Then: v.Alive(e.From, t-1)}},
				Constraint{LabelReceiverAlive, oracle.Implies{If: m, Then: v.Alive(e.To, t)}},
			)
		}
	}
	return cs
}

// Encode asserts the fault model into the current scope of o.
func (fm FaultModel) Encode(o oracle.Oracle, v *Vars) error {
	return assertAll(o, fm.Constraints(v))
}

func assertAll(o oracle.Oracle, cs []Constraint) error {
	for _, c := range cs {
		if err := o.Assert(c.Formula); err != nil {
			return errors.Wrap(err, c.Label)
		}
	}
	return nil
}
