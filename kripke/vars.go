package kripke

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rfielding/kripke-bmc/oracle"
)

// ErrConfig marks bounds that cannot be encoded. It is returned before any
// variable is declared.
var ErrConfig = errors.New("kripke: invalid configuration")

// NodeID identifies a node, 1..N.
type NodeID int

// Round is a round marker, 0..R. Round 0 is the state before the protocol
// starts and round t is the state at the end of round t.
type Round int

// Edge is an ordered sender/receiver pair with From != To.
type Edge struct {
	From, To NodeID
}

func (e Edge) String() string { return fmt.Sprintf("%d->%d", e.From, e.To) }

// Bounds is the (N, R) horizon of one verification run.
type Bounds struct {
	Nodes  int
	Rounds int
}

// Validate rejects non-positive node counts and negative round counts.
func (b Bounds) Validate() error {
	if b.Nodes < 1 {
		return errors.Wrapf(ErrConfig, "nodes must be >= 1, got %d", b.Nodes)
	}
	if b.Rounds < 0 {
		return errors.Wrapf(ErrConfig, "rounds must be >= 0, got %d", b.Rounds)
	}
	return nil
}

func (b Bounds) String() string { return fmt.Sprintf("N=%d R=%d", b.Nodes, b.Rounds) }

// NodeIDs lists 1..N.
func (b Bounds) NodeIDs() []NodeID {
	ids := make([]NodeID, b.Nodes)
	for i := range ids {
		ids[i] = NodeID(i + 1)
	}
	return ids
}

// Edges lists every ordered pair of distinct nodes, sender-major.
func (b Bounds) Edges() []Edge {
	edges := make([]Edge, 0, b.Nodes*(b.Nodes-1))
	for _, i := range b.NodeIDs() {
		for _, j := range b.NodeIDs() {
			if i != j {
				edges = append(edges, Edge{From: i, To: j})
			}
		}
	}
	return edges
}

// Last is the horizon round R.
func (b Bounds) Last() Round { return Round(b.Rounds) }

// DefaultFlag is the name of the per-round protocol flag family.
const DefaultFlag = "seenZero"

// Vars is the variable table of one model: every family indexed by node
// and round through dense slices, so distinct index tuples never alias.
type Vars struct {
	bounds   Bounds
	flagName string

	init    []oracle.Var     // [i-1]
	alive   [][]oracle.Var   // [i-1][t]
	deliver [][][]oracle.Var // [from-1][to-1][t-1], nil on the diagonal
	flag    [][]oracle.Var   // [i-1][t]
	decide  []oracle.Var     // [i-1]
}

// Counts is the size of each variable family.
type Counts struct {
	Init, Alive, Deliver, Flag, Decide int
}

// Total is the number of declared variables.
func (c Counts) Total() int { return c.Init + c.Alive + c.Deliver + c.Flag + c.Decide }

// NewVars declares every variable the model needs on o.
// flag names the per-round protocol flag family; empty means DefaultFlag.
func NewVars(o oracle.Oracle, b Bounds, flag string) (*Vars, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if flag == "" {
		flag = DefaultFlag
	}
	n, r := b.Nodes, b.Rounds
	v := &Vars{
		bounds:   b,
		flagName: flag,
		init:     make([]oracle.Var, n),
		alive:    make([][]oracle.Var, n),
		deliver:  make([][][]oracle.Var, n),
		flag:     make([][]oracle.Var, n),
		decide:   make([]oracle.Var, n),
	}
	for i := 0; i < n; i++ {
		v.init[i] = o.DeclareBool(fmt.Sprintf("init[%d]", i+1))
		v.alive[i] = make([]oracle.Var, r+1)
		v.flag[i] = make([]oracle.Var, r+1)
		for t := 0; t <= r; t++ {
			v.alive[i][t] = o.DeclareBool(fmt.Sprintf("alive[%d][%d]", i+1, t))
			v.flag[i][t] = o.DeclareBool(fmt.Sprintf("%s[%d][%d]", flag, i+1, t))
		}
		v.deliver[i] = make([][]oracle.Var, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			v.deliver[i][j] = make([]oracle.Var, r)
			for t := 1; t <= r; t++ {
				v.deliver[i][j][t-1] = o.DeclareBool(fmt.Sprintf("deliver[%d][%d][%d]", i+1, j+1, t))
			}
		}
		v.decide[i] = o.DeclareBool(fmt.Sprintf("decide[%d]", i+1))
	}
	return v, nil
}

// Bounds returns the horizon the table was built for.
func (v *Vars) Bounds() Bounds { return v.bounds }

// FlagName is the name of the per-round protocol flag family.
func (v *Vars) FlagName() string { return v.flagName }

// Counts reports the size of each family.
func (v *Vars) Counts() Counts {
	n, r := v.bounds.Nodes, v.bounds.Rounds
	return Counts{
		Init:    n,
		Alive:   n * (r + 1),
		Deliver: n * (n - 1) * r,
		Flag:    n * (r + 1),
		Decide:  n,
	}
}

func (v *Vars) node(i NodeID) int {
	if i < 1 || int(i) > v.bounds.Nodes {
		panic(fmt.Sprintf("kripke: node %d out of range 1..%d", i, v.bounds.Nodes))
	}
	return int(i) - 1
}

func (v *Vars) round(t Round, first Round) int {
	if t < first || int(t) > v.bounds.Rounds {
		panic(fmt.Sprintf("kripke: round %d out of range %d..%d", t, first, v.bounds.Rounds))
	}
	return int(t)
}

// Init is i's initial proposal bit (true = 1).
func (v *Vars) Init(i NodeID) oracle.Var { return v.init[v.node(i)] }

// Alive is true when i has not crashed by the end of round t.
func (v *Vars) Alive(i NodeID, t Round) oracle.Var { return v.alive[v.node(i)][v.round(t, 0)] }

// Deliver is true when the round-t message from e.From reached e.To by the
// end of round t.
func (v *Vars) Deliver(e Edge, t Round) oracle.Var {
	from, to := v.node(e.From), v.node(e.To)
	if from == to {
		panic(fmt.Sprintf("kripke: no self edge %s", e))
	}
	return v.deliver[from][to][v.round(t, 1)-1]
}

// Flag is the protocol flag of i at the end of round t.
func (v *Vars) Flag(i NodeID, t Round) oracle.Var { return v.flag[v.node(i)][v.round(t, 0)] }

// Decide is i's decision bit (true = 1).
func (v *Vars) Decide(i NodeID) oracle.Var { return v.decide[v.node(i)] }

// All returns every declared variable, grouped by node.
func (v *Vars) All() []oracle.Var {
	out := make([]oracle.Var, 0, v.Counts().Total())
	out = append(out, v.init...)
	for i := range v.alive {
		out = append(out, v.alive[i]...)
		out = append(out, v.flag[i]...)
		for j := range v.deliver[i] {
			out = append(out, v.deliver[i][j]...)
		}
	}
	out = append(out, v.decide...)
	return out
}
