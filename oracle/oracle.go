// Package oracle is the satisfiability oracle consumed by the model checker.
//
// An Oracle is an explicitly owned session: variables are declared on it,
// formulas are asserted into the current scope, scopes nest with Push and
// Pop, and Check asks the underlying engine whether the asserted constraints
// are satisfiable. After a Sat result, Value reads the satisfying assignment
// until the next Assert, Push, Pop or Check.
//
// The default engine is gini, a pure Go CDCL solver. A Z3 engine is
// available when the module is built with the z3 build tag.
package oracle

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Result is the answer of a satisfiability query.
type Result int

const (
	// Unknown means the engine stopped before deciding; it proves nothing.
	Unknown Result = iota
	Sat
	Unsat
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Scope discipline and session errors. These are internal invariant
// breaches: callers must abort the run rather than report a verdict.
var (
	ErrPopWithoutPush = errors.New("oracle: pop without matching push")
	ErrNoModel        = errors.New("oracle: no model available outside a sat window")
	ErrUnknownVar     = errors.New("oracle: variable not declared on this session")
	ErrClosed         = errors.New("oracle: session closed")
	ErrUnknownBackend = errors.New("oracle: unknown backend")
)

// Oracle is one satisfiability session.
// Implementations are not safe for concurrent use.
type Oracle interface {
	// DeclareBool creates a fresh Boolean unknown, distinct from all others.
	DeclareBool(name string) Var
	// Assert adds f to the innermost open scope.
	Assert(f Formula) error
	// Push opens a nested scope.
	Push()
	// Pop discards every constraint asserted since the matching Push.
	Pop() error
	// Depth is the number of open scopes above the base scope.
	Depth() int
	// Check decides the conjunction of all constraints in all open scopes.
	// A cancelled or expired ctx yields Unknown.
	Check(ctx context.Context) (Result, error)
	// Value reads v from the model of the last Sat check.
	Value(v Var) (bool, error)
	// Name returns the name v was declared with.
	Name(v Var) string
	// Close releases the session.
	Close() error
}

// Factory opens a new session of one backend.
type Factory func() Oracle

var (
	backendsMu sync.RWMutex
	backends   = map[string]Factory{
		"gini": func() Oracle { return NewGini() },
	}
)

// Register makes a backend available to Open under name.
func Register(name string, f Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = f
}

// Open starts a session on the named backend.
func Open(name string) (Oracle, error) {
	backendsMu.RLock()
	f, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBackend, "%q (available: %v)", name, Backends())
	}
	return f(), nil
}

// Backends lists the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
