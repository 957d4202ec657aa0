package kripke

import (
	"fmt"
	"testing"
)

// diamond: s0 -> s1 -> s3 (dead end), s0 -> s2, s2 -> s2.
func diamond() *Graph {
	g := &Graph{}
	for i := 0; i < 4; i++ {
		g.AddState()
	}
	g.AddEdge(0, 1)
	g.AddEdge(0, 2)
	g.AddEdge(1, 3)
	g.AddEdge(2, 2)
	g.Initial = []StateID{0}
	return g
}

func only(ids ...StateID) CTL {
	return Atom{Name: fmt.Sprint(ids), Holds: func(s StateID) bool {
		for _, id := range ids {
			if id == s {
				return true
			}
		}
		return false
	}}
}

func expectStates(t *testing.T, name string, got StateSet, want ...StateID) {
	t.Helper()
	wantSet := make(StateSet, len(got))
	for _, id := range want {
		wantSet[id] = true
	}
	if !got.Equal(wantSet) {
		t.Errorf("%s: got %v, want states %v", name, got, want)
	}
}

func TestAtomNotAndOr(t *testing.T) {
	g := diamond()
	expectStates(t, "atom", only(1, 3).Sat(g), 1, 3)
	expectStates(t, "not", Not{only(1, 3)}.Sat(g), 0, 2)
	expectStates(t, "and", And{only(1, 3), only(3, 2)}.Sat(g), 3)
	expectStates(t, "or", Or{only(1), only(2)}.Sat(g), 1, 2)
}

func TestEXAndAX(t *testing.T) {
	g := diamond()
	expectStates(t, "EX s3", EX{only(3)}.Sat(g), 1)
	expectStates(t, "EX s2", EX{only(2)}.Sat(g), 0, 2)
	// The dead end satisfies AX of anything.
	expectStates(t, "AX false", AX{only()}.Sat(g), 3)
	expectStates(t, "AX s1|s2", AX{only(1, 2)}.Sat(g), 0, 2, 3)
}

func TestEUAndEF(t *testing.T) {
	g := diamond()
	expectStates(t, "E[s0|s1 U s3]", EU{L: only(0, 1), R: only(3)}.Sat(g), 0, 1, 3)
	expectStates(t, "E[s2 U s3]", EU{L: only(2), R: only(3)}.Sat(g), 3)
	expectStates(t, "EF s3", EF{only(3)}.Sat(g), 0, 1, 3)
}

func TestEGNeedsInfinitePath(t *testing.T) {
	g := diamond()
	expectStates(t, "EG s2", EG{only(2)}.Sat(g), 2)
	expectStates(t, "EG s0|s1|s2", EG{only(0, 1, 2)}.Sat(g), 0, 2)
	expectStates(t, "EG s1|s3", EG{only(1, 3)}.Sat(g))
}

func TestAFAndAG(t *testing.T) {
	g := diamond()
	expectStates(t, "AF s3", AF{only(3)}.Sat(g), 1, 3)
	expectStates(t, "AF s1|s2", AF{only(1, 2)}.Sat(g), 0, 1, 2)
	expectStates(t, "AG not s3", AG{Not{only(3)}}.Sat(g), 2)
}

func TestSatInitial(t *testing.T) {
	g := diamond()
	if !SatInitial(g, EF{only(3)}) {
		t.Error("expected EF s3 to hold initially")
	}
	if SatInitial(g, AG{Not{only(3)}}) {
		t.Error("expected AG not s3 to fail initially")
	}
	g.Initial = append(g.Initial, 2)
	if SatInitial(g, EF{only(3)}) {
		t.Error("expected EF s3 to fail from s2")
	}
}

func TestStateSetOps(t *testing.T) {
	g := diamond()
	a := only(0, 1).Sat(g)
	b := only(1, 2).Sat(g)
	if a.Intersect(b).Count() != 1 || !a.Intersect(b).Has(1) {
		t.Errorf("intersect: %v", a.Intersect(b))
	}
	if a.Union(b).Count() != 3 {
		t.Errorf("union: %v", a.Union(b))
	}
	if Universe(g).Count() != 4 || a.Complement().Has(0) {
		t.Errorf("universe or complement wrong")
	}
}

func TestCTLString(t *testing.T) {
	f := AG{Or{Not{only(3)}, EU{L: only(0), R: EX{only(1)}}}}
	want := "AG (¬[3] ∨ E[[0] U EX [1]])"
	if f.String() != want {
		t.Errorf("got %q, want %q", f.String(), want)
	}
	if got := (AF{EG{And{only(1), only(2)}}}).String(); got != "AF EG ([1] ∧ [2])" {
		t.Errorf("got %q", got)
	}
}
