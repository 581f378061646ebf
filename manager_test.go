package bdd_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bddcore/bdd"
)

func newTestManager(t *testing.T) *bdd.Manager {
	t.Helper()
	m, err := bdd.New(bdd.WithInitialNodes(16))
	require.NoError(t, err)
	return m
}

func vars(t *testing.T, m *bdd.Manager, n int) []*bdd.Handle {
	t.Helper()
	hs := make([]*bdd.Handle, n)
	for i := 0; i < n; i++ {
		h, err := m.Var(uint32(i))
		require.NoError(t, err)
		hs[i] = h
	}
	return hs
}

// f = or(and(a,b), and(b,c)) over {a,b,c} has exactly 3 satisfying
// assignments out of 8.
func TestSatCountThreeVariableScenario(t *testing.T) {
	m := newTestManager(t)
	h := vars(t, m, 3)
	a, b, c := h[0], h[1], h[2]

	ab, err := m.And(a, b)
	require.NoError(t, err)
	bc, err := m.And(b, c)
	require.NoError(t, err)
	f, err := m.Or(ab, bc)
	require.NoError(t, err)

	count, err := m.SatCount(f)
	require.NoError(t, err)
	require.Equal(t, 3.0, count)
}

// display(not(and(v0,v1))) has a fixed textual form.
func TestDisplayScenario(t *testing.T) {
	m := newTestManager(t)
	h := vars(t, m, 2)
	v0, v1 := h[0], h[1]

	and, err := m.And(v0, v1)
	require.NoError(t, err)
	notAnd, err := m.Not(and)
	require.NoError(t, err)

	s, err := m.Display(notAnd)
	require.NoError(t, err)
	require.Equal(t, "(0 ? (1 ? false : true) : true)", s)
}

func TestNodeCountOfConstants(t *testing.T) {
	m := newTestManager(t)
	n, err := m.NodeCount(m.True())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = m.NodeCount(m.False())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestNotInvolution(t *testing.T) {
	m := newTestManager(t)
	h := vars(t, m, 1)[0]
	nn, err := m.Not(h)
	require.NoError(t, err)
	nn, err = m.Not(nn)
	require.NoError(t, err)
	require.True(t, h.Equal(nn))
}

func TestManagerMismatch(t *testing.T) {
	m1 := newTestManager(t)
	m2 := newTestManager(t)
	h1 := vars(t, m1, 1)[0]
	h2 := vars(t, m2, 1)[0]

	_, err := m1.And(h1, h2)
	require.Error(t, err)
	require.True(t, bdd.IsKind(err, bdd.ManagerMismatch))
}

func TestInvalidCacheRatio(t *testing.T) {
	_, err := bdd.New(bdd.WithCacheRatio(0))
	require.Error(t, err)
	require.True(t, bdd.IsKind(err, bdd.InvalidArgument))
}

// Algebraic laws over a handful of fixed variables; randomized variants
// live in formula_test.go.
func TestBooleanLaws(t *testing.T) {
	m := newTestManager(t)
	h := vars(t, m, 4)
	f, g, k := h[0], h[1], h[2]

	andFF, err := m.And(f, f)
	require.NoError(t, err)
	require.True(t, f.Equal(andFF))

	orFF, err := m.Or(f, f)
	require.NoError(t, err)
	require.True(t, f.Equal(orFF))

	andFG, err := m.And(f, g)
	require.NoError(t, err)
	andGF, err := m.And(g, f)
	require.NoError(t, err)
	require.True(t, andFG.Equal(andGF))

	// associativity: and(and(f,g),h) == and(f,and(g,h))
	left, err := m.And(andFG, k)
	require.NoError(t, err)
	gk, err := m.And(g, k)
	require.NoError(t, err)
	right, err := m.And(f, gk)
	require.NoError(t, err)
	require.True(t, left.Equal(right))

	// De Morgan: not(and(f,g)) == or(not(f), not(g))
	nf, err := m.Not(f)
	require.NoError(t, err)
	ng, err := m.Not(g)
	require.NoError(t, err)
	lhs, err := m.Not(andFG)
	require.NoError(t, err)
	rhs, err := m.Or(nf, ng)
	require.NoError(t, err)
	require.True(t, lhs.Equal(rhs))

	// distributivity: and(f, or(g,h)) == or(and(f,g), and(f,h))
	orGK, err := m.Or(g, k)
	require.NoError(t, err)
	distLHS, err := m.And(f, orGK)
	require.NoError(t, err)
	fg, err := m.And(f, g)
	require.NoError(t, err)
	fk, err := m.And(f, k)
	require.NoError(t, err)
	distRHS, err := m.Or(fg, fk)
	require.NoError(t, err)
	require.True(t, distLHS.Equal(distRHS))

	// ite expansion: ite(f,g,h) == and(implies(f,g), implies(not(f),h))
	ite, err := m.Ite(f, g, k)
	require.NoError(t, err)
	impFG, err := m.Implies(f, g)
	require.NoError(t, err)
	impNFK, err := m.Implies(nf, k)
	require.NoError(t, err)
	iteExpanded, err := m.And(impFG, impNFK)
	require.NoError(t, err)
	require.True(t, ite.Equal(iteExpanded))

	// implication contraposition: implies(f,g) == implies(not(g), not(f))
	contrapositive, err := m.Implies(ng, nf)
	require.NoError(t, err)
	require.True(t, impFG.Equal(contrapositive))
}

// For random sign patterns over 6 variables, Sat on the conjunction of
// the signed literals recovers exactly the originating pattern.
func TestSatWitnessRecovery(t *testing.T) {
	m := newTestManager(t)
	h := vars(t, m, 6)
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 200; trial++ {
		signs := make([]bool, 6)
		f := m.True()
		var err error
		for i := range signs {
			signs[i] = rng.Intn(2) == 1
			lit := h[i]
			if !signs[i] {
				lit, err = m.Not(h[i])
				require.NoError(t, err)
			}
			f, err = m.And(f, lit)
			require.NoError(t, err)
		}

		assignment, ok, err := m.Sat(f)
		require.NoError(t, err)
		require.True(t, ok)
		for i, want := range signs {
			got, err := assignment.Get(uint32(i))
			require.NoError(t, err, "variable %d missing from assignment", i)
			require.Equal(t, want, got)
		}
	}
}

// A variable the chosen branch never tests is absent from the recorded
// set unless a VarSet forces it in; asking for it fails with LookupMiss.
func TestSatDontCareLookupMiss(t *testing.T) {
	m := newTestManager(t)
	h := vars(t, m, 3)

	// f = v0: v1 and v2 are don't-cares.
	assignment, ok, err := m.Sat(h[0])
	require.NoError(t, err)
	require.True(t, ok)

	v0, err := assignment.Get(0)
	require.NoError(t, err)
	require.True(t, v0)

	require.False(t, assignment.Defined(1))
	_, err = assignment.Get(1)
	require.Error(t, err)
	require.True(t, bdd.IsKind(err, bdd.LookupMiss))

	set, err := m.NewVarSet(0, 1, 2)
	require.NoError(t, err)
	assignment, ok, err = m.Sat(h[0], set)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, assignment.Len())
	v2, err := assignment.Get(2)
	require.NoError(t, err)
	require.False(t, v2)
}

// Growing the pool past its initial capacity must not disturb what any
// previously returned handle denotes.
func TestPoolResizeKeepsHandles(t *testing.T) {
	m := newTestManager(t) // 16-node initial pool
	h := vars(t, m, 3)

	f, err := m.And(h[0], h[1])
	require.NoError(t, err)
	f, err = m.Or(f, h[2])
	require.NoError(t, err)
	before, err := m.Display(f)
	require.NoError(t, err)
	wantCount, err := m.SatCount(f)
	require.NoError(t, err)

	// Force several doublings by building a ladder of distinct functions.
	more := vars(t, m, 10)
	acc := more[0]
	for i := 1; i < len(more); i++ {
		step, err := m.Iff(more[i-1], more[i])
		require.NoError(t, err)
		acc, err = m.Xor(acc, step)
		require.NoError(t, err)
	}

	after, err := m.Display(f)
	require.NoError(t, err)
	require.Equal(t, before, after)

	// The universe grew from 3 to 10 variables, so the count over the new
	// universe scales by 2^7.
	gotCount, err := m.SatCount(f)
	require.NoError(t, err)
	require.Equal(t, wantCount*128, gotCount)
}

// exists(and(f, v), {v}) is f restricted to v=true, and symmetrically
// with the negated literal; for an f that does not depend on v, both
// restrictions are f itself.
func TestExistsQuantifierRestriction(t *testing.T) {
	m := newTestManager(t)
	h := vars(t, m, 3)
	f, err := m.Or(h[0], h[2])
	require.NoError(t, err)
	v := h[1]
	set, err := m.NewVarSet(1)
	require.NoError(t, err)

	fv, err := m.And(f, v)
	require.NoError(t, err)
	existsTrue, err := m.Exists(fv, set)
	require.NoError(t, err)
	require.True(t, existsTrue.Equal(f))

	nv, err := m.Not(v)
	require.NoError(t, err)
	fnv, err := m.And(f, nv)
	require.NoError(t, err)
	existsFalse, err := m.Exists(fnv, set)
	require.NoError(t, err)
	require.True(t, existsFalse.Equal(f))

	// Forall dually: ∀v.(f ∨ v) == f when f does not depend on v.
	orFV, err := m.Or(f, v)
	require.NoError(t, err)
	forall, err := m.Forall(orFV, set)
	require.NoError(t, err)
	require.True(t, forall.Equal(f))
}
