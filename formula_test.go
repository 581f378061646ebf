package bdd_test

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/bddcore/bdd"
)

// formula is a tiny AST interpreted over explicit assignments; it serves as
// the reference semantics the engine is checked against. A truth table is
// turned back into a diagram through mintermBDD, so "the BDD means the same
// thing as the formula" reduces to handle equality by canonicity.
type formula struct {
	op       byte // 'v', '!', '&', '|', '^', '='
	level    uint32
	lhs, rhs *formula
}

func (f *formula) eval(assign []bool) bool {
	switch f.op {
	case 'v':
		return assign[f.level]
	case '!':
		return !f.lhs.eval(assign)
	case '&':
		return f.lhs.eval(assign) && f.rhs.eval(assign)
	case '|':
		return f.lhs.eval(assign) || f.rhs.eval(assign)
	case '^':
		return f.lhs.eval(assign) != f.rhs.eval(assign)
	default: // '='
		return f.lhs.eval(assign) == f.rhs.eval(assign)
	}
}

func (f *formula) build(t *testing.T, m *bdd.Manager) *bdd.Handle {
	t.Helper()
	switch f.op {
	case 'v':
		h, err := m.Var(f.level)
		require.NoError(t, err)
		return h
	case '!':
		h, err := m.Not(f.lhs.build(t, m))
		require.NoError(t, err)
		return h
	}
	lhs, rhs := f.lhs.build(t, m), f.rhs.build(t, m)
	var h *bdd.Handle
	var err error
	switch f.op {
	case '&':
		h, err = m.And(lhs, rhs)
	case '|':
		h, err = m.Or(lhs, rhs)
	case '^':
		h, err = m.Xor(lhs, rhs)
	default:
		h, err = m.Iff(lhs, rhs)
	}
	require.NoError(t, err)
	return h
}

func randomFormula(rng *rand.Rand, nvars, depth int) *formula {
	if depth == 0 || rng.Intn(4) == 0 {
		return &formula{op: 'v', level: uint32(rng.Intn(nvars))}
	}
	ops := []byte{'!', '&', '|', '^', '='}
	op := ops[rng.Intn(len(ops))]
	f := &formula{op: op, lhs: randomFormula(rng, nvars, depth-1)}
	if op != '!' {
		f.rhs = randomFormula(rng, nvars, depth-1)
	}
	return f
}

// truthTable enumerates f over all 2^nvars assignments, index i encoding
// the assignment where bit j of i is the value of variable j.
func truthTable(f *formula, nvars int) []bool {
	table := make([]bool, 1<<nvars)
	assign := make([]bool, nvars)
	for i := range table {
		for j := 0; j < nvars; j++ {
			assign[j] = i&(1<<j) != 0
		}
		table[i] = f.eval(assign)
	}
	return table
}

// mintermBDD builds the diagram of a truth table as the disjunction of its
// minterms, the slow-but-obviously-correct way.
func mintermBDD(t *testing.T, m *bdd.Manager, nvars int, table []bool) *bdd.Handle {
	t.Helper()
	terms := make([]*bdd.Handle, 0, len(table))
	for i, v := range table {
		if !v {
			continue
		}
		lits := make([]*bdd.Handle, nvars)
		for j := 0; j < nvars; j++ {
			var h *bdd.Handle
			var err error
			if i&(1<<j) != 0 {
				h, err = m.Var(uint32(j))
			} else {
				h, err = m.NVar(uint32(j))
			}
			require.NoError(t, err)
			lits[j] = h
		}
		term, err := m.AndN(lits...)
		require.NoError(t, err)
		terms = append(terms, term)
	}
	out, err := m.OrN(terms...)
	require.NoError(t, err)
	return out
}

// Two random formulas get equal handles exactly when their truth tables
// agree, and every diagram equals the minterm diagram of its own table.
func TestRandomFormulaCanonicity(t *testing.T) {
	m := newTestManager(t)
	rng := rand.New(rand.NewSource(7))
	const nvars = 4

	for trial := 0; trial < 50; trial++ {
		f := randomFormula(rng, nvars, 4)
		g := randomFormula(rng, nvars, 4)
		tf, tg := truthTable(f, nvars), truthTable(g, nvars)

		hf, hg := f.build(t, m), g.build(t, m)
		require.True(t, mintermBDD(t, m, nvars, tf).Equal(hf),
			"diagram of f disagrees with its own truth table")
		require.True(t, mintermBDD(t, m, nvars, tg).Equal(hg),
			"diagram of g disagrees with its own truth table")

		require.Equal(t, cmp.Equal(tf, tg), hf.Equal(hg),
			"handle equality must match semantic equality:\n%s", cmp.Diff(tf, tg))
	}
}

// Exists agrees with quantification done by brute force on the truth
// table.
func TestExistsMatchesEnumeration(t *testing.T) {
	m := newTestManager(t)
	rng := rand.New(rand.NewSource(11))
	const nvars = 4

	for trial := 0; trial < 30; trial++ {
		f := randomFormula(rng, nvars, 4)
		table := truthTable(f, nvars)
		v := rng.Intn(nvars)

		// ∃v.f: the table entry is true if either value of v satisfies f.
		quantified := make([]bool, len(table))
		for i := range quantified {
			quantified[i] = table[i&^(1<<v)] || table[i|1<<v]
		}

		set, err := m.NewVarSet(uint32(v))
		require.NoError(t, err)
		got, err := m.Exists(f.build(t, m), set)
		require.NoError(t, err)
		want := mintermBDD(t, m, nvars, quantified)
		require.True(t, want.Equal(got), "exists disagrees with enumeration for v=%d", v)
	}
}

// Replace with a fresh target variable agrees with substitution done by
// brute force on the truth table.
func TestReplaceMatchesEnumeration(t *testing.T) {
	m := newTestManager(t)
	rng := rand.New(rand.NewSource(13))
	const nvars = 4
	const fresh = nvars // level 4, created after the formula's variables

	for trial := 0; trial < 30; trial++ {
		f := randomFormula(rng, nvars, 4)
		src := rng.Intn(nvars)
		table := truthTable(f, nvars)

		// g(σ) = f(σ with σ[src] := σ[fresh]), over nvars+1 variables.
		substituted := make([]bool, 1<<(nvars+1))
		for i := range substituted {
			j := i &^ (1 << src)
			if i&(1<<fresh) != 0 {
				j |= 1 << src
			}
			substituted[i] = table[j&(1<<nvars-1)]
		}

		vm, err := m.NewVarMap(map[uint32]uint32{uint32(src): fresh})
		require.NoError(t, err)
		got, err := m.Replace(f.build(t, m), vm)
		require.NoError(t, err)
		want := mintermBDD(t, m, nvars+1, substituted)
		require.True(t, want.Equal(got), "replace disagrees with enumeration for %d->%d", src, fresh)
	}
}
