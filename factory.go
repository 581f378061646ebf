package bdd

import "strconv"

// stdFactory implements the standard BDD reduction rule (low == high is
// reduced away) over a back-reference to the owning Manager. It is the
// concrete instance of the capability set described design-wise as "Id,
// Flip, Reduce, Apply, Ite, Exists, Replace, SatCount, Level, Sat,
// Display": a variant is a tagged set of callbacks rather than a
// subclass, so a ZDD or compressed-node variant (out of scope here) would
// be a sibling implementation of the same shape, parameterizing Manager
// differently. The Factory never owns the Manager; Apply/Ite/Exists/Replace
// call back into Manager.allocate, which is the only path that hash-conses
// and grows the pool.
type stdFactory struct {
	m *Manager
}

// Level returns idx's variable id, or Manager.varnum (the out-of-band
// maximum) for a constant, so that a minimum-level comparison among
// several operands always picks a real variable over a constant.
func (f *stdFactory) Level(idx NodeIndex) uint32 {
	if idx.IsConstant() {
		return f.m.varnum
	}
	return f.m.pool.at(idx.Position()).Variable()
}

// children returns the (low, high) pair actually denoted by idx, applying
// idx's complement bit to the stored node's children (whose low edge is
// itself always non-complemented, per the canonical-form invariant).
func (f *stdFactory) children(idx NodeIndex) (low, high NodeIndex) {
	n := f.m.pool.at(idx.Position())
	low, high = n.Low, n.High
	if idx.IsComplemented() {
		low, high = low.Flip(), high.Flip()
	}
	return
}

func boolIndex(v bool) NodeIndex {
	if v {
		return True
	}
	return False
}

// ---------------------------------------------------------------------
// Apply: generic binary recursion over the full Operator truth-table
// family. A binary operator is fully determined by its 2x2 truth table,
// so every terminal shortcut below (both operands constant, x op x,
// x op ¬x, one operand constant) is a direct read of that table rather
// than a per-operator special case.

func (f *stdFactory) Apply(x, y NodeIndex, op Operator) (NodeIndex, error) {
	if res, ok := f.applyShortcut(x, y, op); ok {
		return res, nil
	}

	tag := uint64(op)
	a, b := x, y
	canon := op.commutative()
	if canon {
		a, b = canonicalPair(x, y, true)
	}
	if cached, ok := f.m.caches.Binary.lookup(a, b, tag); ok {
		return cached, nil
	}

	xlevel, ylevel := f.Level(x), f.Level(y)
	var lvl uint32
	var xlo, xhi, ylo, yhi NodeIndex
	switch {
	case xlevel < ylevel:
		lvl = xlevel
		xlo, xhi = f.children(x)
		ylo, yhi = y, y
	case ylevel < xlevel:
		lvl = ylevel
		xlo, xhi = x, x
		ylo, yhi = f.children(y)
	default:
		lvl = xlevel
		xlo, xhi = f.children(x)
		ylo, yhi = f.children(y)
	}

	lo, err := f.Apply(xlo, ylo, op)
	if err != nil {
		return 0, err
	}
	hi, err := f.Apply(xhi, yhi, op)
	if err != nil {
		return 0, err
	}
	res, err := f.m.allocate(lvl, lo, hi)
	if err != nil {
		return 0, err
	}
	f.m.caches.Binary.set(a, b, tag, res)
	return res, nil
}

// applyShortcut reports the terminal rules that must be checked before
// any unique-table or cache lookup.
func (f *stdFactory) applyShortcut(x, y NodeIndex, op Operator) (NodeIndex, bool) {
	tt := truthTable[op]
	if x.IsConstant() && y.IsConstant() {
		return boolIndex(tt[b2i(x.IsTrue())][b2i(y.IsTrue())] == 1), true
	}
	if x.Position() == y.Position() {
		if x == y {
			// x op x: result is determined by the table's main diagonal.
			return diagonalResult(tt[0][0], tt[1][1], x)
		}
		// x op ¬x (same position, opposite complement bit): determined by
		// the anti-diagonal.
		return diagonalResult(tt[0][1], tt[1][0], x)
	}
	if x.IsConstant() {
		return lineResult(tt[b2i(x.IsTrue())][0], tt[b2i(x.IsTrue())][1], y)
	}
	if y.IsConstant() {
		return lineResult(tt[0][b2i(y.IsTrue())], tt[1][b2i(y.IsTrue())], x)
	}
	return 0, false
}

func b2i(v bool) int {
	if v {
		return 1
	}
	return 0
}

// diagonalResult interprets a 2-valued diagonal (falseCase, trueCase) of a
// truth table as a function of the single operand ref: constant if the two
// entries agree, ref or ¬ref if they form the identity or negation
// pattern.
func diagonalResult(falseCase, trueCase int, ref NodeIndex) (NodeIndex, bool) {
	switch {
	case falseCase == trueCase:
		return boolIndex(falseCase == 1), true
	case falseCase == 0 && trueCase == 1:
		return ref, true
	default: // falseCase == 1 && trueCase == 0
		return ref.Flip(), true
	}
}

func lineResult(whenFalse, whenTrue int, ref NodeIndex) (NodeIndex, bool) {
	return diagonalResult(whenFalse, whenTrue, ref)
}

// ---------------------------------------------------------------------
// Ite: split on the minimum level among the three operands, descending
// only into operands whose top variable is that level.

func (f *stdFactory) Ite(cond, then, els NodeIndex) (NodeIndex, error) {
	switch {
	case cond.IsTrue():
		return then, nil
	case cond.IsFalse():
		return els, nil
	case then == els:
		return then, nil
	case then.IsTrue() && els.IsFalse():
		return cond, nil
	case then.IsFalse() && els.IsTrue():
		return cond.Flip(), nil
	}

	if cached, ok := f.m.caches.Ternary.lookup(cond, then, els); ok {
		return cached, nil
	}

	lvl := f.Level(cond)
	if l := f.Level(then); l < lvl {
		lvl = l
	}
	if l := f.Level(els); l < lvl {
		lvl = l
	}

	clo, chi := cond, cond
	if f.Level(cond) == lvl {
		clo, chi = f.children(cond)
	}
	tlo, thi := then, then
	if f.Level(then) == lvl {
		tlo, thi = f.children(then)
	}
	elo, ehi := els, els
	if f.Level(els) == lvl {
		elo, ehi = f.children(els)
	}

	lo, err := f.Ite(clo, tlo, elo)
	if err != nil {
		return 0, err
	}
	hi, err := f.Ite(chi, thi, ehi)
	if err != nil {
		return 0, err
	}
	res, err := f.m.allocate(lvl, lo, hi)
	if err != nil {
		return 0, err
	}
	f.m.caches.Ternary.set(cond, then, els, res)
	return res, nil
}

// ---------------------------------------------------------------------
// Exists: existential quantification. Forall is layered on top at the
// Manager level as ¬∃V.¬f.

const existsOpTag uint64 = 1 << 40

func (f *stdFactory) Exists(root NodeIndex, vars VarSet) (NodeIndex, error) {
	if root.IsConstant() {
		return root, nil
	}
	maxV := vars.MaxIndex()
	lvl := f.Level(root)
	if maxV < 0 || int(lvl) > maxV {
		return root, nil
	}

	tag := existsOpTag ^ vars.id()
	if cached, ok := f.m.caches.Binary.lookup(root, 0, tag); ok {
		return cached, nil
	}

	lo, hi := f.children(root)
	lo, err := f.Exists(lo, vars)
	if err != nil {
		return 0, err
	}
	hi, err = f.Exists(hi, vars)
	if err != nil {
		return 0, err
	}

	var res NodeIndex
	if vars.Contains(lvl) {
		res, err = f.Apply(lo, hi, Or)
	} else {
		res, err = f.m.allocate(lvl, lo, hi)
	}
	if err != nil {
		return 0, err
	}
	f.m.caches.Binary.set(root, 0, tag, res)
	return res, nil
}

// ---------------------------------------------------------------------
// Replace: variable substitution with order repair.

const replaceOpTag uint64 = 2 << 40

func (f *stdFactory) Replace(root NodeIndex, vm VarMap) (NodeIndex, error) {
	if root.IsConstant() {
		return root, nil
	}
	maxDom := vm.MaxDomain()
	lvl := f.Level(root)
	if maxDom < 0 || int(lvl) > maxDom {
		return root, nil
	}

	tag := replaceOpTag ^ vm.id()
	if cached, ok := f.m.caches.Binary.lookup(root, 0, tag); ok {
		return cached, nil
	}

	lo, hi := f.children(root)
	loPrime, err := f.Replace(lo, vm)
	if err != nil {
		return 0, err
	}
	hiPrime, err := f.Replace(hi, vm)
	if err != nil {
		return 0, err
	}
	target := vm.Get(lvl)

	res, err := f.buildAt(target, loPrime, hiPrime)
	if err != nil {
		return 0, err
	}
	f.m.caches.Binary.set(root, 0, tag, res)
	return res, nil
}

// buildAt builds a node at level target with the given children, repairing
// the variable order if target does not sit strictly above both children's
// levels: it performs a Shannon expansion on whichever child's top
// variable is lowest (i.e. violates the order) and recurses, so the
// result never has a child whose level is <= its own. A target level that
// already occurs as a child's top variable means the substitution maps a
// variable onto one the function still depends on, which has no
// well-defined result.
func (f *stdFactory) buildAt(target uint32, lo, hi NodeIndex) (NodeIndex, error) {
	loLevel, hiLevel := f.Level(lo), f.Level(hi)
	if target < loLevel && target < hiLevel {
		return f.m.allocate(target, lo, hi)
	}
	if target == loLevel || target == hiLevel {
		return 0, newError(InvalidArgument, "replacement level %d already occurs in the function", target)
	}

	// Order repair: Shannon-expand the side(s) whose level sits at or
	// below target, rebuild both branches at target, and combine them at
	// the expanded level.
	if loLevel == hiLevel {
		lo0, lo1 := f.children(lo)
		hi0, hi1 := f.children(hi)
		newLo, err := f.buildAt(target, lo0, hi0)
		if err != nil {
			return 0, err
		}
		newHi, err := f.buildAt(target, lo1, hi1)
		if err != nil {
			return 0, err
		}
		return f.m.allocate(loLevel, newLo, newHi)
	}
	if loLevel < hiLevel {
		lo0, lo1 := f.children(lo)
		newLo, err := f.buildAt(target, lo0, hi)
		if err != nil {
			return 0, err
		}
		newHi, err := f.buildAt(target, lo1, hi)
		if err != nil {
			return 0, err
		}
		return f.m.allocate(loLevel, newLo, newHi)
	}
	hi0, hi1 := f.children(hi)
	newLo, err := f.buildAt(target, lo, hi0)
	if err != nil {
		return 0, err
	}
	newHi, err := f.buildAt(target, lo, hi1)
	if err != nil {
		return 0, err
	}
	return f.m.allocate(hiLevel, newLo, newHi)
}

// ---------------------------------------------------------------------
// SatCount, cached per subgraph index via the Manager's Cache1: the
// same subgraph is reached from many parents in a maximally-shared DAG, so
// memoizing across the whole pool (not just within one call) pays off and
// is invalidated the same way every other cache is, on GC and resize.
func (f *stdFactory) SatCount(root NodeIndex) (float64, error) {
	if root.IsFalse() {
		return 0, nil
	}
	if root.IsTrue() {
		return pow2(f.m.varnum), nil
	}
	// Variables above the root's level are unconstrained; each doubles
	// the count.
	count := f.satCountRec(root)
	scale := pow2(f.Level(root))
	return count * scale, nil
}

func (f *stdFactory) satCountRec(idx NodeIndex) float64 {
	if idx.IsFalse() {
		return 0
	}
	if idx.IsTrue() {
		return 1
	}
	if v, ok := f.m.caches.Unary.lookup(idx); ok {
		return v
	}
	lo, hi := f.children(idx)
	v := f.Level(idx)
	loCount := pow2m1(f.Level(lo)-v) * f.satCountRec(lo)
	hiCount := pow2m1(f.Level(hi)-v) * f.satCountRec(hi)
	total := loCount + hiCount
	f.m.caches.Unary.set(idx, total)
	return total
}

// pow2 returns 2^exp.
func pow2(exp uint32) float64 {
	result := 1.0
	for i := uint32(0); i < exp; i++ {
		result *= 2
	}
	return result
}

// pow2m1 returns 2^(exp-1) for exp >= 1: the number of assignments of the
// exp-1 variables skipped strictly between a node and one of its children.
func pow2m1(exp uint32) float64 {
	return pow2(exp - 1)
}

// ---------------------------------------------------------------------
// Sat: witness extraction.

func (f *stdFactory) Sat(root NodeIndex, out map[uint32]bool) {
	idx := root
	for !idx.IsConstant() {
		lo, hi := f.children(idx)
		v := f.Level(idx)
		if !hi.IsFalse() {
			out[v] = true
			idx = hi
			continue
		}
		out[v] = false
		idx = lo
	}
}

// ---------------------------------------------------------------------
// Display: "(variable ? high : low)", constants printed as true/false
// adjusted by the accumulated complement parity.

func (f *stdFactory) Display(idx NodeIndex) string {
	if idx.IsConstant() {
		if idx.IsTrue() {
			return "true"
		}
		return "false"
	}
	lo, hi := f.children(idx)
	v := f.Level(idx)
	return "(" + strconv.Itoa(int(v)) + " ? " + f.Display(hi) + " : " + f.Display(lo) + ")"
}
