package bdd

import (
	"os"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// maxVariablesFull is the ResourceExhausted ceiling for the full (32-bit
// position) variant this module implements; the compact 16-bit variant
// named in the data model is an external collaborator's concern, not built
// here.
const maxVariablesFull = 1<<31 - 1

// nextManagerID is the process-wide monotonic counter issuing unique
// 16-bit manager ids; construction never reclaims an id.
var nextManagerID uint32

// roundPow2 rounds v up to the next power of two with a floor of 1; used
// to normalize CacheRatio, which (unlike pool capacity) has no 16-node
// floor.
func roundPow2(v uint32) uint32 {
	if v == 0 {
		v = 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

// Manager is the public façade over one independent BDD pool: allocation,
// the Boolean operators, quantification, substitution, counting, and
// garbage collection. Multiple Managers may coexist in a process; each
// owns its pool, unique table, handle table, and caches exclusively, and
// every public method rejects a Handle/VarSet/VarMap stamped with a
// different manager id (ManagerMismatch).
type Manager struct {
	id   uint16
	uuid uuid.UUID

	cfg Config
	log log.Logger

	pool    *memoryPool
	unique  *uniqueTable
	handles *HandleTable
	caches  *OperationCaches
	factory *stdFactory

	varnum      uint32
	posLiteral  []NodeIndex // level -> positive literal NodeIndex
	negLiteral  []NodeIndex // level -> negative literal NodeIndex
	maxVariable uint32

	internTable  map[string]uint64
	nextInternID uint64

	gcHistory []gcStat
}

// New constructs a Manager with the given options applied over
// DefaultConfig. A non-positive CacheRatio is rejected with
// InvalidArgument; negative values are not representable in the unsigned
// Config field, so the zero check is the only one needed at runtime.
func New(opts ...ManagerOption) (*Manager, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.CacheRatio == 0 {
		return nil, newError(InvalidArgument, "cache ratio must be positive")
	}
	cfg.CacheRatio = roundPow2(cfg.CacheRatio)

	var logger log.Logger
	if cfg.PrintDebug {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = log.NewNopLogger()
	}

	id := uint16(atomic.AddUint32(&nextManagerID, 1))
	mid := uuid.New()
	logger = log.With(logger, "manager_uuid", mid)
	m := &Manager{
		id:          id,
		uuid:        mid,
		cfg:         cfg,
		log:         logger,
		pool:        newMemoryPool(cfg.InitialNodes),
		maxVariable: maxVariablesFull,
		internTable: make(map[string]uint64),
	}
	capacity := m.pool.capacity()
	m.unique = newUniqueTable(capacity/2, capacity)
	m.handles = newHandleTable()
	m.caches = newOperationCaches(capacity / cfg.CacheRatio)
	m.factory = &stdFactory{m: m}

	level.Debug(m.log).Log("event", "manager_created", "pool_capacity", capacity)
	return m, nil
}

// checkHandle validates that h was produced by m.
func (m *Manager) checkHandle(h *Handle) error {
	if h == nil {
		return newError(InvalidArgument, "nil handle")
	}
	if h.manager != m {
		return newError(ManagerMismatch, "handle belongs to manager %d, not %d", h.manager.id, m.id)
	}
	return nil
}

func (m *Manager) checkVarSet(v VarSet) error {
	if v == nil {
		return newError(InvalidArgument, "nil VarSet")
	}
	if v.managerID() != m.id {
		return newError(ManagerMismatch, "VarSet belongs to manager %d, not %d", v.managerID(), m.id)
	}
	return nil
}

func (m *Manager) checkVarMap(v VarMap) error {
	if v == nil {
		return newError(InvalidArgument, "nil VarMap")
	}
	if v.managerID() != m.id {
		return newError(ManagerMismatch, "VarMap belongs to manager %d, not %d", v.managerID(), m.id)
	}
	return nil
}

func (m *Manager) handleFor(idx NodeIndex) *Handle {
	return m.handles.getOrAdd(m, idx)
}

// True returns the Handle for the constant true.
func (m *Manager) True() *Handle { return m.handleFor(True) }

// False returns the Handle for the constant false.
func (m *Manager) False() *Handle { return m.handleFor(False) }

// From returns the Handle for the constant corresponding to v.
func (m *Manager) From(v bool) *Handle {
	if v {
		return m.True()
	}
	return m.False()
}

// Var returns the Handle for the positive literal of lvl, allocating lvl
// (and every level below it not yet allocated) on demand.
func (m *Manager) Var(lvl uint32) (*Handle, error) {
	idx, err := m.literal(lvl)
	if err != nil {
		return nil, err
	}
	return m.handleFor(idx), nil
}

// NVar returns the Handle for the negative literal of lvl.
func (m *Manager) NVar(lvl uint32) (*Handle, error) {
	idx, err := m.literal(lvl)
	if err != nil {
		return nil, err
	}
	return m.handleFor(idx.Flip()), nil
}

// literal returns the positive-literal index of lvl, rebuilding the node
// if a collection reclaimed it (a reclaimed literal forwards to the
// terminal position, which no real literal can occupy).
func (m *Manager) literal(lvl uint32) (NodeIndex, error) {
	if err := m.ensureLevel(lvl); err != nil {
		return 0, err
	}
	if m.posLiteral[lvl].IsConstant() {
		pos, err := m.allocate(lvl, False, True)
		if err != nil {
			return 0, err
		}
		m.posLiteral[lvl] = pos
		m.negLiteral[lvl] = pos.Flip()
	}
	return m.posLiteral[lvl], nil
}

func (m *Manager) ensureLevel(lvl uint32) error {
	if lvl < m.varnum {
		return nil
	}
	if uint64(lvl) >= uint64(m.maxVariable) {
		return newError(ResourceExhausted, "level %d exceeds the maximum of %d variables", lvl, m.maxVariable)
	}
	for v := m.varnum; v <= lvl; v++ {
		pos, err := m.allocate(v, False, True)
		if err != nil {
			return err
		}
		neg := pos.Flip()
		m.posLiteral = append(m.posLiteral, pos)
		m.negLiteral = append(m.negLiteral, neg)
	}
	m.varnum = lvl + 1
	// Memoized satisfying-assignment counts are relative to the variable
	// universe, which just grew.
	m.caches.Unary.reset()
	return nil
}

// Varnum returns the number of variables allocated so far.
func (m *Manager) Varnum() uint32 { return m.varnum }

// allocate is the single path through which every node (variable literal
// or internal apply/ite/exists/replace result) enters the pool: it
// normalizes the complement-edge invariant, applies the standard reduction
// rule (low == high), hash-conses through UniqueTable, grows the pool if it
// is full, and rehashes the unique table once it is full. GC itself is never triggered from here (see
// checkForCollection): inner NodeIndex values produced during one public
// call stay valid for its whole duration.
func (m *Manager) allocate(variable uint32, low, high NodeIndex) (NodeIndex, error) {
	complement := low.IsComplemented()
	if complement {
		low, high = low.Flip(), high.Flip()
	}
	if low == high {
		if complement {
			return low.Flip(), nil
		}
		return low, nil
	}
	if pos, ok := m.unique.lookup(m.pool, variable, low, high); ok {
		return newIndex(pos, complement), nil
	}
	if m.pool.full() {
		if err := m.growPool(); err != nil {
			return 0, err
		}
	}
	pos := m.pool.append(Node{variable: variable, Low: low, High: high})
	m.unique.insert(pos, variable, low, high)
	if m.unique.loadFactorFull() {
		m.unique.rehash(m.pool)
	}
	return newIndex(pos, complement), nil
}

func (m *Manager) growPool() error {
	oldCap := m.pool.capacity()
	newCap := oldCap * 2
	if uint64(newCap) > uint64(m.maxVariable)+1 {
		return newError(ResourceExhausted, "pool would exceed %d nodes", m.maxVariable)
	}
	grown := make([]Node, len(m.pool.nodes), newCap)
	copy(grown, m.pool.nodes)
	m.pool.nodes = grown
	m.unique.ensureChainCapacity(newCap)
	m.unique.rehash(m.pool)
	m.resizeCaches(newCap)
	level.Debug(m.log).Log("event", "pool_resized", "old_capacity", oldCap, "new_capacity", newCap)
	return nil
}

func (m *Manager) resizeCaches(poolCapacity uint32) {
	if m.cfg.DynamicCache {
		m.caches.resize(poolCapacity / m.cfg.CacheRatio)
	} else {
		m.caches.reset()
	}
}

// checkForCollection runs at the start of every public operation: if the
// pool has grown past GCMinCutoff and is at least 90% full, a collection
// runs before the operation proceeds.
func (m *Manager) checkForCollection() {
	if m.pool.size() < m.cfg.GCMinCutoff {
		return
	}
	if float64(m.pool.size())*10 < float64(m.pool.capacity())*9 {
		return
	}
	m.collect()
}

// ---------------------------------------------------------------------
// Boolean operators.

// Not returns the negation of f. Constant time: it only flips the
// complement bit, so it never triggers GC or touches the unique table.
func (m *Manager) Not(f *Handle) (*Handle, error) {
	if err := m.checkHandle(f); err != nil {
		return nil, err
	}
	return m.handleFor(f.Index().Flip()), nil
}

func (m *Manager) binary(op Operator, a, b *Handle) (*Handle, error) {
	if err := m.checkHandle(a); err != nil {
		return nil, err
	}
	if err := m.checkHandle(b); err != nil {
		return nil, err
	}
	m.checkForCollection()
	res, err := m.factory.Apply(a.Index(), b.Index(), op)
	if err != nil {
		return nil, err
	}
	return m.handleFor(res), nil
}

// And returns the conjunction of a and b.
func (m *Manager) And(a, b *Handle) (*Handle, error) { return m.binary(And, a, b) }

// Or returns the disjunction of a and b, computed as ¬(¬a ∧ ¬b) so that it
// shares the And/Not machinery instead of occupying its own Apply branch.
func (m *Manager) Or(a, b *Handle) (*Handle, error) {
	if err := m.checkHandle(a); err != nil {
		return nil, err
	}
	if err := m.checkHandle(b); err != nil {
		return nil, err
	}
	na, err := m.Not(a)
	if err != nil {
		return nil, err
	}
	nb, err := m.Not(b)
	if err != nil {
		return nil, err
	}
	naAndNb, err := m.And(na, nb)
	if err != nil {
		return nil, err
	}
	return m.Not(naAndNb)
}

// Xor returns the exclusive-or of a and b.
func (m *Manager) Xor(a, b *Handle) (*Handle, error) { return m.binary(Xor, a, b) }

// Iff returns the bi-implication (a ⇔ b).
func (m *Manager) Iff(a, b *Handle) (*Handle, error) { return m.binary(Iff, a, b) }

// Implies returns (a ⇒ b).
func (m *Manager) Implies(a, b *Handle) (*Handle, error) { return m.binary(Implies, a, b) }

// AndN returns the conjunction of a (possibly empty) sequence of handles;
// AndN() with no arguments returns True.
func (m *Manager) AndN(hs ...*Handle) (*Handle, error) {
	if len(hs) == 0 {
		return m.True(), nil
	}
	acc := hs[0]
	for _, h := range hs[1:] {
		var err error
		acc, err = m.And(acc, h)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// OrN returns the disjunction of a (possibly empty) sequence of handles.
func (m *Manager) OrN(hs ...*Handle) (*Handle, error) {
	if len(hs) == 0 {
		return m.False(), nil
	}
	acc := hs[0]
	for _, h := range hs[1:] {
		var err error
		acc, err = m.Or(acc, h)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// Ite computes if-then-else(f,g,h): (f∧g) ∨ (¬f∧h), in one recursive
// descent rather than three separate Apply calls.
func (m *Manager) Ite(f, g, h *Handle) (*Handle, error) {
	if err := m.checkHandle(f); err != nil {
		return nil, err
	}
	if err := m.checkHandle(g); err != nil {
		return nil, err
	}
	if err := m.checkHandle(h); err != nil {
		return nil, err
	}
	m.checkForCollection()
	res, err := m.factory.Ite(f.Index(), g.Index(), h.Index())
	if err != nil {
		return nil, err
	}
	return m.handleFor(res), nil
}

// Exists returns ∃vars. f.
func (m *Manager) Exists(f *Handle, vars VarSet) (*Handle, error) {
	if err := m.checkHandle(f); err != nil {
		return nil, err
	}
	if err := m.checkVarSet(vars); err != nil {
		return nil, err
	}
	m.checkForCollection()
	res, err := m.factory.Exists(f.Index(), vars)
	if err != nil {
		return nil, err
	}
	return m.handleFor(res), nil
}

// Forall returns ∀vars. f, implemented as ¬∃vars.¬f.
func (m *Manager) Forall(f *Handle, vars VarSet) (*Handle, error) {
	nf, err := m.Not(f)
	if err != nil {
		return nil, err
	}
	ex, err := m.Exists(nf, vars)
	if err != nil {
		return nil, err
	}
	return m.Not(ex)
}

// Replace substitutes variables in f according to vm, returning a fresh
// Handle; see the Factory's Replace for the order-repair Shannon expansion
// this may require.
func (m *Manager) Replace(f *Handle, vm VarMap) (*Handle, error) {
	if err := m.checkHandle(f); err != nil {
		return nil, err
	}
	if err := m.checkVarMap(vm); err != nil {
		return nil, err
	}
	// Every target level must exist before the descent: level comparisons
	// inside the recursion treat any level >= varnum as the constant
	// sentinel.
	for lvl := uint32(0); int(lvl) <= vm.MaxDomain(); lvl++ {
		if to := vm.Get(lvl); to != lvl {
			if err := m.ensureLevel(to); err != nil {
				return nil, err
			}
		}
	}
	m.checkForCollection()
	res, err := m.factory.Replace(f.Index(), vm)
	if err != nil {
		return nil, err
	}
	return m.handleFor(res), nil
}

// SatCount returns the number of satisfying assignments of f over the
// full currently-allocated variable set, as a float64 (the precision limit
// this implies is accepted; exactness only matters up to 2^53).
func (m *Manager) SatCount(f *Handle) (float64, error) {
	if err := m.checkHandle(f); err != nil {
		return 0, err
	}
	m.checkForCollection()
	return m.factory.SatCount(f.Index())
}

// Sat returns a satisfying assignment of f, or ok=false if f is
// unsatisfiable. Levels never tested along the chosen branch are absent
// from the result; if a VarSet is supplied, every level of the set is
// recorded, with don't-cares filled in as false.
func (m *Manager) Sat(f *Handle, vars ...VarSet) (*Assignment, bool, error) {
	if err := m.checkHandle(f); err != nil {
		return nil, false, err
	}
	for _, vs := range vars {
		if err := m.checkVarSet(vs); err != nil {
			return nil, false, err
		}
	}
	if f.Index().IsFalse() {
		return nil, false, nil
	}
	out := make(map[uint32]bool)
	m.factory.Sat(f.Index(), out)
	for _, vs := range vars {
		for lvl := uint32(0); int(lvl) <= vs.MaxIndex(); lvl++ {
			if !vs.Contains(lvl) {
				continue
			}
			if _, ok := out[lvl]; !ok {
				out[lvl] = false
			}
		}
	}
	return &Assignment{values: out}, true, nil
}

// NodeCount returns the number of distinct nodes reachable from f,
// including the shared terminal: NodeCount(True) == NodeCount(False) == 1.
func (m *Manager) NodeCount(f *Handle) (int, error) {
	if err := m.checkHandle(f); err != nil {
		return 0, err
	}
	seen := map[uint32]bool{}
	var walk func(NodeIndex)
	walk = func(idx NodeIndex) {
		pos := idx.Position()
		if seen[pos] {
			return
		}
		seen[pos] = true
		if pos == 0 {
			return
		}
		n := m.pool.at(pos)
		walk(n.Low)
		walk(n.High)
	}
	walk(f.Index())
	return len(seen), nil
}

// Display renders f as the recursive textual form "(variable ? high : low)",
// resolving each edge's complement bit into its children before recursing so
// the printed constants are always the ones this edge actually denotes.
func (m *Manager) Display(f *Handle) (string, error) {
	if err := m.checkHandle(f); err != nil {
		return "", err
	}
	return m.factory.Display(f.Index()), nil
}

// Walk calls fn once for every distinct node reachable from roots (or from
// every currently live Handle if no roots are given), passing its
// NodeIndex and stored Node. WriteDot is built on top of it.
func (m *Manager) Walk(fn func(NodeIndex, Node) error, roots ...*Handle) error {
	var start []NodeIndex
	if len(roots) == 0 {
		for idx, e := range m.handles.entries {
			if e.isLive() {
				start = append(start, idx)
			}
		}
	} else {
		for _, h := range roots {
			if err := m.checkHandle(h); err != nil {
				return err
			}
			start = append(start, h.Index())
		}
	}
	seen := map[uint32]bool{}
	var walk func(NodeIndex) error
	walk = func(idx NodeIndex) error {
		pos := idx.Position()
		if seen[pos] {
			return nil
		}
		seen[pos] = true
		n := m.pool.at(pos)
		if err := fn(idx, n); err != nil {
			return err
		}
		if pos == 0 {
			return nil
		}
		if err := walk(n.Low); err != nil {
			return err
		}
		return walk(n.High)
	}
	for _, idx := range start {
		if err := walk(idx); err != nil {
			return err
		}
	}
	return nil
}
