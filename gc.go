package bdd

import "github.com/go-kit/log/level"

// gcStat snapshots pool occupancy around one collection; Manager.Stats
// reports the accumulated history.
type gcStat struct {
	beforeSize int
	afterSize  int
	liveHandle int
	resized    bool
	newCap     uint32
}

// collect runs the four-phase mark-sweep-compact collection: mark from
// roots, propagate, compact, rebuild indices. It is never invoked
// mid-recursion (see checkForCollection): every NodeIndex held by the
// in-flight public call remains valid afterward only if it was also
// reachable from a live Handle, which is exactly the invariant phase 1
// establishes from HandleTable.
func (m *Manager) collect() {
	before := m.pool.size()
	level.Debug(m.log).Log("event", "gc_start", "pool_size", before, "pool_capacity", m.pool.capacity())

	// Phase 1: mark from roots.
	m.handles.markAllLive(m.pool)

	// Phase 2: propagate marks down from the highest position, relying on
	// the age invariant (a parent's position always exceeds its
	// children's) so that one descending pass suffices.
	for pos := m.pool.size() - 1; pos >= 1; pos-- {
		n := m.pool.at(pos)
		if !n.marked() {
			continue
		}
		m.markChild(n.Low)
		m.markChild(n.High)
	}

	// Phase 3: compact. forwarding[old] is the new position of the node
	// formerly at old, or 0 if it did not survive.
	forwarding := make([]uint32, m.pool.size())
	nextFree := uint32(1)
	for pos := uint32(1); pos < m.pool.size(); pos++ {
		n := m.pool.at(pos)
		if !n.marked() {
			continue
		}
		n.Low = rewriteChild(n.Low, forwarding)
		n.High = rewriteChild(n.High, forwarding)
		n.setMark(false)
		m.pool.nodes[nextFree] = n
		forwarding[pos] = nextFree
		nextFree++
	}
	survived := nextFree
	m.pool.nodes = m.pool.nodes[:survived]

	// Phase 4: rebuild the unique table and handle table against the
	// forwarding map.
	m.unique.reset()
	for pos := uint32(1); pos < survived; pos++ {
		n := m.pool.at(pos)
		m.unique.insert(pos, n.Variable(), n.Low, n.High)
	}
	m.handles.rebuild(forwarding)
	// A literal whose node did not survive forwards to position 0, which
	// reads as a constant; Var/NVar treat that as "rebuild on next use".
	for lvl := range m.posLiteral {
		m.posLiteral[lvl] = rewriteChild(m.posLiteral[lvl], forwarding)
		m.negLiteral[lvl] = rewriteChild(m.negLiteral[lvl], forwarding)
	}

	stat := gcStat{beforeSize: int(before), afterSize: int(survived), liveHandle: m.handles.liveCount()}

	retained := float64(survived) / float64(m.pool.capacity())
	if retained > gcLoadIncrease(m.pool.capacity()) {
		newCap := m.pool.capacity() * 2
		grown := make([]Node, survived, newCap)
		copy(grown, m.pool.nodes)
		m.pool.nodes = grown
		m.unique.ensureChainCapacity(newCap)
		m.unique.rehash(m.pool)
		m.resizeCaches(newCap)
		stat.resized = true
		stat.newCap = newCap
	} else {
		m.caches.reset()
	}

	m.gcHistory = append(m.gcHistory, stat)
	level.Debug(m.log).Log("event", "gc_end", "pool_size", survived, "retained_fraction", retained, "resized", stat.resized)
}

func (m *Manager) markChild(idx NodeIndex) {
	pos := idx.Position()
	if pos == 0 {
		return
	}
	n := m.pool.at(pos)
	if n.marked() {
		return
	}
	n.setMark(true)
	m.pool.nodes[pos] = n
}

func rewriteChild(idx NodeIndex, forwarding []uint32) NodeIndex {
	pos := idx.Position()
	if pos == 0 {
		return idx
	}
	return newIndex(forwarding[pos], idx.IsComplemented())
}

// gcLoadIncrease is the retained-fraction threshold above which a
// collection is followed by a pool doubling. Small pools resize eagerly
// (repeated collection on a small pool is cheap), large pools resist
// resizing (doubling is expensive).
func gcLoadIncrease(capacity uint32) float64 {
	switch {
	case capacity <= 1<<12:
		return 0.2
	case capacity <= 1<<16:
		return 0.35
	case capacity <= 1<<20:
		return 0.5
	case capacity <= 1<<24:
		return 0.65
	default:
		return 0.8
	}
}
