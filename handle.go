package bdd

import (
	"runtime"
	"sync/atomic"
)

// handleEntry is the shared, mutable cell behind every *Handle that refers
// to a given NodeIndex. Keeping the index here (rather than copying it into
// each *Handle) lets a compaction update every outstanding Handle's stored
// index in place: after compaction every *Handle for a surviving node still
// points at the same handleEntry, so rewriting entry.index once is visible
// to all of them.
//
// live counts the *Handle objects the Go runtime has not yet finalized.
// Finalizers run on the runtime's own goroutine, so live is the one field
// in this package touched from outside the owning task and is accessed
// atomically.
type handleEntry struct {
	index NodeIndex
	live  int32
}

func (e *handleEntry) isLive() bool {
	return atomic.LoadInt32(&e.live) > 0
}

// Handle is an externally owned reference to a Boolean function managed by
// a Manager. Handles may be freely shared: copying a *Handle value just
// copies the pointer, and the function it denotes stays alive for as long
// as at least one such pointer is reachable. A Handle does not own its
// node; the Manager owns all nodes, and a Handle only registers external
// interest in one of them (see HandleTable).
type Handle struct {
	manager *Manager
	entry   *handleEntry
}

// Index returns the current NodeIndex this handle designates. The value
// can change across a call that triggers garbage collection (see
// Manager.checkForCollection); it never changes for the duration of a
// single public Manager call, because GC only ever runs at the start of
// one, never mid-recursion.
func (h *Handle) Index() NodeIndex {
	return h.entry.index
}

// ManagerID returns the 16-bit id of the Manager that produced h.
func (h *Handle) ManagerID() uint16 {
	return h.manager.id
}

// Equal reports whether h and other denote the same function managed by
// the same Manager: handle equality is (manager_id, node_index) equality.
func (h *Handle) Equal(other *Handle) bool {
	if other == nil {
		return false
	}
	return h.manager == other.manager && h.Index() == other.Index()
}

func (h *Handle) sameManager(other *Handle) bool {
	return other != nil && h.manager == other.manager
}

// HandleTable maps every NodeIndex ever handed out to exactly one
// handleEntry, shared by every *Handle for that index; it does not keep or
// return a single canonical *Handle object per index. The entry is a weak
// reference, in the sense that once every *Handle referring to it has been
// collected by the Go runtime, the entry no longer counts as live and the
// underlying node becomes eligible for collection at the next GC.
//
// runtime.SetFinalizer decrements an external reference count, generalized
// from a single refcount field on the node itself to a table keyed by the
// complement-aware NodeIndex, since two distinct external Handles (to a
// function and to its negation) share a node but must be tracked, and
// collected, independently.
type HandleTable struct {
	entries map[NodeIndex]*handleEntry
}

func newHandleTable() *HandleTable {
	return &HandleTable{entries: make(map[NodeIndex]*handleEntry)}
}

// getOrAdd returns a Handle for index, creating the bookkeeping
// entry on first use. Every call returns a fresh *Handle value (so that its
// own finalizer fires independently of any other live reference to the
// same index), but all such *Handle values for one index share the same
// handleEntry and are therefore kept in sync across a GC rewrite.
func (t *HandleTable) getOrAdd(m *Manager, index NodeIndex) *Handle {
	e, ok := t.entries[index]
	if !ok {
		e = &handleEntry{index: index}
		t.entries[index] = e
	}
	atomic.AddInt32(&e.live, 1)
	h := &Handle{manager: m, entry: e}
	runtime.SetFinalizer(h, finalizeHandle)
	return h
}

func finalizeHandle(h *Handle) {
	atomic.AddInt32(&h.entry.live, -1)
}

// markAllLive marks, in pool, the node of every still-live entry; marks are
// propagated to their descendants afterwards by collect. This is garbage
// collection's mark-from-roots phase; position 0 (the terminal) is never
// marked since it is never compacted away.
func (t *HandleTable) markAllLive(pool *memoryPool) {
	for _, e := range t.entries {
		if !e.isLive() {
			continue
		}
		pos := e.index.Position()
		if pos == 0 {
			continue
		}
		n := pool.at(pos)
		n.setMark(true)
		pool.nodes[pos] = n
	}
}

// rebuild replaces the table's keys to reflect a compaction's forwarding
// map: forwarding[old] is the new position of the node formerly at old, or
// 0 if that node did not survive. Entries whose live count dropped to zero
// between mark and rebuild can forward to 0 here; they are dropped along
// with every other dead entry.
func (t *HandleTable) rebuild(forwarding []uint32) {
	fresh := make(map[NodeIndex]*handleEntry, len(t.entries))
	for oldIndex, e := range t.entries {
		if !e.isLive() {
			continue
		}
		oldPos := oldIndex.Position()
		var newPos uint32
		if oldPos == 0 {
			newPos = 0
		} else {
			newPos = forwarding[oldPos]
			if newPos == 0 {
				continue
			}
		}
		newIndex := newIndex(newPos, oldIndex.IsComplemented())
		e.index = newIndex
		fresh[newIndex] = e
	}
	t.entries = fresh
}

// liveCount returns the number of entries HandleTable currently believes
// are live; used by Stats.
func (t *HandleTable) liveCount() int {
	n := 0
	for _, e := range t.entries {
		if e.isLive() {
			n++
		}
	}
	return n
}
