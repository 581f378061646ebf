package bdd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// nodeSizeBytes is the on-disk/in-memory footprint of one Node record:
// a uint32 variable/mark field plus two NodeIndex (uint32) children.
const nodeSizeBytes = 4 + 4 + 4

// Stats reports pool occupancy, cache hit/miss counts, and GC history as a
// multi-line diagnostic string, with sizes rendered through
// humanize.Bytes.
func (m *Manager) Stats() string {
	poolBytes := uint64(m.pool.capacity()) * nodeSizeBytes
	used := m.pool.size()

	out := fmt.Sprintf("Varnum:      %d\n", m.varnum)
	out += fmt.Sprintf("Allocated:   %d  (%s)\n", m.pool.capacity(), humanize.Bytes(poolBytes))
	out += fmt.Sprintf("Used:        %d  (%.3g %%)\n", used, 100*float64(used)/float64(m.pool.capacity()))
	out += fmt.Sprintf("Live handles: %d\n", m.handles.liveCount())
	out += "==============\n"
	out += fmt.Sprintf("# of GC:     %d\n", len(m.gcHistory))
	for i, g := range m.gcHistory {
		out += fmt.Sprintf("  gc[%d]: %d -> %d nodes, %d live handles, resized=%v\n", i, g.beforeSize, g.afterSize, g.liveHandle, g.resized)
	}
	out += "==============\n"
	out += fmt.Sprintf("UniqueTable: accesses=%d hits=%d misses=%d\n", m.unique.accesses, m.unique.hits, m.unique.misses)
	out += fmt.Sprintf("Cache1:      hits=%d misses=%d\n", m.caches.Unary.hits, m.caches.Unary.misses)
	out += fmt.Sprintf("Cache2:      hits=%d misses=%d\n", m.caches.Binary.hits, m.caches.Binary.misses)
	out += fmt.Sprintf("Cache3:      hits=%d misses=%d\n", m.caches.Ternary.hits, m.caches.Ternary.misses)
	return out
}

// WriteDot writes a Graphviz description of the nodes reachable from roots
// (or every live node, if none are given) to w. Edges into the terminal
// are omitted for readability.
func (m *Manager) WriteDot(w io.Writer, roots ...*Handle) error {
	fmt.Fprintln(w, "digraph G {")
	fmt.Fprintln(w, `0 [shape=box, label="0/1", style=filled, height=0.3, width=0.3];`)
	err := m.Walk(func(idx NodeIndex, n Node) error {
		pos := idx.Position()
		if pos == 0 {
			return nil
		}
		fmt.Fprintf(w, "%d [label=\"%d\\n[%d]\"];\n", pos, pos, n.Variable())
		if n.Low.Position() != 0 {
			fmt.Fprintf(w, "%d -> %d [style=dotted];\n", pos, n.Low.Position())
		}
		if n.High.Position() != 0 {
			fmt.Fprintf(w, "%d -> %d [style=filled];\n", pos, n.High.Position())
		}
		return nil
	}, roots...)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "}")
	return nil
}
