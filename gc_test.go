package bdd

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// collect must preserve every node reachable from a live Handle and the
// function it denotes, while discarding everything else and renumbering
// positions so age order (a parent always has a higher position than its
// children) is preserved.
func TestCollectPreservesLiveFunction(t *testing.T) {
	m, err := New(WithInitialNodes(16), WithGCMinCutoff(1<<31))
	require.NoError(t, err)

	h := make([]*Handle, 5)
	for i := range h {
		v, err := m.Var(uint32(i))
		require.NoError(t, err)
		h[i] = v
	}

	f, err := m.And(h[0], h[1])
	require.NoError(t, err)
	f, err = m.Or(f, h[2])
	require.NoError(t, err)
	wantCount, err := m.SatCount(f)
	require.NoError(t, err)

	// Build and discard a large amount of garbage: conjunctions of
	// unrelated variables that share no Handle, so every intermediate node
	// becomes unreachable once its Go reference count is dropped and the
	// finalizer queue is drained by GC below.
	for i := 0; i < 200; i++ {
		g, err := m.And(h[3], h[4])
		require.NoError(t, err)
		g, err = m.Xor(g, f)
		require.NoError(t, err)
		_ = g
	}

	// Drop every reference to the discarded Handles and force their
	// finalizers to run so the entries they back actually go stale before
	// collect() marks from roots.
	runtime.GC()
	runtime.GC()

	before := m.pool.size()
	m.collect()
	after := m.pool.size()
	require.LessOrEqual(t, after, before)

	gotCount, err := m.SatCount(f)
	require.NoError(t, err)
	require.Equal(t, wantCount, gotCount)

	// Recomputing a still-live function hash-conses to the exact handle it
	// already has.
	ab, err := m.And(h[0], h[1])
	require.NoError(t, err)
	recomputed, err := m.Or(ab, h[2])
	require.NoError(t, err)
	require.True(t, f.Equal(recomputed))

	for pos := uint32(1); pos < m.pool.size(); pos++ {
		n := m.pool.at(pos)
		if n.Low.Position() != 0 {
			require.Less(t, n.Low.Position(), pos)
		}
		if n.High.Position() != 0 {
			require.Less(t, n.High.Position(), pos)
		}
	}
}

func TestCheckForCollectionTriggersAtCutoff(t *testing.T) {
	m, err := New(WithInitialNodes(16), WithGCMinCutoff(4))
	require.NoError(t, err)

	h := make([]*Handle, 6)
	for i := range h {
		v, err := m.Var(uint32(i))
		require.NoError(t, err)
		h[i] = v
	}
	// 15 distinct xor results on top of 6 literals push the 16-node pool
	// past 90% occupancy, so one of these calls must collect on entry.
	for i := 0; i < 6; i++ {
		for j := i + 1; j < 6; j++ {
			_, err := m.Xor(h[i], h[j])
			require.NoError(t, err)
		}
	}
	require.NotEmpty(t, m.gcHistory)
}
