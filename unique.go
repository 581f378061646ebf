package bdd

// uniqueTable is the hash-consing table mapping (variable, low, high) to an
// existing NodeIndex. It is an open-addressed dictionary with
// separate-chaining stored in a parallel entries array: buckets
// holds, per hash bucket, the pool position of the most recently inserted
// node in that bucket (0 meaning empty, since position 0 is the terminal
// sentinel and is never itself a unique-table entry); chain holds, per pool
// position, the next older position sharing the same bucket (0 meaning end
// of chain).
type uniqueTable struct {
	buckets []uint32
	chain   []uint32
	mask    uint32
	count   int
	hk      hashKeyBuf

	accesses int
	hits     int
	misses   int
}

func newUniqueTable(bucketCount, poolCapacity uint32) *uniqueTable {
	bucketCount = nextPowerOfTwo(bucketCount)
	return &uniqueTable{
		buckets: make([]uint32, bucketCount),
		chain:   make([]uint32, poolCapacity),
		mask:    bucketCount - 1,
	}
}

// ensureChainCapacity grows the parallel chain array to match a resized
// pool. Entries beyond the old length are zero (no chain), which is the
// correct initial state for positions not yet allocated.
func (u *uniqueTable) ensureChainCapacity(poolCapacity uint32) {
	if uint32(len(u.chain)) >= poolCapacity {
		return
	}
	grown := make([]uint32, poolCapacity)
	copy(grown, u.chain)
	u.chain = grown
}

func (u *uniqueTable) bucketOf(variable uint32, low, high NodeIndex) uint32 {
	h := u.hk.nodeHash(variable, low, high)
	return uint32(h) & u.mask
}

// lookup searches the collision chain for a node matching (variable, low,
// high), with an age-ordering fast path: chain entries
// are produced newest-first, and by the age invariant (a node's position is
// always strictly greater than both of its children's), once we reach an
// entry whose position does not exceed either child's position, no entry
// further down the (strictly older) chain can match either, so the search
// stops instead of running to the end of the bucket.
func (u *uniqueTable) lookup(pool *memoryPool, variable uint32, low, high NodeIndex) (uint32, bool) {
	u.accesses++
	lowPos, highPos := low.Position(), high.Position()
	pos := u.buckets[u.bucketOf(variable, low, high)]
	for pos != 0 {
		n := pool.at(pos)
		if n.Variable() == variable && n.Low == low && n.High == high {
			u.hits++
			return pos, true
		}
		if pos <= lowPos && pos <= highPos {
			break
		}
		pos = u.chain[pos]
	}
	u.misses++
	return 0, false
}

// insert records that position holds a freshly-allocated node with the
// given key, chaining it at the head of its bucket.
func (u *uniqueTable) insert(position uint32, variable uint32, low, high NodeIndex) {
	b := u.bucketOf(variable, low, high)
	u.chain[position] = u.buckets[b]
	u.buckets[b] = position
	u.count++
}

// loadFactorFull reports whether the table has reached capacity and should
// be doubled and rehashed.
func (u *uniqueTable) loadFactorFull() bool {
	return u.count >= len(u.buckets)
}

// rehash doubles the bucket count and reinserts every occupied pool
// position (1..size-1) that is not itself stale; stale positions (dead
// after a GC that has not yet compacted) are skipped by the caller, which
// always calls rehash only with a pool holding exclusively live nodes
// (post-compaction) or never having had dead nodes at all (pre-GC resize).
func (u *uniqueTable) rehash(pool *memoryPool) {
	newBuckets := make([]uint32, uint32(len(u.buckets))*2)
	u.buckets = newBuckets
	u.mask = uint32(len(newBuckets)) - 1
	u.ensureChainCapacity(pool.capacity())
	for i := range u.chain {
		u.chain[i] = 0
	}
	u.count = 0
	for pos := uint32(1); pos < pool.size(); pos++ {
		n := pool.at(pos)
		u.insert(pos, n.Variable(), n.Low, n.High)
	}
}

// reset clears every bucket and chain entry without changing capacity; used
// after compaction, where the caller reinserts the surviving (compacted,
// renumbered) positions directly.
func (u *uniqueTable) reset() {
	for i := range u.buckets {
		u.buckets[i] = 0
	}
	for i := range u.chain {
		u.chain[i] = 0
	}
	u.count = 0
}
