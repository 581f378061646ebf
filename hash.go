package bdd

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// hashKeyBuf is reused across calls to avoid an allocation per hash-consing
// lookup; the manager is single-threaded, so one scratch buffer per owner
// is safe.
type hashKeyBuf struct {
	buf [20]byte
}

// nodeHash combines a variable id and its two children into the bucket
// index used by uniqueTable. The triple is packed into bytes and run
// through xxhash; the unique table is consulted on every single node
// construction, so the bit spread of this function matters.
func (h *hashKeyBuf) nodeHash(variable uint32, low, high NodeIndex) uint64 {
	binary.LittleEndian.PutUint32(h.buf[0:4], variable)
	binary.LittleEndian.PutUint32(h.buf[4:8], uint32(low))
	binary.LittleEndian.PutUint32(h.buf[8:12], uint32(high))
	return xxhash.Sum64(h.buf[:12])
}

// pairHash combines two 64-bit values (e.g. two NodeIndex.hash() results)
// for use as an operation-cache key.
func (h *hashKeyBuf) pairHash(a, b uint64) uint64 {
	binary.LittleEndian.PutUint64(h.buf[0:8], a)
	binary.LittleEndian.PutUint64(h.buf[8:16], b)
	return xxhash.Sum64(h.buf[:16])
}

// tripleHash combines three 64-bit values for the three-operand ITE cache.
func (h *hashKeyBuf) tripleHash(a, b, c uint64) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], a)
	binary.LittleEndian.PutUint64(buf[8:16], b)
	binary.LittleEndian.PutUint64(buf[16:24], c)
	return xxhash.Sum64(buf[:])
}
