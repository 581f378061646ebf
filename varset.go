package bdd

import (
	"sort"
	"strconv"
	"strings"
)

// VarSet is the consumed contract for an external variable-convenience
// layer's notion of a sorted set of variable (level) ids, as used by Exists
// and Forall. This package never constructs typed bool/intN/bitvector
// variables itself; it only consumes this interface and the one below it.
type VarSet interface {
	// MaxIndex returns the greatest level in the set, or -1 if empty.
	MaxIndex() int
	// Contains reports whether level is a member.
	Contains(level uint32) bool
	// id is a cacheable identifier: two VarSet values with identical
	// members must return the same id so Exists can reuse a cache entry
	// across equivalent-but-distinct VarSet instances.
	id() uint64
	managerID() uint16
}

// VarMap is the consumed contract for a partial function on variable ids
// used by Replace: identity outside its domain, and required (checked by
// NewVarMap) to be injective so the produced function stays well-defined.
type VarMap interface {
	// MaxDomain returns the greatest level in the map's domain, or -1 if
	// the map is empty (the identity everywhere).
	MaxDomain() int
	// Get returns the level that level is mapped to, or level itself if
	// level is outside the domain.
	Get(level uint32) uint32
	id() uint64
	managerID() uint16
}

// Set is the concrete VarSet this module hands out from Manager.NewVarSet.
// It is an immutable, sorted slice of distinct levels.
type Set struct {
	mid    uint16
	sorted []uint32
	setID  uint64
}

// NewVarSet builds a Set of the given levels, owned by m. Levels may be
// passed in any order but must be distinct; a duplicate is InvalidArgument.
// Two calls with the same member levels (regardless of input order) return
// Set values that compare equal for caching purposes (id()).
func (m *Manager) NewVarSet(levels ...uint32) (*Set, error) {
	sorted := append([]uint32(nil), levels...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return nil, newError(InvalidArgument, "duplicate variable %d in VarSet", sorted[i])
		}
	}
	return &Set{mid: m.id, sorted: sorted, setID: m.internSetID(sorted)}, nil
}

// MaxIndex implements VarSet.
func (s *Set) MaxIndex() int {
	if len(s.sorted) == 0 {
		return -1
	}
	return int(s.sorted[len(s.sorted)-1])
}

// Contains implements VarSet.
func (s *Set) Contains(level uint32) bool {
	i := sort.Search(len(s.sorted), func(i int) bool { return s.sorted[i] >= level })
	return i < len(s.sorted) && s.sorted[i] == level
}

func (s *Set) id() uint64        { return s.setID }
func (s *Set) managerID() uint16 { return s.mid }

// Map is the concrete VarMap this module hands out from Manager.NewVarMap.
type Map struct {
	mid    uint16
	assign map[uint32]uint32
	maxDom int
	mapID  uint64
}

// NewVarMap builds a Map from the given from->to pairs, owned by m. The map
// must be injective (no two distinct domain levels mapped to the same
// target) or the construction fails with InvalidArgument, since a
// non-injective substitution would silently merge two distinct functions.
func (m *Manager) NewVarMap(assign map[uint32]uint32) (*Map, error) {
	seen := make(map[uint32]uint32, len(assign))
	maxDom := -1
	for from, to := range assign {
		if prior, ok := seen[to]; ok && prior != from {
			return nil, newError(InvalidArgument, "VarMap is not injective: both %d and %d map to %d", prior, from, to)
		}
		seen[to] = from
		if int(from) > maxDom {
			maxDom = int(from)
		}
	}
	cp := make(map[uint32]uint32, len(assign))
	keys := make([]uint32, 0, len(assign))
	for k, v := range assign {
		cp[k] = v
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return &Map{mid: m.id, assign: cp, maxDom: maxDom, mapID: m.internMapID(keys, cp)}, nil
}

// MaxDomain implements VarMap.
func (mp *Map) MaxDomain() int { return mp.maxDom }

// Get implements VarMap.
func (mp *Map) Get(level uint32) uint32 {
	if to, ok := mp.assign[level]; ok {
		return to
	}
	return level
}

func (mp *Map) id() uint64        { return mp.mapID }
func (mp *Map) managerID() uint16 { return mp.mid }

// internSetID and internMapID give identical-membership VarSet/VarMap
// values the same cacheable id, the same way the Manager hash-conses
// structurally identical nodes in its unique table: two sets with the
// same members must reuse each other's Exists cache entries.
func (m *Manager) internSetID(sorted []uint32) uint64 {
	var b strings.Builder
	for i, v := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(v), 10))
	}
	return m.internID(b.String())
}

func (m *Manager) internMapID(keys []uint32, assign map[uint32]uint32) uint64 {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.FormatUint(uint64(k), 10))
		b.WriteByte('-')
		b.WriteString(strconv.FormatUint(uint64(assign[k]), 10))
	}
	return m.internID(b.String())
}

func (m *Manager) internID(key string) uint64 {
	if id, ok := m.internTable[key]; ok {
		return id
	}
	m.nextInternID++
	m.internTable[key] = m.nextInternID
	return m.nextInternID
}
