package bdd

// Assignment is the result of a successful Sat call: a partial valuation of
// variable levels. Levels never tested along the chosen branch are absent
// from the recorded set ("don't care"), unless the caller supplied a VarSet
// to Sat, in which case every level of that set is recorded, with
// don't-cares filled in as false.
type Assignment struct {
	values map[uint32]bool
}

// Get returns the recorded value of level. Asking for a level outside the
// recorded set fails with LookupMiss.
func (a *Assignment) Get(level uint32) (bool, error) {
	v, ok := a.values[level]
	if !ok {
		return false, newError(LookupMiss, "variable %d is not in the recorded assignment", level)
	}
	return v, nil
}

// Defined reports whether level is in the recorded set.
func (a *Assignment) Defined(level uint32) bool {
	_, ok := a.values[level]
	return ok
}

// Len returns the number of recorded levels.
func (a *Assignment) Len() int {
	return len(a.values)
}
