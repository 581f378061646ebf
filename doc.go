/*
Package bdd implements a manager for Binary Decision Diagrams (BDD), a
canonical, maximally-shared representation of Boolean functions as directed
acyclic graphs.

Basics

A Manager owns a node pool, a unique table (hash-consing), a set of
operation caches, and the garbage collector that reclaims unreachable
nodes. Every Boolean function manipulated through a Manager is identified
by a Handle: an opaque, externally-owned reference that keeps its
underlying node alive until the Handle itself becomes unreachable.

Internally, nodes are addressed by a NodeIndex: a 32-bit value that packs a
position in the node pool together with a complement bit. The complement
bit lets Not run in constant time and lets a function and its negation
share a single node, at the cost of maintaining the invariant that a
stored node's low edge is never itself complemented (see Node).

Construction

New variables are introduced on demand with Manager.Var, which returns the
Handle for the positive literal of a level; Manager grows its pool and
variable ordering lazily as new levels are requested. Multiple independent
managers can coexist in one process; a Handle, VarSet, or VarMap created
by one manager is rejected (ManagerMismatch) if passed to another.

Scope

This package implements only the core manager described above: pool,
unique table, caches, garbage collector, and the apply/ite/exists/replace/
satcount/sat family of recursive algorithms over the standard BDD
reduction rule. It does not implement typed variables (bool/intN/bitvector
convenience layers), the ZDD reduction rule, the compressed-node (CBDD)
variant, dynamic variable reordering, or persistence; those are built, if
needed, as external collaborators on top of the contract exposed here.
*/
package bdd
