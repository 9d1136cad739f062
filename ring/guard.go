package ring

// ReadGuard is the "read-then-commit" handle returned by ClaimRead on the
// SPMC and MPMC engines. The consumer atomically claims the next sequence
// via CAS on the shared read cursor before it has looked at the payload;
// Commit() releases that slot back to the producer for reclamation. Commit
// is idempotent and is meant to run under defer so an early return (e.g. a
// sentinel value terminates the handler) still advances the consumer's
// logical position — the slot is never silently skipped.
type ReadGuard[T Entry] struct {
	Sequence uint64
	Value    T

	committed bool
	onCommit  func(seq uint64)
}

// Commit releases the guarded sequence. Safe to call multiple times or via
// defer regardless of how the enclosing scope exits.
func (g *ReadGuard[T]) Commit() {
	if g.committed {
		return
	}
	g.committed = true
	if g.onCommit != nil {
		g.onCommit(g.Sequence)
	}
}
