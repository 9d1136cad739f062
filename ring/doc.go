// Package ring implements the cache-aligned slot types and lock-free ring
// buffer engines that every other layer of this module is built on:
// fixed-width slots (L0), cursor-based SPSC/Broadcast/SPMC/MPSC/MPMC engines
// (L1), and a variable-length message ring over those engines (L2).
//
// All five ring variants share the same cursor algebra: a producer cursor,
// one or more consumer cursors, and an index computed as sequence & mask
// where capacity is a power of two. Claim and publish do not allocate; the
// batch reads (TryConsumeBatch, PeekBatch) and TryClaimSlots return a newly
// allocated slice of slot references on every call. None of the engines
// block — a full or empty ring is reported back to the caller, who decides
// whether to spin, yield, or give up.
package ring
